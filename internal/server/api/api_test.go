package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/ayusman/posewall/internal/game"
	"github.com/ayusman/posewall/internal/logging"
	"github.com/ayusman/posewall/internal/pose"
	"github.com/ayusman/posewall/internal/scoring"
	"github.com/ayusman/posewall/internal/store"
	"github.com/ayusman/posewall/internal/target"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func newScorer() *scoring.Scorer {
	return scoring.NewScorer(scoring.DefaultTuning(), target.StandingPose())
}

func templateRouter(st *store.Store, catalog *target.Catalog) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/templates", NewTemplateHandler(st, catalog, newScorer(), game.DefaultPassThreshold, logging.Discard()).Routes)
	return r
}

func TestDecode(t *testing.T) {
	type body struct {
		Name string `json:"name" validate:"required"`
	}

	tests := []struct {
		name    string
		payload string
		wantErr string
	}{
		{"valid", `{"name":"x"}`, ""},
		{"malformed", `{"name":`, "invalid JSON"},
		{"missing field", `{}`, "invalid field Name: required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.payload))
			var v body
			err := decode(req, &v)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("decode() error = %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("decode() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestIPLimiter(t *testing.T) {
	l := NewIPLimiter(rate.Limit(1), 2)
	h := l.Middleware(logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := call("10.0.0.1:1000"); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, code)
		}
	}
	if code := call("10.0.0.1:2000"); code != http.StatusTooManyRequests {
		t.Errorf("expected 429 after the burst, got %d", code)
	}
	if code := call("10.0.0.2:1000"); code != http.StatusOK {
		t.Errorf("expected another address to have its own bucket, got %d", code)
	}
	if l.For("10.0.0.1") != l.For("10.0.0.1") {
		t.Error("expected the same bucket for the same address")
	}
}

func TestTemplateHandler_Create(t *testing.T) {
	st := newTestStore(t)
	catalog := target.NewCatalog()
	h := templateRouter(st, catalog)

	raw, _ := target.Raw(catalog.At(0).Name)
	post := func(body interface{}) *httptest.ResponseRecorder {
		data, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, "/api/templates", bytes.NewReader(data))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("stores the raw pose", func(t *testing.T) {
		rec := post(map[string]interface{}{"name": "mine", "landmarks": raw})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		saved, err := st.Templates().GetByName("mine")
		if err != nil {
			t.Fatalf("GetByName() error = %v", err)
		}
		landmarks, err := st.Templates().GetLandmarks(saved.ID)
		if err != nil {
			t.Fatalf("GetLandmarks() error = %v", err)
		}
		if len(landmarks) != len(raw) || landmarks[pose.LeftWrist].X != raw[pose.LeftWrist].X {
			t.Error("expected the raw landmarks to be stored")
		}
		if _, err := catalog.Get("mine"); err != nil {
			t.Errorf("expected the catalog to hold the template: %v", err)
		}
	})

	t.Run("duplicate name", func(t *testing.T) {
		rec := post(map[string]interface{}{"name": catalog.At(0).Name, "landmarks": raw})
		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("standing pose", func(t *testing.T) {
		rec := post(map[string]interface{}{"name": "idle", "landmarks": target.StandingRaw()})
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("expected 422, got %d", rec.Code)
		}
	})

	t.Run("standing with hidden legs", func(t *testing.T) {
		// Hiding the legs shrinks the bounding box, so a standing body no
		// longer lines up with the standing reference.
		hidden := target.StandingRaw()
		for _, j := range []int{pose.LeftKnee, pose.RightKnee, pose.LeftAnkle, pose.RightAnkle} {
			hidden[j].Visibility = 0.2
		}
		rec := post(map[string]interface{}{"name": "legless", "landmarks": hidden})
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("expected 422, got %d: %s", rec.Code, rec.Body.String())
		}
		if _, err := catalog.Get("legless"); err == nil {
			t.Error("rejected template must not reach the catalog")
		}
	})

	t.Run("lying down standing body", func(t *testing.T) {
		// Rotating the standing body keeps every joint angle and bone
		// length, so nothing sets it apart from standing.
		lying := target.StandingRaw()
		for i := range lying {
			lying[i].X, lying[i].Y = lying[i].Y, -lying[i].X
		}
		rec := post(map[string]interface{}{"name": "lying", "landmarks": lying})
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("expected 422, got %d: %s", rec.Code, rec.Body.String())
		}
		if _, err := st.Templates().GetByName("lying"); err == nil {
			t.Error("rejected template must not be stored")
		}
	})

	t.Run("no landmarks", func(t *testing.T) {
		rec := post(map[string]interface{}{"name": "empty"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTemplateHandler_ReadOnly(t *testing.T) {
	h := templateRouter(nil, target.NewCatalog())

	req := httptest.NewRequest(http.MethodPost, "/api/templates", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 without a store, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/templates", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestLoadTemplates(t *testing.T) {
	st := newTestStore(t)
	raw, _ := target.Raw("star")

	tpl := &store.Template{ID: "t1", Name: "saved"}
	if err := st.Templates().Create(tpl); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := st.Templates().SetLandmarks(tpl.ID, raw); err != nil {
		t.Fatalf("SetLandmarks() error = %v", err)
	}
	// A clash with a built-in name is skipped.
	clash := &store.Template{ID: "t2", Name: "star"}
	st.Templates().Create(clash)
	st.Templates().SetLandmarks(clash.ID, raw)

	catalog := target.NewCatalog()
	before := catalog.Len()
	n, err := LoadTemplates(st, catalog, logging.Discard())
	if err != nil {
		t.Fatalf("LoadTemplates() error = %v", err)
	}
	if n != 1 || catalog.Len() != before+1 {
		t.Errorf("expected 1 loaded template, got %d (catalog %d -> %d)", n, before, catalog.Len())
	}
}
