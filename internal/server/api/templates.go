package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/posewall/internal/pose"
	"github.com/ayusman/posewall/internal/scoring"
	"github.com/ayusman/posewall/internal/store"
	"github.com/ayusman/posewall/internal/target"
)

// TemplateHandler serves the target catalog and manages custom templates.
type TemplateHandler struct {
	store         *store.Store
	catalog       *target.Catalog
	scorer        *scoring.Scorer
	passThreshold int
	log           logrus.FieldLogger
}

// NewTemplateHandler creates a TemplateHandler. st may be nil, in which case
// templates can be listed but not created or deleted. New templates must
// score at least passThreshold against themselves.
func NewTemplateHandler(st *store.Store, catalog *target.Catalog, scorer *scoring.Scorer, passThreshold int, log logrus.FieldLogger) *TemplateHandler {
	return &TemplateHandler{store: st, catalog: catalog, scorer: scorer, passThreshold: passThreshold, log: log}
}

// minStandingCoverage is the fraction of shoulders, hips, knees and ankles
// a custom template must show. Hidden joints shift the bounding box and
// hide a standing body from the standing check.
const minStandingCoverage = 0.75

// Routes registers the template endpoints on r.
func (h *TemplateHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{template}", h.get)
	if h.store != nil {
		r.Post("/", h.create)
		r.Delete("/{template}", h.delete)
	}
}

type createTemplateRequest struct {
	Name      string          `json:"name" validate:"required,max=64,excludesall=/"`
	Landmarks []pose.Landmark `json:"landmarks" validate:"required,min=1,max=33"`
}

type templateResponse struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Builtin   bool            `json:"builtin"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
	Landmarks []pose.Landmark `json:"landmarks,omitempty"`
}

type listTemplatesResponse struct {
	Templates []templateResponse `json:"templates"`
}

// list handles GET /api/templates.
func (h *TemplateHandler) list(w http.ResponseWriter, r *http.Request) {
	custom := map[string]*store.Template{}
	if h.store != nil {
		saved, err := h.store.Templates().List()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to list templates")
			return
		}
		for _, t := range saved {
			custom[t.Name] = t
		}
	}

	templates := h.catalog.List()
	response := listTemplatesResponse{
		Templates: make([]templateResponse, 0, len(templates)),
	}
	for _, t := range templates {
		resp := templateResponse{Name: t.Name, Builtin: t.Builtin}
		if saved, ok := custom[t.Name]; ok && !t.Builtin {
			resp.ID = saved.ID
			resp.CreatedAt = &saved.CreatedAt
		}
		response.Templates = append(response.Templates, resp)
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/templates/{name} and returns its normalized landmarks.
func (h *TemplateHandler) get(w http.ResponseWriter, r *http.Request) {
	t, err := h.catalog.Get(chi.URLParam(r, "template"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Template not found")
		return
	}

	writeJSON(w, http.StatusOK, templateResponse{
		Name:      t.Name,
		Builtin:   t.Builtin,
		Landmarks: t.Pose.Landmarks(),
	})
}

// create handles POST /api/templates. The raw pose is stored; poses that
// look like standing are rejected.
func (h *TemplateHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := pose.Normalize(req.Landmarks)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unusable pose: "+err.Error())
		return
	}
	if usable, total := h.scorer.StandingCoverage(p); float64(usable) < float64(total)*minStandingCoverage {
		writeError(w, http.StatusUnprocessableEntity, "Pose must show shoulders, hips, knees and ankles")
		return
	}
	if h.scorer.IsStanding(p) {
		writeError(w, http.StatusUnprocessableEntity, "Pose is too close to standing")
		return
	}
	if self := h.scorer.Explain(p, p); self.Reason != scoring.ReasonScored || self.Score < h.passThreshold {
		writeError(w, http.StatusUnprocessableEntity, "Pose cannot be told apart from standing")
		return
	}
	if _, err := h.catalog.Get(req.Name); err == nil {
		writeError(w, http.StatusConflict, "Template name already exists")
		return
	}

	tpl := &store.Template{
		ID:   uuid.New().String(),
		Name: req.Name,
	}
	if err := h.store.Templates().Create(tpl); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create template")
		return
	}
	if err := h.store.Templates().SetLandmarks(tpl.ID, req.Landmarks); err != nil {
		h.store.Templates().Delete(tpl.ID)
		writeError(w, http.StatusInternalServerError, "Failed to save landmarks")
		return
	}
	if err := h.catalog.Add(target.Template{Name: tpl.Name, Pose: *p}); err != nil {
		h.store.Templates().Delete(tpl.ID)
		writeError(w, http.StatusConflict, "Template name already exists")
		return
	}

	h.log.WithFields(logrus.Fields{"template": tpl.Name, "id": tpl.ID}).Info("template created")
	writeJSON(w, http.StatusCreated, templateResponse{
		ID:        tpl.ID,
		Name:      tpl.Name,
		CreatedAt: &tpl.CreatedAt,
		Landmarks: p.Landmarks(),
	})
}

// delete handles DELETE /api/templates/{id}. The template's name is
// accepted in place of its id.
func (h *TemplateHandler) delete(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "template")
	tpl, err := h.store.Templates().GetByID(ref)
	if errors.Is(err, store.ErrNotFound) {
		tpl, err = h.store.Templates().GetByName(ref)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Template not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get template")
		return
	}

	if err := h.store.Templates().Delete(tpl.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete template")
		return
	}
	if err := h.catalog.Remove(tpl.Name); err != nil && !errors.Is(err, target.ErrTemplateNotFound) {
		h.log.WithError(err).WithField("template", tpl.Name).Warn("template kept in catalog")
	}

	h.log.WithField("template", tpl.Name).Info("template deleted")
	w.WriteHeader(http.StatusNoContent)
}

// LoadTemplates adds every stored custom template to catalog and returns
// how many were loaded. Templates that no longer normalize or clash with a
// catalog name are skipped.
func LoadTemplates(st *store.Store, catalog *target.Catalog, log logrus.FieldLogger) (int, error) {
	saved, err := st.Templates().List()
	if err != nil {
		return 0, err
	}

	loaded := 0
	for _, t := range saved {
		raw, err := st.Templates().GetLandmarks(t.ID)
		if err != nil {
			log.WithError(err).WithField("template", t.Name).Warn("failed to load landmarks")
			continue
		}
		p, err := pose.Normalize(raw)
		if err != nil {
			log.WithError(err).WithField("template", t.Name).Warn("skipping unusable template")
			continue
		}
		if err := catalog.Add(target.Template{Name: t.Name, Pose: *p}); err != nil {
			log.WithError(err).WithField("template", t.Name).Warn("skipping template")
			continue
		}
		loaded++
	}
	return loaded, nil
}
