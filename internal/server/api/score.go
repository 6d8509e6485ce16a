package api

import (
	"bytes"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/ayusman/posewall/internal/pose"
	"github.com/ayusman/posewall/internal/scoring"
	"github.com/ayusman/posewall/internal/target"
)

// ScoreHandler scores a pose against a target without any game state.
type ScoreHandler struct {
	catalog *target.Catalog
	scorer  *scoring.Scorer
}

// NewScoreHandler creates a ScoreHandler.
func NewScoreHandler(catalog *target.Catalog, scorer *scoring.Scorer) *ScoreHandler {
	return &ScoreHandler{catalog: catalog, scorer: scorer}
}

// scoreRequest carries the raw current pose and a target given either as a
// raw pose or as a template name.
type scoreRequest struct {
	Current []pose.Landmark     `json:"current" validate:"required,min=1,max=33"`
	Target  jsoniter.RawMessage `json:"target" validate:"required"`
}

type scoreResponse struct {
	Template string `json:"template,omitempty"`
	scoring.Breakdown
}

// ServeHTTP handles POST /api/score.
func (h *ScoreHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tgt, name, status, msg := h.resolveTarget(req.Target)
	if tgt == nil {
		writeError(w, status, msg)
		return
	}

	// An unusable current pose scores as if nobody were there.
	current, _ := pose.Normalize(req.Current)

	writeJSON(w, http.StatusOK, scoreResponse{
		Template:  name,
		Breakdown: h.scorer.Explain(current, tgt),
	})
}

func (h *ScoreHandler) resolveTarget(raw jsoniter.RawMessage) (*pose.Pose, string, int, string) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return nil, "", http.StatusBadRequest, "invalid target name"
		}
		t, err := h.catalog.Get(name)
		if err != nil {
			return nil, "", http.StatusNotFound, "Template not found"
		}
		return &t.Pose, t.Name, 0, ""
	}

	var landmarks []pose.Landmark
	if err := json.Unmarshal(raw, &landmarks); err != nil || len(landmarks) == 0 {
		return nil, "", http.StatusBadRequest, "target must be a template name or a list of landmarks"
	}
	p, err := pose.Normalize(landmarks)
	if err != nil {
		return nil, "", http.StatusBadRequest, "Unusable target pose: " + err.Error()
	}
	return p, "", 0, ""
}
