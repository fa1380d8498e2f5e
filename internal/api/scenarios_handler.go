package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dairyforecast/herdsim/internal/forecasterr"
	"github.com/dairyforecast/herdsim/internal/montecarlo"
	"github.com/dairyforecast/herdsim/internal/scenarios"
)

// ScenariosHandler implements the saved-scenario-preset boundary: a thin
// CRUD surface the core never reads directly.
type ScenariosHandler struct {
	Repo   *scenarios.Repository
	Logger *zap.Logger
}

// NewScenariosHandler wires a ScenariosHandler's collaborators.
func NewScenariosHandler(repo *scenarios.Repository, logger *zap.Logger) *ScenariosHandler {
	return &ScenariosHandler{Repo: repo, Logger: logger}
}

type presetResponse struct {
	ID        string                    `json:"id"`
	Name      string                    `json:"name"`
	Params    montecarlo.ScenarioParams `json:"params"`
	CreatedAt string                    `json:"created_at"`
}

func convertPreset(p *scenarios.Preset) presetResponse {
	return presetResponse{ID: p.ID, Name: p.Name, Params: p.Params, CreatedAt: p.CreatedAt.Format(time.RFC3339)}
}

// Save handles POST /forecasts/v1/scenarios
func (h *ScenariosHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   string                    `json:"name"`
		Params montecarlo.ScenarioParams `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, h.Logger, forecasterr.RequestValidation("invalid request body: "+err.Error()))
		return
	}
	if req.Name == "" {
		respondErr(w, h.Logger, forecasterr.RequestValidation("name is required"))
		return
	}
	if err := req.Params.Validate(); err != nil {
		respondErr(w, h.Logger, err)
		return
	}

	preset, err := h.Repo.Save(r.Context(), ownerID(r), req.Name, req.Params)
	if err != nil {
		respondErr(w, h.Logger, forecasterr.Internal(err))
		return
	}
	respondJSON(w, h.Logger, http.StatusCreated, convertPreset(preset))
}

// Get handles GET /forecasts/v1/scenarios/{scenarioId}
func (h *ScenariosHandler) Get(w http.ResponseWriter, r *http.Request) {
	preset, err := h.Repo.Get(r.Context(), ownerID(r), chi.URLParam(r, "scenarioId"))
	if err != nil {
		respondErr(w, h.Logger, err)
		return
	}
	respondJSON(w, h.Logger, http.StatusOK, convertPreset(preset))
}

// List handles GET /forecasts/v1/scenarios
func (h *ScenariosHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Repo.List(r.Context(), ownerID(r))
	if err != nil {
		respondErr(w, h.Logger, forecasterr.Internal(err))
		return
	}
	out := make([]presetResponse, len(list))
	for i := range list {
		out[i] = convertPreset(&list[i])
	}
	respondJSON(w, h.Logger, http.StatusOK, map[string]interface{}{"items": out})
}
