package api

import (
	"encoding/json"
	"net/http"

	"manbo/internal/analysis"
	"manbo/pkg/errors"
	"manbo/pkg/logger"
)

// Handlers exposes the analysis engine over HTTP.
type Handlers struct {
	dispatcher *analysis.Dispatcher
	store      analysis.Store
	log        *logger.Logger
}

// NewHandlers wires the HTTP surface to the dispatcher and store.
func NewHandlers(dispatcher *analysis.Dispatcher, store analysis.Store) *Handlers {
	return &Handlers{
		dispatcher: dispatcher,
		store:      store,
		log:        logger.Get().With("component", "api"),
	}
}

// Register attaches the routes to a mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /analysis", h.submitAnalysis)
	mux.HandleFunc("GET /analysis/{id}/status", h.analysisStatus)
	mux.HandleFunc("GET /analysis/{id}", h.analysisResult)
}

// submitAnalysis accepts a job and returns 202 with its id. Invalid
// requests get 400; a full queue gets 503.
func (h *Handlers) submitAnalysis(w http.ResponseWriter, r *http.Request) {
	var params analysis.JobParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}

	record, err := h.dispatcher.Submit(r.Context(), params)
	switch {
	case errors.Is(err, errors.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, errors.ErrQueueFull):
		writeError(w, http.StatusServiceUnavailable, "analysis queue is full, try again later")
		return
	case err != nil:
		h.log.Errorf("submit failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"id":     record.ID,
		"status": record.Status,
	})
}

// analysisStatus returns the lifecycle view of a job without its payload.
func (h *Handlers) analysisStatus(w http.ResponseWriter, r *http.Request) {
	record, ok := h.fetch(w, r)
	if !ok {
		return
	}

	payload := map[string]interface{}{
		"id":           record.ID,
		"status":       record.Status,
		"symbol":       record.Params.Symbol,
		"market":       record.Params.Market,
		"has_result":   record.Result != nil,
		"created_at":   record.CreatedAt,
		"started_at":   record.StartedAt,
		"completed_at": record.CompletedAt,
	}
	if record.Error != "" {
		payload["error"] = record.Error
	}
	writeJSON(w, http.StatusOK, payload)
}

// analysisResult returns the finished result. In-progress jobs answer 202,
// failed jobs 500 with the recorded error.
func (h *Handlers) analysisResult(w http.ResponseWriter, r *http.Request) {
	record, ok := h.fetch(w, r)
	if !ok {
		return
	}

	switch record.Status {
	case analysis.StatusQueued, analysis.StatusRunning:
		writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"id":     record.ID,
			"status": record.Status,
		})
	case analysis.StatusFailed:
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"id":     record.ID,
			"status": record.Status,
			"error":  record.Error,
		})
	default:
		payload := map[string]interface{}{
			"id":             record.ID,
			"status":         record.Status,
			"symbol":         record.Params.Symbol,
			"market":         record.Params.Market,
			"research_depth": record.Params.ResearchDepth,
			"created_at":     record.CreatedAt,
			"completed_at":   record.CompletedAt,
			"result":         record.Result,
		}
		if record.Params.LLMProvider != "" {
			payload["llm_provider"] = record.Params.LLMProvider
		}
		writeJSON(w, http.StatusOK, payload)
	}
}

func (h *Handlers) fetch(w http.ResponseWriter, r *http.Request) (*analysis.JobRecord, bool) {
	id := r.PathValue("id")

	record, err := h.store.Get(r.Context(), id)
	if errors.Is(err, errors.ErrNotFound) {
		writeError(w, http.StatusNotFound, "analysis not found")
		return nil, false
	}
	if err != nil {
		h.log.Errorf("fetch job %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	return record, true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
