package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nadavlev/hebscribe/internal/core/batch_engine"
)

type BatchHandler struct {
	svc *batch_engine.Service
}

func NewBatchHandler(svc *batch_engine.Service) *BatchHandler {
	return &BatchHandler{svc: svc}
}

// Start kicks off one pass over all pending files. Rejected with 409 while a
// run is in progress; starting with nothing pending is a no-op.
func (h *BatchHandler) Start(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	_, err := h.svc.StartBatch()
	switch {
	case err == nil:
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]any{"started": true})
	case errors.Is(err, batch_engine.ErrNoPending):
		json.NewEncoder(w).Encode(map[string]any{"started": false, "reason": err.Error()})
	case errors.Is(err, batch_engine.ErrBatchRunning):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Status reports the process-wide batch state: idle, processing or done.
func (h *BatchHandler) Status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"state": h.svc.State()})
}
