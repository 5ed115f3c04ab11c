package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/nadavlev/hebscribe/internal/services"
)

type HistoryHandler struct {
	history *services.History
}

func NewHistoryHandler(history *services.History) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// List returns the names of all previously processed files, first-seen order.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"files": h.history.Names()})
}

// Clear empties the history. Persistence failures are swallowed; the session
// view is cleared regardless.
func (h *HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.history.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
