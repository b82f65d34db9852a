package api

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

const defaultOutcomeLimit = 50

// GetOutcomesHandler lists the newest journal rows. 404 without a journal.
func (h *Handlers) GetOutcomesHandler(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		http.Error(w, "Outcome journal is disabled", http.StatusNotFound)
		return
	}

	limit := defaultOutcomeLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	outcomes, err := h.journal.RecentOutcomes(r.Context(), limit)
	if err != nil {
		h.logger.Error("list outcomes failed", zap.Error(err))
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, outcomes)
}
