package api

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Capitan-Parrot/detect-people/internal/models"
)

// Journal lists recorded outcomes, newest first.
type Journal interface {
	RecentOutcomes(ctx context.Context, limit int) ([]models.OutcomeEvent, error)
}

type Handlers struct {
	stats   *Stats
	journal Journal
	logger  *zap.Logger
}

// NewHandlers wires the status endpoints. journal may be nil.
func NewHandlers(stats *Stats, journal Journal, logger *zap.Logger) *Handlers {
	return &Handlers{stats: stats, journal: journal, logger: logger}
}

func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/stats", h.GetStatsHandler).Methods(http.MethodGet)
	r.HandleFunc("/outcomes", h.GetOutcomesHandler).Methods(http.MethodGet)
	return r
}

func (h *Handlers) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, map[string]string{"status": "ok"})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Debug("write response failed", zap.Error(err))
	}
}
