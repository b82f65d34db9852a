package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/Capitan-Parrot/detect-people/internal/models"
)

// Stats counts finished requests per outcome. It is a triage sink.
type Stats struct {
	mu           sync.Mutex
	counts       map[models.Outcome]int64
	lastFinished time.Time
}

func NewStats() *Stats {
	return &Stats{
		counts: lo.SliceToMap(models.Outcomes, func(o models.Outcome) (models.Outcome, int64) { return o, 0 }),
	}
}

// Record implements triage.Sink.
func (s *Stats) Record(_ context.Context, ev models.OutcomeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counts[ev.Outcome]++
	if ev.TimeStamp.After(s.lastFinished) {
		s.lastFinished = ev.TimeStamp
	}
	return nil
}

type StatsSnapshot struct {
	Outcomes     map[models.Outcome]int64 `json:"outcomes"`
	Total        int64                    `json:"total"`
	LastFinished *time.Time               `json:"last_finished,omitempty"`
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatsSnapshot{
		Outcomes: lo.Assign(s.counts),
		Total:    lo.Sum(lo.Values(s.counts)),
	}
	if !s.lastFinished.IsZero() {
		last := s.lastFinished
		snap.LastFinished = &last
	}
	return snap
}

// GetStatsHandler returns the outcome counters since start.
func (h *Handlers) GetStatsHandler(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, h.stats.Snapshot())
}
