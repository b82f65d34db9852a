package detection

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/Capitan-Parrot/detect-people/internal/models"
)

type Detector interface {
	DetectObjects(ctx context.Context, path string) ([]models.Detection, error)
}

// Guarded limits how many inferences run at once against a detector that is
// not safe for unbounded concurrent use. A limit of 1 serializes calls.
type Guarded struct {
	next Detector
	sem  *semaphore.Weighted
}

func Guard(next Detector, maxInFlight int64) *Guarded {
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	return &Guarded{next: next, sem: semaphore.NewWeighted(maxInFlight)}
}

func (g *Guarded) DetectObjects(ctx context.Context, path string) ([]models.Detection, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer g.sem.Release(1)

	return g.next.DetectObjects(ctx, path)
}
