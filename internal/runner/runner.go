// Package runner adapts queue deliveries into triage requests.
package runner

import (
	"context"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Capitan-Parrot/detect-people/internal/kafka"
	"github.com/Capitan-Parrot/detect-people/internal/models"
)

const defaultConcurrency = 4

type Source interface {
	Messages() <-chan kafka.Message
}

type Handler interface {
	Handle(ctx context.Context, req models.TriageRequest)
}

type Runner struct {
	source      Source
	handler     Handler
	concurrency int
	logger      *zap.Logger
}

func New(source Source, handler Handler, concurrency int, logger *zap.Logger) *Runner {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Runner{
		source:      source,
		handler:     handler,
		concurrency: concurrency,
		logger:      logger,
	}
}

// ListenAndRun dispatches deliveries until ctx is done or the source closes,
// then waits for in-flight requests. Every delivery is acknowledged before it
// is processed, whatever the outcome.
func (r *Runner) ListenAndRun(ctx context.Context) {
	r.logger.Info("runner: listening for notifications", zap.Int("concurrency", r.concurrency))

	// in-flight work outlives shutdown of the intake
	work := context.WithoutCancel(ctx)
	var g errgroup.Group
	g.SetLimit(r.concurrency)

	defer func() {
		_ = g.Wait()
		r.logger.Info("runner: shut down")
	}()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("runner: shutting down, draining in-flight requests")
			return
		case msg, ok := <-r.source.Messages():
			if !ok {
				r.logger.Info("runner: message source closed")
				return
			}
			msg.Ack()

			req, ok := r.decode(msg.Value)
			if !ok {
				continue
			}

			// blocks while all workers are busy, which stops intake
			g.Go(func() error {
				r.handler.Handle(work, req)
				return nil
			})
		}
	}
}

func (r *Runner) decode(body []byte) (models.TriageRequest, bool) {
	var n models.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		r.logger.Error("invalid message format", zap.Error(err), zap.ByteString("body", body))
		return models.TriageRequest{}, false
	}
	if n.OldFilePath == "" {
		r.logger.Error("notification without source path", zap.String("correlation_id", n.UniqueID))
		return models.TriageRequest{}, false
	}

	r.logger.Debug("received notification",
		zap.String("correlation_id", n.UniqueID),
		zap.String("source", n.OldFilePath),
		zap.String("file_name", n.NewFileName),
	)
	return n.Request(), true
}
