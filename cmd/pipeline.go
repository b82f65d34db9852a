package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Capitan-Parrot/detect-people/internal/config"
	"github.com/Capitan-Parrot/detect-people/internal/files"
	"github.com/Capitan-Parrot/detect-people/internal/render"
	"github.com/Capitan-Parrot/detect-people/internal/services/detection"
	"github.com/Capitan-Parrot/detect-people/internal/triage"
)

// newPipeline builds the triage pipeline shared by serve and triage.
func newPipeline(ctx context.Context, cfg *config.Config, logger *zap.Logger, sinks ...triage.Sink) (*triage.Pipeline, error) {
	thresholds, err := cfg.Thresholds()
	if err != nil {
		return nil, fmt.Errorf("resolve thresholds: %w", err)
	}

	client := detection.NewClient(cfg.Detection.Endpoint, cfg.Detection.Timeout)
	if err := client.CheckHealth(ctx); err != nil {
		// the detector may come up later; requests fail individually until then
		logger.Warn("detector is not healthy", zap.String("endpoint", cfg.Detection.Endpoint), zap.Error(err))
	}

	fm := files.NewManager(render.New(cfg.Triage.JPEGQuality), logger)

	return triage.New(
		detection.Guard(client, cfg.Detection.MaxInFlight),
		fm,
		thresholds,
		logger,
		triage.WithSinks(sinks...),
	), nil
}
