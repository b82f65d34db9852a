// Package triage runs one capture through detection, classification and
// routing, and guarantees the source file reaches a terminal state.
package triage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/Capitan-Parrot/detect-people/internal/classifier"
	"github.com/Capitan-Parrot/detect-people/internal/files"
	"github.com/Capitan-Parrot/detect-people/internal/models"
	"github.com/Capitan-Parrot/detect-people/internal/render"
)

var errNoDestination = errors.New("no destination path for outcome")

type Detector interface {
	DetectObjects(ctx context.Context, path string) ([]models.Detection, error)
}

type Files interface {
	Relocate(source, destination string, detections []models.Detection, annotate, fill bool) error
	Delete(path string)
}

// Sink receives the outcome of every finished request. Failures are logged
// and never change the file outcome.
type Sink interface {
	Record(ctx context.Context, ev models.OutcomeEvent) error
}

type Pipeline struct {
	detector   Detector
	files      Files
	cfg        models.ThresholdConfig
	logger     *zap.Logger
	sinks      []Sink
	dimensions func(path string) (image.Point, error)
	exists     func(path string) bool
}

type Option func(*Pipeline)

func WithSinks(sinks ...Sink) Option {
	return func(p *Pipeline) {
		p.sinks = append(p.sinks, sinks...)
	}
}

// WithDimensions replaces how image size is resolved before classification.
func WithDimensions(fn func(path string) (image.Point, error)) Option {
	return func(p *Pipeline) {
		p.dimensions = fn
	}
}

func New(detector Detector, fm Files, cfg models.ThresholdConfig, logger *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		detector:   detector,
		files:      fm,
		cfg:        cfg,
		logger:     logger,
		dimensions: render.Dimensions,
		exists:     files.Exists,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type run struct {
	req    models.TriageRequest
	state  State
	start  time.Time
	logger *zap.Logger
	event  models.OutcomeEvent
}

func (r *run) to(next State) {
	if !IsValidTransition(r.state, next) {
		r.logger.DPanic("invalid state transition",
			zap.String("from", string(r.state)), zap.String("to", string(next)))
	}
	r.state = next
}

// Handle processes one request. Outcomes are visible only through logs, sinks
// and the filesystem; no error or panic leaves this method.
func (p *Pipeline) Handle(ctx context.Context, req models.TriageRequest) {
	r := &run{
		req:   req,
		state: StateReceived,
		start: time.Now(),
		logger: p.logger.With(
			zap.String("correlation_id", req.CorrelationID),
			zap.String("source", req.SourcePath),
		),
		event: models.OutcomeEvent{
			UniqueID: req.CorrelationID,
			Source:   req.SourcePath,
		},
	}

	defer func() {
		if rec := recover(); rec != nil {
			p.fail(r, fmt.Errorf("panic: %v", rec))
		}
		p.finish(ctx, r)
	}()

	if err := p.process(ctx, r); err != nil {
		p.fail(r, err)
	}
}

func (p *Pipeline) process(ctx context.Context, r *run) error {
	source := r.req.SourcePath
	if !p.exists(source) {
		r.logger.Warn("source does not exist, skipping")
		r.event.Outcome = models.OutcomeSkipped
		r.to(StateDone)
		return nil
	}

	r.to(StateDetecting)
	detections, err := p.detector.DetectObjects(ctx, source)
	if err != nil {
		return fmt.Errorf("detect objects: %w", err)
	}
	r.event.Detections = detections
	r.logger.Debug("objects detected",
		zap.Int("detections", len(detections)),
		zap.Strings("labels", lo.Map(detections, func(d models.Detection, _ int) string { return d.Label })),
	)

	r.to(StateClassifying)
	var size *image.Point
	if s, err := p.dimensions(source); err != nil {
		r.logger.Debug("image size unavailable, using pixel thresholds", zap.Error(err))
	} else {
		size = &s
	}
	verdict := classifier.Classify(detections, size, p.cfg)
	r.event.Verdict = verdict
	r.logger.Debug("classified",
		zap.String("verdict", string(verdict)),
		zap.Int("people", len(classifier.People(detections, size, p.cfg))),
	)

	r.to(StateRendering)
	if err := p.route(r, verdict, detections); err != nil {
		return err
	}

	r.to(StateFinalizing)
	return nil
}

func (p *Pipeline) route(r *run, verdict models.Verdict, detections []models.Detection) error {
	req := r.req

	var (
		destination string
		annotate    bool
	)
	switch {
	case verdict == models.VerdictPersonPresent:
		destination, annotate = req.DestinationPath, p.cfg.DrawKeptObjects
		r.event.Outcome = lo.Ternary(annotate, models.OutcomeKeptAnnotated, models.OutcomeKept)
	case req.DeleteJunk:
		r.event.Outcome = models.OutcomeJunkDeleted
		p.files.Delete(req.SourcePath)
		return nil
	default:
		destination, annotate = req.JunkPath, p.cfg.DrawJunkObjects
		r.event.Outcome = lo.Ternary(annotate, models.OutcomeJunkAnnotated, models.OutcomeJunkArchived)
	}

	if destination == "" {
		return fmt.Errorf("%w %s", errNoDestination, r.event.Outcome)
	}
	r.event.Destination = destination
	return p.files.Relocate(req.SourcePath, destination, detections, annotate, p.cfg.FillRectangles)
}

// fail logs err and removes the source so a bad file cannot come back.
func (p *Pipeline) fail(r *run, err error) {
	r.logger.Error("triage failed", zap.String("state", string(r.state)), zap.Error(err))
	r.to(StateFailed)

	r.event.Outcome = models.OutcomeFailed
	r.event.Destination = ""
	r.event.Error = err.Error()

	p.files.Delete(r.req.SourcePath)
}

func (p *Pipeline) finish(ctx context.Context, r *run) {
	elapsed := time.Since(r.start)
	r.event.ElapsedMs = elapsed.Milliseconds()
	r.event.TimeStamp = time.Now().UTC()

	if r.state == StateFinalizing {
		r.logger.Info("triage finished",
			zap.Duration("elapsed", elapsed),
			zap.Int("detections", len(r.event.Detections)),
			zap.String("verdict", string(r.event.Verdict)),
			zap.String("outcome", string(r.event.Outcome)),
			zap.String("destination", r.event.Destination),
		)
		r.to(StateDone)
	}
	if !r.state.Terminal() {
		r.logger.DPanic("request finished in non-terminal state", zap.String("state", string(r.state)))
	}

	for _, sink := range p.sinks {
		if err := record(ctx, sink, r.event); err != nil {
			r.logger.Warn("outcome sink failed", zap.Error(err))
		}
	}
}

func record(ctx context.Context, sink Sink, ev models.OutcomeEvent) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("sink panic: %v", rec)
		}
	}()
	return sink.Record(ctx, ev)
}
