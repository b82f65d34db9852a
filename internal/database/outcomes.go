package database

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/Capitan-Parrot/detect-people/internal/models"
)

const maxOutcomeRows = 500

// RecordOutcome appends one finished request to the journal.
func (d *Database) RecordOutcome(ctx context.Context, ev models.OutcomeEvent) error {
	detections := ev.Detections
	if detections == nil {
		detections = []models.Detection{}
	}
	payload, err := json.Marshal(detections)
	if err != nil {
		return fmt.Errorf("marshal detections: %w", err)
	}

	_, err = d.DB.ExecContext(ctx, `
		INSERT INTO triage_outcomes
			(unique_id, source, destination, verdict, outcome, detections, elapsed_ms, error, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ev.UniqueID,
		ev.Source,
		ev.Destination,
		string(ev.Verdict),
		string(ev.Outcome),
		string(payload),
		ev.ElapsedMs,
		ev.Error,
		ev.TimeStamp,
	)
	if err != nil {
		return fmt.Errorf("failed to record outcome %s: %w", ev.UniqueID, err)
	}
	return nil
}

// Record implements triage.Sink.
func (d *Database) Record(ctx context.Context, ev models.OutcomeEvent) error {
	return d.RecordOutcome(ctx, ev)
}

// RecentOutcomes returns the newest journal rows first.
func (d *Database) RecentOutcomes(ctx context.Context, limit int) ([]models.OutcomeEvent, error) {
	if limit <= 0 || limit > maxOutcomeRows {
		limit = maxOutcomeRows
	}

	rows, err := d.DB.QueryContext(ctx, `
		SELECT unique_id, source, destination, verdict, outcome, detections, elapsed_ms, error, finished_at
		FROM triage_outcomes
		ORDER BY finished_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := []models.OutcomeEvent{}
	for rows.Next() {
		var (
			ev         models.OutcomeEvent
			verdict    string
			outcome    string
			detections []byte
		)
		err := rows.Scan(
			&ev.UniqueID,
			&ev.Source,
			&ev.Destination,
			&verdict,
			&outcome,
			&detections,
			&ev.ElapsedMs,
			&ev.Error,
			&ev.TimeStamp,
		)
		if err != nil {
			return nil, err
		}
		ev.Verdict = models.Verdict(verdict)
		ev.Outcome = models.Outcome(outcome)
		if err := json.Unmarshal(detections, &ev.Detections); err != nil {
			return nil, fmt.Errorf("decode detections for %s: %w", ev.UniqueID, err)
		}
		outcomes = append(outcomes, ev)
	}

	return outcomes, rows.Err()
}
