package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Capitan-Parrot/detect-people/internal/models"
)

var triageCmd = &cobra.Command{
	Use:   "triage",
	Short: "Triage a single capture without Kafka",
	Long: `Run one capture through detection, classification and routing using the
configured thresholds, then print the outcome as JSON. Useful for trying
threshold changes against real frames.`,
	Example: `  detect-people triage --source /captures/in/cam1.jpg --dest /captures/kept/cam1.jpg --junk /captures/junk/cam1.jpg`,
	RunE:    runTriage,
}

func init() {
	rootCmd.AddCommand(triageCmd)

	triageCmd.Flags().String("source", "", "Capture to triage")
	triageCmd.Flags().String("dest", "", "Where a capture with a person is written")
	triageCmd.Flags().String("junk", "", "Where a capture without a person is written")
	triageCmd.Flags().Bool("delete-junk", false, "Delete captures without a person instead of archiving them")
	triageCmd.Flags().String("id", "", "Correlation id for logs (random when empty)")
	_ = triageCmd.MarkFlagRequired("source")
	_ = triageCmd.MarkFlagRequired("dest")
}

// lastOutcome keeps the outcome of the single request.
type lastOutcome struct {
	ev models.OutcomeEvent
}

func (l *lastOutcome) Record(_ context.Context, ev models.OutcomeEvent) error {
	l.ev = ev
	return nil
}

func runTriage(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(false); err != nil {
		return err
	}

	req := models.TriageRequest{
		SourcePath:      mustGetString(cmd, "source"),
		DestinationPath: mustGetString(cmd, "dest"),
		JunkPath:        mustGetString(cmd, "junk"),
		DeleteJunk:      mustGetBool(cmd, "delete-junk"),
		CorrelationID:   mustGetString(cmd, "id"),
	}
	if req.CorrelationID == "" {
		req.CorrelationID = uuid.NewString()
	}
	if req.JunkPath == "" && !req.DeleteJunk {
		logger.Warn("no junk path given, captures without a person will fail to route")
	}

	out := &lastOutcome{}
	pipeline, err := newPipeline(cmd.Context(), cfg, logger, out)
	if err != nil {
		return err
	}
	pipeline.Handle(cmd.Context(), req)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out.ev); err != nil {
		logger.Error("print outcome failed", zap.Error(err))
	}

	if out.ev.Outcome == models.OutcomeFailed {
		return fmt.Errorf("triage failed: %s", out.ev.Error)
	}
	return nil
}
