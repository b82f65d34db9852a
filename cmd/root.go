package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Capitan-Parrot/detect-people/internal/config"
	"github.com/Capitan-Parrot/detect-people/internal/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "detect-people",
	Short: "Sort camera captures by whether a person is in frame",
	Long: `detect-people consumes capture notifications, sends every image to an
object detector and keeps the frames that show a person. Everything else
is archived to a junk location or deleted.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "Path to the YAML config file")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
}

// bootstrap loads the configuration and builds the process logger.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, nil, err
	}

	if cfg.FromDefaults {
		logger.Info("config file not found, using defaults", zap.String("path", configPath))
	}
	logEffectiveConfig(logger, cfg)
	return cfg, logger, nil
}

// logEffectiveConfig prints the settings that decide every verdict. Secrets
// are left out.
func logEffectiveConfig(logger *zap.Logger, cfg *config.Config) {
	t := cfg.Triage
	logger.Info("effective config",
		zap.Strings("forbidden_objects", t.ForbiddenObjects),
		zap.Float64("min_person_height_percent", t.MinPersonHeightPercent),
		zap.Float64("min_person_width_percent", t.MinPersonWidthPercent),
		zap.Int("min_person_height_pixels", t.MinPersonHeightPixels),
		zap.Int("min_person_width_pixels", t.MinPersonWidthPixels),
		zap.Bool("draw_junk_objects", t.DrawJunkObjects),
		zap.Bool("draw_kept_objects", t.DrawKeptObjects),
		zap.Bool("fill_rectangles", t.FillRectangles),
		zap.Int("jpeg_quality", t.JPEGQuality),
		zap.String("detection_endpoint", cfg.Detection.Endpoint),
		zap.Int64("detection_max_in_flight", cfg.Detection.MaxInFlight),
		zap.Strings("kafka_brokers", cfg.Kafka.Brokers),
		zap.String("kafka_topic", cfg.Kafka.Topic),
		zap.Int("kafka_prefetch", cfg.Kafka.Prefetch),
		zap.Bool("outcome_journal", cfg.Postgres.DSN != ""),
		zap.Bool("detection_reports", cfg.Minio.Endpoint != ""),
	)
}
