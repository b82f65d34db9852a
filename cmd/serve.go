package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Capitan-Parrot/detect-people/internal/api"
	"github.com/Capitan-Parrot/detect-people/internal/config"
	"github.com/Capitan-Parrot/detect-people/internal/database"
	"github.com/Capitan-Parrot/detect-people/internal/kafka"
	"github.com/Capitan-Parrot/detect-people/internal/runner"
	"github.com/Capitan-Parrot/detect-people/internal/s3"
	"github.com/Capitan-Parrot/detect-people/internal/triage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Consume capture notifications and triage them",
	Long: `Start the triage worker. Notifications are read from the configured Kafka
topic and every capture is routed to its destination, the junk location or
deleted. A status server reports health and outcome counters.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(true); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats := api.NewStats()
	sinks := []triage.Sink{stats}
	var journal api.Journal
	var closers []func() error
	defer func() {
		var closeErr error
		for i := len(closers) - 1; i >= 0; i-- {
			closeErr = multierr.Append(closeErr, closers[i]())
		}
		if closeErr != nil {
			logger.Warn("shutdown cleanup failed", zap.Error(closeErr))
		}
	}()

	optional, err := openSinks(ctx, cfg, logger)
	closers = append(closers, optional.closers...)
	if err != nil {
		return err
	}
	sinks = append(sinks, optional.sinks...)
	if optional.journal != nil {
		journal = optional.journal
	}

	pipeline, err := newPipeline(ctx, cfg, logger, sinks...)
	if err != nil {
		return err
	}

	consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic, cfg.Kafka.Prefetch, logger)
	if err != nil {
		return fmt.Errorf("failed to create Kafka consumer: %w", err)
	}
	closers = append(closers, consumer.Close)

	g, gctx := errgroup.WithContext(ctx)

	consumer.StartListening(gctx)
	g.Go(func() error {
		runner.New(consumer, pipeline, cfg.Kafka.Prefetch, logger).ListenAndRun(gctx)
		return nil
	})

	if cfg.HTTP.Addr != "" {
		server := api.NewServer(cfg.HTTP.Addr, api.NewHandlers(stats, journal, logger), logger)
		g.Go(func() error {
			return server.Run(gctx)
		})
	}

	logger.Info("detect-people started",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic),
		zap.Int("prefetch", cfg.Kafka.Prefetch),
	)

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("detect-people stopped")
	return nil
}

type outcomeSinks struct {
	sinks   []triage.Sink
	journal *database.Database
	closers []func() error
}

// openSinks connects the optional outcome destinations that are configured.
// Closers are returned even on error so the caller can release what opened.
func openSinks(ctx context.Context, cfg *config.Config, logger *zap.Logger) (outcomeSinks, error) {
	var out outcomeSinks

	if cfg.Kafka.OutcomeTopic != "" {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.OutcomeTopic)
		if err != nil {
			return out, fmt.Errorf("failed to create Kafka producer: %w", err)
		}
		out.sinks = append(out.sinks, producer)
		out.closers = append(out.closers, producer.Close)
		logger.Info("publishing outcomes", zap.String("topic", cfg.Kafka.OutcomeTopic))
	}

	if cfg.Postgres.DSN != "" {
		db, err := database.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return out, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		out.closers = append(out.closers, db.Close)
		if err := db.Init(ctx); err != nil {
			return out, fmt.Errorf("failed to init outcome journal: %w", err)
		}
		out.sinks = append(out.sinks, db)
		out.journal = db
		logger.Info("recording outcomes to postgres")
	}

	if cfg.Minio.Endpoint != "" {
		client, err := s3.NewMinioClient(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.Bucket)
		if err != nil {
			return out, err
		}
		if err := client.EnsureBucket(ctx); err != nil {
			return out, err
		}
		out.sinks = append(out.sinks, client)
		logger.Info("saving detection reports", zap.String("bucket", cfg.Minio.Bucket))
	}

	return out, nil
}
