package main

import (
	"context"
	"log"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"mail-podcaster/internal/app"
	"mail-podcaster/internal/config"
	"mail-podcaster/internal/logging"
	"mail-podcaster/internal/storage"
	"mail-podcaster/internal/worker"
	"mail-podcaster/pkg/tasks"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	store, err := storage.New(cfg.Storage, logger.Named("storage"))
	if err != nil {
		logger.Fatal("failed to initialise storage", zap.Error(err))
	}
	defer store.Close()

	registry, conn, err := app.OpenRegistry(ctx, cfg, logger.Named("db"))
	if err != nil {
		logger.Fatal("failed to open feed registry", zap.Error(err))
	}
	if conn != nil {
		defer conn.Close()
	}

	processor, err := app.NewProcessor(ctx, cfg, store, registry, logger)
	if err != nil {
		logger.Fatal("failed to build pipeline", zap.Error(err))
	}

	var opts []worker.Option
	if registry != nil {
		opts = append(opts, worker.WithFeedSync(store, registry))
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.WorkerRedisAddr()},
		asynq.Config{
			// Each email holds a synthesis request open for minutes; keep this small.
			Concurrency: cfg.WorkerConcurrency,
			Queues: map[string]int{
				tasks.QueueDefault: 1,
			},
			RetryDelayFunc: worker.RetryDelayFunc(logger.Named("retry")),
			Logger:         logger.Named("asynq").Sugar(),
		},
	)

	mux := asynq.NewServeMux()
	worker.NewTaskHandler(processor, logger.Named("worker"), opts...).Register(mux)

	logger.Info("worker starting",
		zap.String("redis", cfg.WorkerRedisAddr()),
		zap.Int("concurrency", cfg.WorkerConcurrency),
		zap.Bool("feedSync", registry != nil),
		zap.String("commit", CommitSHA))
	if err := srv.Run(mux); err != nil {
		logger.Fatal("could not run worker", zap.Error(err))
	}
}
