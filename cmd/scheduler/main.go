package main

import (
	"log"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"mail-podcaster/internal/config"
	"mail-podcaster/internal/logging"
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

	// Workers only handle feeds:sync when they have a registry.
	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL must be set to schedule feed sync")
	}

	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{Addr: cfg.WorkerRedisAddr()},
		&asynq.SchedulerOpts{Logger: logger.Named("asynq").Sugar()},
	)

	task, err := tasks.NewSyncFeedsTask()
	if err != nil {
		logger.Fatal("could not create task", zap.Error(err))
	}

	// Run every hour
	if _, err := scheduler.Register("@every 1h", task); err != nil {
		logger.Fatal("could not register task", zap.Error(err))
	}

	logger.Info("scheduler starting", zap.String("commit", CommitSHA))
	if err := scheduler.Run(); err != nil {
		logger.Fatal("could not run scheduler", zap.Error(err))
	}
}
