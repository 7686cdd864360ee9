package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"mail-podcaster/internal/app"
	"mail-podcaster/internal/config"
	"mail-podcaster/internal/handlers"
	"mail-podcaster/internal/logging"
	"mail-podcaster/internal/middleware"
	"mail-podcaster/internal/storage"
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

	if !cfg.DotEnvLoaded {
		logger.Info("no .env file found, using environment only")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	deps := handlers.Deps{
		Store:     store,
		Processor: processor,
		Channel:   cfg.Feed,
		PublicURL: cfg.PublicURL,
		Logger:    logger.Named("http"),
	}
	if registry != nil {
		deps.Feeds = registry
	}
	if cfg.RedisAddr != "" {
		client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer client.Close()
		deps.AsynqClient = client
		logger.Info("webhook deliveries will be queued", zap.String("redis", cfg.RedisAddr))
	}

	limiter := middleware.NewRateLimiterMiddleware(rate.Limit(cfg.RateLimit.PerSecond), cfg.RateLimit.Burst, logger.Named("ratelimit"))
	router := handlers.NewRouter(handlers.New(deps), handlers.RouterConfig{
		WebhookToken: cfg.WebhookToken,
		MigrationKey: cfg.MigrationKey,
		RateLimiter:  limiter,
	}, logger.Named("http"))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("publicURL", cfg.PublicURL),
			zap.String("storage", cfg.Storage.Backend()),
			zap.String("commit", CommitSHA))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
