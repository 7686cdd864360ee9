// Package app assembles the components shared by the server, the worker
// and the admin CLI.
package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"mail-podcaster/internal/config"
	"mail-podcaster/internal/db"
	"mail-podcaster/internal/extract"
	"mail-podcaster/internal/notify"
	"mail-podcaster/internal/pipeline"
	"mail-podcaster/internal/script"
	"mail-podcaster/internal/storage"
	"mail-podcaster/internal/tts"
)

// OpenRegistry connects to Postgres and prepares the feeds table. Without a
// DATABASE_URL it returns a nil registry and no error.
func OpenRegistry(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*db.FeedRegistry, *sqlx.DB, error) {
	if cfg.DatabaseURL == "" {
		logger.Info("DATABASE_URL not set, feed registry disabled")
		return nil, nil, nil
	}

	conn, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	registry := db.NewFeedRegistry(conn, logger)
	if err := registry.EnsureSchema(ctx); err != nil {
		conn.Close()
		return nil, nil, err
	}
	return registry, conn, nil
}

// NewProcessor wires the email pipeline against the configured providers.
// registry may be nil.
func NewProcessor(ctx context.Context, cfg *config.Config, store storage.Adapter, registry *db.FeedRegistry, logger *zap.Logger) (*pipeline.Processor, error) {
	if err := cfg.ValidatePipeline(); err != nil {
		return nil, err
	}

	model, err := script.NewGeminiModel(ctx, cfg.Gemini, logger.Named("gemini"))
	if err != nil {
		return nil, err
	}
	voice, err := tts.NewElevenLabs(cfg.ElevenLabs, logger.Named("elevenlabs"))
	if err != nil {
		return nil, fmt.Errorf("failed to configure ElevenLabs: %w", err)
	}

	opts := []pipeline.Option{
		pipeline.WithNotifier(notify.New(cfg.Postmark, logger.Named("notify"))),
		pipeline.WithDurationEstimator(voice.EstimateDuration),
	}
	if registry != nil {
		opts = append(opts, pipeline.WithRegistry(registry))
	}

	return pipeline.New(
		extract.New(extract.NewWebFetcher(), logger.Named("extract")),
		script.NewGenerator(model, logger.Named("script")),
		voice,
		store,
		cfg.PublicURL,
		logger.Named("pipeline"),
		opts...,
	), nil
}
