package main

import (
	"context"
	"errors"
	"sync"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"mail-podcaster/internal/app"
	"mail-podcaster/internal/config"
	"mail-podcaster/internal/db"
	"mail-podcaster/internal/logging"
	"mail-podcaster/internal/storage"
)

type commandContext struct {
	verbose *bool

	configOnce sync.Once
	config     *config.Config
	logger     *zap.Logger
	configErr  error

	store    storage.Adapter
	registry *db.FeedRegistry
	conn     *sqlx.DB
}

func newCommandContext(verbose *bool) *commandContext {
	return &commandContext{verbose: verbose}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			c.configErr = err
			return
		}
		level := "warn"
		if c.verbose != nil && *c.verbose {
			level = "debug"
		}
		logger, err := logging.New(level)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.logger = logger
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureStore() (storage.Adapter, error) {
	if c.store != nil {
		return c.store, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := storage.New(cfg.Storage, c.logger.Named("storage"))
	if err != nil {
		return nil, err
	}
	c.store = store
	return store, nil
}

func (c *commandContext) ensureRegistry(ctx context.Context) (*db.FeedRegistry, error) {
	if c.registry != nil {
		return c.registry, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL must be set for feed registry commands")
	}
	registry, conn, err := app.OpenRegistry(ctx, cfg, c.logger.Named("db"))
	if err != nil {
		return nil, err
	}
	c.registry, c.conn = registry, conn
	return registry, nil
}

func (c *commandContext) close() {
	if c.store != nil {
		c.store.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
	if c.logger != nil {
		c.logger.Sync()
	}
}
