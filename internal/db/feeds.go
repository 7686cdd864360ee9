package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"mail-podcaster/internal/metrics"
	"mail-podcaster/internal/models"
)

// ErrFeedCollision means a feed id is already registered to another sender.
var ErrFeedCollision = errors.New("feed id already registered to a different sender")

const feedsSchema = `
CREATE TABLE IF NOT EXISTS feeds (
	feed_id      TEXT PRIMARY KEY,
	sender       TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// FeedRegistry persists the feed id to sender mapping. Feed membership is
// still computed by hashing; the registry only remembers who owns an id
// and detects truncated-hash collisions.
type FeedRegistry struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewFeedRegistry returns a registry backed by db.
func NewFeedRegistry(db *sqlx.DB, logger *zap.Logger) *FeedRegistry {
	return &FeedRegistry{db: db, logger: logger}
}

// EnsureSchema creates the feeds table if needed.
func (r *FeedRegistry) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, feedsSchema); err != nil {
		return fmt.Errorf("failed to create feeds table: %w", err)
	}
	return nil
}

// Register records sender as the owner of feedID. A different sender
// already holding feedID is reported as ErrFeedCollision.
func (r *FeedRegistry) Register(ctx context.Context, feedID, sender string) error {
	sender = strings.ToLower(strings.TrimSpace(sender))
	query := `
		INSERT INTO feeds (feed_id, sender)
		VALUES ($1, $2)
		ON CONFLICT (feed_id) DO UPDATE SET
			last_seen_at = NOW()
		RETURNING sender
	`
	var owner string
	if err := r.db.GetContext(ctx, &owner, query, feedID, sender); err != nil {
		return fmt.Errorf("failed to register feed %s: %w", feedID, err)
	}
	if owner != sender {
		metrics.FeedIDCollisions.Inc()
		r.logger.Error("feed id collision",
			zap.String("feedID", feedID),
			zap.String("owner", owner),
			zap.String("sender", sender))
		return fmt.Errorf("%w: %s", ErrFeedCollision, feedID)
	}
	return nil
}

// Lookup returns the registered feed, ok=false when feedID is unknown.
func (r *FeedRegistry) Lookup(ctx context.Context, feedID string) (models.Feed, bool, error) {
	var f models.Feed
	err := r.db.GetContext(ctx, &f, "SELECT feed_id, sender, created_at, last_seen_at FROM feeds WHERE feed_id = $1", feedID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Feed{}, false, nil
	}
	if err != nil {
		return models.Feed{}, false, fmt.Errorf("failed to look up feed %s: %w", feedID, err)
	}
	return f, true, nil
}

// List returns every registered feed, most recently active first.
func (r *FeedRegistry) List(ctx context.Context) ([]models.Feed, error) {
	var feeds []models.Feed
	query := `
		SELECT feed_id, sender, created_at, last_seen_at
		FROM feeds
		ORDER BY last_seen_at DESC
	`
	if err := r.db.SelectContext(ctx, &feeds, query); err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	return feeds, nil
}
