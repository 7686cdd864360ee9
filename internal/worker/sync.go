package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"mail-podcaster/internal/db"
	"mail-podcaster/internal/feed"
	"mail-podcaster/internal/models"
)

// EpisodeLister is the read side of storage the feed sync needs.
type EpisodeLister interface {
	ListEpisodes(ctx context.Context) ([]models.EpisodeSummary, error)
}

// FeedRegistry records feed ownership.
type FeedRegistry interface {
	Register(ctx context.Context, feedID, sender string) error
}

// SyncResult counts the outcome of one feed sync.
type SyncResult struct {
	Senders    int
	Collisions int
}

// HandleSyncFeedsTask registers the sender of every stored episode. This
// backfills feeds created before the registry existed or while it was down.
func (h *TaskHandler) HandleSyncFeedsTask(ctx context.Context, t *asynq.Task) error {
	if h.registry == nil || h.episodes == nil {
		return fmt.Errorf("feed registry not configured: %w", asynq.SkipRetry)
	}

	res, err := SyncFeeds(ctx, h.episodes, h.registry)
	if err != nil {
		h.logger.Error("feed sync failed", zap.Int("senders", res.Senders), zap.Error(err))
		return err
	}
	h.logger.Info("feed sync completed", zap.Int("senders", res.Senders), zap.Int("collisions", res.Collisions))
	return nil
}

// SyncFeeds registers each distinct sender once. Collisions are counted, not
// returned; other registry failures are joined into the error.
func SyncFeeds(ctx context.Context, episodes EpisodeLister, registry FeedRegistry) (SyncResult, error) {
	list, err := episodes.ListEpisodes(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("failed to list episodes: %w", err)
	}

	var (
		res  SyncResult
		errs []error
		seen = make(map[string]bool)
	)
	for _, ep := range list {
		sender := strings.ToLower(strings.TrimSpace(ep.Sender()))
		if sender == "" || seen[sender] {
			continue
		}
		seen[sender] = true
		res.Senders++

		err := registry.Register(ctx, feed.IDFor(sender), sender)
		switch {
		case errors.Is(err, db.ErrFeedCollision):
			res.Collisions++
		case err != nil:
			errs = append(errs, err)
		}
	}
	return res, errors.Join(errs...)
}
