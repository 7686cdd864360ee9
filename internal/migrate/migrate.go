// Package migrate rewrites stored audio URLs after the public base URL changes.
package migrate

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"mail-podcaster/internal/storage"
)

// Result summarizes one migration run.
type Result struct {
	Total   int      `json:"total"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Failed  []string `json:"failed,omitempty"`
}

// RewriteAudioURLs points every episode's audio URL at publicURL. Episodes
// that already match are left alone, so running it twice is harmless.
func RewriteAudioURLs(ctx context.Context, store storage.Adapter, publicURL string, logger *zap.Logger) (Result, error) {
	episodes, err := store.ListEpisodes(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list episodes: %w", err)
	}

	res := Result{Total: len(episodes)}
	for _, summary := range episodes {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		ep, ok, err := store.GetMetadata(ctx, summary.ID)
		if err != nil || !ok {
			logger.Warn("failed to load episode for migration", zap.String("id", summary.ID), zap.Error(err))
			res.Failed = append(res.Failed, summary.ID)
			continue
		}

		key := storage.AudioKey(ep)
		if key == "" {
			res.Skipped++
			continue
		}
		want := storage.AudioURL(publicURL, key)
		if ep.AudioURL == want && ep.AudioFile == key {
			res.Skipped++
			continue
		}

		logger.Info("rewriting audio url",
			zap.String("id", ep.ID),
			zap.String("from", ep.AudioURL),
			zap.String("to", want))
		ep.AudioURL = want
		ep.AudioFile = key
		if err := store.SaveMetadata(ctx, ep.ID, ep); err != nil {
			logger.Warn("failed to save migrated episode", zap.String("id", ep.ID), zap.Error(err))
			res.Failed = append(res.Failed, ep.ID)
			continue
		}
		res.Updated++
	}
	return res, nil
}
