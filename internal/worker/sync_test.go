package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"mail-podcaster/internal/db"
	"mail-podcaster/internal/feed"
	"mail-podcaster/internal/models"
	"mail-podcaster/pkg/tasks"
)

type staticEpisodes struct {
	episodes []models.EpisodeSummary
	err      error
}

func (s staticEpisodes) ListEpisodes(context.Context) ([]models.EpisodeSummary, error) {
	return s.episodes, s.err
}

type recordingRegistry struct {
	registered map[string]string
	errFor     map[string]error
}

func (r *recordingRegistry) Register(_ context.Context, feedID, sender string) error {
	if err := r.errFor[sender]; err != nil {
		return err
	}
	if r.registered == nil {
		r.registered = make(map[string]string)
	}
	r.registered[feedID] = sender
	return nil
}

func summaries(senders ...string) []models.EpisodeSummary {
	var out []models.EpisodeSummary
	for i, s := range senders {
		out = append(out, models.EpisodeSummary{ID: fmt.Sprint(i), Email: models.EmailProvenance{From: s}})
	}
	return out
}

func TestSyncFeeds(t *testing.T) {
	registry := &recordingRegistry{}
	eps := staticEpisodes{episodes: summaries("A@example.com", "a@example.com", "b@example.com", "")}

	res, err := SyncFeeds(context.Background(), eps, registry)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Senders)
	assert.Equal(t, map[string]string{
		feed.IDFor("a@example.com"): "a@example.com",
		feed.IDFor("b@example.com"): "b@example.com",
	}, registry.registered)
}

func TestSyncFeeds_CountsCollisions(t *testing.T) {
	registry := &recordingRegistry{errFor: map[string]error{
		"b@example.com": fmt.Errorf("%w: x", db.ErrFeedCollision),
		"c@example.com": errors.New("connection reset"),
	}}
	eps := staticEpisodes{episodes: summaries("a@example.com", "b@example.com", "c@example.com")}

	res, err := SyncFeeds(context.Background(), eps, registry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, 3, res.Senders)
	assert.Equal(t, 1, res.Collisions)
	assert.Len(t, registry.registered, 1)
}

func TestHandleSyncFeedsTask(t *testing.T) {
	registry := &recordingRegistry{}
	handler := NewTaskHandler(&mockProcessor{}, zap.NewNop(),
		WithFeedSync(staticEpisodes{episodes: summaries("a@example.com")}, registry))

	mux := asynq.NewServeMux()
	handler.Register(mux)
	task, err := tasks.NewSyncFeedsTask()
	require.NoError(t, err)

	require.NoError(t, mux.ProcessTask(context.Background(), task))
	assert.Len(t, registry.registered, 1)
}

func TestHandleSyncFeedsTask_NotConfigured(t *testing.T) {
	handler := NewTaskHandler(&mockProcessor{}, zap.NewNop())
	task, err := tasks.NewSyncFeedsTask()
	require.NoError(t, err)

	err = handler.HandleSyncFeedsTask(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleSyncFeedsTask_ListFailure(t *testing.T) {
	handler := NewTaskHandler(&mockProcessor{}, zap.NewNop(),
		WithFeedSync(staticEpisodes{err: errors.New("bucket gone")}, &recordingRegistry{}))
	task, err := tasks.NewSyncFeedsTask()
	require.NoError(t, err)

	err = handler.HandleSyncFeedsTask(context.Background(), task)
	assert.ErrorContains(t, err, "bucket gone")
}
