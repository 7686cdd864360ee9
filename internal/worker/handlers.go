package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"mail-podcaster/internal/models"
	"mail-podcaster/internal/pipeline"
	"mail-podcaster/internal/provider"
	"mail-podcaster/pkg/tasks"
)

// EmailProcessor runs the episode pipeline for one email.
type EmailProcessor interface {
	Process(ctx context.Context, email models.InboundEmail) (*models.Episode, error)
}

type TaskHandler struct {
	processor EmailProcessor
	episodes  EpisodeLister
	registry  FeedRegistry
	logger    *zap.Logger
}

type Option func(*TaskHandler)

// WithFeedSync enables the feeds:sync task.
func WithFeedSync(episodes EpisodeLister, registry FeedRegistry) Option {
	return func(h *TaskHandler) {
		h.episodes = episodes
		h.registry = registry
	}
}

func NewTaskHandler(processor EmailProcessor, logger *zap.Logger, opts ...Option) *TaskHandler {
	h := &TaskHandler{processor: processor, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register attaches every task handler to mux.
func (h *TaskHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(tasks.TypeProcessEmail, h.HandleProcessEmailTask)
	if h.registry != nil {
		mux.HandleFunc(tasks.TypeSyncFeeds, h.HandleSyncFeedsTask)
	}
}

func (h *TaskHandler) HandleProcessEmailTask(ctx context.Context, t *asynq.Task) error {
	email, err := tasks.ParseProcessEmailTask(t)
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	h.logger.Info("processing email task", zap.String("from", email.From), zap.String("subject", email.Subject))

	episode, err := h.processor.Process(ctx, email)
	if err != nil {
		if !Retryable(err) {
			h.logger.Error("email task failed permanently", zap.Error(err))
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}

	if w := t.ResultWriter(); w != nil {
		if _, err := w.Write([]byte(episode.ID)); err != nil {
			h.logger.Warn("failed to write task result", zap.Error(err))
		}
	}
	h.logger.Info("email task completed", zap.String("episodeID", episode.ID))
	return nil
}

// Retryable reports whether asynq should run the task again. Credential,
// billing and content problems will not fix themselves.
func Retryable(err error) bool {
	var validationErr *models.ValidationError
	switch {
	case errors.Is(err, provider.ErrAuthentication),
		errors.Is(err, provider.ErrQuotaExceeded),
		errors.Is(err, pipeline.ErrEmptyContent),
		errors.As(err, &validationErr):
		return false
	}
	return true
}
