package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
	"mail-podcaster/internal/feed"
	"mail-podcaster/internal/models"
	"mail-podcaster/internal/storage"
	"mail-podcaster/pkg/tasks"
)

// EmailProcessor runs the episode pipeline inline.
type EmailProcessor interface {
	Process(ctx context.Context, email models.InboundEmail) (*models.Episode, error)
}

// FeedLookup resolves a feed id to its registered owner.
type FeedLookup interface {
	Lookup(ctx context.Context, feedID string) (models.Feed, bool, error)
}

type Handlers struct {
	store       storage.Adapter
	processor   EmailProcessor
	asynqClient tasks.TaskEnqueuer
	feeds       FeedLookup
	channel     feed.Channel
	publicURL   string
	logger      *zap.Logger
	now         func() time.Time
}

// Deps are the collaborators of Handlers. AsynqClient and Feeds are optional.
type Deps struct {
	Store       storage.Adapter
	Processor   EmailProcessor
	AsynqClient tasks.TaskEnqueuer
	Feeds       FeedLookup
	Channel     feed.Channel
	PublicURL   string
	Logger      *zap.Logger
}

func New(d Deps) *Handlers {
	return &Handlers{
		store:       d.Store,
		processor:   d.Processor,
		asynqClient: d.AsynqClient,
		feeds:       d.Feeds,
		channel:     d.Channel,
		publicURL:   d.PublicURL,
		logger:      d.Logger,
		now:         time.Now,
	}
}

func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"endpoints": []string{
			"POST /webhook/postmark",
			"GET /rss/feed",
			"GET /rss/feed/{feedId}",
			"GET /podcasts/{filename}",
			"GET /episodes/{id}",
			"POST /migrate?key=",
			"GET /metrics",
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
