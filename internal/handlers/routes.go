package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"mail-podcaster/internal/middleware"
)

// RouterConfig holds the secrets and limits applied to protected routes.
type RouterConfig struct {
	WebhookToken string
	MigrationKey string
	RateLimiter  *middleware.RateLimiterMiddleware
}

// NewRouter wires every endpoint onto a gorilla/mux router.
func NewRouter(h *Handlers, cfg RouterConfig, logger *zap.Logger) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", h.Index).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/rss/feed", h.GetGlobalFeed).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/rss/feed.xml", h.GetGlobalFeed).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/rss/feed/{feedId}", h.GetPersonalFeed).Methods(http.MethodGet, http.MethodHead)

	r.HandleFunc("/podcasts/{filename}", h.ServeAudioFile).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/episodes/{id}", h.GetEpisode).Methods(http.MethodGet)

	webhook := r.PathPrefix("/webhook").Subrouter()
	if cfg.RateLimiter != nil {
		webhook.Use(cfg.RateLimiter.Middleware)
	}
	webhook.Use(middleware.WebhookAuth(cfg.WebhookToken, logger))
	webhook.HandleFunc("/postmark", h.PostmarkWebhook).Methods(http.MethodPost)

	adminAuth := middleware.QueryKeyAuth(cfg.MigrationKey, logger)
	r.Handle("/migrate", adminAuth(http.HandlerFunc(h.MigrateURLs))).Methods(http.MethodPost, http.MethodGet)

	return r
}
