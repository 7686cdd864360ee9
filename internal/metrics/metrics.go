package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EmailsProcessed counts pipeline invocations by outcome.
	EmailsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podcaster_emails_processed_total",
			Help: "Total number of inbound emails processed",
		},
		[]string{"status"}, // success, failed
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "podcaster_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14), // 50ms to ~7min
		},
		[]string{"stage"},
	)

	ProviderRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podcaster_provider_retries_total",
			Help: "Retries issued against upstream providers",
		},
		[]string{"provider"},
	)

	FeedIDCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "podcaster_feed_id_collisions_total",
			Help: "Feed ids already registered to a different sender",
		},
	)
)

// RecordStage observes the duration of one pipeline stage.
func RecordStage(stage string, started time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

// IncrementEmailProcessed bumps the processed counter for status.
func IncrementEmailProcessed(status string) {
	EmailsProcessed.WithLabelValues(status).Inc()
}

// IncrementProviderRetry bumps the retry counter for provider.
func IncrementProviderRetry(provider string) {
	ProviderRetries.WithLabelValues(provider).Inc()
}
