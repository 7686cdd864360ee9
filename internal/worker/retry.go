package worker

import (
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	baseRetryDelay = time.Minute
	maxRetryDelay  = time.Hour
)

// RetryDelayFunc backs off exponentially: 1m, 2m, 4m... capped at an hour.
// Provider outages tend to last minutes, not seconds.
func RetryDelayFunc(logger *zap.Logger) asynq.RetryDelayFunc {
	return func(n int, err error, task *asynq.Task) time.Duration {
		delay := baseRetryDelay
		for i := 0; i < n; i++ {
			delay *= 2
			if delay > maxRetryDelay {
				delay = maxRetryDelay
				break
			}
		}

		logger.Warn("task failed, scheduling retry",
			zap.String("type", task.Type()),
			zap.Int("attempt", n+1),
			zap.Duration("delay", delay),
			zap.Error(err))
		return delay
	}
}
