package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"mail-podcaster/internal/models"
)

const (
	TypeProcessEmail = "email:process"
	TypeSyncFeeds    = "feeds:sync"
	QueueDefault     = "default"
)

// TaskEnqueuer is the part of asynq.Client the webhook needs.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type ProcessEmailTaskPayload struct {
	Email models.InboundEmail
}

// NewProcessEmailTask wraps email in a task. Synthesis can take minutes, so
// the task timeout is generous.
func NewProcessEmailTask(email models.InboundEmail) (*asynq.Task, error) {
	payload, err := json.Marshal(ProcessEmailTaskPayload{Email: email})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeProcessEmail, payload,
		asynq.MaxRetry(3),
		asynq.Timeout(15*time.Minute),
		asynq.Queue(QueueDefault),
	), nil
}

// ParseProcessEmailTask decodes the payload of a TypeProcessEmail task.
func ParseProcessEmailTask(t *asynq.Task) (models.InboundEmail, error) {
	var p ProcessEmailTaskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return models.InboundEmail{}, fmt.Errorf("failed to unmarshal task payload: %w", err)
	}
	return p.Email, nil
}

// NewSyncFeedsTask asks a worker to register every stored sender in the
// feed registry.
func NewSyncFeedsTask() (*asynq.Task, error) {
	return asynq.NewTask(TypeSyncFeeds, nil,
		asynq.MaxRetry(1),
		asynq.Timeout(10*time.Minute),
		asynq.Queue(QueueDefault),
	), nil
}
