package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task types
const (
	// TypeRoomEndAlertCheck scans active rooms for upcoming end alerts.
	TypeRoomEndAlertCheck = "room:end_alert_check"
	// TypeRosterPublish retries a room data publish that failed after commit.
	TypeRosterPublish = "room:roster_publish"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// RosterPublishPayload is the publish to retry. Payload is the already-encoded
// message body.
type RosterPublishPayload struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

func NewRosterPublishTask(topic string, payload interface{}) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("tasks: marshal roster payload: %w", err)
	}
	b, err := json.Marshal(RosterPublishPayload{Topic: topic, Payload: body})
	if err != nil {
		return nil, fmt.Errorf("tasks: marshal roster task: %w", err)
	}
	return asynq.NewTask(TypeRosterPublish, b,
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(5),
		asynq.Timeout(10*time.Second),
	), nil
}

// NewEndAlertCheckTask is registered with the scheduler; a missed run is not
// retried because the next tick covers it.
func NewEndAlertCheckTask() *asynq.Task {
	return asynq.NewTask(TypeRoomEndAlertCheck, nil,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(0),
		asynq.Timeout(30*time.Second),
	)
}

// Enqueuer puts room tasks on the asynq queues.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	if client == nil {
		panic("asynq client cannot be nil for Enqueuer")
	}
	return &Enqueuer{client: client}
}

// EnqueueRosterPublish implements repository.PublishRetryQueue.
func (e *Enqueuer) EnqueueRosterPublish(ctx context.Context, topic string, payload interface{}) error {
	task, err := NewRosterPublishTask(topic, payload)
	if err != nil {
		return err
	}
	if _, err := e.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("tasks: enqueue %s: %w", TypeRosterPublish, err)
	}
	return nil
}
