package repository

import "context"

// Publisher delivers a payload to every connection currently subscribed to a
// topic. Delivery is fire-and-forget and at-most-once.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

// AlertLedger remembers which end alerts were already sent.
type AlertLedger interface {
	// MarkSent records the alert and returns false if it had been recorded before.
	MarkSent(ctx context.Context, roomID uint, minutesLeft int) (bool, error)
}

// PublishRetryQueue hands a publish that failed after commit to the background
// worker, which retries it.
type PublishRetryQueue interface {
	EnqueueRosterPublish(ctx context.Context, topic string, payload interface{}) error
}
