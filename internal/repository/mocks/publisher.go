package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// Publisher is a mock of repository.Publisher.
type Publisher struct {
	mock.Mock
}

func (_m *Publisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	ret := _m.Called(ctx, topic, payload)
	return ret.Error(0)
}

// AlertLedger is a mock of repository.AlertLedger.
type AlertLedger struct {
	mock.Mock
}

func (_m *AlertLedger) MarkSent(ctx context.Context, roomID uint, minutesLeft int) (bool, error) {
	ret := _m.Called(ctx, roomID, minutesLeft)
	return ret.Bool(0), ret.Error(1)
}

// PublishRetryQueue is a mock of repository.PublishRetryQueue.
type PublishRetryQueue struct {
	mock.Mock
}

func (_m *PublishRetryQueue) EnqueueRosterPublish(ctx context.Context, topic string, payload interface{}) error {
	ret := _m.Called(ctx, topic, payload)
	return ret.Error(0)
}
