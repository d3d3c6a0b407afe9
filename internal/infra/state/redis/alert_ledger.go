package redisstate

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// alertTTL outlives any planned session so an alert key never expires mid-room.
const alertTTL = 24 * time.Hour

// RedisAlertLedger implements repository.AlertLedger with SETNX keys.
type RedisAlertLedger struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisAlertLedger creates a RedisAlertLedger.
func NewRedisAlertLedger(client *redis.Client, keyPrefix string) *RedisAlertLedger {
	if client == nil {
		panic("redis client cannot be nil for RedisAlertLedger")
	}
	return &RedisAlertLedger{client: client, keyPrefix: keyPrefix}
}

func (l *RedisAlertLedger) alertKey(roomID uint, minutesLeft int) string {
	return fmt.Sprintf("%sroom:%d:alert:%d", l.keyPrefix, roomID, minutesLeft)
}

// MarkSent returns true only for the first caller that records the alert.
func (l *RedisAlertLedger) MarkSent(ctx context.Context, roomID uint, minutesLeft int) (bool, error) {
	key := l.alertKey(roomID, minutesLeft)
	ok, err := l.client.SetNX(ctx, key, time.Now().Unix(), alertTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis: failed to mark alert on key %s: %w", key, err)
	}
	return ok, nil
}
