package redisstate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// TopicMessage is one payload received from a room topic.
type TopicMessage struct {
	Topic   string
	Payload []byte
}

// RedisPublisher implements repository.Publisher on Redis PUBLISH and feeds
// subscribers through PSUBSCRIBE, so every instance sees every room topic.
type RedisPublisher struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisPublisher creates a RedisPublisher.
func NewRedisPublisher(client *redis.Client, keyPrefix string) *RedisPublisher {
	if client == nil {
		panic("redis client cannot be nil for RedisPublisher")
	}
	if keyPrefix == "" {
		keyPrefix = "mocamp:"
	}
	return &RedisPublisher{client: client, keyPrefix: keyPrefix}
}

func (p *RedisPublisher) channel(topic string) string {
	return p.keyPrefix + topic
}

// Publish JSON-encodes payload and publishes it on the topic's channel.
func (p *RedisPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("redis: failed to marshal payload for topic %s: %w", topic, err)
	}
	channel := p.channel(topic)
	if err := p.client.Publish(ctx, channel, body).Err(); err != nil {
		logrus.WithFields(logrus.Fields{
			"channel":      channel,
			"payload_size": len(body),
		}).WithError(err).Error("Redis Publish failed")
		return fmt.Errorf("redis: failed to publish to channel %s: %w", channel, err)
	}
	return nil
}

// SubscribeTopics pattern-subscribes to every room topic. The returned channel
// closes when ctx is cancelled.
func (p *RedisPublisher) SubscribeTopics(ctx context.Context) (<-chan TopicMessage, error) {
	pubsub := p.client.PSubscribe(ctx, p.keyPrefix+"room/*")
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: failed to psubscribe room topics: %w", err)
	}

	out := make(chan TopicMessage, 256)
	go func() {
		defer close(out)
		defer pubsub.Close()
		in := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- TopicMessage{
					Topic:   strings.TrimPrefix(msg.Channel, p.keyPrefix),
					Payload: []byte(msg.Payload),
				}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
