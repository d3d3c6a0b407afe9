package hub

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	redisstate "github.com/Mocamp-Official/Mocamp-BackEnd/internal/infra/state/redis"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. SDP offers need room.
	maxMessageSize = 64 * 1024

	sendBufferSize = 256
)

// Hub fans topic messages out to the local websocket clients subscribed to
// each topic. Messages arrive from a feed shared by every instance, so a
// publish on any instance reaches subscribers everywhere.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// map[topic]set of clients; written only by Run.
	topics   map[string]map[*Client]bool
	topicsMu sync.RWMutex

	log *logrus.Entry
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
		topics:     make(map[string]map[*Client]bool),
		log:        logrus.WithField("component", "hub"),
	}
}

// Run processes registrations and feed messages until ctx is cancelled or the
// feed closes. It should run in its own goroutine.
func (h *Hub) Run(ctx context.Context, feed <-chan redisstate.TopicMessage) {
	h.log.Info("Hub is running...")
	defer func() {
		// Reject late registrations first, then drop every socket still open.
		close(h.done)
		h.closeAll()
		h.log.Info("Hub is shutting down...")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		// Subscription changes and deliveries are serialized on this goroutine.
		case c := <-h.register:
			h.registerClient(c)
		case c := <-h.unregister:
			h.unregisterClient(c)
		case msg, ok := <-feed:
			// A closed feed means the Redis subscription is gone.
			if !ok {
				h.log.Warn("Topic feed closed")
				return
			}
			h.deliver(msg)
		}
	}
}

// Register queues c for subscription to its topic. It returns false if the
// hub has stopped or is too busy.
func (h *Hub) Register(c *Client) bool {
	// Fast path: a stopped hub never accepts a client.
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	case <-time.After(time.Second):
		h.log.WithField("topic", c.topic).Warn("Hub register queue full, dropping client")
		return false
	}
}

// Unregister removes c from its topic and closes it. Safe to call after the
// hub has stopped.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	case <-time.After(time.Second):
		h.log.WithField("topic", c.topic).Warn("Timeout sending unregister to Hub")
	}
}

func (h *Hub) registerClient(c *Client) {
	if c == nil {
		return
	}
	h.topicsMu.Lock()
	if _, ok := h.topics[c.topic]; !ok {
		h.topics[c.topic] = make(map[*Client]bool)
	}
	h.topics[c.topic][c] = true
	h.topicsMu.Unlock()
	h.log.WithFields(logrus.Fields{"topic": c.topic, "user_id": c.userID, "conn_id": c.id}).Info("Client subscribed")
}

func (h *Hub) unregisterClient(c *Client) {
	if c == nil {
		return
	}
	logCtx := h.log.WithFields(logrus.Fields{"topic": c.topic, "user_id": c.userID, "conn_id": c.id})

	// 1. Drop the client from its topic set, and the set once it is empty
	h.topicsMu.Lock()
	clients, ok := h.topics[c.topic]
	if ok && clients[c] {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.topics, c.topic)
		}
	}
	h.topicsMu.Unlock()

	// 2. Stop its write pump
	c.Close()
	logCtx.Info("Client unsubscribed")
}

// deliver hands msg to every subscriber without blocking; a full client
// buffer drops the message for that client only.
func (h *Hub) deliver(msg redisstate.TopicMessage) {
	// Snapshot the subscribers so no lock is held while enqueueing.
	h.topicsMu.RLock()
	clients := make([]*Client, 0, len(h.topics[msg.Topic]))
	for c := range h.topics[msg.Topic] {
		clients = append(clients, c)
	}
	h.topicsMu.RUnlock()

	for _, c := range clients {
		if err := c.enqueue(msg.Payload); err != nil {
			h.log.WithFields(logrus.Fields{"topic": msg.Topic, "conn_id": c.id}).WithError(err).Warn("Dropped topic message for client")
		}
	}
}

func (h *Hub) closeAll() {
	h.topicsMu.Lock()
	defer h.topicsMu.Unlock()
	for topic, clients := range h.topics {
		for c := range clients {
			c.Close()
		}
		delete(h.topics, topic)
	}
}

// Subscribers returns how many local clients are subscribed to topic.
func (h *Hub) Subscribers(topic string) int {
	h.topicsMu.RLock()
	defer h.topicsMu.RUnlock()
	return len(h.topics[topic])
}
