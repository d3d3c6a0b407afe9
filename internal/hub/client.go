package hub

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var (
	ErrClientClosed   = errors.New("hub: client closed")
	ErrSendBufferFull = errors.New("hub: client send buffer full")
)

// Client is one websocket connection. A topic client is registered with the
// hub and only receives; a signaling client hands every text frame to
// OnMessage. Either way Send never blocks.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	userID uint
	topic  string
	send   chan []byte

	// OnMessage receives inbound text frames, in order, on the read goroutine.
	OnMessage func([]byte)
	// OnClose runs once after the read loop ends.
	OnClose func()

	closeOnce sync.Once
	closed    chan struct{}
	log       *logrus.Entry
}

// NewTopicClient creates a client that receives messages published on topic.
func NewTopicClient(h *Hub, conn *websocket.Conn, userID uint, topic string) *Client {
	return newClient(h, conn, userID, topic)
}

// NewSignalingClient creates a client not attached to any hub.
func NewSignalingClient(conn *websocket.Conn, userID uint) *Client {
	return newClient(nil, conn, userID, "")
}

func newClient(h *Hub, conn *websocket.Conn, userID uint, topic string) *Client {
	id := uuid.NewString()
	return &Client{
		id:     id,
		hub:    h,
		conn:   conn,
		userID: userID,
		topic:  topic,
		send:   make(chan []byte, sendBufferSize),
		closed: make(chan struct{}),
		log: logrus.WithFields(logrus.Fields{
			"conn_id": id,
			"user_id": userID,
		}),
	}
}

func (c *Client) ID() string    { return c.id }
func (c *Client) UserID() uint  { return c.userID }
func (c *Client) Topic() string { return c.topic }

// Send JSON-encodes v and queues it for the write pump.
func (c *Client) Send(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("hub: marshal outbound message: %w", err)
	}
	return c.enqueue(b)
}

func (c *Client) enqueue(b []byte) error {
	// A closed client must not accept anything, even with buffer space left.
	select {
	case <-c.closed:
		return ErrClientClosed
	default:
	}
	select {
	case c.send <- b:
		return nil
	case <-c.closed:
		return ErrClientClosed
	default:
		return ErrSendBufferFull
	}
}

// Close stops the write pump, which sends a close frame and closes the socket.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

// Run starts the read and write pumps.
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

// ReadPump reads frames until the connection fails, then unregisters.
func (c *Client) ReadPump() {
	defer func() {
		if c.hub != nil {
			c.hub.Unregister(c)
		}
		if c.OnClose != nil {
			c.OnClose()
		}
		c.Close()
		c.conn.Close()
		c.log.Info("readPump exited")
	}()

	// Deadlines: every pong extends the read deadline.
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				c.log.Debug("WebSocket connection closed")
			}
			return
		}
		if messageType != websocket.TextMessage {
			c.log.Debugf("Ignoring non-text message type: %d", messageType)
			continue
		}
		// Topic clients only listen, so OnMessage is nil for them.
		if c.OnMessage != nil {
			c.OnMessage(message)
		}
	}
}

// WritePump drains the send buffer to the socket and keeps it alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Debug("writePump exited")
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.WithError(err).Warn("Failed to write message to websocket")
				return
			}
		case <-c.closed:
			// Best-effort close frame; the socket is closed by the deferred call.
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.WithError(err).Warn("Failed to send ping message")
				return
			}
		}
	}
}
