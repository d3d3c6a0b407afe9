package websocket

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/hub"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/middleware"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/signaling"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/topic"
)

// WebSocketHandler upgrades topic subscriptions and signaling connections.
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
	router   *signaling.Router
}

func NewWebSocketHandler(h *hub.Hub, router *signaling.Router, allowedOrigin string) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	if router == nil {
		panic("signaling Router cannot be nil for WebSocketHandler")
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowedOrigin == "*" || origin == allowedOrigin
		},
	}
	return &WebSocketHandler{upgrader: upgrader, hub: h, router: router}
}

// HandleTopic serves GET /ws/rooms/:roomId/*category. The connection only
// receives what is published on room/{roomId}/{category}.
func (h *WebSocketHandler) HandleTopic(c *gin.Context) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	logCtx := logrus.WithField("user_id", principal.UserID)

	roomKey := c.Param("roomId")
	if _, err := strconv.ParseUint(roomKey, 10, 32); err != nil {
		logCtx.WithError(err).Warnf("WS Handler: invalid room ID format: %s", roomKey)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID format"})
		return
	}
	category := strings.Trim(c.Param("category"), "/")
	if !topic.ValidCategory(category) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown topic category"})
		return
	}
	name := topic.Room(roomKey, category)
	logCtx = logCtx.WithField("topic", name)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logCtx.WithError(err).Error("WS Handler: failed to upgrade connection")
		return
	}

	client := hub.NewTopicClient(h.hub, conn, principal.UserID, name)
	if !h.hub.Register(client) {
		logCtx.Error("WS Handler: hub unavailable, closing client")
		_ = conn.Close()
		return
	}
	client.Run()
	logCtx.Info("WS Handler: topic client connected")
}

// HandleSignal serves GET /ws/signal. Every text frame is a signaling message
// routed through its own Session; a dropped socket closes the session.
func (h *WebSocketHandler) HandleSignal(c *gin.Context) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	logCtx := logrus.WithField("user_id", principal.UserID)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logCtx.WithError(err).Error("WS Handler: failed to upgrade signaling connection")
		return
	}

	client := hub.NewSignalingClient(conn, principal.UserID)
	session := h.router.Open(client, principal)
	// The request context ends with the upgrade; the session outlives it.
	ctx := context.Background()
	client.OnMessage = func(raw []byte) {
		// Handle reports protocol errors to the peer itself.
		_ = session.Handle(ctx, raw)
	}
	client.OnClose = func() {
		session.Close(ctx)
	}
	client.Run()
	logCtx.WithField("conn_id", client.ID()).Info("WS Handler: signaling client connected")
}
