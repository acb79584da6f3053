// Package websocket upgrades HTTP requests to WebSocket connections and
// hands them to the Hub. Room membership is negotiated on the socket via
// join-request, not in the upgrade URL.
package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/slumio/Bro-code/internal/hub"
)

// WebSocketHandler handles WebSocket upgrade requests and client
// registration.
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
}

// NewWebSocketHandler creates a WebSocketHandler.
func NewWebSocketHandler(h *hub.Hub) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// TODO: restrict origins once the deployment domain is fixed
			return true
		},
	}
	return &WebSocketHandler{
		upgrader: upgrader,
		hub:      h,
	}
}

// HandleConnection upgrades the request and registers the new connection
// with the Hub under a server-minted connection id.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		logrus.WithError(err).Error("WS Handler: Failed to upgrade connection")
		return
	}

	connectionID := uuid.NewString()
	logCtx := logrus.WithField("connection_id", connectionID)
	logCtx.Info("WS Handler: Connection upgraded to WebSocket")

	client := hub.NewClient(h.hub, conn, connectionID)
	registerMsg := hub.HubMessage{Type: hub.MessageRegister, Client: client}
	if !h.hub.QueueMessage(registerMsg) {
		logCtx.Error("WS Handler: Hub message channel full, failed to register client")
		conn.Close()
		return
	}

	client.Run()
}
