package hub

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client represents one WebSocket connection attached to the Hub. The
// identity fields (roomID, username, joined) are owned by the Hub's event
// loop: they are written only while handling this client's messages, so no
// lock guards them.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	connectionID string
	roomID       string
	username     string
	joined       bool
}

// NewClient creates a Client for an upgraded connection. The client is not a
// room member until its join-request is accepted.
func NewClient(hub *Hub, conn *websocket.Conn, connectionID string) *Client {
	return &Client{
		hub:          hub,
		conn:         conn,
		connectionID: connectionID,
		send:         make(chan []byte, 256),
	}
}

// Run starts the read and write pumps.
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

// ConnectionID returns the server-minted connection id.
func (c *Client) ConnectionID() string { return c.connectionID }

// ReadPump pumps messages from the WebSocket connection to the Hub's message
// channel. It runs in its own goroutine; exit triggers the unregister path.
func (c *Client) ReadPump() {
	defer func() {
		unregisterMsg := HubMessage{Type: MessageUnregister, Client: c}
		select {
		case c.hub.messageChan <- unregisterMsg:
		case <-time.After(1 * time.Second):
			logrus.WithField("connection_id", c.connectionID).Warn("Timeout sending unregister message to Hub channel")
		}
		c.conn.Close()
		logrus.WithField("connection_id", c.connectionID).Debug("readPump exited, unregistered client")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			logCtx := logrus.WithField("connection_id", c.connectionID)
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logCtx.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				logCtx.Debug("WebSocket connection closed")
			}
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		actionMsg := HubMessage{
			Type:    MessageAction,
			Client:  c,
			RawData: message,
		}
		select {
		case c.hub.messageChan <- actionMsg:
		default:
			logrus.WithField("connection_id", c.connectionID).Warn("Hub message channel full, dropping client message")
		}
	}
}

// WritePump pumps messages from the send channel to the WebSocket connection
// and keeps the connection alive with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the send channel during unregister.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logrus.WithField("connection_id", c.connectionID).WithError(err).Warn("Failed to write message to websocket")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logrus.WithField("connection_id", c.connectionID).WithError(err).Warn("Failed to send ping message")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})
		}
	}
}
