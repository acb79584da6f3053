// Package hub owns the live connections: it accepts upgraded sockets,
// routes every inbound event through the services, and fans resulting
// events out to room members excluding the origin.
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/slumio/Bro-code/internal/dto"
	"github.com/slumio/Bro-code/internal/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. File content and drawing
	// snapshots ride the same socket, so this is generous.
	maxMessageSize = 1 << 20
)

// HubMessage types carried on the internal channel.
const (
	MessageRegister   = "register"
	MessageUnregister = "unregister"
	MessageAction     = "action"
)

// HubMessage is one unit of work for the Hub's event loop.
type HubMessage struct {
	Type    string
	Client  *Client
	RawData []byte
}

// Hub maintains the live client set and processes every event on a single
// loop. Events are handled in arrival order, one at a time; this keeps tree
// mutations and their structure broadcasts strictly ordered per process.
type Hub struct {
	messageChan chan HubMessage

	// map[roomID]map[*Client]bool, guarded for the broadcast read path.
	rooms   map[string]map[*Client]bool
	roomsMu sync.RWMutex

	presence    *service.PresenceService
	roomService *service.RoomService
	tree        *service.TreeService

	log *logrus.Entry
}

// NewHub creates a Hub wired to the services it dispatches into.
func NewHub(presence *service.PresenceService, roomService *service.RoomService, tree *service.TreeService, logger *logrus.Logger) *Hub {
	if presence == nil || roomService == nil || tree == nil {
		panic("all services must be non-nil for Hub")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		messageChan: make(chan HubMessage, 512),
		rooms:       make(map[string]map[*Client]bool),
		presence:    presence,
		roomService: roomService,
		tree:        tree,
		log:         logger.WithField("component", "hub"),
	}
}

// Run is the Hub's main event loop. It must run in its own goroutine; it
// exits when the message channel is closed.
func (h *Hub) Run() {
	h.log.Info("Hub is running...")
	for msg := range h.messageChan {
		switch msg.Type {
		case MessageRegister:
			h.registerClient(msg.Client)
		case MessageUnregister:
			h.unregisterClient(msg.Client)
		case MessageAction:
			// Synchronous on purpose: handlers mutate shared room state
			// and the order of broadcasts must match the order of events.
			h.handleClientAction(msg)
		default:
			h.log.Warnf("Received unknown message type: %s", msg.Type)
		}
	}
	h.log.Info("Hub is shutting down...")
}

// QueueMessage puts a message on the Hub's queue without blocking. Returns
// false when the queue is full.
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case h.messageChan <- msg:
		return true
	default:
		h.log.WithField("message_type", msg.Type).Warn("Hub message channel full, dropping message")
		return false
	}
}

// Stop closes the message channel, ending the Run loop. Call only after the
// HTTP server stopped accepting upgrades.
func (h *Hub) Stop() {
	close(h.messageChan)
}

// registerClient tracks a new connection. The client joins a room only when
// its join-request is accepted; until then it is connected but roomless.
func (h *Hub) registerClient(client *Client) {
	if client == nil {
		h.log.Error("Attempted to register a nil client")
		return
	}
	h.log.WithField("connection_id", client.connectionID).Info("Client connected")
}

// unregisterClient removes a connection. If it had joined a room, the room is
// notified of the disconnect before the presence entry is dropped, so the
// broadcast carries the user's final state.
func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		h.log.Error("Attempted to unregister a nil client")
		return
	}
	logCtx := h.log.WithFields(logrus.Fields{
		"connection_id": client.connectionID,
		"room_id":       client.roomID,
	})

	if client.joined {
		sess, ok := h.presence.Leave(context.Background(), client.connectionID)
		if ok {
			h.broadcastEvent(client.roomID, dto.EventUserDisconnected, dto.UserEvent{User: sessionToDTO(sess)}, client)
		}
		h.removeFromRoom(client)
		logCtx.WithField("username", client.username).Info("Client left room")
	}

	select {
	case <-client.send:
		logCtx.Warn("Client send channel already closed during unregister")
	default:
		close(client.send)
	}
	logCtx.Info("Client unregistered from Hub")
}

func (h *Hub) addToRoom(client *Client) {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()
	if _, ok := h.rooms[client.roomID]; !ok {
		h.rooms[client.roomID] = make(map[*Client]bool)
	}
	h.rooms[client.roomID][client] = true
}

func (h *Hub) removeFromRoom(client *Client) {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()
	if roomClients, ok := h.rooms[client.roomID]; ok {
		delete(roomClients, client)
		if len(roomClients) == 0 {
			delete(h.rooms, client.roomID)
		}
	}
}

// broadcast sends a raw frame to every client of a room except the sender.
func (h *Hub) broadcast(roomID string, message []byte, sender *Client) {
	h.roomsMu.RLock()
	roomClients, ok := h.rooms[roomID]
	clientsToSend := make([]*Client, 0, len(roomClients))
	if ok {
		for client := range roomClients {
			if client != sender {
				clientsToSend = append(clientsToSend, client)
			}
		}
	}
	h.roomsMu.RUnlock()

	for _, client := range clientsToSend {
		select {
		case client.send <- message:
		default:
			h.log.WithFields(logrus.Fields{
				"room_id":       roomID,
				"connection_id": client.connectionID,
			}).Warn("Client send channel full during broadcast, skipping this client")
		}
	}
}

// broadcastEvent marshals an envelope and fans it out to the room, excluding
// the originating client.
func (h *Hub) broadcastEvent(roomID, event string, payload interface{}, sender *Client) {
	frame, err := marshalEnvelope(event, payload)
	if err != nil {
		h.log.WithError(err).WithField("event", event).Error("Failed to marshal broadcast envelope")
		return
	}
	h.broadcast(roomID, frame, sender)
}

// sendEvent delivers an envelope to a single client.
func (h *Hub) sendEvent(client *Client, event string, payload interface{}) {
	frame, err := marshalEnvelope(event, payload)
	if err != nil {
		h.log.WithError(err).WithField("event", event).Error("Failed to marshal envelope")
		return
	}
	select {
	case client.send <- frame:
	default:
		h.log.WithField("connection_id", client.connectionID).Warn("Client send channel full, message dropped")
	}
}

func marshalEnvelope(event string, payload interface{}) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(dto.Envelope{Event: event, Payload: raw})
}
