package hub

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/slumio/Bro-code/internal/domain"
	"github.com/slumio/Bro-code/internal/dto"
	"github.com/slumio/Bro-code/internal/registry"
	"github.com/slumio/Bro-code/internal/service"
)

// handleClientAction parses one inbound envelope and dispatches it. Events
// from connections that have not joined a room are ignored without side
// effects; join-request is the only event valid in that state.
func (h *Hub) handleClientAction(msg HubMessage) {
	client := msg.Client
	ctx := context.Background()

	var env dto.Envelope
	if err := json.Unmarshal(msg.RawData, &env); err != nil {
		h.log.WithError(err).WithField("connection_id", client.connectionID).Warn("Dropping malformed envelope")
		return
	}
	logCtx := h.log.WithFields(logrus.Fields{
		"connection_id": client.connectionID,
		"room_id":       client.roomID,
		"event":         env.Event,
	})

	if !client.joined {
		if env.Event == dto.EventJoinRequest {
			h.handleJoin(ctx, client, env.Payload)
		} else {
			logCtx.Debug("Ignoring event from unjoined connection")
		}
		return
	}

	switch env.Event {
	case dto.EventJoinRequest:
		logCtx.Debug("Ignoring join-request from already joined connection")

	case dto.EventDirectoryCreated:
		var p dto.DirectoryCreated
		if !h.decode(logCtx, env.Payload, &p) {
			return
		}
		node, err := h.tree.CreateNode(ctx, client.roomID, p.ParentRef, p.NewDirectory, domain.NodeTypeFolder)
		if err != nil {
			h.reportFailure(logCtx, client, "directory create", err)
			return
		}
		h.broadcastEvent(client.roomID, dto.EventDirectoryCreated, dto.DirectoryCreatedOut{NewDirectory: nodeToDTO(node)}, client)
		h.broadcastStructure(ctx, logCtx, client)

	case dto.EventFileCreated:
		var p dto.FileCreated
		if !h.decode(logCtx, env.Payload, &p) {
			return
		}
		node, err := h.tree.CreateNode(ctx, client.roomID, p.ParentRef, p.NewFile, domain.NodeTypeFile)
		if err != nil {
			h.reportFailure(logCtx, client, "file create", err)
			return
		}
		h.broadcastEvent(client.roomID, dto.EventFileCreated, dto.FileCreatedOut{NewFile: nodeToDTO(node)}, client)
		h.broadcastStructure(ctx, logCtx, client)

	case dto.EventDirectoryRenamed:
		var p dto.DirectoryRenamed
		if !h.decode(logCtx, env.Payload, &p) {
			return
		}
		node, err := h.tree.RenameNode(ctx, client.roomID, p.DirID, p.NewName)
		if err != nil {
			h.reportFailure(logCtx, client, "directory rename", err)
			return
		}
		h.broadcastEvent(client.roomID, dto.EventDirectoryRenamed, dto.DirectoryRenamed{DirID: dto.DurableRef(node.ID), NewName: node.Name}, client)
		h.broadcastStructure(ctx, logCtx, client)

	case dto.EventFileRenamed:
		var p dto.FileRenamed
		if !h.decode(logCtx, env.Payload, &p) {
			return
		}
		node, err := h.tree.RenameNode(ctx, client.roomID, p.FileID, p.NewName)
		if err != nil {
			h.reportFailure(logCtx, client, "file rename", err)
			return
		}
		h.broadcastEvent(client.roomID, dto.EventFileRenamed, dto.FileRenamed{FileID: dto.DurableRef(node.ID), NewName: node.Name}, client)
		h.broadcastStructure(ctx, logCtx, client)

	case dto.EventDirectoryDeleted:
		var p dto.DirectoryDeleted
		if !h.decode(logCtx, env.Payload, &p) {
			return
		}
		node, err := h.tree.DeleteNode(ctx, client.roomID, p.DirID)
		if err != nil {
			h.reportFailure(logCtx, client, "directory delete", err)
			return
		}
		h.broadcastEvent(client.roomID, dto.EventDirectoryDeleted, dto.DirectoryDeleted{DirID: dto.DurableRef(node.ID)}, client)
		h.broadcastStructure(ctx, logCtx, client)

	case dto.EventFileDeleted:
		var p dto.FileDeleted
		if !h.decode(logCtx, env.Payload, &p) {
			return
		}
		node, err := h.tree.DeleteNode(ctx, client.roomID, p.FileID)
		if err != nil {
			h.reportFailure(logCtx, client, "file delete", err)
			return
		}
		h.broadcastEvent(client.roomID, dto.EventFileDeleted, dto.FileDeleted{FileID: dto.DurableRef(node.ID)}, client)
		h.broadcastStructure(ctx, logCtx, client)

	case dto.EventFileUpdated:
		var p dto.FileUpdated
		if !h.decode(logCtx, env.Payload, &p) {
			return
		}
		node, source, err := h.tree.UpdateContent(ctx, client.roomID, p.FileID, p.Content)
		if err != nil {
			h.reportFailure(logCtx, client, "file update", err)
			return
		}
		logCtx.WithFields(logrus.Fields{"durable_id": node.ID, "resolved_by": source.String()}).Debug("File content updated")
		h.presence.SetCurrentFile(ctx, client.connectionID, &node.ID)
		h.broadcastEvent(client.roomID, dto.EventFileUpdated, dto.FileUpdated{FileID: dto.DurableRef(node.ID), Content: node.Content}, client)
		h.broadcastStructure(ctx, logCtx, client)

	case dto.EventSendMessage:
		var p dto.ChatEvent
		if !h.decode(logCtx, env.Payload, &p) {
			return
		}
		ts := p.Message.Timestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		msg, err := h.roomService.AppendChat(ctx, client.roomID, client.username, p.Message.Message, ts)
		if err != nil {
			h.reportFailure(logCtx, client, "chat append", err)
			return
		}
		out := dto.ChatEvent{Message: dto.ChatMessageDTO{
			Username:  msg.Username,
			Message:   msg.Message,
			Timestamp: msg.Timestamp,
		}}
		h.broadcastEvent(client.roomID, dto.EventReceiveMessage, out, client)

	case dto.EventDrawingUpdate:
		var p dto.DrawingUpdate
		if !h.decode(logCtx, env.Payload, &p) {
			return
		}
		if err := h.roomService.SaveDrawing(ctx, client.roomID, string(p.Snapshot)); err != nil {
			h.reportFailure(logCtx, client, "drawing save", err)
			return
		}
		h.broadcastEvent(client.roomID, dto.EventDrawingUpdate, p, client)

	case dto.EventRequestDrawing:
		snapshot, err := h.roomService.GetDrawing(ctx, client.roomID)
		if err != nil {
			h.reportFailure(logCtx, client, "drawing load", err)
			return
		}
		if snapshot == "" {
			return
		}
		h.sendEvent(client, dto.EventSyncDrawing, dto.SyncDrawing{DrawingData: json.RawMessage(snapshot)})

	case dto.EventTypingStart:
		var p dto.TypingStart
		if !h.decode(logCtx, env.Payload, &p) {
			return
		}
		sess, ok := h.presence.SetTyping(ctx, client.connectionID, true, p.CursorPosition)
		if !ok {
			return
		}
		h.broadcastEvent(client.roomID, dto.EventTypingStart, dto.TypingEvent{User: sessionToDTO(sess), CursorPosition: p.CursorPosition}, client)

	case dto.EventTypingPause:
		sess, ok := h.presence.SetTyping(ctx, client.connectionID, false, 0)
		if !ok {
			return
		}
		h.broadcastEvent(client.roomID, dto.EventTypingPause, dto.TypingEvent{User: sessionToDTO(sess)}, client)

	default:
		logCtx.Warn("Unknown event")
	}
}

// handleJoin processes a join-request. A username collision rejects the join
// and leaves the connection unjoined; success subscribes the client to the
// room's broadcast group and announces the arrival.
func (h *Hub) handleJoin(ctx context.Context, client *Client, payload json.RawMessage) {
	logCtx := h.log.WithField("connection_id", client.connectionID)

	var req dto.JoinRequest
	if err := json.Unmarshal(payload, &req); err != nil || req.RoomID == "" || req.Username == "" {
		logCtx.Warn("Dropping malformed join-request")
		return
	}
	logCtx = logCtx.WithFields(logrus.Fields{"room_id": req.RoomID, "username": req.Username})

	// Lazy room creation is best-effort here: a store outage must not keep
	// the connection out of the in-memory session.
	if _, err := h.roomService.EnsureRoom(ctx, req.RoomID); err != nil {
		logCtx.WithError(err).Warn("Failed to ensure room record, joining in-memory only")
	}

	sess, members, err := h.presence.Join(ctx, client.connectionID, req.Username, req.RoomID)
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			logCtx.Info("Join rejected, username taken")
			h.sendEvent(client, dto.EventUsernameExists, dto.ErrorDTO{Message: "username already taken in this room"})
			return
		}
		logCtx.WithError(err).Error("Join failed")
		h.sendEvent(client, dto.EventError, dto.ErrorDTO{Message: "join failed"})
		return
	}

	client.roomID = req.RoomID
	client.username = req.Username
	client.joined = true
	h.addToRoom(client)

	users := make([]dto.UserDTO, 0, len(members))
	for _, m := range members {
		users = append(users, sessionToDTO(m))
	}
	h.sendEvent(client, dto.EventJoinAccepted, dto.JoinAccepted{User: sessionToDTO(sess), Users: users})
	h.broadcastEvent(client.roomID, dto.EventUserJoined, dto.UserEvent{User: sessionToDTO(sess)}, client)
	logCtx.Info("Client joined room")
}

// broadcastStructure sends the authoritative full file collection to every
// room member except the origin. Mutations already persisted, so a failed
// refresh is logged and corrected by the next successful one.
func (h *Hub) broadcastStructure(ctx context.Context, logCtx *logrus.Entry, origin *Client) {
	nodes, err := h.tree.Structure(ctx, origin.roomID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to load file structure for refresh broadcast")
		return
	}
	files := make([]dto.FileNodeDTO, 0, len(nodes))
	for i := range nodes {
		files = append(files, nodeToDTO(&nodes[i]))
	}
	h.broadcastEvent(origin.roomID, dto.EventFileStructureUpdated, dto.FileStructure{Files: files}, origin)
}

// reportFailure converts a service error at the handler boundary. NotFound is
// a silent no-op (stale references are expected under concurrent edits); any
// other failure sends a scoped error notice to the origin connection only.
func (h *Hub) reportFailure(logCtx *logrus.Entry, client *Client, op string, err error) {
	if errors.Is(err, service.ErrNotFound) {
		logCtx.WithField("op", op).Info("Referenced node not found, skipping operation")
		return
	}
	logCtx.WithError(err).WithField("op", op).Error("Operation failed")
	h.sendEvent(client, dto.EventError, dto.ErrorDTO{Message: op + " failed"})
}

func (h *Hub) decode(logCtx *logrus.Entry, payload json.RawMessage, dst interface{}) bool {
	if err := json.Unmarshal(payload, dst); err != nil {
		logCtx.WithError(err).Warn("Dropping malformed payload")
		return false
	}
	return true
}

func sessionToDTO(s registry.Session) dto.UserDTO {
	return dto.UserDTO{
		ConnectionID:   s.ConnectionID,
		Username:       s.Username,
		RoomID:         s.RoomID,
		Status:         s.Status,
		Typing:         s.Typing,
		CursorPosition: s.CursorPosition,
		CurrentFileID:  s.CurrentFileID,
	}
}

func nodeToDTO(n *domain.FileNode) dto.FileNodeDTO {
	return dto.FileNodeDTO{
		DurableID:         n.ID,
		TransientID:       n.TransientID,
		Name:              n.Name,
		Type:              n.Type,
		Content:           n.Content,
		ParentDurableID:   n.ParentID,
		ParentTransientID: n.ParentTransientID,
	}
}
