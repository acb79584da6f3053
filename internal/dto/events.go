// Package dto defines the wire protocol exchanged with clients: the event
// envelope, the named events, and their JSON payloads.
package dto

import (
	"encoding/json"
	"time"
)

// Event names carried in the envelope. Directions follow the protocol table:
// some are inbound only, some outbound only, tree mutations are both.
const (
	EventJoinRequest          = "join-request"
	EventJoinAccepted         = "join-accepted"
	EventUsernameExists       = "username-exists"
	EventUserJoined           = "user-joined"
	EventUserDisconnected     = "user-disconnected"
	EventDirectoryCreated     = "directory-created"
	EventDirectoryRenamed     = "directory-renamed"
	EventDirectoryDeleted     = "directory-deleted"
	EventFileCreated          = "file-created"
	EventFileRenamed          = "file-renamed"
	EventFileDeleted          = "file-deleted"
	EventFileUpdated          = "file-updated"
	EventFileStructureUpdated = "file-structure-updated"
	EventSendMessage          = "send-message"
	EventReceiveMessage       = "receive-message"
	EventDrawingUpdate        = "drawing-update"
	EventRequestDrawing       = "request-drawing"
	EventSyncDrawing          = "sync-drawing"
	EventTypingStart          = "typing-start"
	EventTypingPause          = "typing-pause"
	EventError                = "error"
)

// Envelope is the framing of every message on the socket.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinRequest asks to enter a room under a username.
type JoinRequest struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

// UserDTO is the client-facing view of a presence entry.
type UserDTO struct {
	ConnectionID   string `json:"connectionId"`
	Username       string `json:"username"`
	RoomID         string `json:"roomId"`
	Status         string `json:"status"`
	Typing         bool   `json:"typing"`
	CursorPosition int    `json:"cursorPosition"`
	CurrentFileID  *uint  `json:"currentFileId,omitempty"`
}

// JoinAccepted confirms a join and carries the full current member list.
type JoinAccepted struct {
	User  UserDTO   `json:"user"`
	Users []UserDTO `json:"users"`
}

// UserEvent announces a presence change (user-joined, user-disconnected).
type UserEvent struct {
	User UserDTO `json:"user"`
}

// FileNodeDTO is the client-facing view of a tree node, carrying both
// identifier forms so every client converges on the same ids.
type FileNodeDTO struct {
	DurableID         uint    `json:"durableId"`
	TransientID       string  `json:"transientId,omitempty"`
	Name              string  `json:"name"`
	Type              string  `json:"type"`
	Content           string  `json:"content,omitempty"`
	ParentDurableID   *uint   `json:"parentDurableId,omitempty"`
	ParentTransientID *string `json:"parentTransientId,omitempty"`
}

// NewNode is the client's description of a node it wants created. The
// transient id is minted by the client so it can reference the node before
// the store has assigned a durable id.
type NewNode struct {
	TransientID string `json:"transientId"`
	Name        string `json:"name"`
	Content     string `json:"content,omitempty"`
}

// DirectoryCreated / FileCreated are inbound creation requests; the broadcast
// form replaces NewNode with the persisted FileNodeDTO.
type DirectoryCreated struct {
	ParentRef    NodeRef `json:"parentRef"`
	NewDirectory NewNode `json:"newDirectory"`
}

type FileCreated struct {
	ParentRef NodeRef `json:"parentRef"`
	NewFile   NewNode `json:"newFile"`
}

type DirectoryCreatedOut struct {
	NewDirectory FileNodeDTO `json:"newDirectory"`
}

type FileCreatedOut struct {
	NewFile FileNodeDTO `json:"newFile"`
}

type DirectoryRenamed struct {
	DirID   NodeRef `json:"dirId"`
	NewName string  `json:"newName"`
}

type DirectoryDeleted struct {
	DirID NodeRef `json:"dirId"`
}

type FileRenamed struct {
	FileID  NodeRef `json:"fileId"`
	NewName string  `json:"newName"`
}

type FileDeleted struct {
	FileID NodeRef `json:"fileId"`
}

type FileUpdated struct {
	FileID  NodeRef `json:"fileId"`
	Content string  `json:"content"`
}

// FileStructure is the authoritative full refresh of a room's tree.
type FileStructure struct {
	Files []FileNodeDTO `json:"files"`
}

// ChatMessageDTO is one chat entry on the wire.
type ChatMessageDTO struct {
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatEvent wraps a chat entry for send-message and receive-message.
type ChatEvent struct {
	Message ChatMessageDTO `json:"message"`
}

// DrawingUpdate carries the full canvas snapshot; the payload is opaque to
// the server.
type DrawingUpdate struct {
	Snapshot json.RawMessage `json:"snapshot"`
}

// SyncDrawing pushes the current snapshot to a client.
type SyncDrawing struct {
	DrawingData json.RawMessage `json:"drawingData"`
}

// TypingStart reports the sender's cursor position.
type TypingStart struct {
	CursorPosition int `json:"cursorPosition"`
}

// TypingEvent is the broadcast form of typing-start / typing-pause.
type TypingEvent struct {
	User           UserDTO `json:"user"`
	CursorPosition int     `json:"cursorPosition,omitempty"`
}

// ErrorDTO is a scoped error notice sent to the originating connection only.
type ErrorDTO struct {
	Message string `json:"message"`
}
