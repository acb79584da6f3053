// Package registry holds the in-memory presence map: one Session per live
// connection, keyed by the server-minted connection id. The registry is the
// authoritative copy of presence state for the lifetime of the process; the
// durable user mirror is written elsewhere and never read back, so registry
// state does not survive a restart.
package registry

import (
	"errors"
	"sync"

	"github.com/slumio/Bro-code/internal/domain"
)

// ErrUsernameTaken is returned by Join when another live session in the same
// room already holds the requested username.
var ErrUsernameTaken = errors.New("registry: username already taken in room")

// Session is the presence state of one connection.
type Session struct {
	ConnectionID   string
	Username       string
	RoomID         string
	Status         string
	Typing         bool
	CursorPosition int
	CurrentFileID  *uint
}

// Registry is a process-wide presence map. It is injected into its consumers
// rather than accessed as a global so tests can swap it per case.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Join inserts an online session and returns it together with the full
// member list of the room (including the new session). It fails with
// ErrUsernameTaken if the username is already held in the room.
func (r *Registry) Join(connectionID, username, roomID string) (Session, []Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.RoomID == roomID && s.Username == username && s.ConnectionID != connectionID {
			return Session{}, nil, ErrUsernameTaken
		}
	}
	sess := &Session{
		ConnectionID: connectionID,
		Username:     username,
		RoomID:       roomID,
		Status:       domain.StatusOnline,
	}
	r.sessions[connectionID] = sess
	return *sess, r.membersOfLocked(roomID), nil
}

// Leave removes the session and returns its final state so callers can
// notify the room with the full user object.
func (r *Registry) Leave(connectionID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connectionID]
	if !ok {
		return Session{}, false
	}
	delete(r.sessions, connectionID)
	return *s, true
}

// Get returns a copy of the session for a connection id.
func (r *Registry) Get(connectionID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[connectionID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// SetStatus updates the status in place; unknown connection ids are a no-op.
func (r *Registry) SetStatus(connectionID, status string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connectionID]
	if !ok {
		return Session{}, false
	}
	s.Status = status
	return *s, true
}

// SetTyping updates the typing flag and cursor position in place; unknown
// connection ids are a no-op.
func (r *Registry) SetTyping(connectionID string, typing bool, cursorPosition int) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connectionID]
	if !ok {
		return Session{}, false
	}
	s.Typing = typing
	s.CursorPosition = cursorPosition
	return *s, true
}

// SetCurrentFile records the file a connection is editing.
func (r *Registry) SetCurrentFile(connectionID string, fileID *uint) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connectionID]
	if !ok {
		return Session{}, false
	}
	s.CurrentFileID = fileID
	return *s, true
}

// MembersOf returns copies of all sessions in a room.
func (r *Registry) MembersOf(roomID string) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.membersOfLocked(roomID)
}

func (r *Registry) membersOfLocked(roomID string) []Session {
	members := make([]Session, 0)
	for _, s := range r.sessions {
		if s.RoomID == roomID {
			members = append(members, *s)
		}
	}
	return members
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
