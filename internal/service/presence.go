package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/slumio/Bro-code/internal/domain"
	"github.com/slumio/Bro-code/internal/registry"
	"github.com/slumio/Bro-code/internal/repository"
)

// PresenceService wraps the in-memory registry with the best-effort durable
// mirror. The registry is authoritative for live sessions; a mirror failure
// is logged and never rolls back or blocks the in-memory change.
type PresenceService struct {
	registry *registry.Registry
	userRepo repository.UserRepository
	log      *logrus.Entry
}

// NewPresenceService creates a PresenceService.
func NewPresenceService(reg *registry.Registry, userRepo repository.UserRepository, logger *logrus.Logger) *PresenceService {
	if reg == nil || userRepo == nil {
		panic("all dependencies must be non-nil for PresenceService")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &PresenceService{
		registry: reg,
		userRepo: userRepo,
		log:      logger.WithField("component", "presence"),
	}
}

// Join registers a connection in a room. Fails with ErrUsernameTaken when
// another live session in the room holds the username; otherwise returns the
// new session and the room's full member list.
func (s *PresenceService) Join(ctx context.Context, connectionID, username, roomID string) (registry.Session, []registry.Session, error) {
	sess, members, err := s.registry.Join(connectionID, username, roomID)
	if err != nil {
		if errors.Is(err, registry.ErrUsernameTaken) {
			return registry.Session{}, nil, ErrUsernameTaken
		}
		return registry.Session{}, nil, err
	}
	s.mirror(ctx, sess)
	return sess, members, nil
}

// Leave removes the session and marks the durable mirror offline. The
// returned session is the state before removal so the caller can broadcast
// the full user object.
func (s *PresenceService) Leave(ctx context.Context, connectionID string) (registry.Session, bool) {
	sess, ok := s.registry.Leave(connectionID)
	if !ok {
		return registry.Session{}, false
	}
	if err := s.userRepo.SetStatus(ctx, connectionID, domain.StatusOffline); err != nil {
		s.log.WithError(err).WithField("connection_id", connectionID).
			Warn("Failed to mirror offline status, continuing")
	}
	return sess, true
}

// SetTyping updates the typing flag and cursor position; unknown connection
// ids are a no-op.
func (s *PresenceService) SetTyping(ctx context.Context, connectionID string, typing bool, cursorPosition int) (registry.Session, bool) {
	sess, ok := s.registry.SetTyping(connectionID, typing, cursorPosition)
	if !ok {
		return registry.Session{}, false
	}
	s.mirror(ctx, sess)
	return sess, true
}

// SetCurrentFile records the file a connection is editing.
func (s *PresenceService) SetCurrentFile(ctx context.Context, connectionID string, fileID *uint) {
	sess, ok := s.registry.SetCurrentFile(connectionID, fileID)
	if !ok {
		return
	}
	s.mirror(ctx, sess)
}

// Get returns the live session for a connection id.
func (s *PresenceService) Get(connectionID string) (registry.Session, bool) {
	return s.registry.Get(connectionID)
}

// MembersOf returns all live sessions of a room.
func (s *PresenceService) MembersOf(roomID string) []registry.Session {
	return s.registry.MembersOf(roomID)
}

// mirror writes the session into the durable user record. Best-effort only.
func (s *PresenceService) mirror(ctx context.Context, sess registry.Session) {
	user := &domain.User{
		ConnectionID:   sess.ConnectionID,
		Username:       sess.Username,
		RoomID:         sess.RoomID,
		Status:         sess.Status,
		Typing:         sess.Typing,
		CursorPosition: sess.CursorPosition,
		CurrentFileID:  sess.CurrentFileID,
	}
	if err := s.userRepo.Upsert(ctx, user); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"connection_id": sess.ConnectionID,
			"room_id":       sess.RoomID,
		}).Warn("Failed to mirror presence to store, continuing")
	}
}
