package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/slumio/Bro-code/internal/domain"
	"github.com/slumio/Bro-code/internal/repository"
)

const drawingCacheTTL = 24 * time.Hour

// RoomService owns the room document outside the file tree: lazy room
// creation, the chat log, the drawing snapshot, and the operator queries.
type RoomService struct {
	roomRepo  repository.RoomRepository
	chatRepo  repository.ChatRepository
	fileRepo  repository.FileRepository
	userRepo  repository.UserRepository
	stateRepo repository.StateRepository
	log       *logrus.Entry
}

// NewRoomService creates a RoomService.
func NewRoomService(
	roomRepo repository.RoomRepository,
	chatRepo repository.ChatRepository,
	fileRepo repository.FileRepository,
	userRepo repository.UserRepository,
	stateRepo repository.StateRepository,
	logger *logrus.Logger,
) *RoomService {
	if roomRepo == nil || chatRepo == nil || fileRepo == nil || userRepo == nil || stateRepo == nil {
		panic("all repositories must be non-nil for RoomService")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RoomService{
		roomRepo:  roomRepo,
		chatRepo:  chatRepo,
		fileRepo:  fileRepo,
		userRepo:  userRepo,
		stateRepo: stateRepo,
		log:       logger.WithField("component", "room"),
	}
}

// EnsureRoom returns the room, creating it on the first join to a never-seen
// room id. A concurrent create losing the unique-index race falls back to
// reading the winner's row.
func (s *RoomService) EnsureRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	room, err := s.roomRepo.FindByRoomID(ctx, roomID)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, mapRepoError(err)
	}

	room = &domain.Room{RoomID: roomID, LastActivity: time.Now().UTC()}
	err = s.roomRepo.Save(ctx, room)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			existing, ferr := s.roomRepo.FindByRoomID(ctx, roomID)
			if ferr != nil {
				return nil, mapRepoError(ferr)
			}
			return existing, nil
		}
		return nil, mapRepoError(err)
	}
	s.log.WithField("room_id", roomID).Info("Room created")
	return room, nil
}

// AppendChat persists one chat message and touches the room's activity.
func (s *RoomService) AppendChat(ctx context.Context, roomID, username, message string, at time.Time) (*domain.ChatMessage, error) {
	msg := &domain.ChatMessage{
		RoomID:    roomID,
		Username:  username,
		Message:   message,
		Timestamp: at,
	}
	if err := s.chatRepo.Append(ctx, msg); err != nil {
		return nil, mapRepoError(err)
	}
	s.touchActivity(ctx, roomID)
	return msg, nil
}

// SaveDrawing overwrites the room's drawing snapshot (last write wins) and
// refreshes the hot cache. The cache write is best-effort.
func (s *RoomService) SaveDrawing(ctx context.Context, roomID, snapshot string) error {
	if err := s.roomRepo.SaveDrawing(ctx, roomID, snapshot); err != nil {
		return mapRepoError(err)
	}
	if err := s.stateRepo.SetDrawingCache(ctx, roomID, snapshot, drawingCacheTTL); err != nil {
		s.log.WithError(err).WithField("room_id", roomID).Warn("Failed to cache drawing snapshot, continuing")
	}
	s.touchActivity(ctx, roomID)
	return nil
}

// GetDrawing returns the room's current drawing snapshot, serving from the
// cache when possible and falling back to the store on a miss.
func (s *RoomService) GetDrawing(ctx context.Context, roomID string) (string, error) {
	cached, err := s.stateRepo.GetDrawingCache(ctx, roomID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		s.log.WithError(err).WithField("room_id", roomID).Warn("Drawing cache read failed, falling back to store")
	}

	room, err := s.roomRepo.FindByRoomID(ctx, roomID)
	if err != nil {
		return "", mapRepoError(err)
	}
	if room.Drawing != "" {
		if cerr := s.stateRepo.SetDrawingCache(ctx, roomID, room.Drawing, drawingCacheTTL); cerr != nil {
			s.log.WithError(cerr).WithField("room_id", roomID).Debug("Failed to repopulate drawing cache")
		}
	}
	return room.Drawing, nil
}

// FindRoom returns one persisted room by its client-facing id.
func (s *RoomService) FindRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	room, err := s.roomRepo.FindByRoomID(ctx, roomID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return room, nil
}

// ListRooms returns every persisted room.
func (s *RoomService) ListRooms(ctx context.Context) ([]domain.Room, error) {
	rooms, err := s.roomRepo.FindAll(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return rooms, nil
}

// ChatLog returns a room's chat history in insertion order.
func (s *RoomService) ChatLog(ctx context.Context, roomID string) ([]domain.ChatMessage, error) {
	msgs, err := s.chatRepo.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return msgs, nil
}

// Status reports persistence connectivity and store counts for the operator
// endpoint. A failed count degrades the report instead of failing it.
type Status struct {
	DatabaseConnected bool  `json:"databaseConnected"`
	Rooms             int64 `json:"rooms"`
	Files             int64 `json:"files"`
	Users             int64 `json:"users"`
}

func (s *RoomService) Status(ctx context.Context) Status {
	st := Status{DatabaseConnected: true}

	rooms, err := s.roomRepo.Count(ctx)
	if err != nil {
		s.log.WithError(err).Warn("Status: room count failed")
		st.DatabaseConnected = false
	}
	st.Rooms = rooms

	files, err := s.fileRepo.Count(ctx)
	if err != nil {
		s.log.WithError(err).Warn("Status: file count failed")
		st.DatabaseConnected = false
	}
	st.Files = files

	users, err := s.userRepo.Count(ctx)
	if err != nil {
		s.log.WithError(err).Warn("Status: user count failed")
		st.DatabaseConnected = false
	}
	st.Users = users

	return st
}

func (s *RoomService) touchActivity(ctx context.Context, roomID string) {
	if err := s.roomRepo.TouchActivity(ctx, roomID, time.Now().UTC()); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.WithError(err).WithField("room_id", roomID).Warn("Failed to touch room activity")
		}
	}
}
