// Package mocks provides testify mock implementations of the repository
// interfaces for service-level tests.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/slumio/Bro-code/internal/domain"
)

// RoomRepository is a mock of repository.RoomRepository.
type RoomRepository struct {
	mock.Mock
}

func (m *RoomRepository) FindByRoomID(ctx context.Context, roomID string) (*domain.Room, error) {
	args := m.Called(ctx, roomID)
	if room, ok := args.Get(0).(*domain.Room); ok {
		return room, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoomRepository) Save(ctx context.Context, room *domain.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *RoomRepository) TouchActivity(ctx context.Context, roomID string, at time.Time) error {
	args := m.Called(ctx, roomID, at)
	return args.Error(0)
}

func (m *RoomRepository) SaveDrawing(ctx context.Context, roomID string, snapshot string) error {
	args := m.Called(ctx, roomID, snapshot)
	return args.Error(0)
}

func (m *RoomRepository) FindAll(ctx context.Context) ([]domain.Room, error) {
	args := m.Called(ctx)
	if rooms, ok := args.Get(0).([]domain.Room); ok {
		return rooms, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoomRepository) FindInactiveBefore(ctx context.Context, cutoff time.Time) ([]domain.Room, error) {
	args := m.Called(ctx, cutoff)
	if rooms, ok := args.Get(0).([]domain.Room); ok {
		return rooms, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoomRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *RoomRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *RoomRepository) CountMissingRoomID(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// FileRepository is a mock of repository.FileRepository.
type FileRepository struct {
	mock.Mock
}

func (m *FileRepository) FindByID(ctx context.Context, roomID string, id uint) (*domain.FileNode, error) {
	args := m.Called(ctx, roomID, id)
	if node, ok := args.Get(0).(*domain.FileNode); ok {
		return node, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *FileRepository) FindByTransientID(ctx context.Context, roomID string, transientID string) (*domain.FileNode, error) {
	args := m.Called(ctx, roomID, transientID)
	if node, ok := args.Get(0).(*domain.FileNode); ok {
		return node, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *FileRepository) ListByRoom(ctx context.Context, roomID string) ([]domain.FileNode, error) {
	args := m.Called(ctx, roomID)
	if nodes, ok := args.Get(0).([]domain.FileNode); ok {
		return nodes, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *FileRepository) Save(ctx context.Context, node *domain.FileNode) error {
	args := m.Called(ctx, node)
	return args.Error(0)
}

func (m *FileRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *FileRepository) DeleteByRoom(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *FileRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *FileRepository) CountOrphans(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// ChatRepository is a mock of repository.ChatRepository.
type ChatRepository struct {
	mock.Mock
}

func (m *ChatRepository) Append(ctx context.Context, msg *domain.ChatMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *ChatRepository) ListByRoom(ctx context.Context, roomID string) ([]domain.ChatMessage, error) {
	args := m.Called(ctx, roomID)
	if msgs, ok := args.Get(0).([]domain.ChatMessage); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ChatRepository) DeleteByRoom(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

// UserRepository is a mock of repository.UserRepository.
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Upsert(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepository) SetStatus(ctx context.Context, connectionID string, status string) error {
	args := m.Called(ctx, connectionID, status)
	return args.Error(0)
}

func (m *UserRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *UserRepository) DeleteOfflineBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// StateRepository is a mock of repository.StateRepository.
type StateRepository struct {
	mock.Mock
}

func (m *StateRepository) GetDrawingCache(ctx context.Context, roomID string) (string, error) {
	args := m.Called(ctx, roomID)
	return args.String(0), args.Error(1)
}

func (m *StateRepository) SetDrawingCache(ctx context.Context, roomID string, snapshot string, ttl time.Duration) error {
	args := m.Called(ctx, roomID, snapshot, ttl)
	return args.Error(0)
}

func (m *StateRepository) ClearRoomState(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *StateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}
