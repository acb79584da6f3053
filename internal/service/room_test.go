package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slumio/Bro-code/internal/domain"
	"github.com/slumio/Bro-code/internal/repository"
	"github.com/slumio/Bro-code/internal/repository/mocks"
	"github.com/slumio/Bro-code/internal/service"
)

func newRoomService() (*service.RoomService, *maintenanceMocks) {
	m := &maintenanceMocks{
		roomRepo:  new(mocks.RoomRepository),
		fileRepo:  new(mocks.FileRepository),
		chatRepo:  new(mocks.ChatRepository),
		userRepo:  new(mocks.UserRepository),
		stateRepo: new(mocks.StateRepository),
	}
	svc := service.NewRoomService(m.roomRepo, m.chatRepo, m.fileRepo, m.userRepo, m.stateRepo, nil)
	return svc, m
}

func TestRoomService_EnsureRoom_Existing(t *testing.T) {
	svc, m := newRoomService()
	ctx := context.Background()

	existing := &domain.Room{ID: 1, RoomID: "room-1"}
	m.roomRepo.On("FindByRoomID", ctx, "room-1").Return(existing, nil).Once()

	room, err := svc.EnsureRoom(ctx, "room-1")

	require.NoError(t, err)
	assert.Equal(t, uint(1), room.ID)
	m.roomRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestRoomService_EnsureRoom_CreatesLazily(t *testing.T) {
	svc, m := newRoomService()
	ctx := context.Background()

	m.roomRepo.On("FindByRoomID", ctx, "fresh").Return(nil, repository.ErrNotFound).Once()
	m.roomRepo.On("Save", ctx, mock.MatchedBy(func(r *domain.Room) bool {
		return r.RoomID == "fresh" && !r.LastActivity.IsZero()
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Room).ID = 7
	}).Return(nil).Once()

	room, err := svc.EnsureRoom(ctx, "fresh")

	require.NoError(t, err)
	assert.Equal(t, uint(7), room.ID)
	m.roomRepo.AssertExpectations(t)
}

// Losing the unique-index race to a concurrent create falls back to reading
// the winner's row.
func TestRoomService_EnsureRoom_DuplicateRace(t *testing.T) {
	svc, m := newRoomService()
	ctx := context.Background()

	winner := &domain.Room{ID: 2, RoomID: "contested"}
	m.roomRepo.On("FindByRoomID", ctx, "contested").Return(nil, repository.ErrNotFound).Once()
	m.roomRepo.On("Save", ctx, mock.Anything).Return(repository.ErrDuplicateEntry).Once()
	m.roomRepo.On("FindByRoomID", ctx, "contested").Return(winner, nil).Once()

	room, err := svc.EnsureRoom(ctx, "contested")

	require.NoError(t, err)
	assert.Equal(t, uint(2), room.ID)
	m.roomRepo.AssertExpectations(t)
}

func TestRoomService_AppendChat(t *testing.T) {
	svc, m := newRoomService()
	ctx := context.Background()
	at := time.Now().UTC()

	m.chatRepo.On("Append", ctx, mock.MatchedBy(func(msg *domain.ChatMessage) bool {
		return msg.RoomID == "room-1" && msg.Username == "ada" && msg.Message == "hi" && msg.Timestamp.Equal(at)
	})).Return(nil).Once()
	m.roomRepo.On("TouchActivity", ctx, "room-1", mock.AnythingOfType("time.Time")).Return(nil).Once()

	msg, err := svc.AppendChat(ctx, "room-1", "ada", "hi", at)

	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Message)
	m.chatRepo.AssertExpectations(t)
}

func TestRoomService_SaveDrawing_CacheFailureIsNotFatal(t *testing.T) {
	svc, m := newRoomService()
	ctx := context.Background()

	m.roomRepo.On("SaveDrawing", ctx, "room-1", `{"lines":[]}`).Return(nil).Once()
	m.stateRepo.On("SetDrawingCache", ctx, "room-1", `{"lines":[]}`, mock.AnythingOfType("time.Duration")).
		Return(errors.New("redis down")).Once()
	m.roomRepo.On("TouchActivity", ctx, "room-1", mock.AnythingOfType("time.Time")).Return(nil).Once()

	err := svc.SaveDrawing(ctx, "room-1", `{"lines":[]}`)

	require.NoError(t, err)
	m.roomRepo.AssertExpectations(t)
}

func TestRoomService_GetDrawing_CacheHitSkipsStore(t *testing.T) {
	svc, m := newRoomService()
	ctx := context.Background()

	m.stateRepo.On("GetDrawingCache", ctx, "room-1").Return(`{"cached":true}`, nil).Once()

	snapshot, err := svc.GetDrawing(ctx, "room-1")

	require.NoError(t, err)
	assert.Equal(t, `{"cached":true}`, snapshot)
	m.roomRepo.AssertNotCalled(t, "FindByRoomID", mock.Anything, mock.Anything)
}

func TestRoomService_GetDrawing_CacheMissFallsBackAndRepopulates(t *testing.T) {
	svc, m := newRoomService()
	ctx := context.Background()

	m.stateRepo.On("GetDrawingCache", ctx, "room-1").Return("", repository.ErrNotFound).Once()
	m.roomRepo.On("FindByRoomID", ctx, "room-1").Return(&domain.Room{RoomID: "room-1", Drawing: `{"v":1}`}, nil).Once()
	m.stateRepo.On("SetDrawingCache", ctx, "room-1", `{"v":1}`, mock.AnythingOfType("time.Duration")).Return(nil).Once()

	snapshot, err := svc.GetDrawing(ctx, "room-1")

	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, snapshot)
	m.stateRepo.AssertExpectations(t)
}

func TestRoomService_FindRoom_NotFound(t *testing.T) {
	svc, m := newRoomService()
	ctx := context.Background()

	m.roomRepo.On("FindByRoomID", ctx, "ghost").Return(nil, repository.ErrNotFound).Once()

	_, err := svc.FindRoom(ctx, "ghost")

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrNotFound))
}

func TestRoomService_Status_DegradesOnCountFailure(t *testing.T) {
	svc, m := newRoomService()
	ctx := context.Background()

	m.roomRepo.On("Count", ctx).Return(int64(0), errors.New("db gone")).Once()
	m.fileRepo.On("Count", ctx).Return(int64(4), nil).Once()
	m.userRepo.On("Count", ctx).Return(int64(2), nil).Once()

	st := svc.Status(ctx)

	assert.False(t, st.DatabaseConnected)
	assert.Equal(t, int64(4), st.Files)
	assert.Equal(t, int64(2), st.Users)
}

func TestRoomService_Status_Healthy(t *testing.T) {
	svc, m := newRoomService()
	ctx := context.Background()

	m.roomRepo.On("Count", ctx).Return(int64(3), nil).Once()
	m.fileRepo.On("Count", ctx).Return(int64(12), nil).Once()
	m.userRepo.On("Count", ctx).Return(int64(5), nil).Once()

	st := svc.Status(ctx)

	assert.True(t, st.DatabaseConnected)
	assert.Equal(t, int64(3), st.Rooms)
}
