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
	"github.com/slumio/Bro-code/internal/repository/mocks"
	"github.com/slumio/Bro-code/internal/service"
)

type maintenanceMocks struct {
	roomRepo  *mocks.RoomRepository
	fileRepo  *mocks.FileRepository
	chatRepo  *mocks.ChatRepository
	userRepo  *mocks.UserRepository
	stateRepo *mocks.StateRepository
}

func newMaintenanceService(roomRetention, userRetention time.Duration) (*service.MaintenanceService, *maintenanceMocks) {
	m := &maintenanceMocks{
		roomRepo:  new(mocks.RoomRepository),
		fileRepo:  new(mocks.FileRepository),
		chatRepo:  new(mocks.ChatRepository),
		userRepo:  new(mocks.UserRepository),
		stateRepo: new(mocks.StateRepository),
	}
	svc := service.NewMaintenanceService(m.roomRepo, m.fileRepo, m.chatRepo, m.userRepo, m.stateRepo, roomRetention, userRetention, nil)
	return svc, m
}

func TestMaintenanceService_PurgeStale_ReclaimsInactiveRoom(t *testing.T) {
	svc, m := newMaintenanceService(720*time.Hour, 24*time.Hour)
	ctx := context.Background()

	staleRoom := domain.Room{ID: 3, RoomID: "dusty", LastActivity: time.Now().Add(-31 * 24 * time.Hour)}
	m.roomRepo.On("FindInactiveBefore", ctx, mock.AnythingOfType("time.Time")).Return([]domain.Room{staleRoom}, nil).Once()
	m.fileRepo.On("DeleteByRoom", ctx, "dusty").Return(nil).Once()
	m.chatRepo.On("DeleteByRoom", ctx, "dusty").Return(nil).Once()
	m.stateRepo.On("ClearRoomState", ctx, "dusty").Return(nil).Once()
	m.roomRepo.On("Delete", ctx, uint(3)).Return(nil).Once()
	m.userRepo.On("DeleteOfflineBefore", ctx, mock.AnythingOfType("time.Time")).Return(int64(2), nil).Once()

	report, err := svc.PurgeStale(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, report.RoomsPurged)
	assert.Equal(t, int64(2), report.UsersPurged)
	m.roomRepo.AssertExpectations(t)
	m.fileRepo.AssertExpectations(t)
	m.chatRepo.AssertExpectations(t)
	m.stateRepo.AssertExpectations(t)
	m.userRepo.AssertExpectations(t)
}

func TestMaintenanceService_PurgeStale_NothingToDo(t *testing.T) {
	svc, m := newMaintenanceService(720*time.Hour, 24*time.Hour)
	ctx := context.Background()

	m.roomRepo.On("FindInactiveBefore", ctx, mock.AnythingOfType("time.Time")).Return([]domain.Room{}, nil).Once()
	m.userRepo.On("DeleteOfflineBefore", ctx, mock.AnythingOfType("time.Time")).Return(int64(0), nil).Once()

	report, err := svc.PurgeStale(ctx)

	require.NoError(t, err)
	assert.Equal(t, 0, report.RoomsPurged)
	m.roomRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

// A failure on one room skips that room but keeps the sweep going.
func TestMaintenanceService_PurgeStale_SkipsFailingRoom(t *testing.T) {
	svc, m := newMaintenanceService(720*time.Hour, 24*time.Hour)
	ctx := context.Background()

	rooms := []domain.Room{
		{ID: 1, RoomID: "broken", LastActivity: time.Now().Add(-40 * 24 * time.Hour)},
		{ID: 2, RoomID: "fine", LastActivity: time.Now().Add(-40 * 24 * time.Hour)},
	}
	m.roomRepo.On("FindInactiveBefore", ctx, mock.AnythingOfType("time.Time")).Return(rooms, nil).Once()
	m.fileRepo.On("DeleteByRoom", ctx, "broken").Return(errors.New("lock timeout")).Once()
	m.fileRepo.On("DeleteByRoom", ctx, "fine").Return(nil).Once()
	m.chatRepo.On("DeleteByRoom", ctx, "fine").Return(nil).Once()
	m.stateRepo.On("ClearRoomState", ctx, "fine").Return(nil).Once()
	m.roomRepo.On("Delete", ctx, uint(2)).Return(nil).Once()
	m.userRepo.On("DeleteOfflineBefore", ctx, mock.AnythingOfType("time.Time")).Return(int64(0), nil).Once()

	report, err := svc.PurgeStale(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, report.RoomsPurged)
	m.roomRepo.AssertNotCalled(t, "Delete", ctx, uint(1))
}

// A failed cache clear is best-effort: the room is still reclaimed.
func TestMaintenanceService_PurgeStale_CacheClearFailureIsNotFatal(t *testing.T) {
	svc, m := newMaintenanceService(720*time.Hour, 24*time.Hour)
	ctx := context.Background()

	staleRoom := domain.Room{ID: 5, RoomID: "dusty", LastActivity: time.Now().Add(-31 * 24 * time.Hour)}
	m.roomRepo.On("FindInactiveBefore", ctx, mock.AnythingOfType("time.Time")).Return([]domain.Room{staleRoom}, nil).Once()
	m.fileRepo.On("DeleteByRoom", ctx, "dusty").Return(nil).Once()
	m.chatRepo.On("DeleteByRoom", ctx, "dusty").Return(nil).Once()
	m.stateRepo.On("ClearRoomState", ctx, "dusty").Return(errors.New("redis down")).Once()
	m.roomRepo.On("Delete", ctx, uint(5)).Return(nil).Once()
	m.userRepo.On("DeleteOfflineBefore", ctx, mock.AnythingOfType("time.Time")).Return(int64(0), nil).Once()

	report, err := svc.PurgeStale(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, report.RoomsPurged)
	m.roomRepo.AssertExpectations(t)
}

func TestMaintenanceService_AuditIntegrity_Clean(t *testing.T) {
	svc, m := newMaintenanceService(720*time.Hour, 24*time.Hour)
	ctx := context.Background()

	m.roomRepo.On("Count", ctx).Return(int64(10), nil).Once()
	m.fileRepo.On("Count", ctx).Return(int64(120), nil).Once()
	m.roomRepo.On("CountMissingRoomID", ctx).Return(int64(0), nil).Once()
	m.fileRepo.On("CountOrphans", ctx).Return(int64(0), nil).Once()

	report, err := svc.AuditIntegrity(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(10), report.Rooms)
	assert.Equal(t, int64(120), report.Files)
	assert.Zero(t, report.MissingRoomID)
	assert.Zero(t, report.OrphanedFiles)
}

func TestMaintenanceService_AuditIntegrity_FlagsOrphans(t *testing.T) {
	svc, m := newMaintenanceService(720*time.Hour, 24*time.Hour)
	ctx := context.Background()

	m.roomRepo.On("Count", ctx).Return(int64(2), nil).Once()
	m.fileRepo.On("Count", ctx).Return(int64(9), nil).Once()
	m.roomRepo.On("CountMissingRoomID", ctx).Return(int64(0), nil).Once()
	m.fileRepo.On("CountOrphans", ctx).Return(int64(3), nil).Once()

	report, err := svc.AuditIntegrity(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(3), report.OrphanedFiles)
}
