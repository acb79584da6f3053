package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/slumio/Bro-code/internal/repository"
)

// MaintenanceService implements the two background duties: purging rooms and
// users past their retention windows, and the store integrity sweep. Both run
// outside the request path and report failures to the caller, which logs them
// and lets the next scheduled run proceed.
type MaintenanceService struct {
	roomRepo  repository.RoomRepository
	fileRepo  repository.FileRepository
	chatRepo  repository.ChatRepository
	userRepo  repository.UserRepository
	stateRepo repository.StateRepository

	roomRetention time.Duration
	userRetention time.Duration

	log *logrus.Entry
}

// NewMaintenanceService creates a MaintenanceService. roomRetention guards
// rooms by last activity (default 30 days), userRetention guards offline
// user mirrors (default 24 hours).
func NewMaintenanceService(
	roomRepo repository.RoomRepository,
	fileRepo repository.FileRepository,
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	stateRepo repository.StateRepository,
	roomRetention, userRetention time.Duration,
	logger *logrus.Logger,
) *MaintenanceService {
	if roomRepo == nil || fileRepo == nil || chatRepo == nil || userRepo == nil || stateRepo == nil {
		panic("all repositories must be non-nil for MaintenanceService")
	}
	if roomRetention <= 0 {
		roomRetention = 30 * 24 * time.Hour
	}
	if userRetention <= 0 {
		userRetention = 24 * time.Hour
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &MaintenanceService{
		roomRepo:      roomRepo,
		fileRepo:      fileRepo,
		chatRepo:      chatRepo,
		userRepo:      userRepo,
		stateRepo:     stateRepo,
		roomRetention: roomRetention,
		userRetention: userRetention,
		log:           logger.WithField("component", "maintenance"),
	}
}

// PurgeReport summarizes one purge run.
type PurgeReport struct {
	RoomsPurged int
	UsersPurged int64
}

// PurgeStale deletes rooms whose last activity predates the room retention
// window, together with their files, chat log and cached state, then removes
// offline user mirrors older than the user retention window. A failure on one
// room is logged and does not stop the rest of the sweep.
func (s *MaintenanceService) PurgeStale(ctx context.Context) (PurgeReport, error) {
	var report PurgeReport
	cutoff := time.Now().UTC().Add(-s.roomRetention)

	rooms, err := s.roomRepo.FindInactiveBefore(ctx, cutoff)
	if err != nil {
		return report, mapRepoError(err)
	}
	for _, room := range rooms {
		logCtx := s.log.WithFields(logrus.Fields{"room_id": room.RoomID, "last_activity": room.LastActivity})
		if err := s.fileRepo.DeleteByRoom(ctx, room.RoomID); err != nil {
			logCtx.WithError(err).Error("Purge: failed to delete room files, skipping room")
			continue
		}
		if err := s.chatRepo.DeleteByRoom(ctx, room.RoomID); err != nil {
			logCtx.WithError(err).Error("Purge: failed to delete room chat log, skipping room")
			continue
		}
		if err := s.stateRepo.ClearRoomState(ctx, room.RoomID); err != nil {
			logCtx.WithError(err).Warn("Purge: failed to clear cached room state, continuing")
		}
		if err := s.roomRepo.Delete(ctx, room.ID); err != nil {
			logCtx.WithError(err).Error("Purge: failed to delete room record")
			continue
		}
		logCtx.Info("Purge: room reclaimed")
		report.RoomsPurged++
	}

	userCutoff := time.Now().UTC().Add(-s.userRetention)
	purged, err := s.userRepo.DeleteOfflineBefore(ctx, userCutoff)
	if err != nil {
		s.log.WithError(err).Error("Purge: failed to delete stale offline users")
		return report, mapRepoError(err)
	}
	report.UsersPurged = purged

	if report.RoomsPurged > 0 || report.UsersPurged > 0 {
		s.log.WithFields(logrus.Fields{
			"rooms_purged": report.RoomsPurged,
			"users_purged": report.UsersPurged,
		}).Info("Purge run complete")
	}
	return report, nil
}

// AuditReport summarizes one integrity sweep.
type AuditReport struct {
	Rooms          int64
	Files          int64
	MissingRoomID  int64
	OrphanedFiles  int64
}

// AuditIntegrity counts rooms and files and flags integrity violations:
// rooms without a room id and file nodes whose parent pointer dangles.
// Findings are logged; nothing is repaired here.
func (s *MaintenanceService) AuditIntegrity(ctx context.Context) (AuditReport, error) {
	var report AuditReport
	var err error

	if report.Rooms, err = s.roomRepo.Count(ctx); err != nil {
		return report, mapRepoError(err)
	}
	if report.Files, err = s.fileRepo.Count(ctx); err != nil {
		return report, mapRepoError(err)
	}
	if report.MissingRoomID, err = s.roomRepo.CountMissingRoomID(ctx); err != nil {
		return report, mapRepoError(err)
	}
	if report.OrphanedFiles, err = s.fileRepo.CountOrphans(ctx); err != nil {
		return report, mapRepoError(err)
	}

	logCtx := s.log.WithFields(logrus.Fields{
		"rooms":           report.Rooms,
		"files":           report.Files,
		"missing_room_id": report.MissingRoomID,
		"orphaned_files":  report.OrphanedFiles,
	})
	if report.MissingRoomID > 0 {
		logCtx.Warn("Audit: rooms with missing room id detected")
	} else if report.OrphanedFiles > 0 {
		logCtx.Warn("Audit: orphaned file nodes detected")
	} else {
		logCtx.Info("Audit: store integrity check complete")
	}
	return report, nil
}
