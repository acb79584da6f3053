package worker

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/slumio/Bro-code/internal/service"
	"github.com/slumio/Bro-code/internal/tasks"
)

// MaintenanceHandler processes the periodic purge and audit tasks by
// delegating to the MaintenanceService.
type MaintenanceHandler struct {
	maintenance *service.MaintenanceService
}

// NewMaintenanceHandler creates a MaintenanceHandler.
func NewMaintenanceHandler(maintenance *service.MaintenanceService) *MaintenanceHandler {
	if maintenance == nil {
		panic("MaintenanceService cannot be nil for MaintenanceHandler")
	}
	return &MaintenanceHandler{maintenance: maintenance}
}

// ProcessPurge handles a maintenance:purge task.
func (h *MaintenanceHandler) ProcessPurge(ctx context.Context, t *asynq.Task) error {
	logCtx := taskLog(t)
	logCtx.Info("Processing maintenance purge task...")

	report, err := h.maintenance.PurgeStale(ctx)
	if err != nil {
		logCtx.WithError(err).Error("Maintenance purge failed")
		return err
	}
	logCtx.WithFields(logrus.Fields{
		"rooms_purged": report.RoomsPurged,
		"users_purged": report.UsersPurged,
	}).Info("Maintenance purge task completed")
	return nil
}

// ProcessAudit handles a maintenance:audit task.
func (h *MaintenanceHandler) ProcessAudit(ctx context.Context, t *asynq.Task) error {
	logCtx := taskLog(t)
	logCtx.Info("Processing maintenance audit task...")

	report, err := h.maintenance.AuditIntegrity(ctx)
	if err != nil {
		logCtx.WithError(err).Error("Maintenance audit failed")
		return err
	}
	logCtx.WithFields(logrus.Fields{
		"rooms":           report.Rooms,
		"files":           report.Files,
		"missing_room_id": report.MissingRoomID,
		"orphaned_files":  report.OrphanedFiles,
	}).Info("Maintenance audit task completed")
	return nil
}

func taskLog(t *asynq.Task) *logrus.Entry {
	fields := logrus.Fields{"task_type": t.Type()}
	if rw := t.ResultWriter(); rw != nil {
		fields["task_id"] = rw.TaskID()
	}
	var p tasks.MaintenancePayload
	if err := json.Unmarshal(t.Payload(), &p); err == nil && p.Reason != "" {
		fields["reason"] = p.Reason
	}
	return logrus.WithFields(fields)
}
