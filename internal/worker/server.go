// Package worker runs the asynq server processing background maintenance
// tasks.
package worker

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/slumio/Bro-code/internal/service"
	"github.com/slumio/Bro-code/internal/tasks"
)

// WorkerServer wraps the asynq server lifecycle.
type WorkerServer struct {
	server      *asynq.Server
	maintenance *service.MaintenanceService
	log         *logrus.Entry
}

// NewWorkerServer creates a WorkerServer consuming from the given Redis
// connection.
func NewWorkerServer(redisOpt asynq.RedisClientOpt, maintenance *service.MaintenanceService, logger *logrus.Logger) *WorkerServer {
	if maintenance == nil {
		panic("MaintenanceService cannot be nil for WorkerServer")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"default": 3,
				"low":     1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				taskID := ""
				if rw := task.ResultWriter(); rw != nil {
					taskID = rw.TaskID()
				}
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_id":   taskID,
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).Errorf("Task failed: %v", err)
			}),
		},
	)

	return &WorkerServer{
		server:      server,
		maintenance: maintenance,
		log:         logEntry,
	}
}

// Start runs the worker server. It blocks, so call it in its own goroutine.
func (ws *WorkerServer) Start() {
	mux := asynq.NewServeMux()

	handler := NewMaintenanceHandler(ws.maintenance)
	mux.HandleFunc(tasks.TypeMaintenancePurge, handler.ProcessPurge)
	mux.HandleFunc(tasks.TypeMaintenanceAudit, handler.ProcessAudit)

	ws.log.Info("Worker server starting...")
	if err := ws.server.Run(mux); err != nil {
		if !errors.Is(err, asynq.ErrServerClosed) {
			ws.log.Fatalf("Could not run worker server: %v", err)
		}
		ws.log.Info("Worker server stopped.")
	}
}

// Shutdown gracefully stops the worker server.
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete.")
}
