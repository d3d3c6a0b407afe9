package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/tasks"
)

// WorkerServer runs the asynq server that processes room tasks.
type WorkerServer struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *logrus.Entry
}

func NewWorkerServer(redisOpt asynq.RedisClientOpt, roster *RosterPublishHandler, alerts *EndAlertCheckHandler, logger *logrus.Logger) *WorkerServer {
	if roster == nil || alerts == nil {
		panic("task handlers cannot be nil for WorkerServer")
	}
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				tasks.QueueCritical: 6,
				tasks.QueueDefault:  3,
				tasks.QueueLow:      1,
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
			Logger: logEntry,
		},
	)

	return &WorkerServer{
		server: server,
		mux:    NewServeMux(roster, alerts),
		log:    logEntry,
	}
}

// NewServeMux routes every room task type to its handler.
func NewServeMux(roster *RosterPublishHandler, alerts *EndAlertCheckHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeRosterPublish, roster)
	mux.Handle(tasks.TypeRoomEndAlertCheck, alerts)
	return mux
}

// Start launches the processors and returns. Shutdown stops them.
func (ws *WorkerServer) Start() error {
	ws.log.Info("Worker server starting...")
	if err := ws.server.Start(ws.mux); err != nil {
		if errors.Is(err, asynq.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("could not start worker server: %w", err)
	}
	return nil
}

func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete.")
}
