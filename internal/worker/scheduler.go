package worker

import (
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/tasks"
)

// Scheduler enqueues the periodic end-alert check.
type Scheduler struct {
	scheduler *asynq.Scheduler
	log       *logrus.Entry
}

// NewScheduler registers the end-alert check on schedule, a cron spec or
// "@every <duration>".
func NewScheduler(redisOpt asynq.RedisClientOpt, schedule string, logger *logrus.Logger) (*Scheduler, error) {
	logEntry := logger.WithField("component", "scheduler")
	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Logger: logEntry})

	entryID, err := scheduler.Register(schedule, tasks.NewEndAlertCheckTask())
	if err != nil {
		return nil, fmt.Errorf("could not register end alert check on %q: %w", schedule, err)
	}
	logEntry.Infof("End alert check registered with schedule '%s' (EntryID: %s)", schedule, entryID)
	return &Scheduler{scheduler: scheduler, log: logEntry}, nil
}

// Start runs the scheduler in the background until Shutdown.
func (s *Scheduler) Start() error {
	s.log.Info("Asynq scheduler starting...")
	if err := s.scheduler.Start(); err != nil {
		return fmt.Errorf("could not start scheduler: %w", err)
	}
	return nil
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
	s.log.Info("Asynq scheduler stopped.")
}
