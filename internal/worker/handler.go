package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/repository"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/tasks"
)

func taskLogger(ctx context.Context, t *asynq.Task) *logrus.Entry {
	taskID := ""
	if rw := t.ResultWriter(); rw != nil {
		taskID = rw.TaskID()
	}
	currentRetry, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	return logrus.WithFields(logrus.Fields{
		"task_id":   taskID,
		"task_type": t.Type(),
		"retry":     currentRetry,
		"max_retry": maxRetry,
	})
}

// RosterPublishHandler republishes a room update that could not be published
// right after its transaction committed.
type RosterPublishHandler struct {
	publisher repository.Publisher
}

func NewRosterPublishHandler(publisher repository.Publisher) *RosterPublishHandler {
	if publisher == nil {
		panic("Publisher cannot be nil for RosterPublishHandler")
	}
	return &RosterPublishHandler{publisher: publisher}
}

// ProcessTask implements asynq.Handler.
func (h *RosterPublishHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := taskLogger(ctx, t)

	var payload tasks.RosterPublishPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal task payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Topic == "" || len(payload.Payload) == 0 {
		logCtx.Error("Roster publish task without topic or body")
		return fmt.Errorf("empty roster publish task: %w", asynq.SkipRetry)
	}

	if err := h.publisher.Publish(ctx, payload.Topic, payload.Payload); err != nil {
		logCtx.WithError(err).WithField("topic", payload.Topic).Warn("Roster publish retry failed")
		return fmt.Errorf("publish to %s: %w", payload.Topic, err)
	}
	logCtx.WithField("topic", payload.Topic).Info("Roster publish retry delivered")
	return nil
}

// EndAlertChecker is satisfied by service.AlertService.
type EndAlertChecker interface {
	CheckEndAlerts(ctx context.Context, now time.Time) (int, error)
}

// EndAlertCheckHandler runs the periodic end-alert scan.
type EndAlertCheckHandler struct {
	alerts EndAlertChecker
	now    func() time.Time
}

func NewEndAlertCheckHandler(alerts EndAlertChecker) *EndAlertCheckHandler {
	if alerts == nil {
		panic("EndAlertChecker cannot be nil for EndAlertCheckHandler")
	}
	return &EndAlertCheckHandler{alerts: alerts, now: time.Now}
}

// ProcessTask implements asynq.Handler.
func (h *EndAlertCheckHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := taskLogger(ctx, t)
	sent, err := h.alerts.CheckEndAlerts(ctx, h.now())
	if err != nil {
		logCtx.WithError(err).Error("End alert check failed")
		return err
	}
	if sent > 0 {
		logCtx.WithField("alerts_sent", sent).Info("End alert check completed")
	} else {
		logCtx.Debug("End alert check completed, nothing due")
	}
	return nil
}
