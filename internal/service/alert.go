package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/domain"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/dto"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/repository"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/topic"
)

// AlertThresholds are the minutes-left marks at which a room is warned.
var AlertThresholds = []int{30, 20, 10}

const alertFanOut = 8

// AlertService warns rooms that their planned session is about to end.
type AlertService struct {
	rooms     repository.RoomRepository
	ledger    repository.AlertLedger
	publisher repository.Publisher
}

func NewAlertService(rooms repository.RoomRepository, ledger repository.AlertLedger, publisher repository.Publisher) *AlertService {
	if rooms == nil || ledger == nil || publisher == nil {
		panic("dependencies cannot be nil for AlertService")
	}
	return &AlertService{rooms: rooms, ledger: ledger, publisher: publisher}
}

func isThreshold(minutes int) bool {
	for _, t := range AlertThresholds {
		if t == minutes {
			return true
		}
	}
	return false
}

// CheckEndAlerts publishes ROOM_END_ALERT for every active room sitting on a
// threshold. Each (room, threshold) pair is alerted at most once. It returns
// the number of alerts sent.
func (s *AlertService) CheckEndAlerts(ctx context.Context, now time.Time) (int, error) {
	rooms, err := s.rooms.FindAllActive(ctx)
	if err != nil {
		logrus.WithError(err).Error("AlertService: failed to list active rooms")
		return 0, ErrInternalServer
	}

	sent := make([]bool, len(rooms))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(alertFanOut)
	for i := range rooms {
		i, room := i, rooms[i]
		minutes := room.MinutesLeft(now)
		if !isThreshold(minutes) {
			continue
		}
		g.Go(func() error {
			ok, err := s.alertRoom(gctx, &room, minutes)
			sent[i] = ok
			return err
		})
	}
	err = g.Wait()

	count := 0
	for _, ok := range sent {
		if ok {
			count++
		}
	}
	return count, err
}

func (s *AlertService) alertRoom(ctx context.Context, room *domain.Room, minutes int) (bool, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": room.ID, "minutes_left": minutes})
	first, err := s.ledger.MarkSent(ctx, room.ID, minutes)
	if err != nil {
		logCtx.WithError(err).Error("AlertService: failed to record alert")
		return false, err
	}
	if !first {
		logCtx.Debug("AlertService: alert already sent")
		return false, nil
	}
	// A lost publish is not retried; the ledger already holds the key.
	if err := s.publisher.Publish(ctx, topic.RoomData(room.ID), dto.RoomEndAlert{
		Type:        dto.TypeRoomEndAlert,
		MinutesLeft: minutes,
	}); err != nil {
		logCtx.WithError(err).Warn("AlertService: failed to publish end alert")
		return false, nil
	}
	logCtx.Info("AlertService: end alert sent")
	return true, nil
}
