package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/domain"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/dto"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/metrics"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/repository"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/topic"
)

const (
	MaxRoomCapacity = 8
	maxNoticeLength = 500
)

// RoomStateCoordinator owns the durable room state machine: occupancy,
// capacity, admin delegation and the final teardown of a room. Every change to
// one room runs under that room's lock and inside one transaction.
type RoomStateCoordinator struct {
	tx             repository.Transactor
	rooms          repository.RoomRepository
	participations repository.ParticipationRepository
	users          repository.UserRepository
	publisher      repository.Publisher
	retry          repository.PublishRetryQueue
	metrics        *metrics.Metrics

	locks *keyedMutex
	now   func() time.Time
	// pick returns a uniform index in [0, n).
	pick func(n int) int
}

// CoordinatorOption customizes a RoomStateCoordinator.
type CoordinatorOption func(*RoomStateCoordinator)

func WithClock(now func() time.Time) CoordinatorOption {
	return func(s *RoomStateCoordinator) { s.now = now }
}

// WithPicker replaces the random admin delegation choice.
func WithPicker(pick func(n int) int) CoordinatorOption {
	return func(s *RoomStateCoordinator) { s.pick = pick }
}

// WithPublishRetry enables the background retry of failed publishes.
func WithPublishRetry(q repository.PublishRetryQueue) CoordinatorOption {
	return func(s *RoomStateCoordinator) { s.retry = q }
}

func NewRoomStateCoordinator(
	tx repository.Transactor,
	rooms repository.RoomRepository,
	participations repository.ParticipationRepository,
	users repository.UserRepository,
	publisher repository.Publisher,
	m *metrics.Metrics,
	opts ...CoordinatorOption,
) *RoomStateCoordinator {
	if tx == nil {
		panic("Transactor cannot be nil for RoomStateCoordinator")
	}
	if rooms == nil || participations == nil || users == nil {
		panic("repositories cannot be nil for RoomStateCoordinator")
	}
	if publisher == nil {
		panic("Publisher cannot be nil for RoomStateCoordinator")
	}
	if m == nil {
		panic("metrics cannot be nil for RoomStateCoordinator")
	}

	var rngMu sync.Mutex
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	s := &RoomStateCoordinator{
		tx:             tx,
		rooms:          rooms,
		participations: participations,
		users:          users,
		publisher:      publisher,
		metrics:        m,
		locks:          newKeyedMutex(),
		now:            time.Now,
		pick: func(n int) int {
			rngMu.Lock()
			defer rngMu.Unlock()
			return rng.Intn(n)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRoomInput is what a user supplies when opening a room.
type CreateRoomInput struct {
	Name            string
	Capacity        int
	Duration        string // "HH:mm"
	ImagePath       string
	MicAvailability *bool
}

// EnterResult describes the room after an enter.
type EnterResult struct {
	Count   int
	IsAdmin bool
	// AlreadyParticipating is set when the call changed nothing.
	AlreadyParticipating bool
}

// ExitResult describes the room after an exit.
type ExitResult struct {
	Count         int
	Ended         bool
	FinalDuration time.Duration
	// NewAdminID is zero unless admin was delegated.
	NewAdminID uint
}

// RoomDetail is a room plus its current members.
type RoomDetail struct {
	Room    *domain.Room
	Members []domain.Participation
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// CreateRoom opens an active room with the creator inside as admin.
func (s *RoomStateCoordinator) CreateRoom(ctx context.Context, userID uint, in CreateRoomInput) (*domain.Room, error) {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "operation": "CreateRoom"})

	// 1. Validate the request
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: room name is required", ErrInvalidInput)
	}
	if in.Capacity < 1 || in.Capacity > MaxRoomCapacity {
		return nil, fmt.Errorf("%w: capacity must be between 1 and %d", ErrInvalidInput, MaxRoomCapacity)
	}
	duration, err := parseClock(in.Duration)
	if err != nil || duration <= 0 {
		return nil, fmt.Errorf("%w: duration must be a positive HH:mm", ErrInvalidInput)
	}
	mic := true // microphones are allowed unless the creator says otherwise
	if in.MicAvailability != nil {
		mic = *in.MicAvailability
	}

	// 2. Build the room with the creator already inside
	now := s.now()
	room := &domain.Room{
		Name:             name,
		Capacity:         in.Capacity,
		ParticipantCount: 1,
		Active:           true,
		StartedAt:        now,
		Duration:         duration,
		Notice:           domain.DefaultNotice,
		MicAvailability:  mic,
		ImagePath:        in.ImagePath,
	}
	// 3. Persist room and admin participation together
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		if err := repos.Rooms.Save(ctx, room); err != nil {
			return err
		}
		return repos.Participations.Save(ctx, &domain.Participation{
			RoomID:          room.ID,
			UserID:          userID,
			IsAdmin:         true,
			IsParticipating: true,
		})
	})
	if err != nil {
		logCtx.WithError(err).Error("Failed to create room")
		return nil, ErrInternalServer
	}

	s.metrics.RoomTransitions.WithLabelValues("create").Inc()
	logCtx.WithField("room_id", room.ID).Info("Room created successfully")
	return room, nil
}

// GetRoom returns the room and the members currently inside it.
func (s *RoomStateCoordinator) GetRoom(ctx context.Context, roomID uint) (*RoomDetail, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "operation": "GetRoom"})
	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		return nil, mapRoomLookupError(logCtx, err)
	}
	members, err := s.participations.FindAllActiveByRoom(ctx, roomID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to list room members")
		return nil, ErrInternalServer
	}
	return &RoomDetail{Room: room, Members: members}, nil
}

func mapRoomLookupError(logCtx *logrus.Entry, err error) error {
	if errors.Is(err, repository.ErrRoomNotFound) {
		logCtx.Warn("Room not found")
		return ErrRoomNotFound
	}
	logCtx.WithError(err).Error("Repository error loading room")
	return ErrInternalServer
}

// Enter admits userID into the room. A user who is already inside gets a
// no-op success; a returning user keeps the admin flag of their earlier visit.
func (s *RoomStateCoordinator) Enter(ctx context.Context, roomID, userID uint) (*EnterResult, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID, "operation": "Enter"})
	unlock := s.locks.Lock(roomID)
	defer unlock()

	var result EnterResult
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		// 1. Lock the room row and make sure it is still open
		room, err := repos.Rooms.FindByIDForUpdate(ctx, roomID)
		if err != nil {
			return mapRoomLookupError(logCtx, err)
		}
		if !room.Active {
			return ErrRoomInactive
		}

		// 2. An earlier visit leaves a record behind; reuse it
		part, err := repos.Participations.Find(ctx, roomID, userID)
		if err != nil && !errors.Is(err, repository.ErrParticipationNotFound) {
			logCtx.WithError(err).Error("Failed to load participation")
			return ErrInternalServer
		}
		if part != nil && part.IsParticipating {
			result = EnterResult{Count: room.ParticipantCount, IsAdmin: part.IsAdmin, AlreadyParticipating: true}
			return nil
		}
		// 3. Capacity check, then record the user as inside
		if room.IsFull() {
			return ErrRoomFull
		}

		if part == nil {
			part = &domain.Participation{RoomID: roomID, UserID: userID}
		}
		part.IsParticipating = true
		if err := repos.Participations.Save(ctx, part); err != nil {
			logCtx.WithError(err).Error("Failed to save participation")
			return ErrInternalServer
		}
		room.ParticipantCount++
		if err := repos.Rooms.Save(ctx, room); err != nil {
			logCtx.WithError(err).Error("Failed to save room")
			return ErrInternalServer
		}
		result = EnterResult{Count: room.ParticipantCount, IsAdmin: part.IsAdmin}
		return nil
	})
	if err != nil {
		return nil, asServiceError(logCtx, err)
	}
	if result.AlreadyParticipating {
		logCtx.Debug("User already participating, enter is a no-op")
		return &result, nil
	}

	// 4. Announce only after commit
	s.metrics.RoomTransitions.WithLabelValues("enter").Inc()
	s.publish(ctx, roomID, dto.UserEnterUpdate{
		Type:     dto.TypeUserEnterUpdated,
		UserID:   userID,
		Username: s.username(ctx, userID),
		Count:    result.Count,
	})
	logCtx.WithField("count", result.Count).Info("User entered room")
	return &result, nil
}

// Exit removes userID from the room. The last exit ends the room; an exiting
// admin hands the role to a random remaining member.
func (s *RoomStateCoordinator) Exit(ctx context.Context, roomID, userID uint) (*ExitResult, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID, "operation": "Exit"})
	unlock := s.locks.Lock(roomID)
	defer unlock()

	var result ExitResult
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		// 1. Lock the room row; only a current participant may exit
		room, err := repos.Rooms.FindByIDForUpdate(ctx, roomID)
		if err != nil {
			return mapRoomLookupError(logCtx, err)
		}
		if !room.Active {
			return ErrRoomInactive
		}
		part, err := repos.Participations.Find(ctx, roomID, userID)
		if errors.Is(err, repository.ErrParticipationNotFound) {
			return ErrNotParticipant
		}
		if err != nil {
			logCtx.WithError(err).Error("Failed to load participation")
			return ErrInternalServer
		}
		if !part.IsParticipating {
			return ErrNotParticipant
		}

		// 2. Last one out ends the room and closes every record
		if room.ParticipantCount <= 1 {
			room.ParticipantCount = 0
			room.Deactivate(s.now())
			if _, err := repos.Participations.EndAllByRoom(ctx, roomID); err != nil {
				logCtx.WithError(err).Error("Failed to end participations")
				return ErrInternalServer
			}
			if err := repos.Rooms.Save(ctx, room); err != nil {
				logCtx.WithError(err).Error("Failed to save ended room")
				return ErrInternalServer
			}
			result = ExitResult{Count: 0, Ended: true, FinalDuration: room.FinalDuration}
			return nil
		}

		// 3. An exiting admin hands the role over inside the same transaction
		part.IsParticipating = false
		if part.IsAdmin {
			successor, err := s.chooseSuccessor(ctx, repos, roomID, userID)
			if err != nil {
				logCtx.WithError(err).Error("Failed to choose admin successor")
				return ErrInternalServer
			}
			if successor != nil {
				successor.IsAdmin = true
				if err := repos.Participations.Save(ctx, successor); err != nil {
					logCtx.WithError(err).Error("Failed to save new admin")
					return ErrInternalServer
				}
				part.IsAdmin = false
				result.NewAdminID = successor.UserID
			} else {
				// Count and records disagree; an absent user must not keep the role.
				logCtx.Warn("Admin exiting with count above one but no other member participating")
				part.IsAdmin = false
			}
		}
		// 4. Persist the exit
		if err := repos.Participations.Save(ctx, part); err != nil {
			logCtx.WithError(err).Error("Failed to save participation")
			return ErrInternalServer
		}
		room.ParticipantCount--
		if err := repos.Rooms.Save(ctx, room); err != nil {
			logCtx.WithError(err).Error("Failed to save room")
			return ErrInternalServer
		}
		result.Count = room.ParticipantCount
		return nil
	})
	if err != nil {
		return nil, asServiceError(logCtx, err)
	}

	// 5. Announce after commit: exit first, then delegation or the end of the room
	s.metrics.RoomTransitions.WithLabelValues("exit").Inc()
	s.publish(ctx, roomID, dto.UserExitUpdate{Type: dto.TypeUserExitUpdated, UserID: userID, Count: result.Count})
	if result.NewAdminID != 0 {
		s.metrics.RoomTransitions.WithLabelValues("delegate").Inc()
		s.publish(ctx, roomID, dto.AdminUpdate{Type: dto.TypeAdminUpdated, PreviousAdminID: userID, NewAdminID: result.NewAdminID})
		logCtx.WithField("new_admin_id", result.NewAdminID).Info("Admin delegated")
	}
	if result.Ended {
		s.metrics.RoomTransitions.WithLabelValues("end").Inc()
		s.publish(ctx, roomID, dto.RoomEnded{Type: dto.TypeRoomEnded, DurationSeconds: int64(result.FinalDuration / time.Second)})
		logCtx.WithField("duration", result.FinalDuration.String()).Info("Last participant left, room ended")
	}
	logCtx.WithField("count", result.Count).Info("User exited room")
	return &result, nil
}

func (s *RoomStateCoordinator) chooseSuccessor(ctx context.Context, repos repository.TxRepositories, roomID, exitingID uint) (*domain.Participation, error) {
	members, err := repos.Participations.FindAllActiveByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	candidates := make([]domain.Participation, 0, len(members))
	for _, m := range members {
		if m.UserID != exitingID {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	chosen := candidates[s.pick(len(candidates))]
	return &chosen, nil
}

// UpdateNotice replaces the room notice. Only the admin of an active room may.
func (s *RoomStateCoordinator) UpdateNotice(ctx context.Context, roomID, userID uint, notice string) error {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID, "operation": "UpdateNotice"})
	notice = strings.TrimSpace(notice)
	if notice == "" || len(notice) > maxNoticeLength {
		return fmt.Errorf("%w: notice must be 1 to %d characters", ErrInvalidInput, maxNoticeLength)
	}

	unlock := s.locks.Lock(roomID)
	defer unlock()

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		room, err := repos.Rooms.FindByIDForUpdate(ctx, roomID)
		if err != nil {
			return mapRoomLookupError(logCtx, err)
		}
		if !room.Active {
			return ErrRoomInactive
		}
		// Only the current admin may change the notice
		isAdmin, err := repos.Participations.IsAdmin(ctx, roomID, userID)
		if err != nil {
			logCtx.WithError(err).Error("Failed to check admin flag")
			return ErrInternalServer
		}
		if !isAdmin {
			return ErrNotAdmin
		}
		room.Notice = notice
		if err := repos.Rooms.Save(ctx, room); err != nil {
			logCtx.WithError(err).Error("Failed to save notice")
			return ErrInternalServer
		}
		return nil
	})
	if err != nil {
		return asServiceError(logCtx, err)
	}

	s.publish(ctx, roomID, dto.NoticeUpdate{Type: dto.TypeNoticeUpdated, Notice: notice})
	logCtx.Info("Notice updated")
	return nil
}

// UpdateStatus shares a participant's work/cam/mic toggles with the room.
func (s *RoomStateCoordinator) UpdateStatus(ctx context.Context, roomID, userID uint, status domain.Status) error {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID, "operation": "UpdateStatus"})
	if status.IsEmpty() {
		return fmt.Errorf("%w: no status given", ErrInvalidInput)
	}

	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		return mapRoomLookupError(logCtx, err)
	}
	if !room.Active {
		return ErrRoomInactive
	}
	if status.Mic != nil && *status.Mic && !room.MicAvailability {
		return fmt.Errorf("%w: microphones are disabled in this room", ErrInvalidInput)
	}
	part, err := s.participations.Find(ctx, roomID, userID)
	if errors.Is(err, repository.ErrParticipationNotFound) || (err == nil && !part.IsParticipating) {
		return ErrNotParticipant
	}
	if err != nil {
		logCtx.WithError(err).Error("Failed to load participation")
		return ErrInternalServer
	}

	s.publish(ctx, roomID, dto.StatusUpdate{
		Type:       dto.TypeStatusUpdated,
		UserID:     userID,
		WorkStatus: status.Work,
		CamStatus:  status.Cam,
		MicStatus:  status.Mic,
	})
	return nil
}

func (s *RoomStateCoordinator) username(ctx context.Context, userID uint) string {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil || user == nil {
		logrus.WithField("user_id", userID).WithError(err).Warn("Could not resolve username for roster update")
		return ""
	}
	return user.Username
}

func (s *RoomStateCoordinator) publish(ctx context.Context, roomID uint, payload interface{}) {
	publishRoomData(ctx, s.publisher, s.retry, roomID, payload)
}

// publishRoomData sends payload on the room data topic after commit. A failed
// publish is handed to retry when one is configured.
func publishRoomData(ctx context.Context, publisher repository.Publisher, retry repository.PublishRetryQueue, roomID uint, payload interface{}) {
	t := topic.RoomData(roomID)
	err := publisher.Publish(ctx, t, payload)
	if err == nil {
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "topic": t})
	if retry == nil {
		logCtx.WithError(err).Error("Room update publish failed, no retry queue configured")
		return
	}
	logCtx.WithError(err).Warn("Room update publish failed, deferring to worker")
	if qErr := retry.EnqueueRosterPublish(ctx, t, payload); qErr != nil {
		logCtx.WithError(qErr).Error("Failed to enqueue room update publish retry")
	}
}

// asServiceError passes known service errors through and hides everything else.
func asServiceError(logCtx *logrus.Entry, err error) error {
	for _, known := range []error{
		ErrRoomNotFound, ErrRoomInactive, ErrRoomFull, ErrNotAdmin,
		ErrNotParticipant, ErrGoalNotFound, ErrInvalidInput, ErrInternalServer,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	logCtx.WithError(err).Error("Transaction failed")
	return ErrInternalServer
}
