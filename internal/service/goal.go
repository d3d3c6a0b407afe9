package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/domain"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/dto"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/repository"
)

// MaxGoalsPerParticipant bounds one member's goal list in a room.
const MaxGoalsPerParticipant = 20

// GoalService manages the study goals members share inside a room.
type GoalService struct {
	tx             repository.Transactor
	rooms          repository.RoomRepository
	participations repository.ParticipationRepository
	goals          repository.GoalRepository
	publisher      repository.Publisher
	retry          repository.PublishRetryQueue
}

// NewGoalService creates a GoalService. retry may be nil.
func NewGoalService(
	tx repository.Transactor,
	rooms repository.RoomRepository,
	participations repository.ParticipationRepository,
	goals repository.GoalRepository,
	publisher repository.Publisher,
	retry repository.PublishRetryQueue,
) *GoalService {
	if tx == nil {
		panic("Transactor cannot be nil for GoalService")
	}
	if rooms == nil || participations == nil || goals == nil {
		panic("repositories cannot be nil for GoalService")
	}
	if publisher == nil {
		panic("Publisher cannot be nil for GoalService")
	}
	return &GoalService{
		tx:             tx,
		rooms:          rooms,
		participations: participations,
		goals:          goals,
		publisher:      publisher,
		retry:          retry,
	}
}

// ManageGoalsInput is one batch edit of the caller's goal list.
type ManageGoalsInput struct {
	Create []string
	Delete []uint
	// IsSecret, when set, changes whether other members see the goal text.
	IsSecret *bool
}

// UserGoals is one member's goal list as seen by the caller.
type UserGoals struct {
	UserID   uint
	IsSecret bool
	Goals    []domain.Goal
}

// requireParticipant loads the caller's participation, failing unless the room
// exists, is active and the caller is inside it.
func requireParticipant(ctx context.Context, rooms repository.RoomRepository, parts repository.ParticipationRepository,
	roomID, userID uint, logCtx *logrus.Entry) (*domain.Participation, error) {
	room, err := rooms.FindByID(ctx, roomID)
	if err != nil {
		return nil, mapRoomLookupError(logCtx, err)
	}
	if !room.Active {
		return nil, ErrRoomInactive
	}
	part, err := parts.Find(ctx, roomID, userID)
	if errors.Is(err, repository.ErrParticipationNotFound) {
		return nil, ErrNotParticipant
	}
	if err != nil {
		logCtx.WithError(err).Error("Failed to load participation")
		return nil, ErrInternalServer
	}
	if !part.IsParticipating {
		return nil, ErrNotParticipant
	}
	return part, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func toGoalDTOs(goals []domain.Goal) []dto.Goal {
	out := make([]dto.Goal, 0, len(goals))
	for _, g := range goals {
		out = append(out, dto.Goal{GoalID: g.ID, Content: g.Content, IsCompleted: g.IsCompleted})
	}
	return out
}

// Manage applies deletions, then creations, to the caller's goals in one
// transaction and publishes the resulting list on the room data topic.
func (s *GoalService) Manage(ctx context.Context, roomID, userID uint, in ManageGoalsInput) ([]domain.Goal, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID, "operation": "ManageGoals"})

	// 1. Validate the batch before touching the database
	if len(in.Create) == 0 && len(in.Delete) == 0 && in.IsSecret == nil {
		return nil, fmt.Errorf("%w: nothing to change", ErrInvalidInput)
	}
	contents := make([]string, 0, len(in.Create))
	for _, c := range in.Create {
		c = strings.TrimSpace(c)
		if c == "" || utf8.RuneCountInString(c) > domain.MaxGoalLength {
			return nil, fmt.Errorf("%w: a goal must be 1 to %d characters", ErrInvalidInput, domain.MaxGoalLength)
		}
		contents = append(contents, c)
	}
	deletes := uniqueIDs(in.Delete)

	var (
		goals  []domain.Goal
		secret bool
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		// 2. Only a current member of an active room may edit goals
		part, err := requireParticipant(ctx, repos.Rooms, repos.Participations, roomID, userID, logCtx)
		if err != nil {
			return err
		}

		// 3. Deletes are scoped to the caller; a foreign or unknown id aborts the batch
		if len(deletes) > 0 {
			n, err := repos.Goals.DeleteOwned(ctx, part.ID, deletes)
			if err != nil {
				logCtx.WithError(err).Error("Failed to delete goals")
				return ErrInternalServer
			}
			if n != int64(len(deletes)) {
				return ErrGoalNotFound
			}
		}

		// 4. Insert the new goals
		if len(contents) > 0 {
			created := make([]*domain.Goal, 0, len(contents))
			for _, c := range contents {
				created = append(created, &domain.Goal{ParticipationID: part.ID, Content: c})
			}
			if err := repos.Goals.CreateAll(ctx, created); err != nil {
				logCtx.WithError(err).Error("Failed to create goals")
				return ErrInternalServer
			}
		}

		if in.IsSecret != nil && *in.IsSecret != part.GoalsSecret {
			part.GoalsSecret = *in.IsSecret
			if err := repos.Participations.Save(ctx, part); err != nil {
				logCtx.WithError(err).Error("Failed to save goal visibility")
				return ErrInternalServer
			}
		}
		secret = part.GoalsSecret

		// 5. Re-read the list; the limit applies to the result
		goals, err = repos.Goals.FindByParticipations(ctx, []uint{part.ID})
		if err != nil {
			logCtx.WithError(err).Error("Failed to list goals")
			return ErrInternalServer
		}
		if len(goals) > MaxGoalsPerParticipant {
			return fmt.Errorf("%w: at most %d goals per member", ErrInvalidInput, MaxGoalsPerParticipant)
		}
		return nil
	})
	if err != nil {
		return nil, asServiceError(logCtx, err)
	}

	update := dto.GoalListUpdate{Type: dto.TypeGoalListUpdated, UserID: userID, Goals: []dto.Goal{}, IsSecret: secret}
	if !secret {
		update.Goals = toGoalDTOs(goals)
	}
	publishRoomData(ctx, s.publisher, s.retry, roomID, update)
	logCtx.WithFields(logrus.Fields{"created": len(contents), "deleted": len(deletes), "total": len(goals)}).Info("Goals updated")
	return goals, nil
}

// Complete marks one of the caller's goals done or not done. Setting the value
// it already has changes nothing and publishes nothing.
func (s *GoalService) Complete(ctx context.Context, roomID, userID, goalID uint, completed bool) (*domain.Goal, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID, "goal_id": goalID, "operation": "CompleteGoal"})

	part, err := requireParticipant(ctx, s.rooms, s.participations, roomID, userID, logCtx)
	if err != nil {
		return nil, err
	}

	goal, err := s.goals.FindByID(ctx, goalID)
	if errors.Is(err, repository.ErrGoalNotFound) {
		return nil, ErrGoalNotFound
	}
	if err != nil {
		logCtx.WithError(err).Error("Failed to load goal")
		return nil, ErrInternalServer
	}
	// Another member's goal is reported as missing.
	if goal.ParticipationID != part.ID {
		logCtx.Warn("Attempt to complete a goal owned by another participation")
		return nil, ErrGoalNotFound
	}
	if goal.IsCompleted == completed {
		return goal, nil
	}

	goal.IsCompleted = completed
	if err := s.goals.Save(ctx, goal); err != nil {
		logCtx.WithError(err).Error("Failed to save goal")
		return nil, ErrInternalServer
	}

	update := dto.GoalCompleteUpdate{Type: dto.TypeGoalCompleted, UserID: userID, GoalID: goal.ID, IsCompleted: goal.IsCompleted}
	if !part.GoalsSecret {
		update.Content = goal.Content
	}
	publishRoomData(ctx, s.publisher, s.retry, roomID, update)
	return goal, nil
}

// List returns the goals of every member currently in the room. Members who
// keep their goals secret show up without goals, except to themselves.
func (s *GoalService) List(ctx context.Context, roomID, userID uint) ([]UserGoals, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID, "operation": "ListGoals"})

	if _, err := requireParticipant(ctx, s.rooms, s.participations, roomID, userID, logCtx); err != nil {
		return nil, err
	}

	members, err := s.participations.FindAllActiveByRoom(ctx, roomID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to list room members")
		return nil, ErrInternalServer
	}
	ids := make([]uint, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	goals, err := s.goals.FindByParticipations(ctx, ids)
	if err != nil {
		logCtx.WithError(err).Error("Failed to list goals")
		return nil, ErrInternalServer
	}
	byOwner := make(map[uint][]domain.Goal, len(members))
	for _, g := range goals {
		byOwner[g.ParticipationID] = append(byOwner[g.ParticipationID], g)
	}

	out := make([]UserGoals, 0, len(members))
	for _, m := range members {
		entry := UserGoals{UserID: m.UserID, IsSecret: m.GoalsSecret, Goals: []domain.Goal{}}
		if !m.GoalsSecret || m.UserID == userID {
			if owned := byOwner[m.ID]; owned != nil {
				entry.Goals = owned
			}
		}
		out = append(out, entry)
	}
	return out, nil
}
