package repository

import (
	"context"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/domain"
)

// GoalRepository stores participants' study goals.
type GoalRepository interface {
	// FindByID returns ErrGoalNotFound when no goal has the id.
	FindByID(ctx context.Context, id uint) (*domain.Goal, error)

	// FindByParticipations returns the goals of every listed participation,
	// ordered by id.
	FindByParticipations(ctx context.Context, participationIDs []uint) ([]domain.Goal, error)

	// CreateAll inserts goals in one statement and fills in their ids.
	CreateAll(ctx context.Context, goals []*domain.Goal) error

	Save(ctx context.Context, goal *domain.Goal) error

	// DeleteOwned deletes the listed goals that belong to participationID and
	// returns how many rows went away.
	DeleteOwned(ctx context.Context, participationID uint, ids []uint) (int64, error)
}
