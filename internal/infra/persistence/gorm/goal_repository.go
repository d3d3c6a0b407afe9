package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/domain"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/repository"
)

// GormGoalRepository is the GORM implementation of GoalRepository.
type GormGoalRepository struct {
	db *gorm.DB
}

func NewGormGoalRepository(db *gorm.DB) *GormGoalRepository {
	if db == nil {
		panic("database connection cannot be nil for GormGoalRepository")
	}
	return &GormGoalRepository{db: db}
}

func (r *GormGoalRepository) FindByID(ctx context.Context, id uint) (*domain.Goal, error) {
	var goal domain.Goal
	if err := r.db.WithContext(ctx).First(&goal, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrGoalNotFound
		}
		return nil, fmt.Errorf("gorm: find goal %d: %w", id, err)
	}
	return &goal, nil
}

func (r *GormGoalRepository) FindByParticipations(ctx context.Context, participationIDs []uint) ([]domain.Goal, error) {
	var goals []domain.Goal
	if len(participationIDs) == 0 {
		return goals, nil
	}
	err := r.db.WithContext(ctx).
		Where("participation_id IN ?", participationIDs).
		Order("id").
		Find(&goals).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find goals for %d participations: %w", len(participationIDs), err)
	}
	return goals, nil
}

// CreateAll batch-inserts goals; an empty slice is a no-op.
func (r *GormGoalRepository) CreateAll(ctx context.Context, goals []*domain.Goal) error {
	if len(goals) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&goals).Error; err != nil {
		return fmt.Errorf("gorm: create %d goals: %w", len(goals), err)
	}
	return nil
}

func (r *GormGoalRepository) Save(ctx context.Context, goal *domain.Goal) error {
	if err := r.db.WithContext(ctx).Save(goal).Error; err != nil {
		return fmt.Errorf("gorm: save goal %d: %w", goal.ID, err)
	}
	return nil
}

// DeleteOwned scopes the delete to the owner, so ids of other users' goals
// are silently left alone and show up in the returned count.
func (r *GormGoalRepository) DeleteOwned(ctx context.Context, participationID uint, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("participation_id = ? AND id IN ?", participationID, ids).
		Delete(&domain.Goal{})
	if res.Error != nil {
		return 0, fmt.Errorf("gorm: delete goals of participation %d: %w", participationID, res.Error)
	}
	return res.RowsAffected, nil
}
