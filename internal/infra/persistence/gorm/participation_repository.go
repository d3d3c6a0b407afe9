package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/domain"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/repository"
)

// GormParticipationRepository is the GORM implementation of ParticipationRepository.
type GormParticipationRepository struct {
	db *gorm.DB
}

// NewGormParticipationRepository creates a GormParticipationRepository.
func NewGormParticipationRepository(db *gorm.DB) *GormParticipationRepository {
	if db == nil {
		panic("database connection cannot be nil for GormParticipationRepository")
	}
	return &GormParticipationRepository{db: db}
}

func (r *GormParticipationRepository) Find(ctx context.Context, roomID, userID uint) (*domain.Participation, error) {
	var p domain.Participation
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrParticipationNotFound
		}
		return nil, fmt.Errorf("gorm: find participation (room %d, user %d): %w", roomID, userID, err)
	}
	return &p, nil
}

func (r *GormParticipationRepository) FindAllActiveByRoom(ctx context.Context, roomID uint) ([]domain.Participation, error) {
	var list []domain.Participation
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND is_participating = ?", roomID, true).
		Order("id").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list participations of room %d: %w", roomID, err)
	}
	return list, nil
}

func (r *GormParticipationRepository) IsAdmin(ctx context.Context, roomID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Participation{}).
		Where("room_id = ? AND user_id = ? AND is_admin = ?", roomID, userID, true).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("gorm: check admin (room %d, user %d): %w", roomID, userID, err)
	}
	return count > 0, nil
}

func (r *GormParticipationRepository) Save(ctx context.Context, p *domain.Participation) error {
	err := r.db.WithContext(ctx).Save(p).Error
	if err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save participation (room %d, user %d): %w", p.RoomID, p.UserID, err)
	}
	return nil
}

// EndAllByRoom flips is_participating off for the whole room in one UPDATE.
func (r *GormParticipationRepository) EndAllByRoom(ctx context.Context, roomID uint) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.Participation{}).
		Where("room_id = ? AND is_participating = ?", roomID, true).
		Update("is_participating", false)
	if result.Error != nil {
		return 0, fmt.Errorf("gorm: end participations of room %d: %w", roomID, result.Error)
	}
	return result.RowsAffected, nil
}
