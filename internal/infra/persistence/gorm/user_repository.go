package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/domain"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/repository"
)

// GormUserRepository is the GORM implementation of UserRepository.
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	if db == nil {
		panic("database connection cannot be nil for GormUserRepository")
	}
	return &GormUserRepository{db: db}
}

// first loads one user matching conds, mapping a missing row to ErrUserNotFound.
func (r *GormUserRepository) first(ctx context.Context, what string, conds ...interface{}) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).First(&user, conds...).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("gorm: find user by %s: %w", what, err)
	}
	return &user, nil
}

func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.first(ctx, "username", "username = ?", username)
}

// FindByID is used to resolve display names for roster notifications.
func (r *GormUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	return r.first(ctx, "id", id)
}

// Save inserts a new account or updates an existing one. Username and email
// collisions surface as repository.ErrDuplicateEntry.
func (r *GormUserRepository) Save(ctx context.Context, user *domain.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save user %q: %w", user.Username, err)
	}
	return nil
}
