package repository

import (
	"context"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/domain"
)

// UserRepository stores user accounts.
type UserRepository interface {
	// FindByUsername returns ErrUserNotFound when no user matches.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)

	FindByID(ctx context.Context, id uint) (*domain.User, error)

	// Save creates or updates the user. Unique violations surface as ErrDuplicateEntry.
	Save(ctx context.Context, user *domain.User) error
}
