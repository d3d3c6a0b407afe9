package repository

import (
	"context"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/domain"
)

// ParticipationRepository stores user-in-room records.
type ParticipationRepository interface {
	// Find returns ErrParticipationNotFound when the user never entered the room.
	Find(ctx context.Context, roomID, userID uint) (*domain.Participation, error)

	// FindAllActiveByRoom lists the records still marked as participating.
	FindAllActiveByRoom(ctx context.Context, roomID uint) ([]domain.Participation, error)

	// IsAdmin reports whether the user holds the admin flag in the room.
	IsAdmin(ctx context.Context, roomID, userID uint) (bool, error)

	Save(ctx context.Context, p *domain.Participation) error

	// EndAllByRoom marks every record of the room as no longer participating in a
	// single statement and returns the number of rows touched.
	EndAllByRoom(ctx context.Context, roomID uint) (int64, error)
}
