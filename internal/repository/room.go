package repository

import (
	"context"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/domain"
)

// RoomRepository stores durable room occupancy records.
type RoomRepository interface {
	// FindByID returns ErrRoomNotFound when the room does not exist.
	FindByID(ctx context.Context, id uint) (*domain.Room, error)

	// FindByIDForUpdate reads the room and holds a row lock until the surrounding
	// transaction ends. Outside a transaction it behaves like FindByID.
	FindByIDForUpdate(ctx context.Context, id uint) (*domain.Room, error)

	// Save creates the room when ID is zero and updates it otherwise.
	Save(ctx context.Context, room *domain.Room) error

	// FindAllActive lists every room still in the active state.
	FindAllActive(ctx context.Context) ([]domain.Room, error)
}
