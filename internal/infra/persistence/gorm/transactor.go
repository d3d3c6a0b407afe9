package gormpersistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/repository"
)

// GormTransactor opens a GORM transaction and hands out repositories bound to it.
type GormTransactor struct {
	db *gorm.DB
}

// NewGormTransactor creates a GormTransactor.
func NewGormTransactor(db *gorm.DB) *GormTransactor {
	if db == nil {
		panic("database connection cannot be nil for GormTransactor")
	}
	return &GormTransactor{db: db}
}

// WithinTransaction commits when fn returns nil and rolls back otherwise.
func (t *GormTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos repository.TxRepositories) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, repository.TxRepositories{
			Rooms:          NewGormRoomRepository(tx),
			Participations: NewGormParticipationRepository(tx),
			Goals:          NewGormGoalRepository(tx),
		})
	})
}
