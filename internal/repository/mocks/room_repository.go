// Package mocks holds testify mocks for the repository interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/domain"
)

// RoomRepository is a mock of repository.RoomRepository.
type RoomRepository struct {
	mock.Mock
}

func (_m *RoomRepository) FindByID(ctx context.Context, id uint) (*domain.Room, error) {
	ret := _m.Called(ctx, id)
	var r0 *domain.Room
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*domain.Room)
	}
	return r0, ret.Error(1)
}

func (_m *RoomRepository) FindByIDForUpdate(ctx context.Context, id uint) (*domain.Room, error) {
	ret := _m.Called(ctx, id)
	var r0 *domain.Room
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*domain.Room)
	}
	return r0, ret.Error(1)
}

func (_m *RoomRepository) Save(ctx context.Context, room *domain.Room) error {
	ret := _m.Called(ctx, room)
	return ret.Error(0)
}

func (_m *RoomRepository) FindAllActive(ctx context.Context) ([]domain.Room, error) {
	ret := _m.Called(ctx)
	var r0 []domain.Room
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]domain.Room)
	}
	return r0, ret.Error(1)
}
