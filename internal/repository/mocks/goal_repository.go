package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/domain"
)

// GoalRepository is a mock of repository.GoalRepository.
type GoalRepository struct {
	mock.Mock
}

func (_m *GoalRepository) FindByID(ctx context.Context, id uint) (*domain.Goal, error) {
	ret := _m.Called(ctx, id)
	var r0 *domain.Goal
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*domain.Goal)
	}
	return r0, ret.Error(1)
}

func (_m *GoalRepository) FindByParticipations(ctx context.Context, participationIDs []uint) ([]domain.Goal, error) {
	ret := _m.Called(ctx, participationIDs)
	var r0 []domain.Goal
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]domain.Goal)
	}
	return r0, ret.Error(1)
}

func (_m *GoalRepository) CreateAll(ctx context.Context, goals []*domain.Goal) error {
	ret := _m.Called(ctx, goals)
	return ret.Error(0)
}

func (_m *GoalRepository) Save(ctx context.Context, goal *domain.Goal) error {
	ret := _m.Called(ctx, goal)
	return ret.Error(0)
}

func (_m *GoalRepository) DeleteOwned(ctx context.Context, participationID uint, ids []uint) (int64, error) {
	ret := _m.Called(ctx, participationID, ids)
	var r0 int64
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(int64)
	}
	return r0, ret.Error(1)
}
