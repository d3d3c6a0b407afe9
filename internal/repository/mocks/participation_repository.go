package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/domain"
)

// ParticipationRepository is a mock of repository.ParticipationRepository.
type ParticipationRepository struct {
	mock.Mock
}

func (_m *ParticipationRepository) Find(ctx context.Context, roomID, userID uint) (*domain.Participation, error) {
	ret := _m.Called(ctx, roomID, userID)
	var r0 *domain.Participation
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*domain.Participation)
	}
	return r0, ret.Error(1)
}

func (_m *ParticipationRepository) FindAllActiveByRoom(ctx context.Context, roomID uint) ([]domain.Participation, error) {
	ret := _m.Called(ctx, roomID)
	var r0 []domain.Participation
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]domain.Participation)
	}
	return r0, ret.Error(1)
}

func (_m *ParticipationRepository) IsAdmin(ctx context.Context, roomID, userID uint) (bool, error) {
	ret := _m.Called(ctx, roomID, userID)
	return ret.Bool(0), ret.Error(1)
}

func (_m *ParticipationRepository) Save(ctx context.Context, p *domain.Participation) error {
	ret := _m.Called(ctx, p)
	return ret.Error(0)
}

func (_m *ParticipationRepository) EndAllByRoom(ctx context.Context, roomID uint) (int64, error) {
	ret := _m.Called(ctx, roomID)
	var r0 int64
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(int64)
	}
	return r0, ret.Error(1)
}
