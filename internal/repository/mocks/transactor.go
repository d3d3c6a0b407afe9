package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/repository"
)

// Transactor is a mock of repository.Transactor. When the expectation returns a
// nil error, fn runs against Repos and its error is returned.
type Transactor struct {
	mock.Mock
	Repos repository.TxRepositories
}

func (_m *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos repository.TxRepositories) error) error {
	ret := _m.Called(ctx)
	if err := ret.Error(0); err != nil {
		return err
	}
	return fn(ctx, _m.Repos)
}
