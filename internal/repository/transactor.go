package repository

import "context"

// TxRepositories are the repositories bound to one open transaction.
type TxRepositories struct {
	Rooms          RoomRepository
	Participations ParticipationRepository
	Goals          GoalRepository
}

// Transactor runs fn inside a single database transaction. A non-nil error from
// fn rolls everything back.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos TxRepositories) error) error
}
