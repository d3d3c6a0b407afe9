package repository

import "errors"

// Common repository errors
var (
	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateEntry means a write violated a unique constraint.
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
)

// Resource specific aliases
var (
	ErrUserNotFound          = ErrNotFound
	ErrRoomNotFound          = ErrNotFound
	ErrParticipationNotFound = ErrNotFound
	ErrGoalNotFound          = ErrNotFound
)
