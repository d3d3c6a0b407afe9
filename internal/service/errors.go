package service

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrRoomNotFound         = errors.New("room not found")
	ErrRoomInactive         = errors.New("room is no longer active")
	ErrRoomFull             = errors.New("room is full")
	ErrNotAdmin             = errors.New("only the room admin can do this")
	ErrNotParticipant       = errors.New("user is not participating in the room")
	ErrGoalNotFound         = errors.New("goal not found")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("registration failed: username or email already exists")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInternalServer       = errors.New("internal server error")
)
