package rtc

import "errors"

var (
	// ErrNotFound: the room, participant or target does not exist.
	ErrNotFound = errors.New("rtc: not found")
	// ErrConflict: duplicate display name or connection in a room.
	ErrConflict = errors.New("rtc: conflict")
	// ErrEngineFailure: a media engine call failed. Only the affected
	// connection is told; the room keeps running.
	ErrEngineFailure = errors.New("rtc: media engine failure")
	// ErrTransportClosed: the connection dropped. Never reported, only cleaned up.
	ErrTransportClosed = errors.New("rtc: transport closed")
	// ErrRoomClosed: the room emptied and left the directory while the caller
	// held a reference to it. Callers should resolve the room again.
	ErrRoomClosed = errors.New("rtc: room closed")
)
