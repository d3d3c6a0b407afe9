package rtc

// Conn is the outbound side of a signaling connection. Send must not block on
// a slow peer; implementations buffer or drop.
type Conn interface {
	ID() string
	Send(v interface{}) error
	Close()
}

// Participant is one connection inside exactly one room.
type Participant struct {
	Name     string
	RoomName string
	Conn     Conn
	Resource *MediaResource
}
