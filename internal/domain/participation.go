package domain

import "time"

// Participation links a user to a room. A row survives leaving the room so that
// the admin flag can be restored on rejoin.
type Participation struct {
	ID              uint      `gorm:"primaryKey"`
	RoomID          uint      `gorm:"uniqueIndex:idx_room_user;not null"`
	UserID          uint      `gorm:"uniqueIndex:idx_room_user;not null"`
	IsAdmin         bool      `gorm:"not null;default:false"`
	IsParticipating bool      `gorm:"index;not null;default:false"`
	GoalsSecret     bool      `gorm:"not null"` // goal text hidden from the other members
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

// Status carries the work/cam/mic toggles a participant shares with the room.
// Nil fields are left unchanged.
type Status struct {
	Work *bool `json:"workStatus,omitempty"`
	Cam  *bool `json:"camStatus,omitempty"`
	Mic  *bool `json:"micStatus,omitempty"`
}

// IsEmpty reports whether no toggle is set.
func (s Status) IsEmpty() bool {
	return s.Work == nil && s.Cam == nil && s.Mic == nil
}
