package domain

import "time"

// DefaultNotice is the notice a freshly created room starts with.
const DefaultNotice = "Enter a notice for the room"

// Room is the durable occupancy record of a study room.
type Room struct {
	ID               uint          `gorm:"primaryKey"`
	Name             string        `gorm:"type:varchar(191);not null"`
	Capacity         int           `gorm:"not null"`
	ParticipantCount int           `gorm:"not null;default:0"`
	Active           bool          `gorm:"index;not null"`
	StartedAt        time.Time     `gorm:"not null"`
	EndedAt          *time.Time    // set once the room goes inactive
	Duration         time.Duration `gorm:"not null"` // planned session length
	FinalDuration    time.Duration // EndedAt - StartedAt, finalized on the last exit
	Notice           string        `gorm:"type:varchar(500);not null"`
	MicAvailability  bool          `gorm:"not null"` // no gorm default: a false value must be stored as false
	ImagePath        string        `gorm:"type:varchar(500)"`
	CreatedAt        time.Time     `gorm:"autoCreateTime"`
	UpdatedAt        time.Time     `gorm:"autoUpdateTime"`
}

// IsFull reports whether no further participant can enter.
func (r *Room) IsFull() bool {
	return r.ParticipantCount >= r.Capacity
}

// EndsAt returns the planned end of the session.
func (r *Room) EndsAt() time.Time {
	return r.StartedAt.Add(r.Duration)
}

// MinutesLeft returns the whole minutes remaining until EndsAt, truncated toward zero.
func (r *Room) MinutesLeft(now time.Time) int {
	return int(r.EndsAt().Sub(now) / time.Minute)
}

// Deactivate moves the room to its terminal state and freezes the elapsed duration.
func (r *Room) Deactivate(now time.Time) {
	r.Active = false
	r.EndedAt = &now
	r.FinalDuration = now.Sub(r.StartedAt)
	if r.FinalDuration < 0 {
		r.FinalDuration = 0
	}
}
