package domain

import "time"

// MaxGoalLength bounds the text of one goal.
const MaxGoalLength = 200

// Goal is a study goal a participant sets for one visit to a room. It belongs
// to the participation record, so a user's goals differ per room.
type Goal struct {
	ID              uint      `gorm:"primaryKey"`
	ParticipationID uint      `gorm:"index;not null"`
	Content         string    `gorm:"type:varchar(200);not null"`
	IsCompleted     bool      `gorm:"not null"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}
