package domain

import "time"

// User is an account. Username doubles as the display name in rooms.
type User struct {
	ID        uint      `gorm:"primaryKey"`
	Username  string    `gorm:"type:varchar(191);uniqueIndex:idx_username;not null"`
	Password  string    `gorm:"type:text;not null"` // bcrypt hash
	Email     string    `gorm:"type:varchar(191);uniqueIndex:idx_email"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Principal is the verified identity behind a request or a socket.
type Principal struct {
	UserID      uint
	DisplayName string
}
