package models

import "time"

// Session is an authenticated admin session. The ID is the opaque token
// handed to the client; a session is valid while now < ExpiresAt.
type Session struct {
	ID        string    `gorm:"primaryKey;size:64"`
	CreatedAt time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
}
