package models

import "time"

// LoginAttempt is an append-only record of a login try from an IP.
type LoginAttempt struct {
	ID          uint      `gorm:"primaryKey"`
	IPAddress   string    `gorm:"size:64;not null;index:idx_login_attempts_ip_time,priority:1"`
	AttemptedAt time.Time `gorm:"not null;index:idx_login_attempts_ip_time,priority:2"`
	Success     bool      `gorm:"not null"`
}
