package model

import "time"

// User is an account that owns tasks and time entries.
type User struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Email            string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name             string    `gorm:"size:255" json:"name"`
	PasswordHash     string    `gorm:"size:255;not null" json:"-"`
	TelegramID       *int64    `gorm:"uniqueIndex" json:"-"`
	TelegramLinkCode *string   `gorm:"index;size:64" json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
