package model

import "time"

// Task is a named unit of work a user tracks time against.
type Task struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	UserID      uint        `gorm:"index;not null" json:"user_id"`
	User        *User       `json:"-"`
	CategoryID  *uint       `gorm:"index" json:"category_id"`
	Category    *Category   `json:"category,omitempty"`
	Title       string      `gorm:"size:255;not null" json:"title"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	TimeEntries []TimeEntry `gorm:"foreignKey:TaskID" json:"-"`
}
