package model

import (
	"time"

	"gorm.io/gorm"
)

// Category groups tasks by area (work, health, study, etc.).
type Category struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	Tasks     []Task         `gorm:"foreignKey:CategoryID" json:"-"`
}
