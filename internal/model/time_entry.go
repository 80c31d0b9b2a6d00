package model

import "time"

// EntryStatus is derived from the nullable end time of an entry.
type EntryStatus string

const (
	StatusRunning   EntryStatus = "running"
	StatusCompleted EntryStatus = "completed"
)

// TimeEntry is one recorded span of time for a task. A nil EndTime means the
// timer is still running.
type TimeEntry struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index:idx_time_entries_user_start;not null" json:"user_id"`
	User      *User      `json:"-"`
	TaskID    uint       `gorm:"index;not null" json:"task_id"`
	Task      *Task      `json:"task,omitempty"`
	StartTime time.Time  `gorm:"index:idx_time_entries_user_start;not null" json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (e TimeEntry) Status() EntryStatus {
	if e.EndTime == nil {
		return StatusRunning
	}
	return StatusCompleted
}

func (e TimeEntry) IsRunning() bool {
	return e.Status() == StatusRunning
}

// Duration returns the tracked span. Running entries are measured up to now.
func (e TimeEntry) Duration(now time.Time) time.Duration {
	end := now
	if e.EndTime != nil {
		end = *e.EndTime
	}
	if end.Before(e.StartTime) {
		return 0
	}
	return end.Sub(e.StartTime)
}

// IsAfterStart reports whether t is strictly later than the entry start.
func (e TimeEntry) IsAfterStart(t time.Time) bool {
	return t.After(e.StartTime)
}
