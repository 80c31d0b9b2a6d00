package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"time-tracker/internal/model"
)

// TimeEntryRepository handles CRUD for time entries.
type TimeEntryRepository struct {
	db *gorm.DB
}

func NewTimeEntryRepository(db *gorm.DB) *TimeEntryRepository {
	return &TimeEntryRepository{db: db}
}

func (r *TimeEntryRepository) Create(ctx context.Context, entry *model.TimeEntry) error {
	if err := r.db.WithContext(ctx).Omit("Task", "User").Create(entry).Error; err != nil {
		return fmt.Errorf("create time entry: %w", err)
	}
	return nil
}

// FindByID looks an entry up regardless of owner so callers can tell a missing
// entry from a foreign one.
func (r *TimeEntryRepository) FindByID(ctx context.Context, id uint) (*model.TimeEntry, error) {
	var entry model.TimeEntry
	if err := withTask(r.db.WithContext(ctx)).First(&entry, id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListByUser returns the user's entries with task and category, newest first.
func (r *TimeEntryRepository) ListByUser(ctx context.Context, userID uint) ([]model.TimeEntry, error) {
	var entries []model.TimeEntry
	if err := withTask(r.db.WithContext(ctx)).
		Where("user_id = ?", userID).
		Order("start_time DESC, id DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ListStartedBetween returns the user's entries starting in [from, to), oldest first.
func (r *TimeEntryRepository) ListStartedBetween(ctx context.Context, userID uint, from, to time.Time) ([]model.TimeEntry, error) {
	var entries []model.TimeEntry
	if err := withTask(r.db.WithContext(ctx)).
		Where("user_id = ? AND start_time >= ? AND start_time < ?", userID, from.UTC(), to.UTC()).
		Order("start_time ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ListRunning returns the user's entries without an end time.
func (r *TimeEntryRepository) ListRunning(ctx context.Context, userID uint) ([]model.TimeEntry, error) {
	var entries []model.TimeEntry
	if err := withTask(r.db.WithContext(ctx)).
		Where("user_id = ? AND end_time IS NULL", userID).
		Order("start_time DESC, id DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *TimeEntryRepository) SetEndTime(ctx context.Context, entry *model.TimeEntry, endTime time.Time) error {
	end := endTime.UTC()
	if err := r.db.WithContext(ctx).Model(&model.TimeEntry{}).Where("id = ?", entry.ID).Update("end_time", end).Error; err != nil {
		return fmt.Errorf("update time entry: %w", err)
	}
	entry.EndTime = &end
	return nil
}

// Delete removes the entry only when it belongs to userID. It reports whether a
// row was removed.
func (r *TimeEntryRepository) Delete(ctx context.Context, userID, entryID uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, entryID).Delete(&model.TimeEntry{})
	if res.Error != nil {
		return false, fmt.Errorf("delete time entry: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// withTask preloads the task and its category, including soft-deleted
// categories so historic entries keep their label.
func withTask(db *gorm.DB) *gorm.DB {
	return db.Preload("Task").Preload("Task.Category", func(db *gorm.DB) *gorm.DB {
		return db.Unscoped()
	})
}
