package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"time-tracker/internal/model"
	"time-tracker/internal/repository"
)

// TimeEntryService validates, authorizes and persists time entries. Every
// operation takes the acting user's id explicitly.
type TimeEntryService struct {
	txm          *repository.TxManager
	entryRepo    *repository.TimeEntryRepository
	categoryRepo *repository.CategoryRepository
	loc          *time.Location
}

func NewTimeEntryService(txm *repository.TxManager, entryRepo *repository.TimeEntryRepository, categoryRepo *repository.CategoryRepository, loc *time.Location) *TimeEntryService {
	if loc == nil {
		loc = time.UTC
	}
	return &TimeEntryService{txm: txm, entryRepo: entryRepo, categoryRepo: categoryRepo, loc: loc}
}

// Location is the timezone submitted dates and clock times are read in.
func (s *TimeEntryService) Location() *time.Location {
	return s.loc
}

// List returns the user's entries, newest first.
func (s *TimeEntryService) List(ctx context.Context, userID uint) ([]model.TimeEntry, error) {
	entries, err := s.entryRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list time entries: %w", err)
	}
	return entries, nil
}

// Running returns the user's entries whose timer has not been stopped.
func (s *TimeEntryService) Running(ctx context.Context, userID uint) ([]model.TimeEntry, error) {
	entries, err := s.entryRepo.ListRunning(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list running entries: %w", err)
	}
	return entries, nil
}

// Create records a new entry, attaching it to an existing task of the user or
// to a task created from the submitted title and category. Task creation and
// the entry insert commit together.
func (s *TimeEntryService) Create(ctx context.Context, userID uint, in CreateEntryInput) (*model.TimeEntry, error) {
	plan, verr := validateCreate(in, s.loc)
	if plan.taskID == nil {
		if err := s.checkCategory(ctx, plan.categoryID, verr); err != nil {
			return nil, err
		}
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	var entry model.TimeEntry
	err := s.txm.Do(ctx, func(tx repository.Tx) error {
		task, err := resolveTask(ctx, tx, userID, plan)
		if err != nil {
			return err
		}

		entry = model.TimeEntry{
			UserID:    userID,
			TaskID:    task.ID,
			StartTime: plan.start.UTC(),
		}
		if plan.end != nil {
			end := plan.end.UTC()
			entry.EndTime = &end
		}
		return tx.TimeEntries.Create(ctx, &entry)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		log.Printf("[error] create time entry user=%d task_id=%s task_title=%q start=%s end=%s: %v",
			userID, formatOptionalID(plan.taskID), plan.title, plan.start.Format(TimestampLayout), formatOptionalTime(plan.end), err)
		return nil, writeFailed("create time entry", err)
	}

	log.Printf("[info] time entry created id=%d user=%d task=%d mode=%s start=%s end=%s",
		entry.ID, userID, entry.TaskID, plan.mode, plan.start.Format(TimestampLayout), formatOptionalTime(plan.end))

	return s.reload(ctx, &entry), nil
}

// resolveTask returns the user's task referenced by the plan or creates one.
// A task id of another user is treated as missing.
func resolveTask(ctx context.Context, tx repository.Tx, userID uint, plan createPlan) (*model.Task, error) {
	if plan.taskID != nil {
		task, err := tx.Tasks.FindByID(ctx, userID, *plan.taskID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("task %d: %w", *plan.taskID, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("find task: %w", err)
		}
		return task, nil
	}

	task := &model.Task{
		UserID:     userID,
		CategoryID: plan.categoryID,
		Title:      plan.title,
	}
	if err := tx.Tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Update sets a new end time on the entry and rewrites the parent task's title
// and category. Nothing is written unless every check passes.
func (s *TimeEntryService) Update(ctx context.Context, userID, entryID uint, in UpdateEntryInput) (*model.TimeEntry, error) {
	entry, err := s.find(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if err := authorize(userID, entry, "update"); err != nil {
		return nil, err
	}

	plan, verr := validateUpdate(in, s.loc)
	if !keepsCategory(entry, plan.categoryID) {
		if err := s.checkCategory(ctx, plan.categoryID, verr); err != nil {
			return nil, err
		}
	}
	if !verr.Has("end_time") && !entry.IsAfterStart(plan.end) {
		verr.Add("end_time", msgEndAfterStart)
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	if err := s.apply(ctx, userID, entry, plan); err != nil {
		return nil, err
	}

	log.Printf("[info] time entry updated id=%d user=%d end=%s", entry.ID, userID, plan.end.Format(TimestampLayout))
	return s.reload(ctx, entry), nil
}

// Stop ends a running entry at the given instant, keeping its task unchanged.
func (s *TimeEntryService) Stop(ctx context.Context, userID, entryID uint, at time.Time) (*model.TimeEntry, error) {
	entry, err := s.find(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if err := authorize(userID, entry, "update"); err != nil {
		return nil, err
	}
	if !entry.IsRunning() {
		return nil, fieldError("end_time", "The time entry is already stopped.")
	}

	end := at.Truncate(time.Second)
	if !entry.IsAfterStart(end) {
		return nil, fieldError("end_time", msgEndAfterStart)
	}

	plan := updatePlan{end: end}
	if entry.Task != nil {
		plan.title = entry.Task.Title
		plan.categoryID = entry.Task.CategoryID
	}
	if err := s.apply(ctx, userID, entry, plan); err != nil {
		return nil, err
	}

	log.Printf("[info] time entry stopped id=%d user=%d end=%s", entry.ID, userID, end.Format(TimestampLayout))
	return s.reload(ctx, entry), nil
}

func (s *TimeEntryService) apply(ctx context.Context, userID uint, entry *model.TimeEntry, plan updatePlan) error {
	err := s.txm.Do(ctx, func(tx repository.Tx) error {
		if err := tx.TimeEntries.SetEndTime(ctx, entry, plan.end); err != nil {
			return err
		}
		task := entry.Task
		if task == nil {
			task = &model.Task{ID: entry.TaskID}
		}
		return tx.Tasks.UpdateDetails(ctx, task, plan.title, plan.categoryID)
	})
	if err != nil {
		log.Printf("[error] update time entry id=%d user=%d task=%d end=%s: %v",
			entry.ID, userID, entry.TaskID, plan.end.Format(TimestampLayout), err)
		return writeFailed("update time entry", err)
	}
	return nil
}

// Delete removes the user's entry. A second delete of the same entry reports
// ErrNotFound.
func (s *TimeEntryService) Delete(ctx context.Context, userID, entryID uint) error {
	entry, err := s.find(ctx, entryID)
	if err != nil {
		return err
	}
	if err := authorize(userID, entry, "delete"); err != nil {
		return err
	}

	removed, err := s.entryRepo.Delete(ctx, userID, entryID)
	if err != nil {
		log.Printf("[error] delete time entry id=%d user=%d: %v", entryID, userID, err)
		return writeFailed("delete time entry", err)
	}
	if !removed {
		return fmt.Errorf("time entry %d: %w", entryID, ErrNotFound)
	}

	log.Printf("[info] time entry deleted id=%d user=%d", entryID, userID)
	return nil
}

// authorize lets only the owner mutate an entry.
func authorize(userID uint, entry *model.TimeEntry, action string) error {
	if entry.UserID == userID {
		return nil
	}
	log.Printf("[info] user not allowed to %s time entry user=%d owner=%d entry=%d", action, userID, entry.UserID, entry.ID)
	return fmt.Errorf("%s time entry %d: %w", action, entry.ID, ErrForbidden)
}

func (s *TimeEntryService) find(ctx context.Context, entryID uint) (*model.TimeEntry, error) {
	entry, err := s.entryRepo.FindByID(ctx, entryID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("time entry %d: %w", entryID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find time entry: %w", err)
	}
	return entry, nil
}

// keepsCategory reports whether categoryID is the category the entry's task
// already carries. A soft-deleted category may stay on its task.
func keepsCategory(entry *model.TimeEntry, categoryID *uint) bool {
	if categoryID == nil || entry.Task == nil || entry.Task.CategoryID == nil {
		return false
	}
	return *categoryID == *entry.Task.CategoryID
}

// checkCategory adds a field error when categoryID does not name a live category.
func (s *TimeEntryService) checkCategory(ctx context.Context, categoryID *uint, verr *ValidationError) error {
	if categoryID == nil {
		return nil
	}
	_, err := s.categoryRepo.GetByID(ctx, *categoryID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		verr.Add("category_id", msgBadCategory)
		return nil
	default:
		return fmt.Errorf("find category: %w", err)
	}
}

// reload fetches the entry with its associations, falling back to the given
// value when the read fails.
func (s *TimeEntryService) reload(ctx context.Context, entry *model.TimeEntry) *model.TimeEntry {
	fresh, err := s.entryRepo.FindByID(ctx, entry.ID)
	if err != nil {
		log.Printf("[warn] reload time entry id=%d: %v", entry.ID, err)
		return entry
	}
	return fresh
}

func formatOptionalID(id *uint) string {
	if id == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *id)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(TimestampLayout)
}
