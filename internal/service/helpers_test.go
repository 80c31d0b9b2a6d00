package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"time-tracker/internal/model"
	"time-tracker/internal/repository"
)

type fixture struct {
	db         *gorm.DB
	entries    *TimeEntryService
	categories *CategoryService
	tasks      *TaskService
	users      *UserService
	reports    *ReportService
	entryRepo  *repository.TimeEntryRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.NewDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	entryRepo := repository.NewTimeEntryRepository(db)

	return &fixture{
		db:         db,
		entries:    NewTimeEntryService(repository.NewTxManager(db), entryRepo, categoryRepo, time.UTC),
		categories: NewCategoryService(categoryRepo),
		tasks:      NewTaskService(taskRepo),
		users:      NewUserService(userRepo).WithHashCost(4),
		reports:    NewReportService(entryRepo, time.UTC),
		entryRepo:  entryRepo,
	}
}

func (f *fixture) user(t *testing.T, email string) *model.User {
	t.Helper()
	user := model.User{Email: email, Name: email, PasswordHash: "x"}
	if err := f.db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &user
}

func (f *fixture) category(t *testing.T, name string) *model.Category {
	t.Helper()
	category, err := f.categories.Create(context.Background(), name)
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	return category
}

func (f *fixture) task(t *testing.T, userID uint, title string, categoryID *uint) *model.Task {
	t.Helper()
	task := model.Task{UserID: userID, Title: title, CategoryID: categoryID}
	if err := f.db.Create(&task).Error; err != nil {
		t.Fatalf("create task: %v", err)
	}
	return &task
}

func (f *fixture) entry(t *testing.T, userID, taskID uint, start string, end string) *model.TimeEntry {
	t.Helper()
	entry := model.TimeEntry{UserID: userID, TaskID: taskID, StartTime: mustTime(t, start)}
	if end != "" {
		e := mustTime(t, end)
		entry.EndTime = &e
	}
	if err := f.db.Create(&entry).Error; err != nil {
		t.Fatalf("create entry: %v", err)
	}
	return &entry
}

func (f *fixture) count(t *testing.T, m interface{}) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(m).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation(TimestampLayout, s, time.UTC)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return ts
}

func ptr[T any](v T) *T {
	return &v
}

func formatUTC(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
