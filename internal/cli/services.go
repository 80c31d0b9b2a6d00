package cli

import (
	"fmt"

	"gorm.io/gorm"

	"time-tracker/internal/config"
	"time-tracker/internal/repository"
	"time-tracker/internal/service"
)

// app wires repositories and services over one database handle.
type app struct {
	db         *gorm.DB
	users      *service.UserService
	categories *service.CategoryService
	tasks      *service.TaskService
	entries    *service.TimeEntryService
	reports    *service.ReportService
}

// loadConfig is swapped in tests.
var loadConfig = config.Load

func newApp(cfg config.Config) (*app, error) {
	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	entryRepo := repository.NewTimeEntryRepository(db)
	txm := repository.NewTxManager(db)

	return &app{
		db:         db,
		users:      service.NewUserService(userRepo),
		categories: service.NewCategoryService(categoryRepo),
		tasks:      service.NewTaskService(taskRepo),
		entries:    service.NewTimeEntryService(txm, entryRepo, categoryRepo, cfg.Location),
		reports:    service.NewReportService(entryRepo, cfg.Location),
	}, nil
}

func (a *app) Close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// withApp loads configuration, opens the app and closes it after fn.
func withApp(fn func(cfg config.Config, a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cfg, a)
}
