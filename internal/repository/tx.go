package repository

import (
	"context"

	"gorm.io/gorm"
)

// Tx bundles repositories bound to a single database transaction.
type Tx struct {
	Tasks       *TaskRepository
	TimeEntries *TimeEntryRepository
}

// TxManager runs units of work atomically.
type TxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// Do runs fn inside a transaction. Returning an error from fn rolls back every
// write made through the given repositories.
func (m *TxManager) Do(ctx context.Context, fn func(tx Tx) error) error {
	return m.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(Tx{
			Tasks:       NewTaskRepository(db),
			TimeEntries: NewTimeEntryRepository(db),
		})
	})
}
