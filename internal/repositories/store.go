package repositories

import (
	"context"
	"errors"
	"fmt"

	"day-planner/backend/internal/scheduling"

	"gorm.io/gorm"
)

// Store groups the scheduler repositories over one *gorm.DB, which may be a
// transaction.
type Store struct {
	db *gorm.DB

	Owners    *OwnerRepository
	Schedules *ScheduleRepository
	Tasks     *TaskRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:        db,
		Owners:    &OwnerRepository{db: db},
		Schedules: &ScheduleRepository{db: db},
		Tasks:     &TaskRepository{db: db},
	}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn with a Store bound to a single transaction. fn's error
// rolls the transaction back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// notFound maps gorm.ErrRecordNotFound onto scheduling.ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, scheduling.ErrNotFound)
	}
	return err
}
