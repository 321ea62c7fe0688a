package services

import (
	"context"
	"fmt"

	"day-planner/backend/internal/lock"
	"day-planner/backend/internal/models"
	"day-planner/backend/internal/repositories"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"
)

// TaskInput carries the already-parsed values of a task write.
type TaskInput struct {
	StartTime   models.TimeOfDay
	EndTime     models.TimeOfDay
	Description string
}

type TaskService interface {
	CreateTask(ctx context.Context, scheduleID uuid.UUID, in TaskInput) (*models.Task, error)
	UpdateTask(ctx context.Context, scheduleID, taskID uuid.UUID, in TaskInput) (*models.Task, error)
	DeleteTask(ctx context.Context, scheduleID, taskID uuid.UUID) error
	ToggleCompleted(ctx context.Context, scheduleID, taskID uuid.UUID) (bool, error)
	ListTasks(ctx context.Context, scheduleID uuid.UUID) ([]models.Task, error)
}

// TaskServiceImpl writes tasks while holding the schedule's lock, inside one
// transaction. The overlap and duration rules are enforced by the database
// layer's task callbacks, so two concurrent writers on one schedule can never
// both pass validation against the same snapshot.
type TaskServiceImpl struct {
	store  *repositories.Store
	locker lock.Locker
	log    zerolog.Logger
}

func NewTaskService(store *repositories.Store, locker lock.Locker, log zerolog.Logger) *TaskServiceImpl {
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	return &TaskServiceImpl{
		store:  store,
		locker: locker,
		log:    log.With().Str("component", "task_service").Logger(),
	}
}

func scheduleLockKey(scheduleID uuid.UUID) string {
	return "schedule:" + scheduleID.String()
}

// mutate runs fn under the schedule lock in a transaction, after checking
// the schedule exists.
func (s *TaskServiceImpl) mutate(ctx context.Context, scheduleID uuid.UUID, fn func(tx *repositories.Store) error) error {
	return lock.WithLock(ctx, s.locker, scheduleLockKey(scheduleID), func() error {
		return s.store.Transaction(ctx, func(tx *repositories.Store) error {
			if _, err := tx.Schedules.FindByID(ctx, scheduleID); err != nil {
				return err
			}
			return fn(tx)
		})
	})
}

func (s *TaskServiceImpl) CreateTask(ctx context.Context, scheduleID uuid.UUID, in TaskInput) (*models.Task, error) {
	task := &models.Task{
		ScheduleID:  scheduleID,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		Description: in.Description,
	}

	err := s.mutate(ctx, scheduleID, func(tx *repositories.Store) error {
		return tx.Tasks.Create(ctx, task)
	})
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.log.Debug().
		Str("schedule_id", scheduleID.String()).
		Str("task_id", task.ID.String()).
		Stringer("start", task.StartTime).
		Stringer("end", task.EndTime).
		Msg("task created")
	return task, nil
}

func (s *TaskServiceImpl) UpdateTask(ctx context.Context, scheduleID, taskID uuid.UUID, in TaskInput) (*models.Task, error) {
	var task *models.Task
	err := s.mutate(ctx, scheduleID, func(tx *repositories.Store) error {
		existing, err := tx.Tasks.FindInSchedule(ctx, scheduleID, taskID)
		if err != nil {
			return err
		}
		existing.StartTime = in.StartTime
		existing.EndTime = in.EndTime
		existing.Description = in.Description
		if err := tx.Tasks.Save(ctx, existing); err != nil {
			return err
		}
		task = existing
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", taskID, err)
	}
	return task, nil
}

func (s *TaskServiceImpl) DeleteTask(ctx context.Context, scheduleID, taskID uuid.UUID) error {
	err := s.mutate(ctx, scheduleID, func(tx *repositories.Store) error {
		return tx.Tasks.Delete(ctx, scheduleID, taskID)
	})
	if err != nil {
		return fmt.Errorf("delete task %s: %w", taskID, err)
	}
	return nil
}

// ToggleCompleted flips the task's completed flag and returns the new value.
func (s *TaskServiceImpl) ToggleCompleted(ctx context.Context, scheduleID, taskID uuid.UUID) (bool, error) {
	var completed bool
	err := s.mutate(ctx, scheduleID, func(tx *repositories.Store) error {
		task, err := tx.Tasks.FindInSchedule(ctx, scheduleID, taskID)
		if err != nil {
			return err
		}
		completed = !task.Completed
		return tx.Tasks.SetCompleted(ctx, task, completed)
	})
	if err != nil {
		return false, fmt.Errorf("toggle task %s: %w", taskID, err)
	}
	return completed, nil
}

func (s *TaskServiceImpl) ListTasks(ctx context.Context, scheduleID uuid.UUID) ([]models.Task, error) {
	if _, err := s.store.Schedules.FindByID(ctx, scheduleID); err != nil {
		return nil, err
	}
	return s.store.Tasks.ListBySchedule(ctx, scheduleID)
}
