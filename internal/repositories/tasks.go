package repositories

import (
	"context"
	"fmt"
	"sort"

	"day-planner/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type TaskRepository struct {
	db *gorm.DB
}

// ListBySchedule returns the schedule's tasks ordered by start time.
func (r *TaskRepository) ListBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Where("schedule_id = ?", scheduleID).
		Order("start_time ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].StartTime < tasks[j].StartTime
	})
	return tasks, nil
}

// FindInSchedule returns the task only if it belongs to scheduleID.
func (r *TaskRepository) FindInSchedule(ctx context.Context, scheduleID, taskID uuid.UUID) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).
		Where("id = ? AND schedule_id = ?", taskID, scheduleID).
		First(&task).Error
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("task %s", taskID))
	}
	return &task, nil
}

// Create inserts a new task. The database layer validates it against the
// schedule's other tasks.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// Save writes every column of an existing task, re-running validation.
func (r *TaskRepository) Save(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Save(task).Error
}

func (r *TaskRepository) Delete(ctx context.Context, scheduleID, taskID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND schedule_id = ?", taskID, scheduleID).
		Delete(&models.Task{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, fmt.Sprintf("task %s", taskID))
	}
	return nil
}

// SetCompleted updates only the completed column. Time and description are
// untouched, so the write-time rules do not run again.
func (r *TaskRepository) SetCompleted(ctx context.Context, task *models.Task, completed bool) error {
	if err := r.db.WithContext(ctx).Model(task).Update("completed", completed).Error; err != nil {
		return err
	}
	task.Completed = completed
	return nil
}
