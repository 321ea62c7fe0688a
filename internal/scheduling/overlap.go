package scheduling

import (
	"fmt"

	"day-planner/backend/internal/models"

	"github.com/gofrs/uuid"
)

// FindStartOverlap returns the first task of schedule.Tasks whose interval
// contains start, ignoring the task identified by exclude. It returns nil
// when no task collides.
func FindStartOverlap(schedule *models.Schedule, start models.TimeOfDay, exclude uuid.UUID) (*models.Task, error) {
	if err := checkSchedule(schedule); err != nil {
		return nil, err
	}
	if !start.IsValid() {
		return nil, fmt.Errorf("%w: start_time %d out of range", ErrInvalidArgument, int64(start))
	}

	target := start.On(schedule.Date)
	for i := range schedule.Tasks {
		task := &schedule.Tasks[i]
		if task.ID == exclude {
			continue
		}
		if IntervalOn(schedule.Date, task.StartTime, task.EndTime).Contains(target) {
			return task, nil
		}
	}
	return nil, nil
}

// FindEndOverlap returns the first task of schedule.Tasks whose interval
// intersects [start, end], ignoring the task identified by exclude.
func FindEndOverlap(schedule *models.Schedule, start, end models.TimeOfDay, exclude uuid.UUID) (*models.Task, error) {
	if err := checkSchedule(schedule); err != nil {
		return nil, err
	}
	if !start.IsValid() {
		return nil, fmt.Errorf("%w: start_time %d out of range", ErrInvalidArgument, int64(start))
	}
	if !end.IsValid() {
		return nil, fmt.Errorf("%w: end_time %d out of range", ErrInvalidArgument, int64(end))
	}

	target := IntervalOn(schedule.Date, start, end)
	for i := range schedule.Tasks {
		task := &schedule.Tasks[i]
		if task.ID == exclude {
			continue
		}
		if IntervalOn(schedule.Date, task.StartTime, task.EndTime).Intersects(target) {
			return task, nil
		}
	}
	return nil, nil
}

func checkSchedule(schedule *models.Schedule) error {
	if schedule == nil {
		return fmt.Errorf("%w: schedule is nil", ErrInvalidArgument)
	}
	if schedule.Date.IsZero() {
		return fmt.Errorf("%w: schedule has no date", ErrInvalidArgument)
	}
	return nil
}
