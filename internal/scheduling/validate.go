package scheduling

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"day-planner/backend/internal/models"
)

// ValidateTask runs every write-time rule for task against the tasks already
// loaded on schedule. The task's own id is excluded from overlap detection so
// re-saving an unchanged task passes.
//
// Rules run in order and the first violation wins: start overlap, end
// overlap, minimum duration, description length.
func ValidateTask(schedule *models.Schedule, task *models.Task) error {
	if task == nil {
		return fmt.Errorf("%w: task is nil", ErrInvalidArgument)
	}

	overlapped, err := FindStartOverlap(schedule, task.StartTime, task.ID)
	if err != nil {
		return err
	}
	if overlapped != nil {
		return newOverlapError(FieldStartTime, overlapped)
	}

	overlapped, err = FindEndOverlap(schedule, task.StartTime, task.EndTime, task.ID)
	if err != nil {
		return err
	}
	if overlapped != nil {
		return newOverlapError(FieldEndTime, overlapped)
	}

	if err := ValidateMinimumTimespan(task.StartTime, task.EndTime); err != nil {
		var durErr *DurationError
		if errors.As(err, &durErr) {
			return &ValidationError{
				Field:   FieldEndTime,
				Code:    CodeUnderflow,
				Message: durErr.Error(),
				err:     durErr,
			}
		}
		return err
	}

	if n := utf8.RuneCountInString(task.Description); n > models.MaxTaskDescLength {
		return &ValidationError{
			Field:   FieldTaskDesc,
			Code:    CodeMaxLength,
			Message: fmt.Sprintf("Ensure this value has at most %d characters (it has %d).", models.MaxTaskDescLength, n),
		}
	}

	return nil
}
