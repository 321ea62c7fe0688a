package scheduling

import (
	"fmt"
	"time"

	"day-planner/backend/internal/models"
)

// MinimumTaskDurationMins is the shortest span a task may cover.
const MinimumTaskDurationMins = 5

// Any date works as long as both ends share it.
var placeholderDate = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// ValidateMinimumTimespan fails with *DurationError when end - start is
// shorter than MinimumTaskDurationMins.
func ValidateMinimumTimespan(start, end models.TimeOfDay) error {
	if !start.IsValid() {
		return fmt.Errorf("%w: start_time %d out of range", ErrInvalidArgument, int64(start))
	}
	if !end.IsValid() {
		return fmt.Errorf("%w: end_time %d out of range", ErrInvalidArgument, int64(end))
	}

	minimum := MinimumTaskDurationMins * time.Minute
	if IntervalOn(placeholderDate, start, end).Duration() < minimum {
		return &DurationError{Start: start, End: end, Minimum: minimum}
	}
	return nil
}
