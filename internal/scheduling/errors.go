package scheduling

import (
	"errors"
	"fmt"
	"time"

	"day-planner/backend/internal/models"
)

var (
	// ErrInvalidArgument marks a caller passing values the core cannot work
	// with. It signals a programming error, not bad user input.
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrPermission      = errors.New("permission denied")
)

// Validation codes, mirrored by the form layer's message table.
const (
	CodeOverlap   = "overlap"
	CodeUnderflow = "underflow"
	CodeMaxLength = "max_length"
)

// Field names a ValidationError can be scoped to.
const (
	FieldStartTime = "start_time"
	FieldEndTime   = "end_time"
	FieldTaskDesc  = "task_desc"
)

// ValidationError is a business-rule violation scoped to one field.
type ValidationError struct {
	Field   string
	Code    string
	Message string

	// Overlapped is the colliding task for CodeOverlap.
	Overlapped *models.Task

	err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.err
}

func newOverlapError(field string, task *models.Task) *ValidationError {
	return &ValidationError{
		Field:      field,
		Code:       CodeOverlap,
		Message:    fmt.Sprintf("This field overlaps with '%s' time.", task.Description),
		Overlapped: task,
	}
}

// DurationError reports a task shorter than MinimumTaskDurationMins.
type DurationError struct {
	Start   models.TimeOfDay
	End     models.TimeOfDay
	Minimum time.Duration
}

func (e *DurationError) Error() string {
	return fmt.Sprintf(
		"The difference between 'start_time: %s' and 'end_time: %s' is less than the allowed minimum: %d",
		e.Start, e.End, int(e.Minimum/time.Minute),
	)
}
