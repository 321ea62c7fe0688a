// Package forms validates task submissions field by field and renders the
// human-readable, field-scoped messages clients display. The business rules
// themselves live in package scheduling and are shared with the entity
// write path.
package forms

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"day-planner/backend/internal/models"
	"day-planner/backend/internal/scheduling"

	"github.com/gofrs/uuid"
)

const (
	msgRequired    = "This field is required."
	msgInvalidTime = "Enter a valid time."
	msgMaxLength   = "Ensure this value has at most %d characters (it has %d)."
	msgOverlap     = "{field_label} overlaps the timespan of '{overlapped_task_desc}' task."
)

var msgUnderflow = fmt.Sprintf("A task's timespan must be at-least %d minutes.", scheduling.MinimumTaskDurationMins)

var fieldLabels = map[string]string{
	scheduling.FieldStartTime: "Start time",
	scheduling.FieldEndTime:   "End time",
	scheduling.FieldTaskDesc:  "Task",
}

// TaskForm is the raw submission for creating or updating a task.
type TaskForm struct {
	StartTime string `form:"start_time" json:"start_time"`
	EndTime   string `form:"end_time" json:"end_time"`
	TaskDesc  string `form:"task_desc" json:"task_desc"`
}

// Cleaned holds the typed values of a form that passed validation.
type Cleaned struct {
	StartTime models.TimeOfDay
	EndTime   models.TimeOfDay
	TaskDesc  string
}

// FieldErrors maps a field name to its messages.
type FieldErrors map[string][]string

func (fe FieldErrors) Add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

func (fe FieldErrors) Has(field string) bool {
	return len(fe[field]) > 0
}

// FromError converts a ValidationError raised by the entity write path into
// FieldErrors. The second return is false for any other error.
func FromError(err error) (FieldErrors, bool) {
	var vErr *scheduling.ValidationError
	if !errors.As(err, &vErr) {
		return nil, false
	}
	fe := FieldErrors{}
	fe.Add(vErr.Field, vErr.Message)
	return fe, true
}

// Validate cleans the form against schedule. exclude is the id of the task
// being updated, or uuid.Nil on create.
//
// Fields are cleaned in declaration order. The end_time checks only run when
// start_time cleaned successfully, and the first failing check per field
// wins. A nil schedule is a programming error and returns ErrInvalidArgument.
func (f TaskForm) Validate(schedule *models.Schedule, exclude uuid.UUID) (Cleaned, FieldErrors, error) {
	if schedule == nil {
		return Cleaned{}, nil, fmt.Errorf("%w: schedule is not set", scheduling.ErrInvalidArgument)
	}

	var cleaned Cleaned
	errs := FieldErrors{}

	startOK, err := f.cleanStartTime(schedule, exclude, &cleaned, errs)
	if err != nil {
		return Cleaned{}, nil, err
	}
	if err := f.cleanEndTime(schedule, exclude, startOK, &cleaned, errs); err != nil {
		return Cleaned{}, nil, err
	}
	f.cleanTaskDesc(&cleaned, errs)

	if len(errs) > 0 {
		return Cleaned{}, errs, nil
	}
	return cleaned, nil, nil
}

func (f TaskForm) cleanStartTime(schedule *models.Schedule, exclude uuid.UUID, cleaned *Cleaned, errs FieldErrors) (bool, error) {
	start, ok := parseTimeField(f.StartTime, scheduling.FieldStartTime, errs)
	if !ok {
		return false, nil
	}

	overlapped, err := scheduling.FindStartOverlap(schedule, start, exclude)
	if err != nil {
		return false, err
	}
	if overlapped != nil {
		errs.Add(scheduling.FieldStartTime, overlapMessage(scheduling.FieldStartTime, overlapped))
		return false, nil
	}

	cleaned.StartTime = start
	return true, nil
}

func (f TaskForm) cleanEndTime(schedule *models.Schedule, exclude uuid.UUID, startOK bool, cleaned *Cleaned, errs FieldErrors) error {
	end, ok := parseTimeField(f.EndTime, scheduling.FieldEndTime, errs)
	if !ok || !startOK {
		return nil
	}

	overlapped, err := scheduling.FindEndOverlap(schedule, cleaned.StartTime, end, exclude)
	if err != nil {
		return err
	}
	if overlapped != nil {
		errs.Add(scheduling.FieldEndTime, overlapMessage(scheduling.FieldEndTime, overlapped))
		return nil
	}

	if err := scheduling.ValidateMinimumTimespan(cleaned.StartTime, end); err != nil {
		var durErr *scheduling.DurationError
		if !errors.As(err, &durErr) {
			return err
		}
		errs.Add(scheduling.FieldEndTime, msgUnderflow)
		return nil
	}

	cleaned.EndTime = end
	return nil
}

func (f TaskForm) cleanTaskDesc(cleaned *Cleaned, errs FieldErrors) {
	desc := strings.TrimSpace(f.TaskDesc)
	if desc == "" {
		errs.Add(scheduling.FieldTaskDesc, msgRequired)
		return
	}
	if n := utf8.RuneCountInString(desc); n > models.MaxTaskDescLength {
		errs.Add(scheduling.FieldTaskDesc, fmt.Sprintf(msgMaxLength, models.MaxTaskDescLength, n))
		return
	}
	cleaned.TaskDesc = desc
}

func parseTimeField(raw, field string, errs FieldErrors) (models.TimeOfDay, bool) {
	if strings.TrimSpace(raw) == "" {
		errs.Add(field, msgRequired)
		return 0, false
	}
	t, err := models.ParseTimeOfDay(raw)
	if err != nil {
		errs.Add(field, msgInvalidTime)
		return 0, false
	}
	return t, true
}

func overlapMessage(field string, overlapped *models.Task) string {
	r := strings.NewReplacer(
		"{field_label}", fieldLabels[field],
		"{overlapped_task_desc}", overlapped.Description,
	)
	return r.Replace(msgOverlap)
}
