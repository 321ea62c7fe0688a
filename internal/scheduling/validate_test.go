package scheduling_test

import (
	"errors"
	"strings"
	"testing"

	"day-planner/backend/internal/scheduling"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validationError(t *testing.T, err error) *scheduling.ValidationError {
	t.Helper()
	var vErr *scheduling.ValidationError
	require.True(t, errors.As(err, &vErr), "expected ValidationError, got %v", err)
	return vErr
}

func TestValidateTask_Valid(t *testing.T) {
	schedule := newSchedule(testTask(at(7, 0), at(7, 45), "Test task"))
	task := testTask(at(8, 0), at(8, 30), "Write report")
	task.ID = uuid.Must(uuid.NewV4())

	assert.NoError(t, scheduling.ValidateTask(schedule, &task))
}

func TestValidateTask_StartOverlap(t *testing.T) {
	schedule := newSchedule(testTask(at(7, 0), at(7, 45), "Test task"))
	task := testTask(at(7, 45), at(8, 30), "Write report")

	vErr := validationError(t, scheduling.ValidateTask(schedule, &task))
	assert.Equal(t, scheduling.FieldStartTime, vErr.Field)
	assert.Equal(t, scheduling.CodeOverlap, vErr.Code)
	assert.Equal(t, "This field overlaps with 'Test task' time.", vErr.Message)
	assert.Equal(t, "Test task", vErr.Overlapped.Description)
}

func TestValidateTask_EndOverlap(t *testing.T) {
	schedule := newSchedule(testTask(at(7, 0), at(7, 45), "Test task"))
	task := testTask(at(6, 30), at(7, 0), "Breakfast")

	vErr := validationError(t, scheduling.ValidateTask(schedule, &task))
	assert.Equal(t, scheduling.FieldEndTime, vErr.Field)
	assert.Equal(t, scheduling.CodeOverlap, vErr.Code)
}

func TestValidateTask_Underflow(t *testing.T) {
	schedule := newSchedule()
	task := testTask(at(7, 0), at(7, 4), "Quick")

	vErr := validationError(t, scheduling.ValidateTask(schedule, &task))
	assert.Equal(t, scheduling.FieldEndTime, vErr.Field)
	assert.Equal(t, scheduling.CodeUnderflow, vErr.Code)

	var durErr *scheduling.DurationError
	assert.True(t, errors.As(vErr, &durErr))
}

func TestValidateTask_DescriptionTooLong(t *testing.T) {
	schedule := newSchedule()
	task := testTask(at(7, 0), at(8, 0), strings.Repeat("x", 51))

	vErr := validationError(t, scheduling.ValidateTask(schedule, &task))
	assert.Equal(t, scheduling.FieldTaskDesc, vErr.Field)
	assert.Equal(t, "Ensure this value has at most 50 characters (it has 51).", vErr.Message)
}

func TestValidateTask_SelfUpdate(t *testing.T) {
	schedule := newSchedule(testTask(at(7, 0), at(7, 45), "Test task"))
	self := schedule.Tasks[0]
	self.Description = "Renamed"

	assert.NoError(t, scheduling.ValidateTask(schedule, &self))
}

func TestValidateTask_Nil(t *testing.T) {
	err := scheduling.ValidateTask(newSchedule(), nil)
	assert.ErrorIs(t, err, scheduling.ErrInvalidArgument)
}
