package scheduling_test

import (
	"errors"
	"testing"

	"day-planner/backend/internal/models"
	"day-planner/backend/internal/scheduling"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateMinimumTimespan(t *testing.T) {
	assert.NoError(t, scheduling.ValidateMinimumTimespan(at(7, 0), at(7, 5)))
	assert.NoError(t, scheduling.ValidateMinimumTimespan(at(7, 0), at(9, 0)))

	err := scheduling.ValidateMinimumTimespan(at(7, 0), at(7, 4))
	var durErr *scheduling.DurationError
	require.True(t, errors.As(err, &durErr))
	assert.Equal(t,
		"The difference between 'start_time: 07:00:00' and 'end_time: 07:04:00' is less than the allowed minimum: 5",
		err.Error(),
	)
}

func TestValidateMinimumTimespan_EndBeforeStart(t *testing.T) {
	err := scheduling.ValidateMinimumTimespan(at(9, 0), at(8, 0))
	var durErr *scheduling.DurationError
	assert.True(t, errors.As(err, &durErr))
}

func TestValidateMinimumTimespan_InvalidArguments(t *testing.T) {
	err := scheduling.ValidateMinimumTimespan(models.TimeOfDay(-1), at(7, 5))
	assert.ErrorIs(t, err, scheduling.ErrInvalidArgument)

	err = scheduling.ValidateMinimumTimespan(at(7, 0), models.NewTimeOfDay(30, 0, 0))
	assert.ErrorIs(t, err, scheduling.ErrInvalidArgument)
}
