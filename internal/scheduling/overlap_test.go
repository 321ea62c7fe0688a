package scheduling_test

import (
	"testing"
	"time"

	"day-planner/backend/internal/models"
	"day-planner/backend/internal/scheduling"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(h, m int) models.TimeOfDay {
	return models.NewTimeOfDay(h, m, 0)
}

func newSchedule(tasks ...models.Task) *models.Schedule {
	for i := range tasks {
		if tasks[i].ID.IsNil() {
			tasks[i].ID = uuid.Must(uuid.NewV4())
		}
	}
	return &models.Schedule{
		ID:      uuid.Must(uuid.NewV4()),
		OwnerID: uuid.Must(uuid.NewV4()),
		Date:    time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		Tasks:   tasks,
	}
}

func testTask(start, end models.TimeOfDay, desc string) models.Task {
	return models.Task{StartTime: start, EndTime: end, Description: desc}
}

func TestFindStartOverlap_NoOverlap(t *testing.T) {
	schedule := newSchedule(testTask(at(7, 0), at(7, 45), "Test task"))

	got, err := scheduling.FindStartOverlap(schedule, at(8, 0), uuid.Nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindStartOverlap_BoundaryInclusive(t *testing.T) {
	schedule := newSchedule(testTask(at(7, 0), at(7, 45), "Test task"))

	for _, start := range []models.TimeOfDay{at(7, 0), at(7, 20), at(7, 45)} {
		got, err := scheduling.FindStartOverlap(schedule, start, uuid.Nil)
		require.NoError(t, err)
		require.NotNil(t, got, "start %s should overlap", start)
		assert.Equal(t, "Test task", got.Description)
	}
}

func TestFindStartOverlap_ExcludesSelf(t *testing.T) {
	schedule := newSchedule(testTask(at(7, 0), at(7, 45), "Test task"))
	self := schedule.Tasks[0].ID

	got, err := scheduling.FindStartOverlap(schedule, at(7, 0), self)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindStartOverlap_InvalidArguments(t *testing.T) {
	_, err := scheduling.FindStartOverlap(nil, at(7, 0), uuid.Nil)
	assert.ErrorIs(t, err, scheduling.ErrInvalidArgument)

	_, err = scheduling.FindStartOverlap(&models.Schedule{}, at(7, 0), uuid.Nil)
	assert.ErrorIs(t, err, scheduling.ErrInvalidArgument)

	_, err = scheduling.FindStartOverlap(newSchedule(), models.NewTimeOfDay(24, 0, 0), uuid.Nil)
	assert.ErrorIs(t, err, scheduling.ErrInvalidArgument)
}

func TestFindEndOverlap(t *testing.T) {
	schedule := newSchedule(
		testTask(at(9, 0), at(10, 0), "Standup"),
		testTask(at(13, 0), at(14, 0), "Lunch"),
	)

	tests := []struct {
		name       string
		start, end models.TimeOfDay
		want       string
	}{
		{name: "before all", start: at(7, 0), end: at(8, 0)},
		{name: "between", start: at(10, 30), end: at(12, 0)},
		{name: "ends inside", start: at(8, 30), end: at(9, 15), want: "Standup"},
		{name: "touches end boundary", start: at(8, 0), end: at(9, 0), want: "Standup"},
		{name: "touches start boundary", start: at(14, 0), end: at(15, 0), want: "Lunch"},
		{name: "engulfs", start: at(12, 0), end: at(15, 0), want: "Lunch"},
		{name: "inside", start: at(9, 10), end: at(9, 20), want: "Standup"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := scheduling.FindEndOverlap(schedule, tt.start, tt.end, uuid.Nil)
			require.NoError(t, err)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Description)
		})
	}
}

func TestFindEndOverlap_ExcludesSelf(t *testing.T) {
	schedule := newSchedule(testTask(at(9, 0), at(10, 0), "Standup"))

	got, err := scheduling.FindEndOverlap(schedule, at(9, 0), at(10, 0), schedule.Tasks[0].ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindEndOverlap_InvalidArguments(t *testing.T) {
	_, err := scheduling.FindEndOverlap(nil, at(7, 0), at(8, 0), uuid.Nil)
	assert.ErrorIs(t, err, scheduling.ErrInvalidArgument)

	_, err = scheduling.FindEndOverlap(newSchedule(), at(7, 0), models.TimeOfDay(-1), uuid.Nil)
	assert.ErrorIs(t, err, scheduling.ErrInvalidArgument)
}

func TestInterval(t *testing.T) {
	date := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	a := scheduling.IntervalOn(date, at(7, 0), at(8, 0))
	b := scheduling.IntervalOn(date, at(8, 0), at(9, 0))
	c := scheduling.IntervalOn(date, at(8, 1), at(9, 0))

	assert.True(t, a.Intersects(b))
	assert.True(t, b.Intersects(a))
	assert.False(t, a.Intersects(c))
	assert.True(t, a.Contains(at(8, 0).On(date)))
	assert.False(t, a.Contains(at(8, 1).On(date)))
	assert.Equal(t, time.Hour, a.Duration())
}
