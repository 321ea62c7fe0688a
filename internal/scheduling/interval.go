package scheduling

import (
	"time"

	"day-planner/backend/internal/models"
)

// Interval is a closed span of instants on one calendar date.
type Interval struct {
	Start time.Time
	End   time.Time
}

// IntervalOn builds the interval [start, end] on date.
func IntervalOn(date time.Time, start, end models.TimeOfDay) Interval {
	return Interval{Start: start.On(date), End: end.On(date)}
}

// Contains reports whether t lies inside the interval, both ends included.
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && !t.After(i.End)
}

// Intersects reports whether the two closed intervals share an instant.
func (i Interval) Intersects(o Interval) bool {
	return !i.Start.After(o.End) && !i.End.Before(o.Start)
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}
