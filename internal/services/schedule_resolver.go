package services

import (
	"context"
	"fmt"
	"time"

	"day-planner/backend/internal/models"
	"day-planner/backend/internal/repositories"
	"day-planner/backend/internal/scheduling"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"
)

// ScheduleResolver maps an owner to the schedule of their current local day.
type ScheduleResolver struct {
	store *repositories.Store
	now   func() time.Time
	log   zerolog.Logger
}

func NewScheduleResolver(store *repositories.Store, log zerolog.Logger) *ScheduleResolver {
	return &ScheduleResolver{
		store: store,
		now:   time.Now,
		log:   log.With().Str("component", "schedule_resolver").Logger(),
	}
}

// WithClock returns a copy of r that reads the current instant from now.
func (r *ScheduleResolver) WithClock(now func() time.Time) *ScheduleResolver {
	cp := *r
	cp.now = now
	return &cp
}

// CurrentSchedule returns owner's schedule for today in owner's timezone,
// creating it on first access. Only an authenticated owner has a schedule:
// a nil or unsaved owner yields ErrPermission.
func (r *ScheduleResolver) CurrentSchedule(ctx context.Context, owner *models.Owner) (*models.Schedule, error) {
	if owner == nil || owner.ID.IsNil() {
		return nil, fmt.Errorf("%w: no authenticated owner", scheduling.ErrPermission)
	}

	loc, err := owner.Location()
	if err != nil {
		r.log.Warn().
			Err(err).
			Str("owner_id", owner.ID.String()).
			Str("timezone", owner.Timezone).
			Msg("unknown timezone, falling back to UTC")
	}

	return r.ScheduleFor(ctx, owner.ID, r.now().In(loc))
}

// ScheduleFor returns the schedule for the calendar date of day, creating it
// if needed. Concurrent callers converge on a single row.
func (r *ScheduleResolver) ScheduleFor(ctx context.Context, ownerID uuid.UUID, day time.Time) (*models.Schedule, error) {
	schedule, err := r.store.Schedules.GetOrCreate(ctx, ownerID, day)
	if err != nil {
		return nil, fmt.Errorf("resolve schedule for %s: %w", day.Format("2006-01-02"), err)
	}
	return schedule, nil
}
