package services

import (
	"context"
	"fmt"
	"time"

	"day-planner/backend/internal/cache"
	"day-planner/backend/internal/models"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"
)

// cachedTask keeps second precision, which the wire format of TimeOfDay
// drops.
type cachedTask struct {
	ID        uuid.UUID `json:"id"`
	Schedule  uuid.UUID `json:"schedule_id"`
	Start     int64     `json:"start"`
	End       int64     `json:"end"`
	Desc      string    `json:"desc"`
	Completed bool      `json:"completed"`
}

func toCached(tasks []models.Task) []cachedTask {
	out := make([]cachedTask, len(tasks))
	for i, t := range tasks {
		out[i] = cachedTask{
			ID:        t.ID,
			Schedule:  t.ScheduleID,
			Start:     int64(time.Duration(t.StartTime) / time.Second),
			End:       int64(time.Duration(t.EndTime) / time.Second),
			Desc:      t.Description,
			Completed: t.Completed,
		}
	}
	return out
}

func fromCached(entries []cachedTask) []models.Task {
	out := make([]models.Task, len(entries))
	for i, e := range entries {
		out[i] = models.Task{
			ID:          e.ID,
			ScheduleID:  e.Schedule,
			StartTime:   models.TimeOfDay(time.Duration(e.Start) * time.Second),
			EndTime:     models.TimeOfDay(time.Duration(e.End) * time.Second),
			Description: e.Desc,
			Completed:   e.Completed,
		}
	}
	return out
}

// CachedTaskService caches schedule listings. Writes always go to the
// wrapped service, which validates against the database.
//
// Listings are keyed by a per-schedule generation that every committed write
// bumps. A listing read from the database before a write commits is stored
// under the old generation, which no later reader asks for.
type CachedTaskService struct {
	taskService TaskService
	cache       cache.Cache
	ttl         time.Duration
	log         zerolog.Logger
}

func NewCachedTaskService(taskService TaskService, c cache.Cache, ttl time.Duration, log zerolog.Logger) *CachedTaskService {
	return &CachedTaskService{
		taskService: taskService,
		cache:       c,
		ttl:         ttl,
		log:         log.With().Str("component", "cached_tasks").Logger(),
	}
}

func scheduleGenerationKey(scheduleID uuid.UUID) string {
	return fmt.Sprintf("schedule_gen:%s", scheduleID)
}

func scheduleTasksKey(scheduleID uuid.UUID, generation int64) string {
	return fmt.Sprintf("schedule_tasks:%s:%d", scheduleID, generation)
}

// generationTTL outlives every listing so an expired counter cannot restart
// at a generation that still has a cached listing.
func (s *CachedTaskService) generationTTL() time.Duration {
	if ttl := 2 * s.ttl; ttl > 24*time.Hour {
		return ttl
	}
	return 24 * time.Hour
}

func (s *CachedTaskService) generation(ctx context.Context, scheduleID uuid.UUID) int64 {
	var gen int64
	if err := s.cache.Get(ctx, scheduleGenerationKey(scheduleID), &gen); err != nil {
		return 0
	}
	return gen
}

func (s *CachedTaskService) invalidate(ctx context.Context, scheduleID uuid.UUID) {
	_, err := s.cache.Incr(ctx, scheduleGenerationKey(scheduleID), s.generationTTL())
	if err == nil {
		return
	}
	s.log.Warn().Err(err).Str("schedule_id", scheduleID.String()).Msg("failed to bump listing generation")
	if err := s.cache.Delete(ctx, scheduleTasksKey(scheduleID, s.generation(ctx, scheduleID))); err != nil {
		s.log.Warn().Err(err).Str("schedule_id", scheduleID.String()).Msg("failed to invalidate task listing")
	}
}

func (s *CachedTaskService) CreateTask(ctx context.Context, scheduleID uuid.UUID, in TaskInput) (*models.Task, error) {
	task, err := s.taskService.CreateTask(ctx, scheduleID, in)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, scheduleID)
	return task, nil
}

func (s *CachedTaskService) UpdateTask(ctx context.Context, scheduleID, taskID uuid.UUID, in TaskInput) (*models.Task, error) {
	task, err := s.taskService.UpdateTask(ctx, scheduleID, taskID, in)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, scheduleID)
	return task, nil
}

func (s *CachedTaskService) DeleteTask(ctx context.Context, scheduleID, taskID uuid.UUID) error {
	if err := s.taskService.DeleteTask(ctx, scheduleID, taskID); err != nil {
		return err
	}
	s.invalidate(ctx, scheduleID)
	return nil
}

func (s *CachedTaskService) ToggleCompleted(ctx context.Context, scheduleID, taskID uuid.UUID) (bool, error) {
	completed, err := s.taskService.ToggleCompleted(ctx, scheduleID, taskID)
	if err != nil {
		return false, err
	}
	s.invalidate(ctx, scheduleID)
	return completed, nil
}

func (s *CachedTaskService) ListTasks(ctx context.Context, scheduleID uuid.UUID) ([]models.Task, error) {
	// The generation is read before the database so a write committing in
	// between moves readers past whatever this call stores.
	key := scheduleTasksKey(scheduleID, s.generation(ctx, scheduleID))

	var cached []cachedTask
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return fromCached(cached), nil
	}

	tasks, err := s.taskService.ListTasks(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, toCached(tasks), s.ttl); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to cache task listing")
	}
	return tasks, nil
}
