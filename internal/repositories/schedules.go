package repositories

import (
	"context"
	"fmt"
	"time"

	"day-planner/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ScheduleRepository struct {
	db *gorm.DB
}

// GetOrCreate returns the schedule for (ownerID, date), inserting it first
// if needed. The insert ignores unique-constraint conflicts and the row is
// re-read, so concurrent first accesses converge on the same schedule.
func (r *ScheduleRepository) GetOrCreate(ctx context.Context, ownerID uuid.UUID, date time.Time) (*models.Schedule, error) {
	db := r.db.WithContext(ctx)
	date = models.DateOf(date)

	var schedule models.Schedule
	err := db.Where("owner_id = ? AND date = ?", ownerID, date).Limit(1).Find(&schedule).Error
	if err != nil {
		return nil, err
	}
	if !schedule.ID.IsNil() {
		return &schedule, nil
	}

	candidate := models.Schedule{OwnerID: ownerID, Date: date}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&candidate).Error; err != nil {
		return nil, err
	}

	if err := db.Where("owner_id = ? AND date = ?", ownerID, date).First(&schedule).Error; err != nil {
		return nil, notFound(err, fmt.Sprintf("schedule for owner %s on %s", ownerID, date.Format("2006-01-02")))
	}
	return &schedule, nil
}

func (r *ScheduleRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Schedule, error) {
	var schedule models.Schedule
	if err := r.db.WithContext(ctx).First(&schedule, "id = ?", id).Error; err != nil {
		return nil, notFound(err, fmt.Sprintf("schedule %s", id))
	}
	return &schedule, nil
}

// FindWithTasks loads the schedule and its tasks in start-time order.
func (r *ScheduleRepository) FindWithTasks(ctx context.Context, id uuid.UUID) (*models.Schedule, error) {
	var schedule models.Schedule
	err := r.db.WithContext(ctx).
		Preload("Tasks", func(db *gorm.DB) *gorm.DB {
			return db.Order("start_time ASC")
		}).
		First(&schedule, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("schedule %s", id))
	}
	return &schedule, nil
}

// Delete removes the schedule and its tasks.
func (r *ScheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("schedule_id = ?", id).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Schedule{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return notFound(gorm.ErrRecordNotFound, fmt.Sprintf("schedule %s", id))
		}
		return nil
	})
}
