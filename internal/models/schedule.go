package models

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// Schedule is an owner's task container for one calendar date. At most one
// schedule exists per (owner, date).
type Schedule struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	OwnerID   uuid.UUID `json:"owner_id" gorm:"type:uuid;not null;uniqueIndex:unique_owner_schedules,priority:1"`
	Date      time.Time `json:"date" gorm:"type:date;not null;uniqueIndex:unique_owner_schedules,priority:2"`
	CreatedAt time.Time `json:"created_at"`

	Tasks []Task `json:"tasks,omitempty" gorm:"foreignKey:ScheduleID;constraint:OnDelete:CASCADE"`
}

// DateOf truncates t to its calendar date in t's location and returns that
// date at UTC midnight, the form schedules are keyed by.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *Schedule) BeforeCreate(tx *gorm.DB) error {
	if s.ID.IsNil() {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		s.ID = id
	}
	s.Date = DateOf(s.Date)
	return nil
}

func (s *Schedule) String() string {
	return fmt.Sprintf("%s - %s", s.Date.Format("2006-01-02"), s.OwnerID)
}
