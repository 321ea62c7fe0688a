package models

import (
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// MaxTaskDescLength bounds Task.Description.
const MaxTaskDescLength = 50

type Task struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	ScheduleID  uuid.UUID `json:"schedule_id" gorm:"type:uuid;not null;index"`
	StartTime   TimeOfDay `json:"start_time" gorm:"type:time;not null"`
	EndTime     TimeOfDay `json:"end_time" gorm:"type:time;not null"`
	Description string    `json:"task_desc" gorm:"column:task_desc;size:50;not null"`
	Completed   bool      `json:"completed" gorm:"not null;default:false"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID.IsNil() {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		t.ID = id
	}
	return nil
}

// TaskView is the wire representation consumed by existing clients.
type TaskView struct {
	ID        uuid.UUID `json:"id"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
	Desc      string    `json:"desc"`
	Completed bool      `json:"completed"`
}

func (t Task) View() TaskView {
	return TaskView{
		ID:        t.ID,
		StartTime: t.StartTime.Format(),
		EndTime:   t.EndTime.Format(),
		Desc:      t.Description,
		Completed: t.Completed,
	}
}
