package database

import (
	"errors"
	"fmt"

	"day-planner/backend/internal/models"
	"day-planner/backend/internal/scheduling"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const validateTaskCallback = "scheduler:validate_task"

// RegisterTaskCallbacks makes every gorm create, save or column update of a
// models.Task run scheduling.ValidateTask against the schedule's persisted
// tasks, on the same connection or transaction as the write. Validation done
// by the form layer does not replace this check.
func RegisterTaskCallbacks(db *gorm.DB) error {
	err := db.Callback().Create().
		After("gorm:before_create").
		Before("gorm:create").
		Register(validateTaskCallback, validateTaskWrite)
	if err != nil {
		return err
	}
	return db.Callback().Update().
		After("gorm:before_update").
		Before("gorm:update").
		Register(validateTaskCallback, validateTaskWrite)
}

func validateTaskWrite(db *gorm.DB) {
	if db.Error != nil {
		return
	}

	model, _ := db.Statement.Model.(*models.Task)

	switch dest := db.Statement.Dest.(type) {
	case *models.Task:
		if model != nil && model != dest {
			validateColumnUpdate(db, model, structAssignments(db, dest))
			return
		}
		validateBatch(db, []*models.Task{dest})
	case models.Task:
		if model != nil {
			validateColumnUpdate(db, model, structAssignments(db, &dest))
		}
	case map[string]interface{}:
		if model != nil {
			validateColumnUpdate(db, model, mapAssignments(db, dest))
		}
	case *[]models.Task:
		batch := make([]*models.Task, len(*dest))
		for i := range *dest {
			batch[i] = &(*dest)[i]
		}
		validateBatch(db, batch)
	case []models.Task:
		batch := make([]*models.Task, len(dest))
		for i := range dest {
			batch[i] = &dest[i]
		}
		validateBatch(db, batch)
	case []*models.Task:
		validateBatch(db, dest)
	}
}

// Columns whose change can break a schedule rule.
var validatedColumns = map[string]bool{
	"schedule_id": true,
	"start_time":  true,
	"end_time":    true,
	"task_desc":   true,
}

// columnFilter reports whether an Update statement writes col, honoring
// Select and Omit.
func columnFilter(db *gorm.DB) func(col string) bool {
	selected, restricted := db.Statement.SelectAndOmitColumns(false, true)
	return func(col string) bool {
		v, ok := selected[col]
		if restricted {
			return ok && v
		}
		return !ok || v
	}
}

func mapAssignments(db *gorm.DB, values map[string]interface{}) map[string]interface{} {
	writes := columnFilter(db)
	assigned := make(map[string]interface{})
	for key, value := range values {
		col := key
		if db.Statement.Schema != nil {
			if field := db.Statement.Schema.LookUpField(key); field != nil {
				col = field.DBName
			}
		}
		if validatedColumns[col] && writes(col) {
			assigned[col] = value
		}
	}
	return assigned
}

// structAssignments mirrors gorm's struct Updates: zero fields are skipped
// unless selected explicitly.
func structAssignments(db *gorm.DB, task *models.Task) map[string]interface{} {
	writes := columnFilter(db)
	_, restricted := db.Statement.SelectAndOmitColumns(false, true)
	assigned := make(map[string]interface{})
	add := func(col string, value interface{}, zero bool) {
		if (!zero || restricted) && writes(col) {
			assigned[col] = value
		}
	}
	add("schedule_id", task.ScheduleID, task.ScheduleID.IsNil())
	add("start_time", task.StartTime, task.StartTime == 0)
	add("end_time", task.EndTime, task.EndTime == 0)
	add("task_desc", task.Description, task.Description == "")
	return assigned
}

// validateColumnUpdate merges the assigned columns into the stored row and
// validates the result. Writes that touch none of validatedColumns, such as
// toggling completed, are not checked.
func validateColumnUpdate(db *gorm.DB, model *models.Task, assigned map[string]interface{}) {
	if len(assigned) == 0 {
		return
	}
	if model.ID.IsNil() {
		db.AddError(fmt.Errorf("%w: task column updates need a task with an id", scheduling.ErrInvalidArgument))
		return
	}

	conn := db.Session(&gorm.Session{NewDB: true})
	var merged models.Task
	if err := conn.First(&merged, "id = ?", model.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			db.AddError(fmt.Errorf("task %s: %w", model.ID, scheduling.ErrNotFound))
			return
		}
		db.AddError(err)
		return
	}

	for col, value := range assigned {
		if err := assignColumn(&merged, col, value); err != nil {
			db.AddError(err)
			return
		}
	}
	validateBatch(db, []*models.Task{&merged})
}

func assignColumn(task *models.Task, col string, value interface{}) error {
	switch col {
	case "schedule_id":
		switch v := value.(type) {
		case uuid.UUID:
			task.ScheduleID = v
		case string:
			id, err := uuid.FromString(v)
			if err != nil {
				return fmt.Errorf("%w: schedule_id: %v", scheduling.ErrInvalidArgument, err)
			}
			task.ScheduleID = id
		default:
			return fmt.Errorf("%w: unsupported schedule_id value %T", scheduling.ErrInvalidArgument, value)
		}
	case "start_time", "end_time":
		tod, err := timeOfDayValue(value)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", scheduling.ErrInvalidArgument, col, err)
		}
		if col == "start_time" {
			task.StartTime = tod
		} else {
			task.EndTime = tod
		}
	case "task_desc":
		switch v := value.(type) {
		case string:
			task.Description = v
		case *string:
			if v == nil {
				return fmt.Errorf("%w: task_desc is nil", scheduling.ErrInvalidArgument)
			}
			task.Description = *v
		default:
			return fmt.Errorf("%w: unsupported task_desc value %T", scheduling.ErrInvalidArgument, value)
		}
	}
	return nil
}

func timeOfDayValue(value interface{}) (models.TimeOfDay, error) {
	switch v := value.(type) {
	case models.TimeOfDay:
		return v, nil
	case *models.TimeOfDay:
		if v != nil {
			return *v, nil
		}
		return 0, errors.New("nil time of day")
	case nil:
		return 0, errors.New("nil time of day")
	}
	var tod models.TimeOfDay
	if err := tod.Scan(value); err != nil {
		return 0, err
	}
	return tod, nil
}

func validateBatch(db *gorm.DB, batch []*models.Task) {
	conn := db.Session(&gorm.Session{NewDB: true})
	schedules := make(map[string]*models.Schedule)

	for _, task := range batch {
		key := task.ScheduleID.String()
		schedule, ok := schedules[key]
		if !ok {
			loaded, err := loadSchedule(conn, task)
			if err != nil {
				db.AddError(err)
				return
			}
			schedule = loaded
			schedules[key] = schedule
		}

		if err := scheduling.ValidateTask(schedule, task); err != nil {
			db.AddError(err)
			return
		}
		schedule.Tasks = append(schedule.Tasks, *task)
	}
}

func loadSchedule(conn *gorm.DB, task *models.Task) (*models.Schedule, error) {
	var schedule models.Schedule
	if err := conn.First(&schedule, "id = ?", task.ScheduleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("schedule %s: %w", task.ScheduleID, scheduling.ErrNotFound)
		}
		return nil, err
	}
	err := conn.Where("schedule_id = ?", schedule.ID).
		Order("start_time").
		Find(&schedule.Tasks).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}
