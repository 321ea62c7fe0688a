package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"day-planner/backend/internal/forms"
	"day-planner/backend/internal/middleware"
	"day-planner/backend/internal/models"
	"day-planner/backend/internal/monitoring"
	"day-planner/backend/internal/scheduling"
	"day-planner/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"
)

type OwnerStore interface {
	Ensure(ctx context.Context, owner *models.Owner) (*models.Owner, error)
}

type ScheduleResolver interface {
	CurrentSchedule(ctx context.Context, owner *models.Owner) (*models.Schedule, error)
}

type ScheduleLoader interface {
	FindWithTasks(ctx context.Context, id uuid.UUID) (*models.Schedule, error)
}

// ScheduleHandler serves the current day's task list of the authenticated
// owner.
type ScheduleHandler struct {
	owners    OwnerStore
	resolver  ScheduleResolver
	schedules ScheduleLoader
	tasks     services.TaskService
	metrics   *monitoring.Metrics
	log       zerolog.Logger
}

func NewScheduleHandler(
	owners OwnerStore,
	resolver ScheduleResolver,
	schedules ScheduleLoader,
	tasks services.TaskService,
	metrics *monitoring.Metrics,
	log zerolog.Logger,
) *ScheduleHandler {
	return &ScheduleHandler{
		owners:    owners,
		resolver:  resolver,
		schedules: schedules,
		tasks:     tasks,
		metrics:   metrics,
		log:       log.With().Str("component", "schedule_handler").Logger(),
	}
}

func (h *ScheduleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/create-task", h.CreateTask)
	rg.POST("/update-task", h.UpdateTask)
	rg.POST("/delete-task", h.DeleteTask)
	rg.POST("/update-task-status", h.UpdateTaskStatus)
	rg.GET("/tasks", h.ListTasks)
	rg.POST("/tasks", h.ListTasks)
}

// TaskRef names an existing task of the current schedule.
type TaskRef struct {
	TaskID string `form:"task_id" json:"task_id"`
}

type updateTaskRequest struct {
	TaskRef
	forms.TaskForm
}

type taskResponse struct {
	TaskID    uuid.UUID `json:"taskId"`
	StartTime string    `json:"taskStartTime"`
	EndTime   string    `json:"taskEndTime"`
	TaskDesc  string    `json:"taskDesc"`
}

func newTaskResponse(task *models.Task) taskResponse {
	return taskResponse{
		TaskID:    task.ID,
		StartTime: task.StartTime.Format(),
		EndTime:   task.EndTime.Format(),
		TaskDesc:  task.Description,
	}
}

// currentSchedule resolves today's schedule of the request's owner with its
// tasks loaded.
func (h *ScheduleHandler) currentSchedule(c *gin.Context) (*models.Schedule, error) {
	claimed, ok := middleware.OwnerFromContext(c)
	if !ok {
		return nil, fmt.Errorf("%w: no owner on request", scheduling.ErrPermission)
	}

	ctx := c.Request.Context()
	owner, err := h.owners.Ensure(ctx, claimed)
	if err != nil {
		return nil, err
	}
	schedule, err := h.resolver.CurrentSchedule(ctx, owner)
	if err != nil {
		return nil, err
	}
	return h.schedules.FindWithTasks(ctx, schedule.ID)
}

func (h *ScheduleHandler) CreateTask(c *gin.Context) {
	var form forms.TaskForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	schedule, err := h.currentSchedule(c)
	if err != nil {
		h.handleError(c, err, "")
		return
	}

	cleaned, ok := h.validate(c, form, schedule, uuid.Nil)
	if !ok {
		return
	}

	task, err := h.tasks.CreateTask(c.Request.Context(), schedule.ID, toInput(cleaned))
	if err != nil {
		h.handleError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(task))
}

func (h *ScheduleHandler) UpdateTask(c *gin.Context) {
	var req updateTaskRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	schedule, err := h.currentSchedule(c)
	if err != nil {
		h.handleError(c, err, req.TaskID)
		return
	}

	taskID, ok := findTask(schedule, req.TaskID)
	if !ok {
		taskNotFound(c, req.TaskID)
		return
	}

	cleaned, ok := h.validate(c, req.TaskForm, schedule, taskID)
	if !ok {
		return
	}

	task, err := h.tasks.UpdateTask(c.Request.Context(), schedule.ID, taskID, toInput(cleaned))
	if err != nil {
		h.handleError(c, err, req.TaskID)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(task))
}

func (h *ScheduleHandler) DeleteTask(c *gin.Context) {
	var ref TaskRef
	if err := c.ShouldBind(&ref); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	schedule, err := h.currentSchedule(c)
	if err != nil {
		h.handleError(c, err, ref.TaskID)
		return
	}

	taskID, err := uuid.FromString(ref.TaskID)
	if err != nil {
		taskNotFound(c, ref.TaskID)
		return
	}
	if err := h.tasks.DeleteTask(c.Request.Context(), schedule.ID, taskID); err != nil {
		h.handleError(c, err, ref.TaskID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"taskId": taskID})
}

func (h *ScheduleHandler) UpdateTaskStatus(c *gin.Context) {
	var ref TaskRef
	if err := c.ShouldBind(&ref); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	schedule, err := h.currentSchedule(c)
	if err != nil {
		h.handleError(c, err, ref.TaskID)
		return
	}

	taskID, err := uuid.FromString(ref.TaskID)
	if err != nil {
		taskNotFound(c, ref.TaskID)
		return
	}
	completed, err := h.tasks.ToggleCompleted(c.Request.Context(), schedule.ID, taskID)
	if err != nil {
		h.handleError(c, err, ref.TaskID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task_id": taskID, "completed": completed})
}

func (h *ScheduleHandler) ListTasks(c *gin.Context) {
	schedule, err := h.currentSchedule(c)
	if err != nil {
		h.handleError(c, err, "")
		return
	}

	tasks, err := h.tasks.ListTasks(c.Request.Context(), schedule.ID)
	if err != nil {
		h.handleError(c, err, "")
		return
	}

	views := make([]models.TaskView, len(tasks))
	for i, task := range tasks {
		views[i] = task.View()
	}
	c.JSON(http.StatusOK, gin.H{"TASKS": views})
}

// validate runs the form against schedule and writes the 400 response when
// it fails.
func (h *ScheduleHandler) validate(c *gin.Context, form forms.TaskForm, schedule *models.Schedule, exclude uuid.UUID) (forms.Cleaned, bool) {
	cleaned, fieldErrs, err := form.Validate(schedule, exclude)
	if err != nil {
		h.handleError(c, err, "")
		return forms.Cleaned{}, false
	}
	if len(fieldErrs) > 0 {
		for field := range fieldErrs {
			h.recordRejection(field, "form")
		}
		h.log.Debug().Interface("errors", fieldErrs).Str("schedule_id", schedule.ID.String()).Msg("task form rejected")
		c.JSON(http.StatusBadRequest, gin.H{"FORM_ERRORS": fieldErrs})
		return forms.Cleaned{}, false
	}
	return cleaned, true
}

func (h *ScheduleHandler) recordRejection(field, code string) {
	if h.metrics != nil {
		h.metrics.RecordRejection(field, code)
	}
}

func (h *ScheduleHandler) handleError(c *gin.Context, err error, taskID string) {
	if fieldErrs, ok := forms.FromError(err); ok {
		var vErr *scheduling.ValidationError
		if errors.As(err, &vErr) {
			h.recordRejection(vErr.Field, vErr.Code)
		}
		h.log.Debug().Err(err).Msg("task write rejected")
		c.JSON(http.StatusBadRequest, gin.H{"FORM_ERRORS": fieldErrs})
		return
	}

	if errors.Is(err, scheduling.ErrNotFound) && taskID != "" {
		taskNotFound(c, taskID)
		return
	}

	h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("failed to process task request")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process task request"})
}

func taskNotFound(c *gin.Context, taskID string) {
	c.JSON(http.StatusNotFound, gin.H{"ERROR": fmt.Sprintf("Could not retrieve task(%s)", taskID)})
}

func findTask(schedule *models.Schedule, raw string) (uuid.UUID, bool) {
	id, err := uuid.FromString(raw)
	if err != nil {
		return uuid.Nil, false
	}
	for _, t := range schedule.Tasks {
		if t.ID == id {
			return id, true
		}
	}
	return uuid.Nil, false
}

func toInput(cleaned forms.Cleaned) services.TaskInput {
	return services.TaskInput{
		StartTime:   cleaned.StartTime,
		EndTime:     cleaned.EndTime,
		Description: cleaned.TaskDesc,
	}
}
