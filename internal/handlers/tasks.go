package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shorif2005/projectflow/internal/middleware"
	"github.com/shorif2005/projectflow/internal/models"
	"github.com/shorif2005/projectflow/internal/services"
	appErrors "github.com/shorif2005/projectflow/pkg/errors"
	"github.com/shorif2005/projectflow/pkg/response"
)

// TaskHandler exposes task CRUD and the email assignment flow.
type TaskHandler struct {
	tasks *services.TaskService
}

func NewTaskHandler(tasks *services.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

type createTaskRequest struct {
	Title         string    `json:"title" validate:"required,max=200"`
	Description   string    `json:"description" validate:"omitempty,max=4000"`
	Deadline      time.Time `json:"deadline"`
	Status        string    `json:"status" validate:"omitempty,oneof=todo in_progress done"`
	AssigneeID    string    `json:"assignee_id" validate:"omitempty,uuid4"`
	AssigneeEmail string    `json:"assignee_email" validate:"omitempty,email"`
}

type updateTaskRequest struct {
	Title         *string    `json:"title" validate:"omitempty,max=200"`
	Description   *string    `json:"description" validate:"omitempty,max=4000"`
	Deadline      *time.Time `json:"deadline"`
	Status        *string    `json:"status" validate:"omitempty,oneof=todo in_progress done"`
	AssigneeID    *string    `json:"assignee_id"`
	AssigneeEmail *string    `json:"assignee_email"`
}

type updateTaskStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=todo in_progress done"`
}

func assignmentLabel(result services.AssignmentResult) string {
	switch result {
	case services.AssignmentBound:
		return "bound"
	case services.AssignmentPendingInvited:
		return "pending_invited"
	case services.AssignmentPendingQuotaExceeded:
		return "pending_quota_exceeded"
	default:
		return "unassigned"
	}
}

// POST /api/projects/:id/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req createTaskRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if req.AssigneeID != "" && req.AssigneeEmail != "" {
		response.Error(c, appErrors.NewBadRequest("assignee_id and assignee_email are mutually exclusive"))
		return
	}

	task, result, err := h.tasks.Create(requestContext(c), userID, services.CreateTaskInput{
		ProjectID:     c.Param("id"),
		Title:         req.Title,
		Description:   req.Description,
		Deadline:      req.Deadline,
		Status:        models.TaskStatus(req.Status),
		AssigneeID:    req.AssigneeID,
		AssigneeEmail: req.AssigneeEmail,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"task":       task,
		"assignment": assignmentLabel(result),
	})
}

// GET /api/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	if c.GetString(middleware.CtxUserIDKey) == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	task, err := h.tasks.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"task": task})
}

// PUT /api/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req updateTaskRequest
	if !bindAndValidate(c, &req) {
		return
	}

	var status *models.TaskStatus
	if req.Status != nil {
		s := models.TaskStatus(*req.Status)
		status = &s
	}

	task, result, err := h.tasks.Update(requestContext(c), userID, c.Param("id"), services.UpdateTaskInput{
		Title:         req.Title,
		Description:   req.Description,
		Deadline:      req.Deadline,
		Status:        status,
		AssigneeID:    req.AssigneeID,
		AssigneeEmail: req.AssigneeEmail,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"task":       task,
		"assignment": assignmentLabel(result),
	})
}

// PATCH /api/tasks/:id/status
func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req updateTaskStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}

	task, err := h.tasks.UpdateStatus(requestContext(c), userID, c.Param("id"), models.TaskStatus(req.Status))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"task": task})
}

// DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.tasks.Delete(requestContext(c), userID, c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/tasks
func (h *TaskHandler) ListMine(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	tasks, err := h.tasks.ListAssignedTo(requestContext(c), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"tasks": tasks})
}
