package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shorif2005/projectflow/internal/models"
	apperrors "github.com/shorif2005/projectflow/pkg/errors"
)

// ErrTaskNotFound indicates the requested task does not exist.
var ErrTaskNotFound = errors.New("task: not found")

// AssignmentResult reports how an email assignment was resolved.
type AssignmentResult int

const (
	// AssignmentNone means the task ended up unassigned.
	AssignmentNone AssignmentResult = iota
	// AssignmentBound means the address belonged to an existing account and the
	// task was bound to it directly.
	AssignmentBound
	// AssignmentPendingInvited means the task was parked on the address and an
	// invitation was recorded and sent.
	AssignmentPendingInvited
	// AssignmentPendingQuotaExceeded means the task was parked on the address
	// but the inviter's daily quota blocked the invitation.
	AssignmentPendingQuotaExceeded
)

// CreateTaskInput describes a new task. AssigneeID and AssigneeEmail are
// mutually exclusive; leaving both empty creates an unassigned task.
type CreateTaskInput struct {
	ProjectID     string
	Title         string
	Description   string
	Deadline      time.Time
	Status        models.TaskStatus
	AssigneeID    string
	AssigneeEmail string
}

// UpdateTaskInput enumerates mutable task attributes. AssigneeID and
// AssigneeEmail follow the same exclusivity rule as creation; setting either to
// an empty string clears the assignment.
type UpdateTaskInput struct {
	Title         *string
	Description   *string
	Deadline      *time.Time
	Status        *models.TaskStatus
	AssigneeID    *string
	AssigneeEmail *string
}

// TaskService manages task lifecycle and resolves assignments: a task handed to
// an email address either binds to the matching account or parks as pending
// with an invitation on the ledger.
type TaskService struct {
	db       *gorm.DB
	users    *UserService
	invites  *InviteService
	activity *ActivityService
}

// NewTaskService constructs a TaskService with the provided dependencies. The
// activity service may be nil.
func NewTaskService(db *gorm.DB, users *UserService, invites *InviteService, activity *ActivityService) (*TaskService, error) {
	if db == nil {
		return nil, errors.New("task service: db is required")
	}
	if users == nil {
		return nil, errors.New("task service: user service is required")
	}
	if invites == nil {
		return nil, errors.New("task service: invite service is required")
	}
	return &TaskService{db: db, users: users, invites: invites, activity: activity}, nil
}

// Create adds a task to a project. Only the project manager may add tasks.
func (s *TaskService) Create(ctx context.Context, actorID string, input CreateTaskInput) (*models.Task, AssignmentResult, error) {
	ctx = ensureContext(ctx)

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, AssignmentNone, apperrors.NewBadRequest("title is required")
	}
	if input.AssigneeID != "" && input.AssigneeEmail != "" {
		return nil, AssignmentNone, apperrors.NewBadRequest("assignee and assignee email are mutually exclusive")
	}

	project, err := s.loadProject(ctx, input.ProjectID)
	if err != nil {
		return nil, AssignmentNone, err
	}
	if project.ManagerID != strings.TrimSpace(actorID) {
		return nil, AssignmentNone, apperrors.ErrForbidden
	}

	status := input.Status
	if status == "" {
		status = models.TaskStatusTodo
	}
	if !status.Valid() {
		return nil, AssignmentNone, apperrors.NewBadRequest("invalid task status")
	}

	task := &models.Task{
		ProjectID:   project.ID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Deadline:    input.Deadline,
		Status:      status,
	}

	result := AssignmentNone
	if input.AssigneeID != "" {
		if _, err := s.users.GetByID(ctx, input.AssigneeID); err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return nil, AssignmentNone, apperrors.NewBadRequest("assignee does not exist")
			}
			return nil, AssignmentNone, err
		}
		task.BindTo(input.AssigneeID)
		result = AssignmentBound
	}

	if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, AssignmentNone, fmt.Errorf("task service: create task: %w", err)
	}

	if input.AssigneeEmail != "" {
		result, err = s.AssignByEmail(ctx, task, input.AssigneeEmail, actorID)
		if err != nil {
			return nil, AssignmentNone, err
		}
	}

	actor := strings.TrimSpace(actorID)
	recordActivity(s.activity, ctx, ActivityEntry{
		UserID:   &actor,
		Action:   "task.create",
		Resource: task.ID,
		Metadata: map[string]any{"project_id": task.ProjectID, "title": task.Title},
	})

	return task, result, nil
}

// AssignByEmail resolves an email assignment for the task. When the address
// belongs to a registered account the task binds to it immediately; otherwise
// the task parks as pending on the address and an invitation is attempted
// against the inviter's quota. A blown quota still parks the task.
func (s *TaskService) AssignByEmail(ctx context.Context, task *models.Task, email, inviterID string) (AssignmentResult, error) {
	ctx = ensureContext(ctx)

	if task == nil || task.ID == "" {
		return AssignmentNone, errors.New("task service: task is required")
	}
	email = normalizeEmail(email)
	if email == "" {
		return AssignmentNone, apperrors.NewBadRequest("assignee email is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return AssignmentNone, err
	}

	inviter := strings.TrimSpace(inviterID)

	if user != nil {
		task.BindTo(user.ID)
		if err := s.saveAssignment(ctx, task); err != nil {
			return AssignmentNone, err
		}
		recordActivity(s.activity, ctx, ActivityEntry{
			UserID:   &inviter,
			Action:   "task.assign.bound",
			Resource: task.ID,
			Metadata: map[string]any{"assignee_id": user.ID},
		})
		return AssignmentBound, nil
	}

	task.ParkForEmail(email)
	if err := s.saveAssignment(ctx, task); err != nil {
		return AssignmentNone, err
	}

	result := AssignmentPendingInvited
	_, err = s.invites.Create(ctx, email, inviter, &task.ProjectID)
	switch {
	case errors.Is(err, ErrInviteQuotaExceeded):
		result = AssignmentPendingQuotaExceeded
	case err != nil:
		return AssignmentNone, err
	}

	recordActivity(s.activity, ctx, ActivityEntry{
		UserID:   &inviter,
		Action:   "task.assign.pending",
		Resource: task.ID,
		Metadata: map[string]any{"email": email, "invited": result == AssignmentPendingInvited},
	})
	return result, nil
}

// Update persists mutable attributes for a task. Only the project manager may
// edit tasks; reassignment through AssigneeEmail goes through the resolver.
func (s *TaskService) Update(ctx context.Context, actorID, taskID string, input UpdateTaskInput) (*models.Task, AssignmentResult, error) {
	ctx = ensureContext(ctx)

	if input.AssigneeID != nil && input.AssigneeEmail != nil &&
		strings.TrimSpace(*input.AssigneeID) != "" && strings.TrimSpace(*input.AssigneeEmail) != "" {
		return nil, AssignmentNone, apperrors.NewBadRequest("assignee and assignee email are mutually exclusive")
	}

	task, err := s.GetByID(ctx, taskID)
	if err != nil {
		return nil, AssignmentNone, err
	}
	project, err := s.loadProject(ctx, task.ProjectID)
	if err != nil {
		return nil, AssignmentNone, err
	}
	if project.ManagerID != strings.TrimSpace(actorID) {
		return nil, AssignmentNone, apperrors.ErrForbidden
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, AssignmentNone, apperrors.NewBadRequest("title is required")
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = strings.TrimSpace(*input.Description)
	}
	if input.Deadline != nil {
		task.Deadline = *input.Deadline
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, AssignmentNone, apperrors.NewBadRequest("invalid task status")
		}
		task.Status = *input.Status
	}

	result := AssignmentNone
	switch task.Assignment().State {
	case models.AssignmentBoundToUser:
		result = AssignmentBound
	case models.AssignmentPendingEmail:
		result = AssignmentPendingInvited
	}

	assignByEmail := ""
	if input.AssigneeID != nil {
		id := strings.TrimSpace(*input.AssigneeID)
		if id == "" {
			task.ClearAssignment()
			result = AssignmentNone
		} else {
			if _, err := s.users.GetByID(ctx, id); err != nil {
				if errors.Is(err, ErrUserNotFound) {
					return nil, AssignmentNone, apperrors.NewBadRequest("assignee does not exist")
				}
				return nil, AssignmentNone, err
			}
			task.BindTo(id)
			result = AssignmentBound
		}
	}
	if input.AssigneeEmail != nil {
		addr := normalizeEmail(*input.AssigneeEmail)
		if addr == "" {
			task.ClearAssignment()
			result = AssignmentNone
		} else {
			assignByEmail = addr
		}
	}

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(task).Error; err != nil {
		return nil, AssignmentNone, fmt.Errorf("task service: update task: %w", err)
	}

	if assignByEmail != "" {
		result, err = s.AssignByEmail(ctx, task, assignByEmail, actorID)
		if err != nil {
			return nil, AssignmentNone, err
		}
	}

	return task, result, nil
}

// UpdateStatus moves a task through its lifecycle. The assignee or the project
// manager may change status.
func (s *TaskService) UpdateStatus(ctx context.Context, actorID, taskID string, status models.TaskStatus) (*models.Task, error) {
	ctx = ensureContext(ctx)

	if !status.Valid() {
		return nil, apperrors.NewBadRequest("invalid task status")
	}

	task, err := s.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	project, err := s.loadProject(ctx, task.ProjectID)
	if err != nil {
		return nil, err
	}

	actorID = strings.TrimSpace(actorID)
	isAssignee := task.AssigneeID != nil && *task.AssigneeID == actorID
	if !isAssignee && project.ManagerID != actorID {
		return nil, apperrors.ErrForbidden
	}

	if err := s.db.WithContext(ctx).Model(task).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("task service: update status: %w", err)
	}
	task.Status = status
	return task, nil
}

// Delete removes a task. Only the project manager may delete tasks.
func (s *TaskService) Delete(ctx context.Context, actorID, taskID string) error {
	ctx = ensureContext(ctx)

	task, err := s.GetByID(ctx, taskID)
	if err != nil {
		return err
	}
	project, err := s.loadProject(ctx, task.ProjectID)
	if err != nil {
		return err
	}
	if project.ManagerID != strings.TrimSpace(actorID) {
		return apperrors.ErrForbidden
	}

	if err := s.db.WithContext(ctx).Delete(task).Error; err != nil {
		return fmt.Errorf("task service: delete task: %w", err)
	}
	return nil
}

// GetByID loads a task with its assignee preloaded.
func (s *TaskService) GetByID(ctx context.Context, id string) (*models.Task, error) {
	ctx = ensureContext(ctx)

	var task models.Task
	err := s.db.WithContext(ctx).
		Preload("Assignee").
		First(&task, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("task service: get task: %w", err)
	}
	return &task, nil
}

// ListByProject returns the tasks of a project ordered by creation time.
func (s *TaskService) ListByProject(ctx context.Context, projectID string) ([]models.Task, error) {
	ctx = ensureContext(ctx)

	var tasks []models.Task
	err := s.db.WithContext(ctx).
		Preload("Assignee").
		Where("project_id = ?", strings.TrimSpace(projectID)).
		Order("created_at ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("task service: list by project: %w", err)
	}
	return tasks, nil
}

// ListAssignedTo returns the tasks bound to a user, newest deadline last.
func (s *TaskService) ListAssignedTo(ctx context.Context, userID string) ([]models.Task, error) {
	ctx = ensureContext(ctx)

	var tasks []models.Task
	err := s.db.WithContext(ctx).
		Preload("Project").
		Where("assignee_id = ?", strings.TrimSpace(userID)).
		Order("deadline ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("task service: list assigned: %w", err)
	}
	return tasks, nil
}

// CountPendingForEmail reports how many tasks are parked on the address.
func (s *TaskService) CountPendingForEmail(ctx context.Context, email string) (int64, error) {
	ctx = ensureContext(ctx)

	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("assignee_email = ?", normalizeEmail(email)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("task service: count pending: %w", err)
	}
	return count, nil
}

func (s *TaskService) saveAssignment(ctx context.Context, task *models.Task) error {
	err := s.db.WithContext(ctx).
		Model(task).
		Omit(clause.Associations).
		Updates(map[string]any{"assignee_id": task.AssigneeID, "assignee_email": task.AssigneeEmail}).Error
	if err != nil {
		return fmt.Errorf("task service: save assignment: %w", err)
	}
	return nil
}

func (s *TaskService) loadProject(ctx context.Context, projectID string) (*models.Project, error) {
	var project models.Project
	err := s.db.WithContext(ctx).First(&project, "id = ?", strings.TrimSpace(projectID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("task service: load project: %w", err)
	}
	return &project, nil
}
