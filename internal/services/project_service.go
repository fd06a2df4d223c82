package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/shorif2005/projectflow/internal/models"
	apperrors "github.com/shorif2005/projectflow/pkg/errors"
)

// ErrProjectNotFound indicates the requested project does not exist.
var ErrProjectNotFound = errors.New("project: not found")

// CreateProjectInput describes the fields accepted when creating a project.
type CreateProjectInput struct {
	Name        string
	Description string
	StartDate   time.Time
	EndDate     *time.Time
	ClientID    string
}

// UpdateProjectInput enumerates mutable project attributes.
type UpdateProjectInput struct {
	Name        *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
	ClientID    *string
}

// ProjectProgress summarises task completion for a project.
type ProjectProgress struct {
	Total   int64 `json:"total"`
	Done    int64 `json:"done"`
	Percent int   `json:"percent"`
}

// ProjectService manages project lifecycle and membership checks.
type ProjectService struct {
	db *gorm.DB
}

// NewProjectService constructs a ProjectService instance.
func NewProjectService(db *gorm.DB) (*ProjectService, error) {
	if db == nil {
		return nil, errors.New("project service: db is required")
	}
	return &ProjectService{db: db}, nil
}

// Create registers a new project managed by the actor.
func (s *ProjectService) Create(ctx context.Context, managerID string, input CreateProjectInput) (*models.Project, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}
	managerID = strings.TrimSpace(managerID)
	if managerID == "" {
		return nil, errors.New("project service: manager id is required")
	}

	project := &models.Project{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		ManagerID:   managerID,
	}
	if clientID := strings.TrimSpace(input.ClientID); clientID != "" {
		project.ClientID = &clientID
	}

	if err := s.db.WithContext(ctx).Create(project).Error; err != nil {
		return nil, fmt.Errorf("project service: create project: %w", err)
	}
	return project, nil
}

// Update persists mutable attributes. Only the manager may edit a project.
func (s *ProjectService) Update(ctx context.Context, actorID, projectID string, input UpdateProjectInput) (*models.Project, error) {
	ctx = ensureContext(ctx)

	project, err := s.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.ManagerID != strings.TrimSpace(actorID) {
		return nil, apperrors.ErrForbidden
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("name is required")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.StartDate != nil {
		updates["start_date"] = *input.StartDate
	}
	if input.EndDate != nil {
		updates["end_date"] = *input.EndDate
	}
	if input.ClientID != nil {
		if clientID := strings.TrimSpace(*input.ClientID); clientID == "" {
			updates["client_id"] = nil
		} else {
			updates["client_id"] = clientID
		}
	}
	if len(updates) == 0 {
		return project, nil
	}

	if err := s.db.WithContext(ctx).Model(project).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("project service: update project: %w", err)
	}
	return s.GetByID(ctx, projectID)
}

// Delete removes a project and, through cascade, its tasks and messages.
func (s *ProjectService) Delete(ctx context.Context, actorID, projectID string) error {
	ctx = ensureContext(ctx)

	project, err := s.GetByID(ctx, projectID)
	if err != nil {
		return err
	}
	if project.ManagerID != strings.TrimSpace(actorID) {
		return apperrors.ErrForbidden
	}

	if err := s.db.WithContext(ctx).Delete(project).Error; err != nil {
		return fmt.Errorf("project service: delete project: %w", err)
	}
	return nil
}

// GetByID loads a project with manager and client preloaded.
func (s *ProjectService) GetByID(ctx context.Context, id string) (*models.Project, error) {
	ctx = ensureContext(ctx)

	var project models.Project
	err := s.db.WithContext(ctx).
		Preload("Manager").
		Preload("Client").
		First(&project, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("project service: get project: %w", err)
	}
	return &project, nil
}

// ListForUser returns every project the user participates in: as manager, as
// client, or through an assigned task.
func (s *ProjectService) ListForUser(ctx context.Context, userID string) ([]models.Project, error) {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	var projects []models.Project
	err := s.db.WithContext(ctx).
		Distinct("projects.*").
		Joins("LEFT JOIN tasks ON tasks.project_id = projects.id").
		Where("projects.manager_id = ? OR projects.client_id = ? OR tasks.assignee_id = ?", userID, userID, userID).
		Order("projects.created_at DESC").
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("project service: list for user: %w", err)
	}
	return projects, nil
}

// Progress computes the completion percentage of a project's tasks.
func (s *ProjectService) Progress(ctx context.Context, projectID string) (ProjectProgress, error) {
	ctx = ensureContext(ctx)

	projectID = strings.TrimSpace(projectID)

	var progress ProjectProgress
	err := s.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("project_id = ?", projectID).
		Count(&progress.Total).Error
	if err != nil {
		return ProjectProgress{}, fmt.Errorf("project service: count tasks: %w", err)
	}
	if progress.Total == 0 {
		return progress, nil
	}

	err = s.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("project_id = ? AND status = ?", projectID, models.TaskStatusDone).
		Count(&progress.Done).Error
	if err != nil {
		return ProjectProgress{}, fmt.Errorf("project service: count done tasks: %w", err)
	}

	progress.Percent = int(progress.Done * 100 / progress.Total)
	return progress, nil
}

// IsTeamMember reports whether the user belongs to the project's team: the
// manager, the client, or any task assignee.
func (s *ProjectService) IsTeamMember(ctx context.Context, project *models.Project, userID string) (bool, error) {
	ctx = ensureContext(ctx)

	if project == nil {
		return false, errors.New("project service: project is required")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, nil
	}

	if project.ManagerID == userID {
		return true, nil
	}
	if project.ClientID != nil && *project.ClientID == userID {
		return true, nil
	}

	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("project_id = ? AND assignee_id = ?", project.ID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("project service: membership check: %w", err)
	}
	return count > 0, nil
}
