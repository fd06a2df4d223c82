package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/shorif2005/projectflow/internal/models"
	apperrors "github.com/shorif2005/projectflow/pkg/errors"
)

const maxChatMessageLength = 4000

// ErrMessageNotFound indicates the requested chat message does not exist.
var ErrMessageNotFound = errors.New("chat: message not found")

// ChatService persists the per-project chat feed. Posting and reading are
// limited to the project team.
type ChatService struct {
	db       *gorm.DB
	projects *ProjectService
}

// NewChatService constructs a ChatService with the provided dependencies.
func NewChatService(db *gorm.DB, projects *ProjectService) (*ChatService, error) {
	if db == nil {
		return nil, errors.New("chat service: db is required")
	}
	if projects == nil {
		return nil, errors.New("chat service: project service is required")
	}
	return &ChatService{db: db, projects: projects}, nil
}

// Post sanitises and stores a message on the project's feed.
func (s *ChatService) Post(ctx context.Context, projectID, userID, body string) (*models.ProjectMessage, error) {
	ctx = ensureContext(ctx)

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewBadRequest("message body is required")
	}
	if utf8.RuneCountInString(body) > maxChatMessageLength {
		return nil, apperrors.NewBadRequest("message body exceeds maximum length")
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	member, err := s.projects.IsTeamMember(ctx, project, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, apperrors.ErrForbidden
	}

	message := &models.ProjectMessage{
		ProjectID: project.ID,
		UserID:    strings.TrimSpace(userID),
		Body:      html.EscapeString(body),
	}
	if err := s.db.WithContext(ctx).Create(message).Error; err != nil {
		return nil, fmt.Errorf("chat service: post message: %w", err)
	}
	return message, nil
}

// List returns the project's messages in chronological order, team only.
func (s *ChatService) List(ctx context.Context, projectID, userID string, limit int, before time.Time) ([]models.ProjectMessage, error) {
	ctx = ensureContext(ctx)

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	member, err := s.projects.IsTeamMember(ctx, project, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, apperrors.ErrForbidden
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := s.db.WithContext(ctx).
		Model(&models.ProjectMessage{}).
		Preload("User").
		Where("project_id = ?", project.ID).
		Order("created_at DESC").
		Limit(limit)
	if !before.IsZero() {
		query = query.Where("created_at < ?", before)
	}

	var rows []models.ProjectMessage
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("chat service: list messages: %w", err)
	}

	// Reverse to chronological order
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// Delete removes a message. The author or the project manager may delete.
func (s *ChatService) Delete(ctx context.Context, projectID, messageID, actorID string) error {
	ctx = ensureContext(ctx)

	var message models.ProjectMessage
	err := s.db.WithContext(ctx).
		First(&message, "id = ? AND project_id = ?", strings.TrimSpace(messageID), strings.TrimSpace(projectID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrMessageNotFound
	}
	if err != nil {
		return fmt.Errorf("chat service: load message: %w", err)
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return err
	}

	actorID = strings.TrimSpace(actorID)
	if message.UserID != actorID && project.ManagerID != actorID {
		return apperrors.ErrForbidden
	}

	if err := s.db.WithContext(ctx).Delete(&message).Error; err != nil {
		return fmt.Errorf("chat service: delete message: %w", err)
	}
	return nil
}
