package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shorif2005/projectflow/internal/models"
	"github.com/shorif2005/projectflow/pkg/crypto"
	"github.com/shorif2005/projectflow/pkg/mail"
	"github.com/shorif2005/projectflow/pkg/metrics"
)

const (
	defaultInviteDailyLimit = 10
	defaultInviteTokenBytes = 48
)

var (
	// ErrInviteNotFound indicates no active invite matches the provided token.
	ErrInviteNotFound = errors.New("invite: not found")
	// ErrInviteQuotaExceeded signals the inviter reached their daily invite limit.
	ErrInviteQuotaExceeded = errors.New("invite: daily quota exceeded")
)

// InviteOption customises InviteService behaviour.
type InviteOption func(*InviteService)

// WithInviteBaseURL configures the base URL used to build acceptance links.
func WithInviteBaseURL(url string) InviteOption {
	return func(s *InviteService) {
		s.baseURL = strings.TrimRight(url, "/")
	}
}

// WithInviteDailyLimit overrides the per-inviter daily invite quota.
func WithInviteDailyLimit(limit int) InviteOption {
	return func(s *InviteService) {
		if limit > 0 {
			s.dailyLimit = limit
		}
	}
}

// WithInviteTokenSize adjusts the random token length in bytes.
func WithInviteTokenSize(size int) InviteOption {
	return func(s *InviteService) {
		if size > 0 {
			s.tokenLength = size
		}
	}
}

// WithInviteClock injects a custom clock primarily for testing.
func WithInviteClock(clock func() time.Time) InviteOption {
	return func(s *InviteService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithInviteLogger attaches a logger for delivery diagnostics.
func WithInviteLogger(logger *zap.Logger) InviteOption {
	return func(s *InviteService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// InviteService is the ledger of task invitations. It enforces the daily
// per-inviter quota and owns the lifecycle of invite tokens.
type InviteService struct {
	db          *gorm.DB
	mailer      mail.Mailer
	logger      *zap.Logger
	baseURL     string
	dailyLimit  int
	tokenLength int
	now         func() time.Time
}

// NewInviteService constructs an InviteService with the provided dependencies.
func NewInviteService(db *gorm.DB, mailer mail.Mailer, opts ...InviteOption) (*InviteService, error) {
	if db == nil {
		return nil, errors.New("invite service: db is required")
	}

	service := &InviteService{
		db:          db,
		mailer:      mailer,
		logger:      zap.NewNop(),
		dailyLimit:  defaultInviteDailyLimit,
		tokenLength: defaultInviteTokenBytes,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// DailyLimit reports the configured per-inviter quota.
func (s *InviteService) DailyLimit() int {
	return s.dailyLimit
}

// Create records a new invitation for the given email address, charged against
// the inviter's daily quota, and dispatches the invite email. The quota counts
// every invite the inviter created since local midnight, including invites that
// have been accepted since; an invite that clears the quota check is never
// rolled back by a later delivery failure.
func (s *InviteService) Create(ctx context.Context, email, inviterID string, projectID *string) (*models.TaskInvite, error) {
	ctx = ensureContext(ctx)

	email = normalizeEmail(email)
	if email == "" {
		return nil, errors.New("invite service: email is required")
	}
	inviterID = strings.TrimSpace(inviterID)
	if inviterID == "" {
		return nil, errors.New("invite service: inviter id is required")
	}

	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	invite := &models.TaskInvite{
		Email:     email,
		InviterID: inviterID,
		ProjectID: projectID,
		Active:    true,
	}
	// Stamp with the service clock so the quota window and the rows it counts
	// agree under an injected time source.
	invite.CreatedAt = now
	invite.UpdatedAt = now

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var used int64
		if err := tx.Model(&models.TaskInvite{}).
			Where("inviter_id = ? AND created_at >= ?", inviterID, startOfDay).
			Count(&used).Error; err != nil {
			return fmt.Errorf("invite service: count invites: %w", err)
		}
		if used >= int64(s.dailyLimit) {
			return ErrInviteQuotaExceeded
		}

		// Collisions on the token column are vanishingly rare; retry once
		// with a fresh token before giving up.
		for attempt := 0; attempt < 2; attempt++ {
			token, err := crypto.GenerateToken(s.tokenLength)
			if err != nil {
				return fmt.Errorf("invite service: generate token: %w", err)
			}
			invite.Token = token
			invite.ID = ""

			err = tx.Create(invite).Error
			if err == nil {
				return nil
			}
			if !isUniqueConstraintError(err) || attempt == 1 {
				return fmt.Errorf("invite service: create invite: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInviteQuotaExceeded) {
			metrics.InvitesCreated.WithLabelValues("quota_exceeded").Inc()
			return nil, ErrInviteQuotaExceeded
		}
		return nil, err
	}

	metrics.InvitesCreated.WithLabelValues("created").Inc()
	s.deliver(ctx, invite)

	return invite, nil
}

// LookupByToken resolves an active invite by its raw token.
func (s *InviteService) LookupByToken(ctx context.Context, token string) (*models.TaskInvite, error) {
	ctx = ensureContext(ctx)

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInviteNotFound
	}

	var invite models.TaskInvite
	err := s.db.WithContext(ctx).
		Where("token = ? AND active = ?", token, true).
		First(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invite service: find invite: %w", err)
	}
	return &invite, nil
}

// CountActiveForEmail reports how many open invitations target the address.
func (s *InviteService) CountActiveForEmail(ctx context.Context, email string) (int64, error) {
	ctx = ensureContext(ctx)

	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.TaskInvite{}).
		Where("email = ? AND active = ?", normalizeEmail(email), true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("invite service: count for email: %w", err)
	}
	return count, nil
}

// ListByInviter returns the invitations a user has sent, newest first.
func (s *InviteService) ListByInviter(ctx context.Context, inviterID string) ([]models.TaskInvite, error) {
	ctx = ensureContext(ctx)

	var invites []models.TaskInvite
	err := s.db.WithContext(ctx).
		Where("inviter_id = ?", strings.TrimSpace(inviterID)).
		Order("created_at DESC").
		Find(&invites).Error
	if err != nil {
		return nil, fmt.Errorf("invite service: list by inviter: %w", err)
	}
	return invites, nil
}

// Close marks the invite accepted. Closing an already closed invite is a no-op.
func (s *InviteService) Close(ctx context.Context, invite *models.TaskInvite) error {
	ctx = ensureContext(ctx)

	if invite == nil || invite.ID == "" {
		return errors.New("invite service: invite is required")
	}
	if !invite.Active {
		return nil
	}

	now := s.now()
	err := s.db.WithContext(ctx).
		Model(invite).
		Updates(map[string]any{"active": false, "accepted_at": now}).Error
	if err != nil {
		return fmt.Errorf("invite service: close invite: %w", err)
	}

	invite.Active = false
	invite.AcceptedAt = &now
	return nil
}

// AcceptanceLink builds the URL an invitee follows to accept the invite.
func (s *InviteService) AcceptanceLink(token string) string {
	if s.baseURL == "" {
		return token
	}
	return fmt.Sprintf("%s/invites/accept?token=%s", s.baseURL, token)
}

// deliver sends the invite email. Delivery is best effort: the invite stays on
// the ledger even when the message cannot be sent.
func (s *InviteService) deliver(ctx context.Context, invite *models.TaskInvite) {
	if s.mailer == nil {
		return
	}

	link := s.AcceptanceLink(invite.Token)
	message := mail.Message{
		To:      []string{invite.Email},
		Subject: "You've been assigned a task on ProjectFlow",
		Body: fmt.Sprintf("Hello,\n\nA task on ProjectFlow has been assigned to %s. "+
			"Accept the invitation to claim it:\n%s\n\nIf you did not expect this email, you can ignore it.\n",
			invite.Email, link),
	}

	if err := s.mailer.Send(ctx, message); err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
		s.logger.Warn("invite email delivery failed",
			zap.String("invite_id", invite.ID),
			zap.Error(err))
	}
}
