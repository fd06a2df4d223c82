package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/shorif2005/projectflow/internal/models"
	"github.com/shorif2005/projectflow/pkg/metrics"
)

// LinkResult reports what a reconciliation pass changed.
type LinkResult struct {
	TasksLinked   int64 `json:"tasks_linked"`
	InvitesClosed int64 `json:"invites_closed"`
}

// AcceptAction tells the caller what an invite acceptance attempt requires next.
type AcceptAction int

const (
	// AcceptLinked means the invite matched the current account and pending work
	// was linked.
	AcceptLinked AcceptAction = iota
	// AcceptLoginRequired means an account for the invited address exists but
	// nobody is signed in.
	AcceptLoginRequired
	// AcceptRegistrationRequired means no account exists for the invited address
	// yet; the caller should steer the visitor into registration.
	AcceptRegistrationRequired
	// AcceptWrongAccount means the signed-in account's email does not match the
	// invited address.
	AcceptWrongAccount
)

// AcceptOutcome describes the result of following an invite link.
type AcceptOutcome struct {
	Action       AcceptAction
	InvitedEmail string
	Result       LinkResult
}

// LinkingOption customises LinkingService behaviour.
type LinkingOption func(*LinkingService)

// WithLinkingClock injects a custom time source.
func WithLinkingClock(clock func() time.Time) LinkingOption {
	return func(s *LinkingService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// LinkingService converts pending email assignments into real ones. It runs on
// the three triggers where an email's owner becomes known: registration, invite
// acceptance, and dashboard visits.
type LinkingService struct {
	db       *gorm.DB
	invites  *InviteService
	activity *ActivityService
	now      func() time.Time
}

// NewLinkingService constructs a LinkingService with the provided dependencies.
// The activity service may be nil.
func NewLinkingService(db *gorm.DB, invites *InviteService, activity *ActivityService, opts ...LinkingOption) (*LinkingService, error) {
	if db == nil {
		return nil, errors.New("linking service: db is required")
	}
	if invites == nil {
		return nil, errors.New("linking service: invite service is required")
	}

	service := &LinkingService{db: db, invites: invites, activity: activity, now: time.Now}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// OnRegister links pending work to a freshly registered account.
func (s *LinkingService) OnRegister(ctx context.Context, user *models.User) (LinkResult, error) {
	return s.reconcile(ctx, user, "register")
}

// OnAcceptInvite resolves an invite token against the current visitor. The
// invite only closes once the matching account is signed in; anonymous visits
// and mismatched accounts leave the ledger untouched.
func (s *LinkingService) OnAcceptInvite(ctx context.Context, token string, current *models.User) (AcceptOutcome, error) {
	ctx = ensureContext(ctx)

	invite, err := s.invites.LookupByToken(ctx, token)
	if err != nil {
		return AcceptOutcome{}, err
	}

	outcome := AcceptOutcome{InvitedEmail: invite.Email}

	if current == nil {
		var registered int64
		err := s.db.WithContext(ctx).
			Model(&models.User{}).
			Where("email = ?", invite.Email).
			Count(&registered).Error
		if err != nil {
			return AcceptOutcome{}, fmt.Errorf("linking service: check account: %w", err)
		}
		if registered > 0 {
			outcome.Action = AcceptLoginRequired
		} else {
			outcome.Action = AcceptRegistrationRequired
		}
		return outcome, nil
	}

	if normalizeEmail(current.Email) != invite.Email {
		outcome.Action = AcceptWrongAccount
		return outcome, nil
	}

	result, err := s.reconcile(ctx, current, "accept")
	if err != nil {
		return AcceptOutcome{}, err
	}

	outcome.Action = AcceptLinked
	outcome.Result = result
	return outcome, nil
}

// OnDashboardVisit sweeps up pending work for a signed-in user. It is the
// safety net for invitees who registered without following their invite link.
func (s *LinkingService) OnDashboardVisit(ctx context.Context, user *models.User) (LinkResult, error) {
	ctx = ensureContext(ctx)

	if user == nil || user.ID == "" {
		return LinkResult{}, errors.New("linking service: user is required")
	}

	// Most visits have nothing to link; skip the write transaction entirely.
	email := normalizeEmail(user.Email)
	var pending int64
	err := s.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("assignee_email = ?", email).
		Count(&pending).Error
	if err != nil {
		return LinkResult{}, fmt.Errorf("linking service: count pending: %w", err)
	}
	if pending == 0 {
		open, err := s.invites.CountActiveForEmail(ctx, email)
		if err != nil {
			return LinkResult{}, err
		}
		if open == 0 {
			return LinkResult{}, nil
		}
	}

	return s.reconcile(ctx, user, "dashboard")
}

// reconcile binds every task parked on the user's email to the user and closes
// every open invitation for that address, in one transaction. Running it twice
// is harmless: the second pass matches nothing.
func (s *LinkingService) reconcile(ctx context.Context, user *models.User, trigger string) (LinkResult, error) {
	ctx = ensureContext(ctx)

	if user == nil || user.ID == "" {
		return LinkResult{}, errors.New("linking service: user is required")
	}
	email := normalizeEmail(user.Email)
	if email == "" {
		return LinkResult{}, errors.New("linking service: user email is required")
	}

	var result LinkResult
	now := s.now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tasks := tx.Model(&models.Task{}).
			Where("assignee_email = ?", email).
			Updates(map[string]any{"assignee_id": user.ID, "assignee_email": nil})
		if tasks.Error != nil {
			return fmt.Errorf("linking service: link tasks: %w", tasks.Error)
		}
		result.TasksLinked = tasks.RowsAffected

		invites := tx.Model(&models.TaskInvite{}).
			Where("email = ? AND active = ?", email, true).
			Updates(map[string]any{"active": false, "accepted_at": now})
		if invites.Error != nil {
			return fmt.Errorf("linking service: close invites: %w", invites.Error)
		}
		result.InvitesClosed = invites.RowsAffected

		return nil
	})
	if err != nil {
		return LinkResult{}, err
	}

	if result.TasksLinked > 0 {
		metrics.TasksLinked.WithLabelValues(strings.TrimSpace(trigger)).Add(float64(result.TasksLinked))
	}
	if result.TasksLinked > 0 || result.InvitesClosed > 0 {
		recordActivity(s.activity, ctx, ActivityEntry{
			UserID: &user.ID,
			Action: "tasks.link",
			Metadata: map[string]any{
				"trigger":        trigger,
				"tasks_linked":   result.TasksLinked,
				"invites_closed": result.InvitesClosed,
			},
		})
	}
	return result, nil
}
