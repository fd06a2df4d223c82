package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shorif2005/projectflow/internal/middleware"
	"github.com/shorif2005/projectflow/internal/models"
	"github.com/shorif2005/projectflow/internal/services"
	appErrors "github.com/shorif2005/projectflow/pkg/errors"
	"github.com/shorif2005/projectflow/pkg/response"
)

// InviteHandler exposes the invitation ledger and the acceptance endpoint.
type InviteHandler struct {
	invites     *services.InviteService
	linking     *services.LinkingService
	signupState *services.SignupStateService
	users       *services.UserService
}

func NewInviteHandler(
	invites *services.InviteService,
	linking *services.LinkingService,
	signupState *services.SignupStateService,
	users *services.UserService,
) *InviteHandler {
	return &InviteHandler{
		invites:     invites,
		linking:     linking,
		signupState: signupState,
		users:       users,
	}
}

type createInviteRequest struct {
	Email     string `json:"email" validate:"required,email"`
	ProjectID string `json:"project_id" validate:"omitempty,uuid4"`
}

type acceptInviteRequest struct {
	Token string `json:"token" validate:"required"`
}

type inviteDTO struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	ProjectID  *string    `json:"project_id,omitempty"`
	Active     bool       `json:"active"`
	CreatedAt  time.Time  `json:"created_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
}

func toInviteDTO(invite *models.TaskInvite) inviteDTO {
	return inviteDTO{
		ID:         invite.ID,
		Email:      invite.Email,
		ProjectID:  invite.ProjectID,
		Active:     invite.Active,
		CreatedAt:  invite.CreatedAt,
		AcceptedAt: invite.AcceptedAt,
	}
}

// POST /api/invites
func (h *InviteHandler) Create(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req createInviteRequest
	if !bindAndValidate(c, &req) {
		return
	}

	var projectID *string
	if req.ProjectID != "" {
		projectID = &req.ProjectID
	}

	invite, err := h.invites.Create(requestContext(c), req.Email, userID, projectID)
	if errors.Is(err, services.ErrInviteQuotaExceeded) {
		response.Error(c, appErrors.New(
			"INVITE_QUOTA_EXCEEDED",
			"Daily invitation limit reached. Try again tomorrow.",
			http.StatusTooManyRequests,
		))
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"invite": toInviteDTO(invite)})
}

// GET /api/invites
func (h *InviteHandler) List(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	invites, err := h.invites.ListByInviter(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]inviteDTO, 0, len(invites))
	for i := range invites {
		out = append(out, toInviteDTO(&invites[i]))
	}
	response.Success(c, http.StatusOK, gin.H{"invites": out})
}

// POST /api/invites/accept
//
// Runs behind optional authentication: anonymous visitors are told whether to
// sign in or register, and registration gets a signup token carrying the
// invited email across the redirect.
func (h *InviteHandler) Accept(c *gin.Context) {
	var req acceptInviteRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)

	var current *models.User
	if userID := c.GetString(middleware.CtxUserIDKey); userID != "" {
		user, err := h.users.GetByID(ctx, userID)
		if err != nil {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}
		current = user
	}

	outcome, err := h.linking.OnAcceptInvite(ctx, req.Token, current)
	if errors.Is(err, services.ErrInviteNotFound) {
		response.Error(c, appErrors.NewNotFound("Invitation not found or already used"))
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	switch outcome.Action {
	case services.AcceptLinked:
		response.Success(c, http.StatusOK, gin.H{
			"action":         "linked",
			"tasks_linked":   outcome.Result.TasksLinked,
			"invites_closed": outcome.Result.InvitesClosed,
		})
	case services.AcceptLoginRequired:
		response.Success(c, http.StatusOK, gin.H{
			"action":        "login",
			"invited_email": outcome.InvitedEmail,
		})
	case services.AcceptRegistrationRequired:
		signupToken, err := h.signupState.Stash(ctx, outcome.InvitedEmail)
		if err != nil {
			response.Error(c, appErrors.ErrInternalServer)
			return
		}
		response.Success(c, http.StatusOK, gin.H{
			"action":        "register",
			"invited_email": outcome.InvitedEmail,
			"signup_token":  signupToken,
		})
	case services.AcceptWrongAccount:
		response.Error(c, appErrors.New(
			"INVITE_WRONG_ACCOUNT",
			"This invitation was sent to a different email address.",
			http.StatusConflict,
		))
	default:
		response.Error(c, appErrors.ErrInternalServer)
	}
}
