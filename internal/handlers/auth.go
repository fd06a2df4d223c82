package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/shorif2005/projectflow/internal/auth"
	"github.com/shorif2005/projectflow/internal/middleware"
	"github.com/shorif2005/projectflow/internal/models"
	"github.com/shorif2005/projectflow/internal/services"
	appErrors "github.com/shorif2005/projectflow/pkg/errors"
	"github.com/shorif2005/projectflow/pkg/response"
)

// AuthHandler manages registration, verification, and session flows.
type AuthHandler struct {
	users       *services.UserService
	otp         *services.OTPService
	linking     *services.LinkingService
	signupState *services.SignupStateService
	sessions    *iauth.SessionService
}

func NewAuthHandler(
	users *services.UserService,
	otp *services.OTPService,
	linking *services.LinkingService,
	signupState *services.SignupStateService,
	sessions *iauth.SessionService,
) *AuthHandler {
	return &AuthHandler{
		users:       users,
		otp:         otp,
		linking:     linking,
		signupState: signupState,
		sessions:    sessions,
	}
}

type registerRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=64"`
	Email       string `json:"email" validate:"omitempty,email"`
	Password    string `json:"password" validate:"required,min=8"`
	SignupToken string `json:"signup_token" validate:"omitempty"`
}

type verifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func userDTO(user *models.User) gin.H {
	return gin.H{
		"id":        user.ID,
		"username":  user.Username,
		"email":     user.Email,
		"is_active": user.IsActive,
	}
}

// POST /api/auth/register
//
// When the visitor arrived through an invite link, the signup token recovers
// the invited email so the invitation survives the redirect to registration.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)

	email := strings.ToLower(strings.TrimSpace(req.Email))
	signupToken := strings.TrimSpace(req.SignupToken)
	if signupToken != "" {
		invited, ok, err := h.signupState.Peek(ctx, signupToken)
		if err != nil {
			response.Error(c, appErrors.ErrInternalServer)
			return
		}
		if ok {
			if email == "" {
				email = invited
			} else if email != invited {
				response.Error(c, appErrors.NewBadRequest("email must match the invited address"))
				return
			}
		}
	}
	if email == "" {
		response.Error(c, appErrors.NewBadRequest("email is required"))
		return
	}

	user, err := h.users.Create(ctx, services.CreateUserInput{
		Username: req.Username,
		Email:    email,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.otp.RequestVerification(ctx, user); err != nil {
		response.Error(c, appErrors.New("OTP_DELIVERY_FAILED", "Could not send verification code", http.StatusBadGateway).WithInternal(err))
		return
	}

	if signupToken != "" {
		_ = h.signupState.Clear(ctx, signupToken)
	}

	response.Success(c, http.StatusCreated, gin.H{
		"user":    userDTO(user),
		"message": "Verification code sent. Check your inbox.",
	})
}

// POST /api/auth/verify-email
//
// Proving email ownership activates the account and immediately links any
// tasks and invitations waiting on that address.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)

	user, err := h.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, services.ErrUserNotFound) {
		response.Error(c, appErrors.NewBadRequest("invalid verification code"))
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.otp.Validate(ctx, user.ID, req.Code); err != nil {
		switch {
		case errors.Is(err, services.ErrOTPExpired):
			response.Error(c, appErrors.NewBadRequest("verification code expired"))
		case errors.Is(err, services.ErrOTPInvalid):
			response.Error(c, appErrors.NewBadRequest("invalid verification code"))
		default:
			response.Error(c, err)
		}
		return
	}

	if err := h.users.Activate(ctx, user.ID); err != nil {
		response.Error(c, err)
		return
	}
	user.IsActive = true

	linked, err := h.linking.OnRegister(ctx, user)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user":           userDTO(user),
		"tasks_linked":   linked.TasksLinked,
		"invites_closed": linked.InvitesClosed,
	})
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)

	user, err := h.users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	pair, _, err := h.sessions.CreateSession(user.ID, iauth.SessionMetadata{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	_ = h.users.RecordLogin(ctx, user.ID, c.ClientIP())

	response.Success(c, http.StatusOK, gin.H{
		"tokens": tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken},
		"user":   userDTO(user),
	})
}

// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}

	pair, _, err := h.sessions.RefreshSession(strings.TrimSpace(req.RefreshToken))
	if err != nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	response.Success(c, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	sid := c.GetString(middleware.CtxSessionIDKey)
	if sid == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.sessions.RevokeSession(sid); err != nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	user, err := h.users.GetByID(requestContext(c), userID)
	if err != nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": userDTO(user)})
}

// POST /api/auth/forgot-password
//
// The response never reveals whether the address has an account.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)

	user, err := h.users.GetByEmail(ctx, req.Email)
	if err == nil {
		_ = h.otp.RequestPasswordReset(ctx, user)
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "If the address has an account, a reset code is on its way.",
	})
}

// POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)

	user, err := h.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, services.ErrUserNotFound) {
		response.Error(c, appErrors.NewBadRequest("invalid reset code"))
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.otp.Validate(ctx, user.ID, req.Code); err != nil {
		switch {
		case errors.Is(err, services.ErrOTPExpired):
			response.Error(c, appErrors.NewBadRequest("reset code expired"))
		case errors.Is(err, services.ErrOTPInvalid):
			response.Error(c, appErrors.NewBadRequest("invalid reset code"))
		default:
			response.Error(c, err)
		}
		return
	}

	if err := h.users.UpdatePassword(ctx, user.ID, req.NewPassword); err != nil {
		response.Error(c, err)
		return
	}

	// Force re-authentication everywhere after a reset.
	_ = h.sessions.RevokeUserSessions(user.ID)

	response.Success(c, http.StatusOK, gin.H{"message": "Password updated. Sign in with your new password."})
}
