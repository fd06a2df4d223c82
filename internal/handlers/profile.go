package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shorif2005/projectflow/internal/middleware"
	"github.com/shorif2005/projectflow/internal/services"
	appErrors "github.com/shorif2005/projectflow/pkg/errors"
	"github.com/shorif2005/projectflow/pkg/response"
)

// ProfileHandler serves the signed-in user's profile.
type ProfileHandler struct {
	users *services.UserService
}

func NewProfileHandler(users *services.UserService) *ProfileHandler {
	return &ProfileHandler{users: users}
}

type updateProfileRequest struct {
	AvatarURL   *string `json:"avatar_url" validate:"omitempty,url"`
	GitHubURL   *string `json:"github_url" validate:"omitempty,url"`
	LinkedInURL *string `json:"linkedin_url" validate:"omitempty,url"`
	Address     *string `json:"address" validate:"omitempty,max=500"`
	Occupation  *string `json:"occupation" validate:"omitempty,max=120"`
}

// GET /api/profile
func (h *ProfileHandler) Get(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	profile, err := h.users.GetProfile(requestContext(c), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"profile": profile})
}

// PUT /api/profile
func (h *ProfileHandler) Update(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req updateProfileRequest
	if !bindAndValidate(c, &req) {
		return
	}

	profile, err := h.users.UpdateProfile(requestContext(c), userID, services.UpdateProfileInput{
		AvatarURL:   req.AvatarURL,
		GitHubURL:   req.GitHubURL,
		LinkedInURL: req.LinkedInURL,
		Address:     req.Address,
		Occupation:  req.Occupation,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"profile": profile})
}
