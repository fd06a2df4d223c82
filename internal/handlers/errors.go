package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/shorif2005/projectflow/internal/services"
	appErrors "github.com/shorif2005/projectflow/pkg/errors"
	"github.com/shorif2005/projectflow/pkg/response"
)

// respondServiceError translates service sentinel errors into HTTP responses
// before falling back to the generic error writer.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrProjectNotFound):
		response.Error(c, appErrors.NewNotFound("Project not found"))
	case errors.Is(err, services.ErrTaskNotFound):
		response.Error(c, appErrors.NewNotFound("Task not found"))
	case errors.Is(err, services.ErrMessageNotFound):
		response.Error(c, appErrors.NewNotFound("Message not found"))
	case errors.Is(err, services.ErrUserNotFound):
		response.Error(c, appErrors.NewNotFound("User not found"))
	case errors.Is(err, services.ErrInviteNotFound):
		response.Error(c, appErrors.NewNotFound("Invitation not found or already used"))
	default:
		response.Error(c, err)
	}
}
