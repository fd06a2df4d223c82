package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shorif2005/projectflow/internal/middleware"
	"github.com/shorif2005/projectflow/internal/services"
	appErrors "github.com/shorif2005/projectflow/pkg/errors"
	"github.com/shorif2005/projectflow/pkg/response"
)

// ActivityHandler serves the signed-in user's activity feed.
type ActivityHandler struct {
	activity *services.ActivityService
}

func NewActivityHandler(activity *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{activity: activity}
}

// GET /api/activity
func (h *ActivityHandler) List(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	page := parseIntQuery(c, "page", 1)
	pageSize := parseIntQuery(c, "page_size", 50)

	entries, total, err := h.activity.List(requestContext(c), services.ActivityListOptions{
		Page:     page,
		PageSize: pageSize,
		Filters:  services.ActivityFilters{UserID: userID},
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	response.SuccessWithMeta(c, http.StatusOK, gin.H{"entries": entries}, &response.Meta{
		Page:       page,
		PerPage:    pageSize,
		Total:      int(total),
		TotalPages: totalPages,
	})
}
