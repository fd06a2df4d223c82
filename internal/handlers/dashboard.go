package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shorif2005/projectflow/internal/middleware"
	"github.com/shorif2005/projectflow/internal/services"
	appErrors "github.com/shorif2005/projectflow/pkg/errors"
	"github.com/shorif2005/projectflow/pkg/response"
)

// DashboardHandler aggregates the signed-in user's working set. Every visit
// first sweeps up tasks still parked on the user's email.
type DashboardHandler struct {
	users    *services.UserService
	projects *services.ProjectService
	tasks    *services.TaskService
	linking  *services.LinkingService
}

func NewDashboardHandler(
	users *services.UserService,
	projects *services.ProjectService,
	tasks *services.TaskService,
	linking *services.LinkingService,
) *DashboardHandler {
	return &DashboardHandler{
		users:    users,
		projects: projects,
		tasks:    tasks,
		linking:  linking,
	}
}

// GET /api/dashboard
func (h *DashboardHandler) Get(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	ctx := requestContext(c)
	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	linked, err := h.linking.OnDashboardVisit(ctx, user)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	projects, err := h.projects.ListForUser(ctx, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	tasks, err := h.tasks.ListAssignedTo(ctx, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"projects":       projects,
		"tasks":          tasks,
		"tasks_linked":   linked.TasksLinked,
		"invites_closed": linked.InvitesClosed,
	})
}
