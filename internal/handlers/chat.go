package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shorif2005/projectflow/internal/middleware"
	"github.com/shorif2005/projectflow/internal/services"
	appErrors "github.com/shorif2005/projectflow/pkg/errors"
	"github.com/shorif2005/projectflow/pkg/response"
)

// ChatHandler serves the per-project chat feed.
type ChatHandler struct {
	chat *services.ChatService
}

func NewChatHandler(chat *services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type postMessageRequest struct {
	Body string `json:"body" validate:"required,max=4000"`
}

// GET /api/projects/:id/messages
func (h *ChatHandler) List(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	limit := parseIntQuery(c, "limit", 50)
	var before time.Time
	if raw := strings.TrimSpace(c.Query("before")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.NewBadRequest("before must be an RFC 3339 timestamp"))
			return
		}
		before = parsed
	}

	messages, err := h.chat.List(requestContext(c), c.Param("id"), userID, limit, before)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"messages": messages})
}

// POST /api/projects/:id/messages
func (h *ChatHandler) Post(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req postMessageRequest
	if !bindAndValidate(c, &req) {
		return
	}

	message, err := h.chat.Post(requestContext(c), c.Param("id"), userID, req.Body)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"message": message})
}

// DELETE /api/projects/:id/messages/:messageID
func (h *ChatHandler) Delete(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	err := h.chat.Delete(requestContext(c), c.Param("id"), c.Param("messageID"), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
