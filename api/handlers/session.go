// Package handlers provides HTTP API request handlers.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wagate/dashboard/internal/model"
	"github.com/wagate/dashboard/internal/session"
)

// SessionHandler handles HTTP requests for the sessions panel.
type SessionHandler struct {
	registry *session.Registry
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(registry *session.Registry) *SessionHandler {
	return &SessionHandler{registry: registry}
}

// SessionResponse represents a session in API responses.
type SessionResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	WorkerID    string `json:"workerId,omitempty"`
	Status      string `json:"status"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// StatusEventResponse represents one recorded status transition.
type StatusEventResponse struct {
	ID          string `json:"id"`
	SessionID   string `json:"sessionId"`
	Status      string `json:"status"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	OccurredAt  string `json:"occurredAt"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// toSessionResponse converts a model.Session to SessionResponse.
func toSessionResponse(s *model.Session) *SessionResponse {
	return &SessionResponse{
		ID:          s.ID,
		Name:        s.Name,
		WorkerID:    s.WorkerID,
		Status:      string(s.Status),
		PhoneNumber: s.PhoneNumber,
		DisplayName: s.DisplayName,
		CreatedAt:   s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   s.UpdatedAt.Format(time.RFC3339),
	}
}

// toEventResponse converts a model.StatusEvent to StatusEventResponse.
func toEventResponse(ev model.StatusEvent) StatusEventResponse {
	return StatusEventResponse{
		ID:          ev.ID,
		SessionID:   ev.SessionID,
		Status:      string(ev.Status),
		PhoneNumber: ev.PhoneNumber,
		DisplayName: ev.DisplayName,
		OccurredAt:  ev.OccurredAt.Format(time.RFC3339),
	}
}

// sendError sends an error response with the appropriate status code.
func sendError(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// sendActionError maps gateway proxy errors onto API error responses.
func sendActionError(c *gin.Context, action string, err error) {
	switch {
	case errors.Is(err, model.ErrSessionNotFound):
		sendError(c, http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found")
	case errors.Is(err, model.ErrTokenRequired):
		sendError(c, http.StatusBadGateway, "GATEWAY_AUTH", "Gateway rejected the API token")
	case errors.Is(err, model.ErrGatewayRejected):
		sendError(c, http.StatusConflict, "GATEWAY_REJECTED", err.Error())
	default:
		sendError(c, http.StatusBadGateway, "GATEWAY_ERROR", "Failed to "+action+" session: "+err.Error())
	}
}

// List handles GET /api/sessions - lists all tracked sessions with live status.
func (h *SessionHandler) List(c *gin.Context) {
	sessions := h.registry.List()

	response := make([]*SessionResponse, len(sessions))
	for i := range sessions {
		response[i] = toSessionResponse(&sessions[i])
	}
	c.JSON(http.StatusOK, response)
}

// Get handles GET /api/sessions/:id - gets a specific session.
func (h *SessionHandler) Get(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Session ID is required")
		return
	}

	sess, err := h.registry.Get(sessionID)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			sendError(c, http.StatusNotFound, "SESSION_NOT_FOUND", "Session "+sessionID+" not found")
			return
		}
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get session: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, toSessionResponse(sess))
}

// Connect handles POST /api/sessions/:id/connect.
func (h *SessionHandler) Connect(c *gin.Context) {
	h.proxyAction(c, "connect", h.registry.Connect)
}

// Disconnect handles POST /api/sessions/:id/disconnect.
func (h *SessionHandler) Disconnect(c *gin.Context) {
	h.proxyAction(c, "disconnect", h.registry.Disconnect)
}

// Restart handles POST /api/sessions/:id/restart.
func (h *SessionHandler) Restart(c *gin.Context) {
	h.proxyAction(c, "restart", h.registry.Restart)
}

// Logout handles POST /api/sessions/:id/logout.
func (h *SessionHandler) Logout(c *gin.Context) {
	h.proxyAction(c, "logout", h.registry.Logout)
}

// proxyAction forwards one lifecycle action to the gateway. The action is
// accepted, not completed: the resulting status transition arrives over the
// event channel.
func (h *SessionHandler) proxyAction(c *gin.Context, action string, fn func(ctx context.Context, id string) error) {
	sessionID := c.Param("id")
	if sessionID == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Session ID is required")
		return
	}

	if err := fn(c.Request.Context(), sessionID); err != nil {
		sendActionError(c, action, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

// History handles GET /api/sessions/:id/history - recorded status transitions,
// newest first. The limit query parameter caps the result (default 50).
func (h *SessionHandler) History(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Session ID is required")
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	events, err := h.registry.History(sessionID, limit)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load history: "+err.Error())
		return
	}

	response := make([]StatusEventResponse, len(events))
	for i, ev := range events {
		response[i] = toEventResponse(ev)
	}
	c.JSON(http.StatusOK, response)
}

// Activity handles GET /api/activity - the cross-session recent activity feed.
func (h *SessionHandler) Activity(c *gin.Context) {
	events := h.registry.Recent()
	response := make([]StatusEventResponse, len(events))
	for i, ev := range events {
		response[i] = toEventResponse(ev)
	}
	c.JSON(http.StatusOK, response)
}

// RegisterRoutes registers the session handler routes on a Gin router group.
func (h *SessionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sessions := rg.Group("/sessions")
	{
		sessions.GET("", h.List)
		sessions.GET("/:id", h.Get)
		sessions.GET("/:id/history", h.History)
		sessions.POST("/:id/connect", h.Connect)
		sessions.POST("/:id/disconnect", h.Disconnect)
		sessions.POST("/:id/restart", h.Restart)
		sessions.POST("/:id/logout", h.Logout)
	}
	rg.GET("/activity", h.Activity)
}
