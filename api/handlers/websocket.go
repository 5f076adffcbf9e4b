package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wagate/dashboard/internal/ws"
)

// WebSocketHandler exposes the browser-facing event channel.
type WebSocketHandler struct {
	events *ws.Service
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(events *ws.Service) *WebSocketHandler {
	return &WebSocketHandler{events: events}
}

// Attach handles WS /api/ws - upgrades the request and services the event
// channel protocol. Authentication happens in-band: the first frame must be
// an auth message.
func (h *WebSocketHandler) Attach(c *gin.Context) {
	if err := h.events.Handler().HandleConnection(c.Writer, c.Request); err != nil {
		zap.L().Debug("event channel upgrade failed", zap.Error(err))
	}
}

// RegisterRoutes registers the WebSocket route on a Gin router group.
func (h *WebSocketHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ws", h.Attach)
}
