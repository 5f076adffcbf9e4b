package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wagate/dashboard/internal/mock"
)

// PanelHandler serves the display-only panels (workers, users, plans). These
// are backed by fixture data; no gateway or database calls are involved.
type PanelHandler struct{}

// NewPanelHandler creates a new PanelHandler.
func NewPanelHandler() *PanelHandler {
	return &PanelHandler{}
}

// Workers handles GET /api/workers.
func (h *PanelHandler) Workers(c *gin.Context) {
	c.JSON(http.StatusOK, mock.Workers())
}

// Users handles GET /api/users.
func (h *PanelHandler) Users(c *gin.Context) {
	c.JSON(http.StatusOK, mock.Users())
}

// Plans handles GET /api/plans.
func (h *PanelHandler) Plans(c *gin.Context) {
	c.JSON(http.StatusOK, mock.Plans())
}

// RegisterRoutes registers the panel routes on a Gin router group.
func (h *PanelHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/workers", h.Workers)
	rg.GET("/users", h.Users)
	rg.GET("/plans", h.Plans)
}
