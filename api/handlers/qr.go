package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/wagate/dashboard/internal/model"
	"github.com/wagate/dashboard/internal/realtime"
	"github.com/wagate/dashboard/internal/session"
)

// QRHandler serves the current pairing QR code for a session.
type QRHandler struct {
	registry *session.Registry
}

// NewQRHandler creates a new QRHandler.
func NewQRHandler(registry *session.Registry) *QRHandler {
	return &QRHandler{registry: registry}
}

func (h *QRHandler) currentQR(c *gin.Context) (realtime.SessionView, bool) {
	sessionID := c.Param("id")
	if sessionID == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Session ID is required")
		return realtime.SessionView{}, false
	}

	view, err := h.registry.QR(sessionID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrSessionNotFound):
			sendError(c, http.StatusNotFound, "SESSION_NOT_FOUND", "Session "+sessionID+" not found")
		case errors.Is(err, model.ErrNoQRCode):
			sendError(c, http.StatusNotFound, "QR_NOT_AVAILABLE", "No pairing QR code is currently available")
		default:
			sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		}
		return realtime.SessionView{}, false
	}
	return view, true
}

// Get handles GET /api/sessions/:id/qr - the latest QR payload as JSON.
func (h *QRHandler) Get(c *gin.Context) {
	view, ok := h.currentQR(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessionId":           view.SessionID,
		"qrCode":              view.QRCode,
		"lastUpdateTimestamp": view.LastUpdate,
	})
}

// Image handles GET /api/sessions/:id/qr.png - the QR payload rendered as a
// PNG, for screens that cannot render the raw payload client-side. The size
// query parameter sets the edge length in pixels (default 256, max 1024).
func (h *QRHandler) Image(c *gin.Context) {
	size := 256
	if raw := c.Query("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 1024 {
			sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "size must be between 1 and 1024")
			return
		}
		size = parsed
	}

	view, ok := h.currentQR(c)
	if !ok {
		return
	}

	png, err := qrcode.Encode(view.QRCode, qrcode.Medium, size)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to render QR code: "+err.Error())
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

// RegisterRoutes registers the QR routes on a Gin router group.
func (h *QRHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/sessions/:id/qr", h.Get)
	rg.GET("/sessions/:id/qr.png", h.Image)
}
