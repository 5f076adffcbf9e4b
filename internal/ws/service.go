package ws

import (
	"github.com/wagate/dashboard/internal/model"
	"github.com/wagate/dashboard/internal/protocol"
)

// Service bundles a hub with its handler and offers typed broadcast helpers
// for the rest of the backend.
type Service struct {
	hub     *Hub
	handler *Handler
}

// NewService creates a hub plus handler pair. A nil validator accepts any
// non-empty token.
func NewService(validate TokenValidator) *Service {
	hub := NewHub()
	return &Service{
		hub:     hub,
		handler: NewHandler(hub, validate),
	}
}

// Handler returns the connection handler.
func (s *Service) Handler() *Handler {
	return s.handler
}

// Hub returns the room hub.
func (s *Service) Hub() *Hub {
	return s.hub
}

// BroadcastStatus pushes a status transition to the session's room.
func (s *Service) BroadcastStatus(sessionID string, status model.SessionStatus, phoneNumber, displayName string, timestamp int64) error {
	return s.hub.Broadcast(protocol.SessionStatusChanged{
		SessionID:   sessionID,
		Status:      status,
		PhoneNumber: phoneNumber,
		DisplayName: displayName,
		Timestamp:   timestamp,
	})
}

// BroadcastQR pushes a fresh QR payload to the session's room.
func (s *Service) BroadcastQR(sessionID, qrCode string, timestamp int64) error {
	return s.hub.Broadcast(protocol.QRCodeUpdated{
		SessionID: sessionID,
		QRCode:    qrCode,
		Timestamp: timestamp,
	})
}

// BroadcastError pushes a session-scoped error to the session's room.
func (s *Service) BroadcastError(sessionID, message string, timestamp int64) error {
	return s.hub.Broadcast(protocol.ConnectionError{
		SessionID: sessionID,
		Message:   message,
		Timestamp: timestamp,
	})
}

// ClientCount returns the number of attached clients.
func (s *Service) ClientCount() int {
	return s.hub.ClientCount()
}

// Close tears down every client connection.
func (s *Service) Close() {
	s.hub.Close()
}
