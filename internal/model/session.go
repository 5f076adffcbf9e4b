package model

import (
	"time"
)

// SessionStatus represents the connection status of a WhatsApp session as
// reported by the gateway.
type SessionStatus string

const (
	SessionStatusDisconnected SessionStatus = "DISCONNECTED"
	SessionStatusQRRequired   SessionStatus = "QR_REQUIRED"
	SessionStatusConnecting   SessionStatus = "CONNECTING"
	SessionStatusConnected    SessionStatus = "CONNECTED"
	SessionStatusReconnecting SessionStatus = "RECONNECTING"
	SessionStatusError        SessionStatus = "ERROR"
)

// Valid reports whether the status is one of the known gateway statuses.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusDisconnected, SessionStatusQRRequired, SessionStatusConnecting,
		SessionStatusConnected, SessionStatusReconnecting, SessionStatusError:
		return true
	}
	return false
}

// Session represents a WhatsApp session managed by the upstream gateway.
// The dashboard never creates sessions itself; it mirrors what the gateway
// reports and overlays live status received over the event channel.
type Session struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	WorkerID    string        `json:"workerId,omitempty"`
	Status      SessionStatus `json:"status"`
	PhoneNumber string        `json:"phoneNumber,omitempty"`
	DisplayName string        `json:"displayName,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// StatusEvent is one recorded status transition for a session. Events are
// appended to the history store and the recent-activity feed as they arrive
// over the event channel.
type StatusEvent struct {
	ID          string        `json:"id"`
	SessionID   string        `json:"sessionId"`
	Status      SessionStatus `json:"status"`
	PhoneNumber string        `json:"phoneNumber,omitempty"`
	DisplayName string        `json:"displayName,omitempty"`
	OccurredAt  time.Time     `json:"occurredAt"`
}
