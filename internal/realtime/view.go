package realtime

import (
	"github.com/wagate/dashboard/internal/model"
	"github.com/wagate/dashboard/internal/protocol"
)

// SessionView is the reconciled, UI-consumable snapshot of one session's
// latest known state on the event channel.
type SessionView struct {
	SessionID   string              `json:"sessionId"`
	Status      model.SessionStatus `json:"status"`
	QRCode      string              `json:"qrCode,omitempty"`
	PhoneNumber string              `json:"phoneNumber,omitempty"`
	DisplayName string              `json:"displayName,omitempty"`
	LastError   string              `json:"lastError,omitempty"`
	LastUpdate  int64               `json:"lastUpdateTimestamp,omitempty"` // unix ms
}

// reconcile folds one inbound event into a view. Events scoped to a
// different session leave the view untouched; applying the same event twice
// yields the same view. The returned bool reports whether anything changed.
func reconcile(view SessionView, ev protocol.ServerEvent) (SessionView, bool) {
	if id := protocol.SessionID(ev); id == "" || id != view.SessionID {
		return view, false
	}

	next := view
	switch e := ev.(type) {
	case protocol.SessionJoined:
		// Informational ack; subscription state tracks it, the view does not.
	case protocol.QRCodeUpdated:
		next.QRCode = e.QRCode
		next.LastUpdate = e.Timestamp
	case protocol.SessionStatusChanged:
		next.Status = e.Status
		next.PhoneNumber = e.PhoneNumber
		next.DisplayName = e.DisplayName
		next.LastUpdate = e.Timestamp
		if e.Status == model.SessionStatusConnected {
			// A connected session never has an actionable QR code.
			next.QRCode = ""
		}
	case protocol.ConnectionError:
		next.LastError = e.Message
		next.LastUpdate = e.Timestamp
	}
	return next, next != view
}
