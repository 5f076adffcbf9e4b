// Package protocol defines the wire messages exchanged over the session
// event channel. Messages are decoded exactly once at the transport boundary
// into a discriminated union; everything past that point dispatches on Go
// types rather than event-name strings.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/wagate/dashboard/internal/model"
)

// Kind discriminates wire messages in both directions.
type Kind string

const (
	// Client -> Server
	KindAuth         Kind = "auth"
	KindJoinSession  Kind = "join_session"
	KindLeaveSession Kind = "leave_session"

	// Server -> Client
	KindConnected            Kind = "connected"
	KindSessionJoined        Kind = "session_joined"
	KindQRCodeUpdated        Kind = "qr_code_updated"
	KindSessionStatusChanged Kind = "session_status_changed"
	KindConnectionError      Kind = "connection_error"
)

// envelope is the flat JSON frame carried on the wire. Kind selects which
// fields are meaningful.
type envelope struct {
	Type        Kind                `json:"type"`
	Token       string              `json:"token,omitempty"`
	SessionID   string              `json:"sessionId,omitempty"`
	QRCode      string              `json:"qrCode,omitempty"`
	Status      model.SessionStatus `json:"status,omitempty"`
	PhoneNumber string              `json:"phoneNumber,omitempty"`
	DisplayName string              `json:"displayName,omitempty"`
	Message     string              `json:"message,omitempty"`
	Timestamp   int64               `json:"timestamp,omitempty"`
}

// ClientMessage is a message sent from the dashboard (or a browser) to the
// event channel server.
type ClientMessage interface {
	clientMessage()
}

// Auth presents the bearer token during the handshake. It must be the first
// frame after the transport opens.
type Auth struct {
	Token string
}

// JoinSession registers interest in one session's events.
type JoinSession struct {
	SessionID string
}

// LeaveSession withdraws interest. Fire-and-forget; the server does not ack.
type LeaveSession struct {
	SessionID string
}

func (Auth) clientMessage()         {}
func (JoinSession) clientMessage()  {}
func (LeaveSession) clientMessage() {}

// ServerEvent is a message pushed from the event channel server to a client.
type ServerEvent interface {
	serverEvent()
}

// Connected confirms a successful handshake.
type Connected struct{}

// SessionJoined acknowledges a successful room join.
type SessionJoined struct {
	SessionID string
}

// QRCodeUpdated carries a fresh QR payload for a session awaiting pairing.
type QRCodeUpdated struct {
	SessionID string
	QRCode    string
	Timestamp int64
}

// SessionStatusChanged is an authoritative status push for a session.
type SessionStatusChanged struct {
	SessionID   string
	Status      model.SessionStatus
	PhoneNumber string
	DisplayName string
	Timestamp   int64
}

// ConnectionError reports a session-scoped error on the gateway side.
type ConnectionError struct {
	SessionID string
	Message   string
	Timestamp int64
}

func (Connected) serverEvent()            {}
func (SessionJoined) serverEvent()        {}
func (QRCodeUpdated) serverEvent()        {}
func (SessionStatusChanged) serverEvent() {}
func (ConnectionError) serverEvent()      {}

// EncodeClient marshals a client message into a wire frame.
func EncodeClient(msg ClientMessage) ([]byte, error) {
	var env envelope
	switch m := msg.(type) {
	case Auth:
		env = envelope{Type: KindAuth, Token: m.Token}
	case JoinSession:
		env = envelope{Type: KindJoinSession, SessionID: m.SessionID}
	case LeaveSession:
		env = envelope{Type: KindLeaveSession, SessionID: m.SessionID}
	default:
		return nil, fmt.Errorf("protocol: unknown client message %T", msg)
	}
	return json.Marshal(env)
}

// DecodeClient parses a wire frame received by the server side.
func DecodeClient(data []byte) (ClientMessage, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("protocol: malformed frame: %w", err)
	}
	switch env.Type {
	case KindAuth:
		return Auth{Token: env.Token}, nil
	case KindJoinSession:
		if env.SessionID == "" {
			return nil, fmt.Errorf("protocol: %s without sessionId", env.Type)
		}
		return JoinSession{SessionID: env.SessionID}, nil
	case KindLeaveSession:
		if env.SessionID == "" {
			return nil, fmt.Errorf("protocol: %s without sessionId", env.Type)
		}
		return LeaveSession{SessionID: env.SessionID}, nil
	default:
		return nil, fmt.Errorf("protocol: unknown client message kind %q", env.Type)
	}
}

// EncodeServer marshals a server event into a wire frame.
func EncodeServer(ev ServerEvent) ([]byte, error) {
	var env envelope
	switch e := ev.(type) {
	case Connected:
		env = envelope{Type: KindConnected}
	case SessionJoined:
		env = envelope{Type: KindSessionJoined, SessionID: e.SessionID}
	case QRCodeUpdated:
		env = envelope{Type: KindQRCodeUpdated, SessionID: e.SessionID, QRCode: e.QRCode, Timestamp: e.Timestamp}
	case SessionStatusChanged:
		env = envelope{
			Type:        KindSessionStatusChanged,
			SessionID:   e.SessionID,
			Status:      e.Status,
			PhoneNumber: e.PhoneNumber,
			DisplayName: e.DisplayName,
			Timestamp:   e.Timestamp,
		}
	case ConnectionError:
		env = envelope{Type: KindConnectionError, SessionID: e.SessionID, Message: e.Message, Timestamp: e.Timestamp}
	default:
		return nil, fmt.Errorf("protocol: unknown server event %T", ev)
	}
	return json.Marshal(env)
}

// DecodeServer parses a wire frame received by a client. Unknown kinds and
// malformed payloads yield an error; callers drop such frames.
func DecodeServer(data []byte) (ServerEvent, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("protocol: malformed frame: %w", err)
	}
	switch env.Type {
	case KindConnected:
		return Connected{}, nil
	case KindSessionJoined:
		if env.SessionID == "" {
			return nil, fmt.Errorf("protocol: %s without sessionId", env.Type)
		}
		return SessionJoined{SessionID: env.SessionID}, nil
	case KindQRCodeUpdated:
		if env.SessionID == "" {
			return nil, fmt.Errorf("protocol: %s without sessionId", env.Type)
		}
		return QRCodeUpdated{SessionID: env.SessionID, QRCode: env.QRCode, Timestamp: env.Timestamp}, nil
	case KindSessionStatusChanged:
		if env.SessionID == "" {
			return nil, fmt.Errorf("protocol: %s without sessionId", env.Type)
		}
		if !env.Status.Valid() {
			return nil, fmt.Errorf("protocol: unknown session status %q", env.Status)
		}
		return SessionStatusChanged{
			SessionID:   env.SessionID,
			Status:      env.Status,
			PhoneNumber: env.PhoneNumber,
			DisplayName: env.DisplayName,
			Timestamp:   env.Timestamp,
		}, nil
	case KindConnectionError:
		if env.SessionID == "" {
			return nil, fmt.Errorf("protocol: %s without sessionId", env.Type)
		}
		return ConnectionError{SessionID: env.SessionID, Message: env.Message, Timestamp: env.Timestamp}, nil
	default:
		return nil, fmt.Errorf("protocol: unknown server event kind %q", env.Type)
	}
}

// SessionID returns the session an event is scoped to, or "" for
// connection-level events.
func SessionID(ev ServerEvent) string {
	switch e := ev.(type) {
	case SessionJoined:
		return e.SessionID
	case QRCodeUpdated:
		return e.SessionID
	case SessionStatusChanged:
		return e.SessionID
	case ConnectionError:
		return e.SessionID
	}
	return ""
}
