package ws

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wagate/dashboard/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed for the client to present its auth frame.
	authWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the dashboard origin once it is deployed behind a fixed host
		return true
	},
}

// TokenValidator decides whether a handshake token is acceptable.
type TokenValidator func(token string) bool

// Handler upgrades HTTP requests, runs the auth handshake, and services the
// join/leave protocol for one hub.
type Handler struct {
	hub           *Hub
	validateToken TokenValidator

	mu        sync.RWMutex
	onMessage func(client *Client, msg protocol.ClientMessage)
}

// NewHandler creates a handler for the hub. A nil validator accepts any
// non-empty token.
func NewHandler(hub *Hub, validate TokenValidator) *Handler {
	if validate == nil {
		validate = func(token string) bool { return token != "" }
	}
	return &Handler{hub: hub, validateToken: validate}
}

// SetOnMessage registers a callback observing every decoded client message
// after the handshake. Tests use it to assert join/leave traffic.
func (h *Handler) SetOnMessage(fn func(client *Client, msg protocol.ClientMessage)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onMessage = fn
}

// HandleConnection upgrades the request and services the event channel
// protocol until the peer disconnects.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	if err := h.performHandshake(conn); err != nil {
		zap.L().Debug("event channel handshake rejected", zap.Error(err))
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed"),
			time.Now().Add(writeWait))
		conn.Close()
		return nil
	}

	client := NewClient(h.hub, conn)
	h.hub.Register(client)

	go h.writePump(client)
	go h.readPump(client)
	return nil
}

// performHandshake reads the first frame, which must be an auth message with
// an acceptable token, and acks with a connected frame.
func (h *Handler) performHandshake(conn *websocket.Conn) error {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(authWait))

	_, data, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read auth frame: %w", err)
	}
	msg, err := protocol.DecodeClient(data)
	if err != nil {
		return fmt.Errorf("decode auth frame: %w", err)
	}
	auth, ok := msg.(protocol.Auth)
	if !ok {
		return fmt.Errorf("expected auth frame, got %T", msg)
	}
	if !h.validateToken(auth.Token) {
		return fmt.Errorf("token rejected")
	}

	ack, err := protocol.EncodeServer(protocol.Connected{})
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, ack); err != nil {
		return fmt.Errorf("send connected ack: %w", err)
	}
	return nil
}

// handleMessage services one decoded client message.
func (h *Handler) handleMessage(client *Client, msg protocol.ClientMessage) {
	h.mu.RLock()
	observe := h.onMessage
	h.mu.RUnlock()
	if observe != nil {
		observe(client, msg)
	}

	switch m := msg.(type) {
	case protocol.JoinSession:
		snapshot, hasSnapshot := h.hub.Join(client, m.SessionID)
		ack, err := protocol.EncodeServer(protocol.SessionJoined{SessionID: m.SessionID})
		if err != nil {
			return
		}
		client.Send(ack)
		// Push the room's last known status so the joiner does not wait
		// for the next transition.
		if hasSnapshot {
			if data, err := protocol.EncodeServer(snapshot); err == nil {
				client.Send(data)
			}
		}
	case protocol.LeaveSession:
		h.hub.Leave(client, m.SessionID)
	case protocol.Auth:
		// Re-auth after the handshake is a no-op.
	}
}

// readPump pumps messages from the WebSocket connection into the hub.
func (h *Handler) readPump(client *Client) {
	defer func() {
		h.hub.Unregister(client)
		client.Conn().Close()
	}()

	client.Conn().SetReadLimit(maxMessageSize)
	client.Conn().SetReadDeadline(time.Now().Add(pongWait))
	client.Conn().SetPongHandler(func(string) error {
		client.Conn().SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := client.Conn().ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.L().Debug("event channel read error", zap.Error(err))
			}
			break
		}

		msg, err := protocol.DecodeClient(data)
		if err != nil {
			zap.L().Debug("dropping undecodable client frame", zap.Error(err))
			continue
		}
		h.handleMessage(client, msg)
	}
}

// writePump pumps queued frames to the WebSocket connection and keeps the
// peer alive with pings.
func (h *Handler) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn().Close()
	}()

	for {
		select {
		case message, ok := <-client.SendChan():
			client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn().WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One frame per message so clients can parse each event alone.
			if err := client.Conn().WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			n := len(client.SendChan())
			for i := 0; i < n; i++ {
				queued := <-client.SendChan()
				client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.Conn().WriteMessage(websocket.TextMessage, queued); err != nil {
					return
				}
			}
		case <-ticker.C:
			client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn().WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
