// Package realtime maintains the dashboard's live link to the gateway's
// session event channel: a single authenticated WebSocket connection shared
// by any number of per-session subscriptions.
package realtime

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wagate/dashboard/internal/backoff"
	"github.com/wagate/dashboard/internal/metrics"
	"github.com/wagate/dashboard/internal/model"
	"github.com/wagate/dashboard/internal/protocol"
)

// State is the connection state of the shared transport.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateError        State = "error"
)

const (
	defaultMaxAttempts      = 5
	defaultBaseDelay        = time.Second
	defaultHandshakeTimeout = 10 * time.Second
	writeWait               = 10 * time.Second
)

// Config tunes the connection manager. The zero value gets usable defaults.
type Config struct {
	// URL is the WebSocket endpoint of the gateway event channel.
	URL string

	// MaxAttempts bounds automatic reconnection attempts (default 5).
	// Once exhausted the manager stays in the error state until the next
	// Acquire call.
	MaxAttempts int

	// BaseDelay is the initial reconnection delay (default 1s). Subsequent
	// attempts back off exponentially from it.
	BaseDelay time.Duration

	// Backoff overrides the delay policy entirely. When zero it is derived
	// from BaseDelay.
	Backoff backoff.Policy

	// HandshakeTimeout bounds the dial-plus-auth exchange (default 10s).
	HandshakeTimeout time.Duration

	// Dialer overrides the WebSocket dialer, used by tests.
	Dialer *websocket.Dialer
}

// Manager owns at most one live transport connection per token and shares it
// across subscriptions. Consumers acquire and release it explicitly; the
// transport closes when the last consumer releases.
type Manager struct {
	cfg    Config
	policy backoff.Policy
	dialer *websocket.Dialer

	mu      sync.Mutex
	writeMu sync.Mutex

	token   string
	refs    int
	state   State
	lastErr string
	conn    *websocket.Conn

	// gen identifies the current established connection instance; it
	// increments on every successful handshake so subscriptions can send
	// exactly one join per instance.
	gen int

	// epoch identifies the current acquire lifecycle; a bumped epoch tells
	// stale connect loops to exit.
	epoch  int
	stopCh chan struct{}

	observers    map[int]func(State, string)
	nextObserver int
	subs         map[*Subscription]struct{}
}

// NewManager creates a connection manager for the given endpoint. No
// connection is opened until Acquire is called with a token.
func NewManager(cfg Config) *Manager {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	policy := cfg.Backoff
	if policy == (backoff.Policy{}) {
		policy = backoff.Default()
		policy.Initial = cfg.BaseDelay
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &Manager{
		cfg:       cfg,
		policy:    policy,
		dialer:    dialer,
		state:     StateDisconnected,
		observers: make(map[int]func(State, string)),
		subs:      make(map[*Subscription]struct{}),
	}
}

// Acquire registers a consumer and ensures a transport exists for the token.
// A connection held for a different token is torn down first. Repeated calls
// with the same token while connected or connecting are idempotent; calling
// again after automatic retries are exhausted forces a fresh attempt.
func (m *Manager) Acquire(token string) {
	m.mu.Lock()
	m.refs++

	if token == "" {
		m.setStateLocked(StateError, model.ErrTokenRequired.Error())
		m.mu.Unlock()
		return
	}

	if token == m.token && (m.state == StateConnected || m.state == StateConnecting) {
		m.mu.Unlock()
		return
	}

	m.teardownLocked()
	m.token = token
	m.epoch++
	m.stopCh = make(chan struct{})
	m.setStateLocked(StateConnecting, "")

	epoch, stop := m.epoch, m.stopCh
	m.mu.Unlock()

	go m.run(epoch, token, stop)
}

// Release signals that a consumer no longer needs the connection. When the
// last consumer releases, the transport is closed and no further automatic
// reconnection occurs.
func (m *Manager) Release() {
	m.mu.Lock()
	if m.refs > 0 {
		m.refs--
	}
	if m.refs > 0 {
		m.mu.Unlock()
		return
	}
	m.teardownLocked()
	m.token = ""
	m.setStateLocked(StateDisconnected, "")
	m.mu.Unlock()
}

// Snapshot returns the current connection state and last error message.
func (m *Manager) Snapshot() (State, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.lastErr
}

// Observe registers a callback invoked on every state transition. It is
// called immediately with the current state and returns a cancel func.
func (m *Manager) Observe(fn func(State, string)) func() {
	m.mu.Lock()
	id := m.nextObserver
	m.nextObserver++
	m.observers[id] = fn
	state, lastErr := m.state, m.lastErr
	m.mu.Unlock()

	fn(state, lastErr)

	return func() {
		m.mu.Lock()
		delete(m.observers, id)
		m.mu.Unlock()
	}
}

// teardownLocked closes the current transport and invalidates any running
// connect loop. Callers hold m.mu.
func (m *Manager) teardownLocked() {
	m.epoch++
	if m.stopCh != nil {
		close(m.stopCh)
		m.stopCh = nil
	}
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
}

// setStateLocked updates state and notifies observers. Callers hold m.mu;
// observer callbacks run on a fresh goroutine to keep the lock short.
func (m *Manager) setStateLocked(state State, errMsg string) {
	if m.state == state && m.lastErr == errMsg {
		return
	}
	m.state = state
	m.lastErr = errMsg
	metrics.GatewayConnectionState.Set(stateGaugeValue(state))

	observers := make([]func(State, string), 0, len(m.observers))
	for _, fn := range m.observers {
		observers = append(observers, fn)
	}
	go func() {
		for _, fn := range observers {
			fn(state, errMsg)
		}
	}()
}

func stateGaugeValue(state State) float64 {
	switch state {
	case StateConnecting:
		return 1
	case StateConnected:
		return 2
	case StateError:
		return 3
	}
	return 0
}

// run is the connect-and-read loop for one acquire epoch. It dials, performs
// the auth handshake, resends room joins, then reads until the transport
// fails, retrying with bounded backoff.
func (m *Manager) run(epoch int, token string, stop <-chan struct{}) {
	attempt := 0
	for {
		if attempt > 0 {
			metrics.ReconnectAttempts.Inc()
			select {
			case <-stop:
				return
			case <-time.After(m.policy.Delay(attempt)):
			}
		}
		if m.stale(epoch) {
			return
		}

		conn, err := m.handshake(token)
		if err != nil {
			attempt++
			m.transition(epoch, StateError, err.Error())
			if attempt >= m.cfg.MaxAttempts {
				zap.L().Warn("event channel reconnect attempts exhausted",
					zap.Int("attempts", attempt), zap.Error(err))
				return
			}
			continue
		}

		m.mu.Lock()
		if epoch != m.epoch {
			m.mu.Unlock()
			conn.Close()
			return
		}
		m.conn = conn
		m.gen++
		gen := m.gen
		subs := make([]*Subscription, 0, len(m.subs))
		for s := range m.subs {
			subs = append(subs, s)
		}
		m.setStateLocked(StateConnected, "")
		m.mu.Unlock()

		// Room membership does not survive a reconnect; every active
		// subscription rejoins on this connection instance.
		for _, s := range subs {
			s.maybeJoin(gen)
		}

		err = m.readLoop(epoch, conn)
		if m.stale(epoch) {
			return
		}
		m.transition(epoch, StateError, err.Error())
		attempt = 1
	}
}

// handshake dials the endpoint and presents the token as the first frame,
// expecting a connected ack before any other traffic.
func (m *Manager) handshake(token string) (*websocket.Conn, error) {
	conn, _, err := m.dialer.Dial(m.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial event channel: %w", err)
	}

	deadline := time.Now().Add(m.cfg.HandshakeTimeout)
	frame, err := protocol.EncodeClient(protocol.Auth{Token: token})
	if err != nil {
		conn.Close()
		return nil, err
	}
	conn.SetWriteDeadline(deadline)
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send auth: %w", err)
	}

	conn.SetReadDeadline(deadline)
	_, data, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("read handshake ack: %w", err)
	}
	ev, err := protocol.DecodeServer(data)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("decode handshake ack: %w", err)
	}
	if _, ok := ev.(protocol.Connected); !ok {
		conn.Close()
		return nil, fmt.Errorf("unexpected handshake ack %T", ev)
	}

	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Time{})
	return conn, nil
}

// readLoop decodes inbound frames and dispatches them to subscriptions until
// the transport fails.
func (m *Manager) readLoop(epoch int, conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		ev, err := protocol.DecodeServer(data)
		if err != nil {
			// Malformed or unknown frames are dropped, never fatal.
			zap.L().Debug("dropping undecodable frame", zap.Error(err))
			continue
		}
		metrics.EventsReceived.WithLabelValues(string(kindOf(ev))).Inc()
		m.dispatch(ev)
	}
}

func kindOf(ev protocol.ServerEvent) protocol.Kind {
	switch ev.(type) {
	case protocol.Connected:
		return protocol.KindConnected
	case protocol.SessionJoined:
		return protocol.KindSessionJoined
	case protocol.QRCodeUpdated:
		return protocol.KindQRCodeUpdated
	case protocol.SessionStatusChanged:
		return protocol.KindSessionStatusChanged
	case protocol.ConnectionError:
		return protocol.KindConnectionError
	}
	return ""
}

// dispatch routes a session-scoped event to every active subscription; each
// subscription filters by its own session id.
func (m *Manager) dispatch(ev protocol.ServerEvent) {
	if protocol.SessionID(ev) == "" {
		return
	}
	m.mu.Lock()
	subs := make([]*Subscription, 0, len(m.subs))
	for s := range m.subs {
		subs = append(subs, s)
	}
	m.mu.Unlock()

	for _, s := range subs {
		s.handle(ev)
	}
}

// send writes a client message on the current transport. It fails when no
// connected transport exists; subscription joins and leaves treat that as
// "defer until the next connected transition".
func (m *Manager) send(msg protocol.ClientMessage) error {
	frame, err := protocol.EncodeClient(msg)
	if err != nil {
		return err
	}

	m.mu.Lock()
	conn := m.conn
	state := m.state
	m.mu.Unlock()
	if conn == nil || state != StateConnected {
		return fmt.Errorf("event channel not connected")
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, frame)
}

func (m *Manager) stale(epoch int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return epoch != m.epoch
}

// transition updates state unless the epoch went stale in the meantime.
func (m *Manager) transition(epoch int, state State, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch != m.epoch {
		return
	}
	if state == StateError && m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.setStateLocked(state, errMsg)
}

func (m *Manager) removeSub(s *Subscription) {
	m.mu.Lock()
	delete(m.subs, s)
	m.mu.Unlock()
}
