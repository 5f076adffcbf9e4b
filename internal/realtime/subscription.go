package realtime

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wagate/dashboard/internal/model"
	"github.com/wagate/dashboard/internal/protocol"
)

// SubscriptionState tracks where a subscription is in its lifecycle.
type SubscriptionState string

const (
	// SubscriptionPending means the join request has not been acked yet
	// (or could not be sent because the transport is down).
	SubscriptionPending SubscriptionState = "pending"
	// SubscriptionJoined means the server acked the room join.
	SubscriptionJoined SubscriptionState = "joined"
	// SubscriptionLeft is terminal; no callbacks fire after it.
	SubscriptionLeft SubscriptionState = "left"
)

// Subscription tracks one session's events on the shared connection and
// folds them into a view model. Create with Manager.Subscribe; dispose with
// Unsubscribe.
type Subscription struct {
	m         *Manager
	sessionID string

	mu        sync.Mutex
	view      SessionView
	state     SubscriptionState
	joinedGen int
	observers map[int]func(SessionView)
	nextObs   int
	closed    bool
}

// Subscribe registers interest in one session's events. If the connection is
// already up, the join request goes out immediately; otherwise it is sent the
// moment the connection next transitions into the connected state, and again
// after every reconnect.
func (m *Manager) Subscribe(sessionID string) *Subscription {
	s := &Subscription{
		m:         m,
		sessionID: sessionID,
		view: SessionView{
			SessionID: sessionID,
			Status:    model.SessionStatusDisconnected,
		},
		state:     SubscriptionPending,
		observers: make(map[int]func(SessionView)),
	}

	m.mu.Lock()
	m.subs[s] = struct{}{}
	gen := 0
	if m.state == StateConnected {
		gen = m.gen
	}
	m.mu.Unlock()

	if gen > 0 {
		s.maybeJoin(gen)
	}
	return s
}

// SessionID returns the session this subscription is scoped to.
func (s *Subscription) SessionID() string {
	return s.sessionID
}

// State returns the subscription lifecycle state.
func (s *Subscription) State() SubscriptionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentView returns the latest reconciled view model.
func (s *Subscription) CurrentView() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// OnChange registers a callback invoked whenever the view model changes.
// It returns a cancel func; Unsubscribe cancels all callbacks at once.
func (s *Subscription) OnChange(fn func(SessionView)) func() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return func() {}
	}
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Unsubscribe emits a best-effort leave and removes all listeners. It is
// idempotent; no callback fires after it returns, even for in-flight events.
func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.state = SubscriptionLeft
	s.observers = nil
	s.mu.Unlock()

	s.m.removeSub(s)
	if err := s.m.send(protocol.LeaveSession{SessionID: s.sessionID}); err != nil {
		// Leave is fire-and-forget; a down transport drops room membership anyway.
		zap.L().Debug("leave_session not sent", zap.String("session_id", s.sessionID), zap.Error(err))
	}
}

// maybeJoin sends join_session for the given connection instance, at most
// once per instance.
func (s *Subscription) maybeJoin(gen int) {
	s.mu.Lock()
	if s.closed || s.joinedGen == gen {
		s.mu.Unlock()
		return
	}
	s.joinedGen = gen
	s.mu.Unlock()

	if err := s.m.send(protocol.JoinSession{SessionID: s.sessionID}); err != nil {
		zap.L().Warn("join_session not sent", zap.String("session_id", s.sessionID), zap.Error(err))
		s.mu.Lock()
		if s.joinedGen == gen {
			s.joinedGen = 0 // retry on the next connected transition
		}
		s.mu.Unlock()
	}
}

// handle folds one inbound event into the view. Events for other sessions
// are dropped here; callbacks run outside the lock with a copy of the view.
func (s *Subscription) handle(ev protocol.ServerEvent) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if _, ok := ev.(protocol.SessionJoined); ok && protocol.SessionID(ev) == s.sessionID {
		s.state = SubscriptionJoined
	}
	next, changed := reconcile(s.view, ev)
	if !changed {
		s.mu.Unlock()
		return
	}
	s.view = next
	observers := make([]func(SessionView), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(next)
	}
}
