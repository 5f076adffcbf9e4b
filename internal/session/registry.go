// Package session keeps the dashboard's session registry: the merged picture
// of what the gateway REST API reports and what the live event channel says,
// fanned out to attached browsers and recorded as history.
package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wagate/dashboard/internal/feed"
	"github.com/wagate/dashboard/internal/gatewayapi"
	"github.com/wagate/dashboard/internal/metrics"
	"github.com/wagate/dashboard/internal/model"
	"github.com/wagate/dashboard/internal/realtime"
	"github.com/wagate/dashboard/internal/repository"
	"github.com/wagate/dashboard/internal/ws"
)

// tracked is one session under live observation.
type tracked struct {
	session model.Session
	sub     *realtime.Subscription
	prev    realtime.SessionView
	cancel  func()
}

// Registry tracks every gateway session, subscribes to its live events, and
// bridges them to the browser hub, the history store, and the activity feed.
type Registry struct {
	api    *gatewayapi.Client
	rt     *realtime.Manager
	events *ws.Service
	repo   *repository.EventRepository
	feed   *feed.Ring
	token  string

	mu       sync.RWMutex
	tracked  map[string]*tracked
	acquired bool
	closed   bool
}

// NewRegistry creates a registry. Start must be called before Sync.
func NewRegistry(api *gatewayapi.Client, rt *realtime.Manager, events *ws.Service,
	repo *repository.EventRepository, ring *feed.Ring, token string) *Registry {
	return &Registry{
		api:     api,
		rt:      rt,
		events:  events,
		repo:    repo,
		feed:    ring,
		token:   token,
		tracked: make(map[string]*tracked),
	}
}

// Start acquires the shared event channel connection.
func (r *Registry) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.acquired || r.closed {
		return
	}
	r.acquired = true
	r.rt.Acquire(r.token)
}

// Sync reconciles the tracked set against the gateway's session list:
// new sessions gain a live subscription, vanished sessions lose theirs.
func (r *Registry) Sync(ctx context.Context) error {
	sessions, err := r.api.ListSessions(ctx)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(sessions))
	for _, sess := range sessions {
		seen[sess.ID] = struct{}{}
		r.track(sess)
	}

	r.mu.Lock()
	var stale []*tracked
	for id, t := range r.tracked {
		if _, ok := seen[id]; !ok {
			stale = append(stale, t)
			delete(r.tracked, id)
		}
	}
	r.mu.Unlock()

	for _, t := range stale {
		t.cancel()
		t.sub.Unsubscribe()
		zap.L().Info("session untracked", zap.String("session_id", t.session.ID))
	}
	return nil
}

// track subscribes a session's events, or refreshes its metadata if it is
// already tracked.
func (r *Registry) track(sess model.Session) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if t, ok := r.tracked[sess.ID]; ok {
		// Live status wins over the REST snapshot once events have arrived.
		status := t.session.Status
		t.session = sess
		if t.prev.LastUpdate > 0 {
			t.session.Status = status
		}
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	sub := r.rt.Subscribe(sess.ID)
	t := &tracked{
		session: sess,
		sub:     sub,
		prev:    sub.CurrentView(),
	}
	t.cancel = sub.OnChange(func(view realtime.SessionView) {
		r.handleViewChange(sess.ID, view)
	})

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		t.cancel()
		sub.Unsubscribe()
		return
	}
	r.tracked[sess.ID] = t
	r.mu.Unlock()

	zap.L().Info("session tracked",
		zap.String("session_id", sess.ID), zap.String("name", sess.Name))
}

// handleViewChange diffs the new view against the last one and forwards
// exactly what changed: QR updates and errors to the browser rooms, status
// transitions additionally into the history store and activity feed.
func (r *Registry) handleViewChange(sessionID string, view realtime.SessionView) {
	r.mu.Lock()
	t, ok := r.tracked[sessionID]
	if !ok {
		r.mu.Unlock()
		return
	}
	prev := t.prev
	t.prev = view
	if view.Status != prev.Status || view.LastUpdate > 0 {
		t.session.Status = view.Status
		t.session.PhoneNumber = view.PhoneNumber
		t.session.DisplayName = view.DisplayName
	}
	r.mu.Unlock()

	if view.QRCode != prev.QRCode && view.QRCode != "" {
		if err := r.events.BroadcastQR(sessionID, view.QRCode, view.LastUpdate); err != nil {
			zap.L().Warn("qr broadcast failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	if view.LastError != prev.LastError && view.LastError != "" {
		if err := r.events.BroadcastError(sessionID, view.LastError, view.LastUpdate); err != nil {
			zap.L().Warn("error broadcast failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	if view.Status != prev.Status ||
		view.PhoneNumber != prev.PhoneNumber ||
		view.DisplayName != prev.DisplayName {
		if err := r.events.BroadcastStatus(sessionID, view.Status,
			view.PhoneNumber, view.DisplayName, view.LastUpdate); err != nil {
			zap.L().Warn("status broadcast failed", zap.String("session_id", sessionID), zap.Error(err))
		}
		if view.Status != prev.Status {
			r.recordStatus(sessionID, view)
		}
	}
}

// recordStatus appends a status transition to the history store and the
// activity feed.
func (r *Registry) recordStatus(sessionID string, view realtime.SessionView) {
	ev := model.StatusEvent{
		SessionID:   sessionID,
		Status:      view.Status,
		PhoneNumber: view.PhoneNumber,
		DisplayName: view.DisplayName,
		OccurredAt:  time.UnixMilli(view.LastUpdate).UTC(),
	}
	if view.LastUpdate == 0 {
		ev.OccurredAt = time.Now().UTC()
	}
	if err := r.repo.Insert(&ev); err != nil {
		zap.L().Error("failed to record status event",
			zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	r.feed.Add(ev)
	metrics.StatusEventsRecorded.Inc()
}

// List returns all tracked sessions with live status merged in, ordered by
// name then id.
func (r *Registry) List() []model.Session {
	r.mu.RLock()
	sessions := make([]model.Session, 0, len(r.tracked))
	for _, t := range r.tracked {
		sessions = append(sessions, t.session)
	}
	r.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].Name != sessions[j].Name {
			return sessions[i].Name < sessions[j].Name
		}
		return sessions[i].ID < sessions[j].ID
	})
	return sessions
}

// Get returns one tracked session with live status merged in.
func (r *Registry) Get(id string) (*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tracked[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	sess := t.session
	return &sess, nil
}

// View returns the live view model for one tracked session. The QR endpoint
// reads the current QR payload from it.
func (r *Registry) View(id string) (realtime.SessionView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tracked[id]
	if !ok {
		return realtime.SessionView{}, model.ErrSessionNotFound
	}
	return t.sub.CurrentView(), nil
}

// QR returns the live view of a session that currently has an actionable QR
// code. Connected sessions never do.
func (r *Registry) QR(id string) (realtime.SessionView, error) {
	view, err := r.View(id)
	if err != nil {
		return realtime.SessionView{}, err
	}
	if view.QRCode == "" {
		return realtime.SessionView{}, model.ErrNoQRCode
	}
	return view, nil
}

// Connect proxies a connect action to the gateway.
func (r *Registry) Connect(ctx context.Context, id string) error {
	return r.api.ConnectSession(ctx, id)
}

// Disconnect proxies a disconnect action to the gateway.
func (r *Registry) Disconnect(ctx context.Context, id string) error {
	return r.api.DisconnectSession(ctx, id)
}

// Restart proxies a restart action to the gateway.
func (r *Registry) Restart(ctx context.Context, id string) error {
	return r.api.RestartSession(ctx, id)
}

// Logout proxies a logout action to the gateway.
func (r *Registry) Logout(ctx context.Context, id string) error {
	return r.api.LogoutSession(ctx, id)
}

// History returns recorded status transitions for one session, newest first.
func (r *Registry) History(sessionID string, limit int) ([]model.StatusEvent, error) {
	return r.repo.ListBySession(sessionID, limit)
}

// Recent returns the in-memory activity feed, oldest first.
func (r *Registry) Recent() []model.StatusEvent {
	return r.feed.Recent()
}

// ConnectionState reports the shared event channel state and last error.
func (r *Registry) ConnectionState() (realtime.State, string) {
	return r.rt.Snapshot()
}

// Run syncs periodically until the context is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Sync(ctx); err != nil {
				zap.L().Warn("session sync failed", zap.Error(err))
			}
		}
	}
}

// Close unsubscribes everything and releases the shared connection.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	all := make([]*tracked, 0, len(r.tracked))
	for _, t := range r.tracked {
		all = append(all, t)
	}
	r.tracked = make(map[string]*tracked)
	acquired := r.acquired
	r.mu.Unlock()

	for _, t := range all {
		t.cancel()
		t.sub.Unsubscribe()
	}
	if acquired {
		r.rt.Release()
	}
}
