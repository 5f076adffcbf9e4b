package gatewayapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wagate/dashboard/internal/model"
)

// TestListSessions tests the happy path and the bearer header.
func TestListSessions(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/api/sessions" || r.Method != http.MethodGet {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":[
			{"id":"s1","name":"support","status":"CONNECTED"},
			{"id":"s2","name":"sales","status":"QR_REQUIRED"}
		]}`))
	}))
	defer server.Close()

	client := New(server.URL, "tok-123")
	sessions, err := client.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}

	if gotAuth != "Bearer tok-123" {
		t.Errorf("expected bearer token header, got %q", gotAuth)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != "s1" || sessions[0].Status != model.SessionStatusConnected {
		t.Errorf("first session mismatch: %+v", sessions[0])
	}
}

// TestGetSessionNotFound tests the 404 mapping.
func TestGetSessionNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"message":"not found"}`))
	}))
	defer server.Close()

	client := New(server.URL, "tok")
	_, err := client.GetSession(context.Background(), "missing")
	if !errors.Is(err, model.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

// TestGatewayRejection tests the success=false envelope mapping.
func TestGatewayRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"message":"session is already connected"}`))
	}))
	defer server.Close()

	client := New(server.URL, "tok")
	err := client.ConnectSession(context.Background(), "s1")
	if !errors.Is(err, model.ErrGatewayRejected) {
		t.Fatalf("expected ErrGatewayRejected, got %v", err)
	}
	if got := err.Error(); got == model.ErrGatewayRejected.Error() {
		t.Errorf("expected the gateway message to be wrapped, got %q", got)
	}
}

// TestUnauthorized tests the auth failure mapping.
func TestUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := New(server.URL, "bad")
	_, err := client.ListSessions(context.Background())
	if !errors.Is(err, model.ErrTokenRequired) {
		t.Errorf("expected ErrTokenRequired, got %v", err)
	}
}

// TestActionEndpoints tests that each action hits its own path.
func TestActionEndpoints(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("actions must be POST, got %s", r.Method)
		}
		paths = append(paths, r.URL.Path)
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client := New(server.URL, "tok")
	ctx := context.Background()
	for _, call := range []func(context.Context, string) error{
		client.ConnectSession, client.DisconnectSession, client.RestartSession, client.LogoutSession,
	} {
		if err := call(ctx, "s1"); err != nil {
			t.Fatalf("action failed: %v", err)
		}
	}

	want := []string{
		"/api/sessions/s1/connect",
		"/api/sessions/s1/disconnect",
		"/api/sessions/s1/restart",
		"/api/sessions/s1/logout",
	}
	if len(paths) != len(want) {
		t.Fatalf("expected %d calls, got %d", len(want), len(paths))
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("call %d: expected %s, got %s", i, want[i], paths[i])
		}
	}
}

// TestContextCancellation tests that a cancelled context aborts the request.
func TestContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := New(server.URL, "tok")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.ListSessions(ctx); err == nil {
		t.Error("expected error from cancelled context")
	}
}
