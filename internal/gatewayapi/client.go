// Package gatewayapi is the HTTP client for the upstream WhatsApp gateway
// REST API. The dashboard only consumes it: session reads and lifecycle
// actions whose effects arrive asynchronously over the event channel.
package gatewayapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/wagate/dashboard/internal/model"
)

// Client calls the gateway REST API with bearer-token auth.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// envelope is the gateway's uniform response shape.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// New creates a gateway API client. baseURL should not end with a slash.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// ListSessions returns every session the gateway manages for this account.
func (c *Client) ListSessions(ctx context.Context) ([]model.Session, error) {
	var sessions []model.Session
	if err := c.do(ctx, http.MethodGet, "/api/sessions", nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetSession returns one session by id.
func (c *Client) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	if err := c.do(ctx, http.MethodGet, "/api/sessions/"+id, nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ConnectSession asks the gateway to bring a session online. Status
// transitions (and a QR code, if pairing is needed) follow over the event
// channel.
func (c *Client) ConnectSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/sessions/"+id+"/connect", nil, nil)
}

// DisconnectSession asks the gateway to take a session offline.
func (c *Client) DisconnectSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/sessions/"+id+"/disconnect", nil, nil)
}

// RestartSession asks the gateway to restart a session's worker process.
func (c *Client) RestartSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/sessions/"+id+"/restart", nil, nil)
}

// LogoutSession asks the gateway to invalidate a session's WhatsApp login.
func (c *Client) LogoutSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/sessions/"+id+"/logout", nil, nil)
}

// do performs one request and decodes the gateway envelope into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return model.ErrSessionNotFound
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return model.ErrTokenRequired
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	if !env.Success {
		if env.Message != "" {
			return fmt.Errorf("%w: %s", model.ErrGatewayRejected, env.Message)
		}
		return model.ErrGatewayRejected
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode gateway data: %w", err)
		}
	}
	return nil
}
