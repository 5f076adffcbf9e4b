package model

import "time"

// Worker represents one gateway worker node shown on the workers panel.
type Worker struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Host           string    `json:"host"`
	Status         string    `json:"status"` // "online", "degraded", "offline"
	ActiveSessions int       `json:"activeSessions"`
	MaxSessions    int       `json:"maxSessions"`
	Version        string    `json:"version"`
	StartedAt      time.Time `json:"startedAt"`
}

// User represents a dashboard user account shown on the user-management panel.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"` // "admin", "operator", "viewer"
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// SubscriptionPlan represents a billing plan shown on the subscription panel.
// Billing is not implemented by the dashboard; these records back the mock
// screens only.
type SubscriptionPlan struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	PriceCents  int      `json:"priceCents"`
	Currency    string   `json:"currency"`
	MaxSessions int      `json:"maxSessions"`
	Features    []string `json:"features"`
}
