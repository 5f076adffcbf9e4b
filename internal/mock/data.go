// Package mock provides the fixture data behind the dashboard's non-core
// panels. Workers, users, and plans are display-only; nothing here talks to
// the gateway.
package mock

import (
	"time"

	"github.com/wagate/dashboard/internal/model"
)

var baseTime = time.Date(2026, time.June, 1, 8, 0, 0, 0, time.UTC)

// Workers returns the fixture worker fleet.
func Workers() []model.Worker {
	return []model.Worker{
		{
			ID:             "wrk-01",
			Name:           "worker-eu-1",
			Host:           "10.0.1.11",
			Status:         "online",
			ActiveSessions: 14,
			MaxSessions:    50,
			Version:        "2.8.3",
			StartedAt:      baseTime,
		},
		{
			ID:             "wrk-02",
			Name:           "worker-eu-2",
			Host:           "10.0.1.12",
			Status:         "online",
			ActiveSessions: 9,
			MaxSessions:    50,
			Version:        "2.8.3",
			StartedAt:      baseTime.Add(26 * time.Hour),
		},
		{
			ID:             "wrk-03",
			Name:           "worker-us-1",
			Host:           "10.0.2.21",
			Status:         "degraded",
			ActiveSessions: 41,
			MaxSessions:    50,
			Version:        "2.8.1",
			StartedAt:      baseTime.Add(-72 * time.Hour),
		},
	}
}

// Users returns the fixture dashboard accounts.
func Users() []model.User {
	return []model.User{
		{
			ID:        "usr-01",
			Email:     "admin@example.com",
			Name:      "Admin",
			Role:      "admin",
			Active:    true,
			CreatedAt: baseTime.Add(-90 * 24 * time.Hour),
		},
		{
			ID:        "usr-02",
			Email:     "ops@example.com",
			Name:      "Operations",
			Role:      "operator",
			Active:    true,
			CreatedAt: baseTime.Add(-30 * 24 * time.Hour),
		},
		{
			ID:        "usr-03",
			Email:     "audit@example.com",
			Name:      "Auditor",
			Role:      "viewer",
			Active:    false,
			CreatedAt: baseTime.Add(-7 * 24 * time.Hour),
		},
	}
}

// Plans returns the fixture billing plans.
func Plans() []model.SubscriptionPlan {
	return []model.SubscriptionPlan{
		{
			ID:          "plan-starter",
			Name:        "Starter",
			PriceCents:  900,
			Currency:    "USD",
			MaxSessions: 2,
			Features:    []string{"2 sessions", "community support"},
		},
		{
			ID:          "plan-growth",
			Name:        "Growth",
			PriceCents:  4900,
			Currency:    "USD",
			MaxSessions: 20,
			Features:    []string{"20 sessions", "webhooks", "email support"},
		},
		{
			ID:          "plan-scale",
			Name:        "Scale",
			PriceCents:  19900,
			Currency:    "USD",
			MaxSessions: 200,
			Features:    []string{"200 sessions", "webhooks", "priority support", "SLA"},
		},
	}
}
