// Package repository provides data access for the status history store.
package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wagate/dashboard/internal/model"
)

// EventRepository persists session status transitions.
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a repository over the given database.
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Insert records one status transition. A missing id or timestamp is filled
// in before writing.
func (r *EventRepository) Insert(ev *model.StatusEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	query := `
		INSERT INTO status_events (id, session_id, status, phone_number, display_name, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, ev.ID, ev.SessionID, string(ev.Status),
		ev.PhoneNumber, ev.DisplayName, ev.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to insert status event: %w", err)
	}
	return nil
}

// ListBySession returns up to limit events for one session, newest first.
func (r *EventRepository) ListBySession(sessionID string, limit int) ([]model.StatusEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, session_id, status, phone_number, display_name, occurred_at
		FROM status_events
		WHERE session_id = ?
		ORDER BY occurred_at DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query status events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Recent returns up to limit events across all sessions, newest first.
func (r *EventRepository) Recent(limit int) ([]model.StatusEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, session_id, status, phone_number, display_name, occurred_at
		FROM status_events
		ORDER BY occurred_at DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query status events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// DeleteBySession removes all history for one session.
func (r *EventRepository) DeleteBySession(sessionID string) error {
	_, err := r.db.Exec(`DELETE FROM status_events WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete status events: %w", err)
	}
	return nil
}

func scanEvents(rows *sql.Rows) ([]model.StatusEvent, error) {
	events := make([]model.StatusEvent, 0)
	for rows.Next() {
		var ev model.StatusEvent
		var status string
		if err := rows.Scan(&ev.ID, &ev.SessionID, &status,
			&ev.PhoneNumber, &ev.DisplayName, &ev.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan status event: %w", err)
		}
		ev.Status = model.SessionStatus(status)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
