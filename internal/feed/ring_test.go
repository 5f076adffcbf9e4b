package feed

import (
	"fmt"
	"testing"

	"github.com/wagate/dashboard/internal/model"
)

func event(i int) model.StatusEvent {
	return model.StatusEvent{
		ID:        fmt.Sprintf("ev-%d", i),
		SessionID: "s1",
		Status:    model.SessionStatusConnected,
	}
}

// TestRingOrdering tests oldest-to-newest ordering before wrap-around.
func TestRingOrdering(t *testing.T) {
	r := NewRing(5)
	for i := 0; i < 3; i++ {
		r.Add(event(i))
	}

	events := r.Recent()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, ev := range events {
		if ev.ID != fmt.Sprintf("ev-%d", i) {
			t.Errorf("position %d: expected ev-%d, got %s", i, i, ev.ID)
		}
	}
}

// TestRingWrapAround tests that the oldest events are discarded when full.
func TestRingWrapAround(t *testing.T) {
	r := NewRing(3)
	for i := 0; i < 7; i++ {
		r.Add(event(i))
	}

	if r.Len() != 3 {
		t.Fatalf("expected 3 events after wrap, got %d", r.Len())
	}
	events := r.Recent()
	want := []string{"ev-4", "ev-5", "ev-6"}
	for i, ev := range events {
		if ev.ID != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], ev.ID)
		}
	}
}

// TestRingClear tests resetting the buffer.
func TestRingClear(t *testing.T) {
	r := NewRing(3)
	r.Add(event(1))
	r.Clear()

	if r.Len() != 0 || len(r.Recent()) != 0 {
		t.Error("expected empty ring after clear")
	}

	r.Add(event(9))
	events := r.Recent()
	if len(events) != 1 || events[0].ID != "ev-9" {
		t.Errorf("ring unusable after clear: %+v", events)
	}
}

// TestRingMinimumCapacity tests the non-positive capacity fallback.
func TestRingMinimumCapacity(t *testing.T) {
	r := NewRing(0)
	if r.Cap() != 1 {
		t.Errorf("expected capacity 1, got %d", r.Cap())
	}
	r.Add(event(1))
	r.Add(event(2))
	events := r.Recent()
	if len(events) != 1 || events[0].ID != "ev-2" {
		t.Errorf("expected only the newest event, got %+v", events)
	}
}
