package realtime

import (
	"testing"

	"github.com/wagate/dashboard/internal/model"
	"github.com/wagate/dashboard/internal/protocol"
)

func newView(sessionID string) SessionView {
	return SessionView{SessionID: sessionID, Status: model.SessionStatusDisconnected}
}

// TestReconcileQRThenConnected tests that a successful pairing clears the QR
// code from the view.
func TestReconcileQRThenConnected(t *testing.T) {
	view := newView("s1")

	view, changed := reconcile(view, protocol.SessionStatusChanged{
		SessionID: "s1", Status: model.SessionStatusQRRequired, Timestamp: 100,
	})
	if !changed || view.Status != model.SessionStatusQRRequired {
		t.Fatalf("expected QR_REQUIRED, got %+v", view)
	}

	view, changed = reconcile(view, protocol.QRCodeUpdated{
		SessionID: "s1", QRCode: "2@abc", Timestamp: 200,
	})
	if !changed || view.QRCode != "2@abc" || view.LastUpdate != 200 {
		t.Fatalf("expected QR code applied, got %+v", view)
	}

	view, changed = reconcile(view, protocol.SessionStatusChanged{
		SessionID: "s1", Status: model.SessionStatusConnected,
		PhoneNumber: "+15550001", DisplayName: "Main", Timestamp: 300,
	})
	if !changed {
		t.Fatal("expected change on connect")
	}
	if view.Status != model.SessionStatusConnected {
		t.Errorf("expected CONNECTED, got %s", view.Status)
	}
	if view.QRCode != "" {
		t.Errorf("QR code should be cleared on connect, got %q", view.QRCode)
	}
	if view.PhoneNumber != "+15550001" || view.DisplayName != "Main" {
		t.Errorf("identity not applied: %+v", view)
	}
}

// TestReconcileIgnoresOtherSessions tests session-id filtering.
func TestReconcileIgnoresOtherSessions(t *testing.T) {
	view := newView("s1")

	next, changed := reconcile(view, protocol.SessionStatusChanged{
		SessionID: "s2", Status: model.SessionStatusConnected, Timestamp: 100,
	})
	if changed || next != view {
		t.Errorf("event for another session must not change the view: %+v", next)
	}

	next, changed = reconcile(view, protocol.QRCodeUpdated{
		SessionID: "s2", QRCode: "2@zzz", Timestamp: 100,
	})
	if changed || next.QRCode != "" {
		t.Errorf("QR for another session must not change the view: %+v", next)
	}
}

// TestReconcileQRReplacesPrevious tests that a newer QR payload replaces the
// previous one outright.
func TestReconcileQRReplacesPrevious(t *testing.T) {
	view := newView("s1")
	view.Status = model.SessionStatusQRRequired

	view, _ = reconcile(view, protocol.QRCodeUpdated{SessionID: "s1", QRCode: "old", Timestamp: 1})
	view, changed := reconcile(view, protocol.QRCodeUpdated{SessionID: "s1", QRCode: "new", Timestamp: 2})
	if !changed || view.QRCode != "new" {
		t.Errorf("expected replacement QR, got %+v", view)
	}
	if view.Status != model.SessionStatusQRRequired {
		t.Errorf("QR update must not touch status, got %s", view.Status)
	}
}

// TestReconcileConnectionError tests that errors surface without losing the
// last known status.
func TestReconcileConnectionError(t *testing.T) {
	view := newView("s1")
	view.Status = model.SessionStatusConnecting

	view, changed := reconcile(view, protocol.ConnectionError{
		SessionID: "s1", Message: "socket hang up", Timestamp: 500,
	})
	if !changed {
		t.Fatal("expected change on error")
	}
	if view.LastError != "socket hang up" {
		t.Errorf("expected error recorded, got %q", view.LastError)
	}
	if view.Status != model.SessionStatusConnecting {
		t.Errorf("error event must not change status, got %s", view.Status)
	}
}

// TestReconcileIdempotent tests that re-applying the same event reports no
// change.
func TestReconcileIdempotent(t *testing.T) {
	view := newView("s1")
	ev := protocol.SessionStatusChanged{
		SessionID: "s1", Status: model.SessionStatusConnected, Timestamp: 100,
	}

	view, changed := reconcile(view, ev)
	if !changed {
		t.Fatal("first application should change the view")
	}
	again, changed := reconcile(view, ev)
	if changed || again != view {
		t.Errorf("second application must be a no-op: %+v", again)
	}
}

// TestReconcileJoinedAckLeavesViewAlone tests that join acks do not touch
// the view model.
func TestReconcileJoinedAckLeavesViewAlone(t *testing.T) {
	view := newView("s1")
	next, changed := reconcile(view, protocol.SessionJoined{SessionID: "s1"})
	if changed || next != view {
		t.Errorf("join ack must not change the view: %+v", next)
	}
}
