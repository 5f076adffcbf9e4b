package realtime

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/wagate/dashboard/internal/model"
	"github.com/wagate/dashboard/internal/protocol"
)

var serverEventType = reflect.TypeOf((*protocol.ServerEvent)(nil)).Elem()

var statusValues = []model.SessionStatus{
	model.SessionStatusDisconnected,
	model.SessionStatusQRRequired,
	model.SessionStatusConnecting,
	model.SessionStatusConnected,
	model.SessionStatusReconnecting,
	model.SessionStatusError,
}

func genStatus() gopter.Gen {
	values := make([]interface{}, len(statusValues))
	for i, s := range statusValues {
		values[i] = s
	}
	return gen.OneConstOf(values...)
}

func genEvent(sessionID string) gopter.Gen {
	return gen.OneGenOf(
		genStatus().Map(func(s model.SessionStatus) protocol.ServerEvent {
			return protocol.SessionStatusChanged{SessionID: sessionID, Status: s, Timestamp: 1}
		}),
		gen.AlphaString().Map(func(qr string) protocol.ServerEvent {
			return protocol.QRCodeUpdated{SessionID: sessionID, QRCode: qr, Timestamp: 1}
		}),
		gen.AlphaString().Map(func(msg string) protocol.ServerEvent {
			return protocol.ConnectionError{SessionID: sessionID, Message: msg, Timestamp: 1}
		}),
		gen.Const(true).Map(func(bool) protocol.ServerEvent {
			return protocol.SessionJoined{SessionID: sessionID}
		}),
	)
}

func genEvents(sessionID string) gopter.Gen {
	return gen.SliceOf(genEvent(sessionID), serverEventType)
}

// TestReconcileProperties checks the invariants of the view fold under
// arbitrary event sequences.
func TestReconcileProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("applying the same event twice never changes the view again", prop.ForAll(
		func(events []protocol.ServerEvent) bool {
			view := newView("s1")
			for _, ev := range events {
				view, _ = reconcile(view, ev)
				again, changed := reconcile(view, ev)
				if changed || again != view {
					return false
				}
			}
			return true
		},
		genEvents("s1"),
	))

	properties.Property("events for other sessions never change the view", prop.ForAll(
		func(events []protocol.ServerEvent) bool {
			view := newView("s1")
			for _, ev := range events {
				next, changed := reconcile(view, ev)
				if changed || next != view {
					return false
				}
			}
			return true
		},
		genEvents("other"),
	))

	properties.Property("a connected transition always clears the QR code", prop.ForAll(
		func(events []protocol.ServerEvent) bool {
			view := newView("s1")
			for _, ev := range events {
				view, _ = reconcile(view, ev)
				if status, ok := ev.(protocol.SessionStatusChanged); ok &&
					status.Status == model.SessionStatusConnected && view.QRCode != "" {
					return false
				}
			}
			return true
		},
		genEvents("s1"),
	))

	properties.Property("view session id never changes", prop.ForAll(
		func(events []protocol.ServerEvent) bool {
			view := newView("s1")
			for _, ev := range events {
				view, _ = reconcile(view, ev)
				if view.SessionID != "s1" {
					return false
				}
			}
			return true
		},
		genEvents("s1"),
	))

	properties.TestingRun(t)
}
