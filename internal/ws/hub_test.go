package ws

import (
	"testing"
	"time"

	"github.com/wagate/dashboard/internal/model"
	"github.com/wagate/dashboard/internal/protocol"
)

func receiveWithTimeout(t *testing.T, client *Client, timeout time.Duration) []byte {
	t.Helper()
	select {
	case data := <-client.SendChan():
		return data
	case <-time.After(timeout):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

// TestHubClientManagement tests client registration and counting.
func TestHubClientManagement(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	client1 := NewClient(hub, nil)
	client2 := NewClient(hub, nil)

	hub.Register(client1)
	hub.Register(client2)

	if hub.ClientCount() != 2 {
		t.Errorf("expected 2 clients, got %d", hub.ClientCount())
	}

	hub.Unregister(client1)
	if hub.ClientCount() != 1 {
		t.Errorf("expected 1 client after unregister, got %d", hub.ClientCount())
	}
	if !client1.IsClosed() {
		t.Error("unregistered client should be closed")
	}
}

// TestHubRoomScoping tests that broadcasts only reach the event's room.
func TestHubRoomScoping(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	inRoom := NewClient(hub, nil)
	outOfRoom := NewClient(hub, nil)
	hub.Register(inRoom)
	hub.Register(outOfRoom)

	hub.Join(inRoom, "s1")
	hub.Join(outOfRoom, "s2")

	if err := hub.Broadcast(protocol.SessionStatusChanged{
		SessionID: "s1", Status: model.SessionStatusConnected, Timestamp: 1,
	}); err != nil {
		t.Fatalf("broadcast failed: %v", err)
	}

	data := receiveWithTimeout(t, inRoom, 100*time.Millisecond)
	ev, err := protocol.DecodeServer(data)
	if err != nil {
		t.Fatalf("failed to decode broadcast frame: %v", err)
	}
	status, ok := ev.(protocol.SessionStatusChanged)
	if !ok || status.SessionID != "s1" {
		t.Errorf("unexpected event: %#v", ev)
	}

	select {
	case data := <-outOfRoom.SendChan():
		t.Errorf("client outside the room received a frame: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

// TestHubSnapshotOnJoin tests that a joiner gets the room's last status.
func TestHubSnapshotOnJoin(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	if err := hub.Broadcast(protocol.SessionStatusChanged{
		SessionID: "s1", Status: model.SessionStatusQRRequired, Timestamp: 7,
	}); err != nil {
		t.Fatalf("broadcast failed: %v", err)
	}

	client := NewClient(hub, nil)
	hub.Register(client)
	snapshot, ok := hub.Join(client, "s1")
	if !ok {
		t.Fatal("expected a snapshot for a room with history")
	}
	if snapshot.Status != model.SessionStatusQRRequired || snapshot.Timestamp != 7 {
		t.Errorf("unexpected snapshot: %+v", snapshot)
	}

	if _, ok := hub.Join(client, "never-seen"); ok {
		t.Error("room without history should have no snapshot")
	}
}

// TestHubLeaveStopsDelivery tests that a client stops receiving after leave.
func TestHubLeaveStopsDelivery(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	client := NewClient(hub, nil)
	hub.Register(client)
	hub.Join(client, "s1")
	hub.Leave(client, "s1")

	if hub.RoomCount("s1") != 0 {
		t.Errorf("expected empty room, got %d", hub.RoomCount("s1"))
	}

	hub.Broadcast(protocol.QRCodeUpdated{SessionID: "s1", QRCode: "x", Timestamp: 1})
	select {
	case data := <-client.SendChan():
		t.Errorf("left client received a frame: %s", data)
	case <-time.After(50 * time.Millisecond):
	}

	// Leaving twice is harmless.
	hub.Leave(client, "s1")
}

// TestHubSlowClientDropped tests that a client with a full send buffer is
// closed instead of blocking the broadcaster.
func TestHubSlowClientDropped(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	client := NewClient(hub, nil)
	hub.Register(client)
	hub.Join(client, "s1")

	// Nothing drains the queue; overflow it.
	for i := 0; i < 300; i++ {
		hub.Broadcast(protocol.QRCodeUpdated{SessionID: "s1", QRCode: "x", Timestamp: int64(i)})
	}

	if !client.IsClosed() {
		t.Error("slow client should have been closed")
	}
}

// TestHubUnregisterCleansRooms tests that unregister removes room membership.
func TestHubUnregisterCleansRooms(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	client := NewClient(hub, nil)
	hub.Register(client)
	hub.Join(client, "s1")
	hub.Join(client, "s2")

	hub.Unregister(client)
	if hub.RoomCount("s1") != 0 || hub.RoomCount("s2") != 0 {
		t.Error("unregister should remove the client from every room")
	}
}
