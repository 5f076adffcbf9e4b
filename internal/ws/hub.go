// Package ws implements the server side of the session event channel: it
// authenticates WebSocket clients, tracks room membership keyed by session
// id, and broadcasts QR and status events to each room. The dashboard uses
// it to fan out gateway status to browsers; integration tests run it as a
// stand-in gateway.
package ws

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/wagate/dashboard/internal/metrics"
	"github.com/wagate/dashboard/internal/protocol"
)

// Client represents one authenticated WebSocket client connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// NewClient creates a client for an upgraded connection.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}
}

// Send queues a frame for delivery. A client whose buffer is full is closed
// rather than allowed to block the broadcaster.
func (c *Client) Send(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.closeLocked()
	}
}

// Close closes the client's send queue.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// IsClosed returns true if the client is closed.
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Conn returns the underlying WebSocket connection.
func (c *Client) Conn() *websocket.Conn {
	return c.conn
}

// SendChan returns the client's outbound queue.
func (c *Client) SendChan() <-chan []byte {
	return c.send
}

// Hub tracks authenticated clients and their room membership. One client may
// join any number of session rooms.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}

	// lastStatus remembers the most recent status event per session so a
	// freshly joined client gets a snapshot without waiting for the next
	// transition.
	lastStatus map[string]protocol.SessionStatusChanged
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		lastStatus: make(map[string]protocol.SessionStatusChanged),
	}
}

// Register adds an authenticated client.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	metrics.AttachedClients.Inc()
}

// Unregister removes a client from the hub and every room it joined.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	_, known := h.clients[client]
	delete(h.clients, client)
	for sessionID, members := range h.rooms {
		if _, ok := members[client]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, sessionID)
			}
		}
	}
	h.mu.Unlock()

	client.Close()
	if known {
		metrics.AttachedClients.Dec()
	}
}

// Join adds a client to a session room and returns the room's last known
// status event, if any, for an immediate snapshot.
func (h *Hub) Join(client *Client, sessionID string) (protocol.SessionStatusChanged, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[sessionID]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[sessionID] = members
	}
	members[client] = struct{}{}

	last, ok := h.lastStatus[sessionID]
	return last, ok
}

// Leave removes a client from a session room.
func (h *Hub) Leave(client *Client, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[sessionID]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, sessionID)
		}
	}
}

// Broadcast encodes an event once and delivers it to every member of the
// event's session room. Status events are also remembered as the room's
// snapshot.
func (h *Hub) Broadcast(ev protocol.ServerEvent) error {
	sessionID := protocol.SessionID(ev)
	if sessionID == "" {
		return nil
	}
	data, err := protocol.EncodeServer(ev)
	if err != nil {
		return err
	}

	h.mu.Lock()
	if status, ok := ev.(protocol.SessionStatusChanged); ok {
		h.lastStatus[sessionID] = status
	}
	members := make([]*Client, 0, len(h.rooms[sessionID]))
	for client := range h.rooms[sessionID] {
		members = append(members, client)
	}
	h.mu.Unlock()

	for _, client := range members {
		client.Send(data)
	}
	return nil
}

// RoomCount returns the number of clients joined to a session room.
func (h *Hub) RoomCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}

// ClientCount returns the number of authenticated clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// DropAll severs every client's underlying connection while leaving the hub
// usable, forcing clients through their reconnect path.
func (h *Hub) DropAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if client.conn != nil {
			client.conn.Close()
		}
	}
}

// Close closes every client and resets the hub.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[*Client]struct{})
	h.rooms = make(map[string]map[*Client]struct{})
	h.mu.Unlock()

	for _, client := range clients {
		client.Close()
		if client.conn != nil {
			client.conn.Close()
		}
	}
}
