package broadcast

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

// Defaults for NewHub.
const (
	DefaultSendBuffer   = 256
	DefaultPingInterval = 30 * time.Second
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Frame is the envelope of every outbound message.
type Frame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Client is a registered connection with its own outbound queue. Only the
// client's write pump touches the connection.
type Client struct {
	ID     string
	RoomID string

	conn      Conn
	send      chan []byte // nil entries are pings
	done      chan struct{}
	closeOnce sync.Once
}

// Hub fans outbound events out to connections. Enqueueing never blocks: a
// client whose queue is full is dropped and its connection closed, which
// ends its session through the normal disconnect path.
type Hub struct {
	clients      map[string]*Client          // clientID -> Client
	rooms        map[string]map[string]bool // roomID -> set of clientIDs
	sendBuffer   int
	pingInterval time.Duration
	done         chan struct{}
	mu           sync.RWMutex
}

// NewHub creates a hub. Non-positive arguments select the defaults.
func NewHub(sendBuffer int, pingInterval time.Duration) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = DefaultSendBuffer
	}
	if pingInterval <= 0 {
		pingInterval = DefaultPingInterval
	}
	return &Hub{
		clients:      make(map[string]*Client),
		rooms:        make(map[string]map[string]bool),
		sendBuffer:   sendBuffer,
		pingInterval: pingInterval,
		done:         make(chan struct{}),
	}
}

// Run pings every client periodically until ctx is done, then closes all
// connections.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[hub] Shutting down...")
			h.closeAllClients()
			close(h.done)
			return
		case <-ticker.C:
			h.pingAll()
		}
	}
}

// Wait blocks until Run has returned.
func (h *Hub) Wait() {
	<-h.done
}

// Register adds a connection and starts its write pump.
func (h *Hub) Register(id string, conn Conn) *Client {
	client := &Client{
		ID:   id,
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	old := h.clients[id]
	if old != nil {
		h.detachLocked(old)
	}
	h.clients[id] = client
	h.mu.Unlock()

	if old != nil {
		h.drop(old)
	}

	go h.writePump(client)
	log.Printf("[hub] Client %s registered", id)
	return client
}

// Unregister removes a client and waits until its write pump has exited, so
// the connection is not written to after the caller returns.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if h.clients[client.ID] == client {
		h.detachLocked(client)
	}
	h.mu.Unlock()

	client.closeSend()
	<-client.done
	log.Printf("[hub] Client %s unregistered", client.ID)
}

// Subscribe moves a client into a room's delivery set.
func (h *Hub) Subscribe(clientID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[clientID]
	if !ok {
		return
	}
	h.leaveRoomLocked(client)

	client.RoomID = roomID
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]bool)
	}
	h.rooms[roomID][clientID] = true
}

// Unsubscribe removes a client from its room's delivery set.
func (h *Hub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, ok := h.clients[clientID]; ok {
		h.leaveRoomLocked(client)
	}
}

// NotifyRoom sends an event to every client in a room except exclude.
func (h *Hub) NotifyRoom(roomID, event string, payload any, exclude string) {
	data, ok := encode(event, payload)
	if !ok {
		return
	}

	var slow []*Client
	h.mu.RLock()
	for clientID := range h.rooms[roomID] {
		if clientID == exclude {
			continue
		}
		if client, ok := h.clients[clientID]; ok && !client.enqueue(data) {
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	h.dropSlow(slow)
}

// NotifyClient sends an event to a single client.
func (h *Hub) NotifyClient(clientID, event string, payload any) {
	data, ok := encode(event, payload)
	if !ok {
		return
	}

	h.mu.RLock()
	client, found := h.clients[clientID]
	delivered := !found || client.enqueue(data)
	h.mu.RUnlock()

	if !delivered {
		h.dropSlow([]*Client{client})
	}
}

// NotifyAll sends an event to every connected client.
func (h *Hub) NotifyAll(event string, payload any) {
	data, ok := encode(event, payload)
	if !ok {
		return
	}

	var slow []*Client
	h.mu.RLock()
	for _, client := range h.clients {
		if !client.enqueue(data) {
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	h.dropSlow(slow)
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomClientCount returns the number of clients subscribed to a room.
func (h *Hub) RoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) writePump(client *Client) {
	defer close(client.done)

	for data := range client.send {
		var err error
		if data == nil {
			err = client.conn.WriteMessage(websocket.PingMessage, nil)
		} else {
			err = client.conn.WriteMessage(websocket.TextMessage, data)
		}
		if err != nil {
			log.Printf("[hub] Failed to send to client %s: %v", client.ID, err)
			h.drop(client)
			// drain until the queue is closed
			for range client.send {
			}
			return
		}
	}
}

func (h *Hub) pingAll() {
	var slow []*Client
	h.mu.RLock()
	for _, client := range h.clients {
		if !client.enqueue(nil) {
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	h.dropSlow(slow)
}

// dropSlow runs after the read lock is released, so a client may have been
// unregistered or replaced in between. Only clients still registered are
// closed; the others belong to whoever removed them.
func (h *Hub) dropSlow(clients []*Client) {
	for _, client := range clients {
		if !h.detach(client) {
			continue
		}
		log.Printf("[hub] Dropping slow client %s", client.ID)
		client.closeSend()
		_ = client.conn.Close()
	}
}

// drop detaches a client and closes its connection. The owning handler sees
// the read error and runs its disconnect cleanup.
func (h *Hub) drop(client *Client) {
	h.detach(client)
	client.closeSend()
	_ = client.conn.Close()
}

// detach removes client from the hub and reports whether it was registered.
func (h *Hub) detach(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[client.ID] != client {
		return false
	}
	h.detachLocked(client)
	return true
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[string]*Client)
	h.rooms = make(map[string]map[string]bool)
	h.mu.Unlock()

	for _, client := range clients {
		client.closeSend()
		_ = client.conn.Close()
	}
}

func (h *Hub) detachLocked(client *Client) {
	h.leaveRoomLocked(client)
	delete(h.clients, client.ID)
}

func (h *Hub) leaveRoomLocked(client *Client) {
	if client.RoomID == "" {
		return
	}
	if members := h.rooms[client.RoomID]; members != nil {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.rooms, client.RoomID)
		}
	}
	client.RoomID = ""
}

// enqueue must be called with the hub lock held so the queue is not closed
// underneath it.
func (c *Client) enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

func encode(event string, payload any) ([]byte, bool) {
	data, err := json.Marshal(Frame{Type: event, Payload: payload})
	if err != nil {
		log.Printf("[hub] Failed to marshal %s event: %v", event, err)
		return nil, false
	}
	return data, true
}
