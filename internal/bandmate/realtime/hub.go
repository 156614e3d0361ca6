package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Event is a single realtime message pushed to connected clients.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// Hub manages all websocket client connections. It tracks which user each
// connection belongs to and which project rooms it has joined. Admin
// connections receive every project-scoped event regardless of room
// membership.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	users   map[string]map[*Client]struct{} // user id -> connections
	rooms   map[string]map[*Client]struct{} // project id -> connections
	admins  map[*Client]struct{}
	log     *zap.Logger
}

// NewHub creates an empty hub. Callers own the instance; there is no
// package-level singleton.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		users:   make(map[string]map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
		admins:  make(map[*Client]struct{}),
		log:     log,
	}
}

// Register adds a connection to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	if h.users[c.userID] == nil {
		h.users[c.userID] = make(map[*Client]struct{})
	}
	h.users[c.userID][c] = struct{}{}
	if c.isAdmin {
		h.admins[c] = struct{}{}
	}
	h.log.Info("ws client registered",
		zap.String("user_id", c.userID),
		zap.Int("total", len(h.clients)))
}

// Unregister removes a connection and leaves all of its rooms.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	delete(h.admins, c)
	if conns, ok := h.users[c.userID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.users, c.userID)
		}
	}
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	close(c.send)
	h.log.Info("ws client unregistered",
		zap.String("user_id", c.userID),
		zap.Int("total", len(h.clients)))
}

// JoinRoom subscribes a connection to a project room.
func (h *Hub) JoinRoom(c *Client, projectID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	if h.rooms[projectID] == nil {
		h.rooms[projectID] = make(map[*Client]struct{})
	}
	h.rooms[projectID][c] = struct{}{}
	c.rooms[projectID] = struct{}{}
}

// LeaveRoom unsubscribes a connection from a project room.
func (h *Hub) LeaveRoom(c *Client, projectID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, projectID)
	delete(c.rooms, projectID)
}

func (h *Hub) leaveLocked(c *Client, projectID string) {
	if conns, ok := h.rooms[projectID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.rooms, projectID)
		}
	}
}

// JoinUserToRoom subscribes every live connection of a user to a project
// room. Called by membership flows; a no-op for offline users, whose next
// connection computes membership fresh.
func (h *Hub) JoinUserToRoom(userID, projectID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.users[userID] {
		if h.rooms[projectID] == nil {
			h.rooms[projectID] = make(map[*Client]struct{})
		}
		h.rooms[projectID][c] = struct{}{}
		c.rooms[projectID] = struct{}{}
	}
}

// EvictFromRoom removes every connection of a user from a project room.
// Used when the user loses project membership while connected.
func (h *Hub) EvictFromRoom(userID, projectID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.users[userID] {
		h.leaveLocked(c, projectID)
		delete(c.rooms, projectID)
	}
}

// EmitToUser delivers an event to every connection of one user.
// Returns true when at least one connection accepted the event.
func (h *Hub) EmitToUser(userID string, event Event) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := false
	for c := range h.users[userID] {
		if c.trySend(event) {
			delivered = true
		} else {
			h.log.Warn("ws client buffer full, dropping event",
				zap.String("user_id", c.userID),
				zap.String("event", event.Event))
		}
	}
	return delivered
}

// EmitToProject delivers an event to every connection in the project room
// plus every admin connection, each at most once.
func (h *Hub) EmitToProject(projectID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := make(map[*Client]struct{})
	for c := range h.rooms[projectID] {
		sent[c] = struct{}{}
	}
	for c := range h.admins {
		sent[c] = struct{}{}
	}
	for c := range sent {
		if !c.trySend(event) {
			h.log.Warn("ws client buffer full, dropping event",
				zap.String("user_id", c.userID),
				zap.String("event", event.Event))
		}
	}
}

// EmitToAll broadcasts an event to every connected client.
func (h *Hub) EmitToAll(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.trySend(event) {
			h.log.Warn("ws client buffer full, dropping event",
				zap.String("user_id", c.userID),
				zap.String("event", event.Event))
		}
	}
}

// IsUserOnline reports whether the user has at least one live connection.
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}

// OnlineCount returns the number of connected clients.
func (h *Hub) OnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize returns the number of connections in a project room.
func (h *Hub) RoomSize(projectID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[projectID])
}

// inbound is the shape of client-to-server messages.
type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type roomPayload struct {
	ProjectID string `json:"projectId"`
}
