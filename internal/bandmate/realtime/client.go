package realtime

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 64
)

// Client is the middleman between one websocket connection and the hub.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan Event
	userID  string
	isAdmin bool
	rooms   map[string]struct{}

	// canJoin is consulted before a room:join request is honored. It is
	// called outside the hub lock.
	canJoin func(projectID string) bool
}

// NewClient wraps an upgraded connection. canJoin decides whether the user
// may enter a given project room; admins may pass a nil canJoin.
func NewClient(hub *Hub, conn *websocket.Conn, userID string, isAdmin bool, canJoin func(projectID string) bool) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan Event, sendBuffer),
		userID:  userID,
		isAdmin: isAdmin,
		rooms:   make(map[string]struct{}),
		canJoin: canJoin,
	}
}

// UserID returns the owning user's id.
func (c *Client) UserID() string {
	return c.userID
}

// trySend queues an event without blocking. The caller holds the hub lock,
// so a slow consumer must never stall delivery to others.
func (c *Client) trySend(event Event) bool {
	select {
	case c.send <- event:
		return true
	default:
		return false
	}
}

// Start registers the client and begins its read/write pumps.
func (c *Client) Start() {
	c.hub.Register(c)
	go c.writePump()
	go c.readPump()
}

// readPump reads client messages until the connection drops. Room join and
// leave requests are handled here; anything else is logged and ignored.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg inbound
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("ws read failed",
					zap.String("user_id", c.userID),
					zap.Error(err))
			}
			return
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg inbound) {
	switch msg.Event {
	case "room:join":
		var p roomPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil || p.ProjectID == "" {
			return
		}
		if !c.isAdmin && c.canJoin != nil && !c.canJoin(p.ProjectID) {
			c.trySend(Event{Event: "room:denied", Data: p})
			return
		}
		c.hub.JoinRoom(c, p.ProjectID)
		c.trySend(Event{Event: "room:joined", Data: p})
	case "room:leave":
		var p roomPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil || p.ProjectID == "" {
			return
		}
		c.hub.LeaveRoom(c, p.ProjectID)
		c.trySend(Event{Event: "room:left", Data: p})
	case "notification:read":
		// Read state is persisted through the REST endpoint; the socket
		// acknowledgement is informational.
		c.hub.log.Info("ws notification read ack",
			zap.String("user_id", c.userID))
	case "ping":
		c.trySend(Event{Event: "pong"})
	default:
		c.hub.log.Debug("ws unknown inbound event",
			zap.String("user_id", c.userID),
			zap.String("event", msg.Event))
	}
}

// writePump writes queued events and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
