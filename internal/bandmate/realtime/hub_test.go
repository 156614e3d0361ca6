package realtime

import (
	"testing"

	"go.uber.org/zap"
)

func newTestClient(h *Hub, userID string, isAdmin bool) *Client {
	c := NewClient(h, nil, userID, isAdmin, nil)
	h.Register(c)
	return c
}

// drain reads every queued event from a client's buffer.
func drain(c *Client) []Event {
	var events []Event
	for {
		select {
		case e, ok := <-c.send:
			if !ok {
				return events
			}
			events = append(events, e)
		default:
			return events
		}
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(zap.NewNop())

	c1 := newTestClient(hub, "u1", false)
	c2 := newTestClient(hub, "u1", false)

	if !hub.IsUserOnline("u1") {
		t.Fatal("expected u1 online after register")
	}
	if got := hub.OnlineCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)
	if !hub.IsUserOnline("u1") {
		t.Fatal("u1 should stay online while one connection remains")
	}

	hub.Unregister(c2)
	if hub.IsUserOnline("u1") {
		t.Fatal("u1 should be offline after last connection drops")
	}
	if got := hub.OnlineCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}

	// Double unregister must be a no-op.
	hub.Unregister(c2)
}

func TestEmitToUserDeliveredFlag(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c := newTestClient(hub, "u1", false)

	if hub.EmitToUser("ghost", Event{Event: "notification"}) {
		t.Fatal("expected delivered=false for offline user")
	}
	if !hub.EmitToUser("u1", Event{Event: "notification"}) {
		t.Fatal("expected delivered=true for online user")
	}

	events := drain(c)
	if len(events) != 1 || events[0].Event != "notification" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestEmitToProjectRoomScoped(t *testing.T) {
	hub := NewHub(zap.NewNop())
	inRoom := newTestClient(hub, "u1", false)
	outside := newTestClient(hub, "u2", false)

	hub.JoinRoom(inRoom, "p1")
	hub.EmitToProject("p1", Event{Event: "activity"})

	if got := drain(inRoom); len(got) != 1 {
		t.Fatalf("room member should receive event, got %d", len(got))
	}
	if got := drain(outside); len(got) != 0 {
		t.Fatalf("non-member should receive nothing, got %d", len(got))
	}
}

func TestEmitToProjectIncludesAdminsOnce(t *testing.T) {
	hub := NewHub(zap.NewNop())
	admin := newTestClient(hub, "admin", true)

	// Admin also joined the room: must still receive exactly one copy.
	hub.JoinRoom(admin, "p1")
	hub.EmitToProject("p1", Event{Event: "activity"})

	if got := drain(admin); len(got) != 1 {
		t.Fatalf("admin in room should receive exactly one event, got %d", len(got))
	}

	// Admin outside any room still receives project events.
	hub.LeaveRoom(admin, "p1")
	hub.EmitToProject("p2", Event{Event: "activity"})
	if got := drain(admin); len(got) != 1 {
		t.Fatalf("admin outside room should receive project event, got %d", len(got))
	}
}

func TestLeaveRoomStopsDelivery(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c := newTestClient(hub, "u1", false)

	hub.JoinRoom(c, "p1")
	hub.LeaveRoom(c, "p1")
	hub.EmitToProject("p1", Event{Event: "activity"})

	if got := drain(c); len(got) != 0 {
		t.Fatalf("expected no events after leaving room, got %d", len(got))
	}
	if hub.RoomSize("p1") != 0 {
		t.Fatal("room should be empty")
	}
}

func TestEvictFromRoom(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c1 := newTestClient(hub, "u1", false)
	c2 := newTestClient(hub, "u1", false)
	other := newTestClient(hub, "u2", false)

	hub.JoinRoom(c1, "p1")
	hub.JoinRoom(c2, "p1")
	hub.JoinRoom(other, "p1")

	hub.EvictFromRoom("u1", "p1")

	hub.EmitToProject("p1", Event{Event: "activity"})
	if got := drain(c1); len(got) != 0 {
		t.Fatal("evicted connection should receive nothing")
	}
	if got := drain(c2); len(got) != 0 {
		t.Fatal("all of the user's connections should be evicted")
	}
	if got := drain(other); len(got) != 1 {
		t.Fatal("other members keep receiving events")
	}
}

func TestUnregisterCleansRooms(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c := newTestClient(hub, "u1", false)

	hub.JoinRoom(c, "p1")
	hub.Unregister(c)

	if hub.RoomSize("p1") != 0 {
		t.Fatal("unregister should remove the connection from its rooms")
	}
}

func TestSlowConsumerDoesNotBlock(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c := newTestClient(hub, "u1", false)

	// Fill the buffer past capacity; overflow must be dropped, not block.
	for i := 0; i < sendBuffer+10; i++ {
		hub.EmitToUser("u1", Event{Event: "notification"})
	}
	if got := drain(c); len(got) != sendBuffer {
		t.Fatalf("expected exactly %d buffered events, got %d", sendBuffer, len(got))
	}
}
