package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/linechime/backend/internal/sandbox"
)

func newTestClient(sessionID string) *Client {
	return &Client{sessionID: sessionID, send: make(chan []byte, 4)}
}

func waitRoom(t *testing.T, h *Hub, id string, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for h.RoomSize(id) != want {
		if time.Now().After(deadline) {
			t.Fatalf("room %s size = %d, want %d", id, h.RoomSize(id), want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHubRoomsAndDelivery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub()
	go h.Run(ctx)

	a, b, other := newTestClient("s1"), newTestClient("s1"), newTestClient("s2")
	h.register <- a
	h.register <- b
	h.register <- other
	waitRoom(t, h, "s1", 2)

	h.Deliver(sandbox.NewEvent("s1", sandbox.EventTone, map[string]interface{}{"frequency": 440}))

	for _, c := range []*Client{a, b} {
		select {
		case data := <-c.send:
			var got map[string]interface{}
			json.Unmarshal(data, &got)
			if got["type"] != "tone" || got["session_id"] != "s1" || got["frequency"] != 440.0 {
				t.Errorf("message = %s", data)
			}
		default:
			t.Error("client in room did not receive the event")
		}
	}
	if len(other.send) != 0 {
		t.Error("event leaked to another session")
	}

	h.unregister <- a
	waitRoom(t, h, "s1", 1)
	if _, ok := <-a.send; ok {
		t.Error("send channel should be closed after unregister")
	}
}

func TestDeliverClosedEventClosesRoom(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub()
	go h.Run(ctx)

	c := newTestClient("s1")
	h.register <- c
	waitRoom(t, h, "s1", 1)

	h.Deliver(sandbox.NewEvent("s1", sandbox.EventClosed, map[string]interface{}{"reason": "idle"}))

	if h.RoomSize("s1") != 0 {
		t.Error("room should be gone")
	}
	data, ok := <-c.send
	if !ok {
		t.Fatal("closed event should be delivered before the room closes")
	}
	var got map[string]interface{}
	json.Unmarshal(data, &got)
	if got["type"] != sandbox.EventClosed || got["reason"] != "idle" {
		t.Errorf("message = %s", data)
	}
	if _, ok := <-c.send; ok {
		t.Error("send channel should be closed")
	}

	// a late unregister for a closed room is a no-op
	h.unregister <- c
}

func TestJoinAndLeaveAfterHubStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub()
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	c := newTestClient("s1")
	if !h.join(c) {
		t.Fatal("join failed on a running hub")
	}
	waitRoom(t, h, "s1", 1)

	cancel()
	<-stopped

	left := make(chan struct{})
	go func() {
		h.leave(c)
		close(left)
	}()
	select {
	case <-left:
	case <-time.After(time.Second):
		t.Fatal("leave blocked after the hub stopped")
	}
	if h.RoomSize("s1") != 0 {
		t.Error("client still in room")
	}
	if _, ok := <-c.send; ok {
		t.Error("send channel should be closed")
	}
	if h.join(newTestClient("s1")) {
		t.Error("join should fail once the hub has stopped")
	}
}

func TestDecodeEvent(t *testing.T) {
	ev, err := decodeEvent(`{"type":"recording","session_id":"sbx_1","recording":true}`)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Type != sandbox.EventRecording || ev.SessionID != "sbx_1" || ev.Fields["recording"] != true {
		t.Errorf("event = %+v", ev)
	}
	if _, err := decodeEvent(`{"session_id":"x"}`); err == nil {
		t.Error("event without type should fail")
	}
}

func TestImportText(t *testing.T) {
	melody := `[{"note":"C4","time":0}]`
	quoted, _ := json.Marshal(melody)
	wrapped, _ := json.Marshal(importData{Text: melody})

	for _, raw := range []json.RawMessage{quoted, wrapped, json.RawMessage(melody)} {
		if got := importText(raw); got != melody {
			t.Errorf("importText(%s) = %q", raw, got)
		}
	}
}
