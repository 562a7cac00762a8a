package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/linechime/backend/internal/sandbox"
)

// Hub keeps the WebSocket clients of every session, grouped in one room per
// session. Several clients may watch the same session.
type Hub struct {
	rooms      map[string]map[*Client]bool // sessionID -> clients
	register   chan *Client
	unregister chan *Client
	done       chan struct{} // closed when Run returns
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run processes registrations until ctx ends. It must be called at most once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			room, ok := h.rooms[client.sessionID]
			if !ok {
				room = make(map[*Client]bool)
				h.rooms[client.sessionID] = room
			}
			room[client] = true
			size := len(room)
			h.mu.Unlock()
			log.Printf("[WS] Client joined session=%s room_size=%d", client.sessionID, size)

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

// join registers client and reports false if the hub has stopped.
func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// leave unregisters client. After the hub stops it only closes the client's
// send channel.
func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		h.remove(client)
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[client.sessionID]
	if !ok || !room[client] {
		return
	}
	delete(room, client)
	close(client.send)
	if len(room) == 0 {
		delete(h.rooms, client.sessionID)
	}
	log.Printf("[WS] Client left session=%s room_size=%d", client.sessionID, len(room))
}

// RoomSize counts the clients watching a session.
func (h *Hub) RoomSize(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}

// BroadcastToSession sends a message to every client of a session. Clients
// with a full buffer miss the message.
func (h *Hub) BroadcastToSession(sessionID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Error marshaling message for session=%s: %v", sessionID, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[sessionID] {
		select {
		case client.send <- data:
		default:
			log.Printf("[WS] Send buffer full for session=%s, dropping message", sessionID)
		}
	}
}

// CloseRoom disconnects every client of a session.
func (h *Hub) CloseRoom(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[sessionID]
	if !ok {
		return
	}
	for client := range room {
		close(client.send)
	}
	delete(h.rooms, sessionID)
	log.Printf("[WS] Closed room session=%s clients=%d", sessionID, len(room))
}

// Deliver routes a session event to its room. A session_closed event is
// delivered and then closes the room.
func (h *Hub) Deliver(ev sandbox.Event) {
	h.BroadcastToSession(ev.SessionID, ev)
	if ev.Type == sandbox.EventClosed {
		h.CloseRoom(ev.SessionID)
	}
}
