package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/linechime/backend/internal/sandbox"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 65536
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origins are checked by middleware.WebSocketCORSCheck
	},
}

// Client is one WebSocket connection watching a session.
type Client struct {
	hub       *Hub
	mgr       *sandbox.Manager
	conn      *websocket.Conn
	sessionID string
	send      chan []byte
}

// WSMessage is an inbound client message.
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Serve upgrades the request and attaches the connection to an already
// authorized session.
func Serve(w http.ResponseWriter, r *http.Request, hub *Hub, mgr *sandbox.Manager, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error session=%s: %v", sessionID, err)
		return
	}

	client := &Client{
		hub:       hub,
		mgr:       mgr,
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan []byte, sendBuffer),
	}
	if !hub.join(client) {
		log.Printf("[WS] Hub stopped, refusing client session=%s", sessionID)
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
	client.sendState()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] Unexpected close session=%s: %v", c.sessionID, err)
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendNotice("error", "Invalid message")
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] Write error session=%s: %v", c.sessionID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendEvent queues an event for this client only.
func (c *Client) sendEvent(ev sandbox.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	defer func() {
		// send is closed once the room is gone
		recover()
	}()
	select {
	case c.send <- data:
	default:
		log.Printf("[WS] Send buffer full session=%s, dropping %s", c.sessionID, ev.Type)
	}
}

func (c *Client) sendNotice(level, message string) {
	c.sendEvent(sandbox.Notice(c.sessionID, level, message))
}
