// Package fanout pushes session events to WebSocket clients.
package fanout

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/logger"
)

const (
	clientSendBuf = 64
	writeDeadline = 5 * time.Second
	pongWait      = 60 * time.Second
	pingInterval  = 25 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// Envelope is the wire form of every event.
type Envelope struct {
	Type    string          `json:"type"`
	GameID  string          `json:"game_id"`
	TS      time.Time       `json:"ts"`
	Payload json.RawMessage `json:"payload"`
}

type client struct {
	game string // empty receives every game
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// Hub fans out published events to connected clients. A slow client loses
// messages rather than blocking the publisher.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	now     func() time.Time
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{}), now: time.Now}
}

// Publish serializes payload and enqueues it to every matching client.
func (h *Hub) Publish(eventType, gameID string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Warn("fanout: marshal %s payload: %v", eventType, err)
		return
	}
	data, err := json.Marshal(Envelope{Type: eventType, GameID: gameID, TS: h.now().UTC(), Payload: body})
	if err != nil {
		logger.Warn("fanout: marshal %s envelope: %v", eventType, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.game != "" && c.game != gameID {
			continue
		}
		select {
		case c.send <- data:
		default:
			logger.Warn("fanout: dropping %s event for slow client", eventType)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request. Clients may narrow the stream with
// ?game=<id>.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("fanout: upgrade failed: %v", err)
		return
	}
	c := &client{
		game: r.URL.Query().Get("game"),
		conn: conn,
		send: make(chan []byte, clientSendBuf),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	logger.Debug("fanout: client connected from %s (game %q)", r.RemoteAddr, c.game)

	go h.writePump(c)
	go h.readPump(c)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close()
	}
}

// writePump owns the client lifecycle: on exit it unregisters the client
// and closes the connection.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		h.remove(c)
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("fanout: write error: %v", err)
				return
			}
		case <-c.done:
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only services pongs and close frames. It never closes c.send.
func (h *Hub) readPump(c *client) {
	defer close(c.done)

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	logger.Debug("fanout: client disconnected (game %q)", c.game)
}
