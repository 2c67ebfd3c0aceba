// Package api - WebSocket feed of best-score changes
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/alexbotov/highscore/internal/domain"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // read-only feed, any origin
	},
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// MessageTypeHighscore is sent on connect and after every accepted update
const MessageTypeHighscore = "highscore"

// WSClient represents a WebSocket client connection
type WSClient struct {
	conn *websocket.Conn
	send chan []byte

	// guarded by Hub.mu
	seen bool
	best int64
}

// Hub fans out highscore updates to connected clients
type Hub struct {
	mu        sync.Mutex
	clients   map[*WSClient]struct{}
	published map[string]int64
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*WSClient]struct{}),
		published: make(map[string]int64),
	}
}

// HighscoreUpdated implements highscore.Notifier. Events that do not raise
// the last published best are dropped.
func (hub *Hub) HighscoreUpdated(_ context.Context, event domain.HighscoreEvent) {
	msg, err := encodeMessage(MessageTypeHighscore, event.Record)
	if err != nil {
		slog.Error("failed to encode highscore message", "error", err)
		return
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()
	if last, ok := hub.published[event.Record.Team]; ok && event.Record.Best <= last {
		return
	}
	hub.published[event.Record.Team] = event.Record.Best
	for c := range hub.clients {
		hub.offer(c, event.Record.Best, msg)
	}
}

// Clients returns the number of connected clients
func (hub *Hub) Clients() int {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	return len(hub.clients)
}

func (hub *Hub) register(c *WSClient) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	hub.clients[c] = struct{}{}
}

func (hub *Hub) unregister(c *WSClient) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	hub.remove(c)
}

// snapshot sends the connect-time record to a registered client. It is
// skipped when an update newer than the snapshot already reached the client.
func (hub *Hub) snapshot(c *WSClient, rec domain.HighscoreRecord) error {
	msg, err := encodeMessage(MessageTypeHighscore, rec)
	if err != nil {
		return err
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()
	if _, ok := hub.clients[c]; ok {
		hub.offer(c, rec.Best, msg)
	}
	return nil
}

// offer queues msg unless the client already holds an equal or higher best.
// Must be called with mu held.
func (hub *Hub) offer(c *WSClient, best int64, msg []byte) {
	if c.seen && best <= c.best {
		return
	}
	select {
	case c.send <- msg:
		c.seen = true
		c.best = best
	default:
		// Slow consumer; drop it rather than block the submitter.
		hub.remove(c)
	}
}

// remove must be called with mu held
func (hub *Hub) remove(c *WSClient) {
	if _, ok := hub.clients[c]; ok {
		delete(hub.clients, c)
		close(c.send)
	}
}

// Close disconnects every client
func (hub *Hub) Close() {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	for c := range hub.clients {
		hub.remove(c)
	}
}

func encodeMessage(msgType string, payload interface{}) ([]byte, error) {
	return json.Marshal(WSMessage{Type: msgType, Payload: payload})
}

// HandleWebSocket handles GET /api/highscore/ws
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Upgrade replies with 400 itself when the request is not a handshake.
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	// Register before reading the snapshot so no update can fall between
	// the two; the hub keeps whichever of them is higher.
	h.hub.register(client)
	go client.writePump()
	go h.readPump(client)

	team := h.scores.Team()
	best, err := h.scores.GetBest(r.Context(), team)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to get highscore", "team", team, "error", err)
		h.hub.unregister(client)
		return
	}
	if err := h.hub.snapshot(client, domain.HighscoreRecord{Team: team, Best: best}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode highscore message", "error", err)
		h.hub.unregister(client)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *WSClient) writePump() {
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

// readPump drains the connection so control frames are processed; clients
// have nothing to say on this feed
func (h *Handler) readPump(c *WSClient) {
	defer func() {
		h.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read error", "error", err)
			}
			return
		}
	}
}
