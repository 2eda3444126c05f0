// Package push streams skill lifecycle events to connected websocket
// clients, typically catalog UIs that want live updates.
package push

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lorekeep/skillforge/internal/skill"
)

const (
	writeWait      = 10 * time.Second
	historyLimit   = 64
	clientSendSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The REST layer already applies CORS; the upgrade itself accepts any
	// origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans lifecycle events out to every connected websocket client and
// keeps a bounded history for late joiners.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	history []skill.Event
	logger  *zap.Logger
}

type client struct {
	conn *websocket.Conn
	send chan skill.Event
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
	}
}

// Publish delivers an event to all connected clients. Slow clients are
// dropped rather than allowed to stall the rest. Implements the service
// layer's Publisher contract.
func (h *Hub) Publish(_ context.Context, ev skill.Event) error {
	h.mu.Lock()
	h.history = append(h.history, ev)
	if len(h.history) > historyLimit {
		h.history = h.history[len(h.history)-historyLimit:]
	}
	var stalled []*client
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			stalled = append(stalled, c)
		}
	}
	for _, c := range stalled {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	if len(stalled) > 0 {
		h.logger.Warn("dropped stalled push clients", zap.Int("count", len(stalled)))
	}
	return nil
}

// History returns up to limit recent events, oldest first.
func (h *Hub) History(limit int) []skill.Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if limit <= 0 || limit > len(h.history) {
		limit = len(h.history)
	}
	out := make([]skill.Event, limit)
	copy(out, h.history[len(h.history)-limit:])
	return out
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a websocket and streams events until
// the client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan skill.Event, clientSendSize)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("push client connected", zap.String("remote", r.RemoteAddr))

	go h.writeLoop(c)
	h.readLoop(c)
}

// writeLoop pushes queued events to one client.
func (h *Hub) writeLoop(c *client) {
	for ev := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(ev); err != nil {
			h.drop(c)
			return
		}
	}
	c.conn.Close()
}

// readLoop discards inbound frames; its job is noticing disconnects.
func (h *Hub) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.drop(c)
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	c.conn.Close()
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		c.conn.Close()
		delete(h.clients, c)
	}
}
