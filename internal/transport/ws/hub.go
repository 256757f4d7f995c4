// Package ws pushes import progress events to dashboard clients over
// websockets. Each connection announces a subscriber id; the import
// pipeline addresses progress updates to that id.
package ws

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type progressEvent struct {
	Event    string  `json:"event"`
	Progress float64 `json:"progress"`
}

// Hub tracks live websocket subscribers by id.
type Hub struct {
	mu    sync.Mutex
	conns map[string]*client
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]*client)}
}

// ServeHTTP upgrades the request and registers the connection under the
// subscriber id given in the "socket_id" query parameter.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	subscriberID := r.URL.Query().Get("socket_id")
	if subscriberID == "" {
		http.Error(w, "socket_id is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}

	c := &client{conn: conn}
	h.mu.Lock()
	if prev, ok := h.conns[subscriberID]; ok {
		prev.conn.Close()
	}
	h.conns[subscriberID] = c
	h.mu.Unlock()

	slog.Debug("websocket subscriber connected", "socket_id", subscriberID)

	// Drain reads so close frames are processed; unregister on error.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.remove(subscriberID, c)
				return
			}
		}
	}()
}

// Publish sends an import_progress event to the given subscriber. Unknown
// ids are dropped silently: the upload still succeeds without a live
// dashboard connection.
func (h *Hub) Publish(subscriberID string, percent float64) {
	h.mu.Lock()
	c, ok := h.conns[subscriberID]
	h.mu.Unlock()
	if !ok {
		return
	}

	c.mu.Lock()
	err := c.conn.WriteJSON(progressEvent{Event: "import_progress", Progress: percent})
	c.mu.Unlock()

	if err != nil {
		slog.Debug("dropping websocket subscriber after write failure", "socket_id", subscriberID, "err", err)
		h.remove(subscriberID, c)
	}
}

func (h *Hub) remove(subscriberID string, c *client) {
	h.mu.Lock()
	if cur, ok := h.conns[subscriberID]; ok && cur == c {
		delete(h.conns, subscriberID)
	}
	h.mu.Unlock()
	c.conn.Close()
}

// Close drops every live connection. Used during shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.conns {
		c.conn.Close()
		delete(h.conns, id)
	}
}
