// Package websocket pushes admin panel events (new contact messages, blog
// changes) to connected dashboards.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Event types broadcast to admin dashboards.
const (
	EventMessageCreated = "message_created"
	EventMessageRead    = "message_read"
	EventMessageDeleted = "message_deleted"
	EventPostCreated    = "post_created"
	EventPostDeleted    = "post_deleted"
)

// Event is a notification for admin dashboards. Unread carries the inbox
// unread count after the change, when known.
type Event struct {
	Type   string `json:"type"`
	ID     int64  `json:"id,omitempty"`
	Title  string `json:"title,omitempty"`
	Unread *int   `json:"unread,omitempty"`
}

// Hub tracks connected admin clients and fans events out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger.With("component", "websocket"),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("client connected", "user_id", c.userID, "clients", n)
}

// Unregister removes a client and closes its send channel. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast queues ev for every client. Clients with a full buffer miss it.
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("dropping event for slow client", "type", ev.Type, "user_id", c.userID)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
