package lobby

import (
	"sort"
	"sync"

	"github.com/vovakirdan/arena-coordinator/internal/proto"
)

// Hub tracks one live connection per player and routes events to it.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

// Register binds a client to its player id. A previous connection of the
// same player is replaced and its event channel closed so its writer exits.
func (h *Hub) Register(c *Client) (replaced bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.clients[c.ID]; ok && old != c {
		close(old.Events)
		replaced = true
	}
	h.clients[c.ID] = c
	return replaced
}

// Unregister removes the client if it is still the active connection.
func (h *Hub) Unregister(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cur, ok := h.clients[c.ID]; !ok || cur != c {
		return false
	}
	delete(h.clients, c.ID)
	close(c.Events)
	return true
}

// Send delivers an event to a player. Returns false if the player is not
// connected or its buffer is full.
func (h *Hub) Send(playerID string, event proto.Outbound) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[playerID]
	if !ok {
		return false
	}
	select {
	case c.Events <- event:
		return true
	default:
		// Drop if slow consumer.
		return false
	}
}

// Broadcast sends an event to every connected player.
func (h *Hub) Broadcast(event proto.Outbound) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		select {
		case c.Events <- event:
		default:
		}
	}
}

// Connected reports whether playerID has a live connection.
func (h *Hub) Connected(playerID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[playerID]
	return ok
}

// Len returns the number of connected players.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IDs returns the connected player ids in sorted order.
func (h *Hub) IDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		close(c.Events)
		delete(h.clients, id)
	}
}
