package ws

import (
	"log/slog"
	"sync"

	"cypher_arena/internal/logger"
	"cypher_arena/internal/metrics"
	"cypher_arena/internal/realtime"
)

// Hub tracks the relay's connected clients.
type Hub struct {
	bus realtime.Bus
	log *slog.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func NewHub(bus realtime.Bus) *Hub {
	return &Hub{
		bus:     bus,
		log:     logger.For("relay"),
		clients: make(map[*Client]struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.WSClients.Inc()
	h.log.Debug("client connected", "player_id", c.PlayerID, "clients", n)
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		metrics.WSClients.Dec()
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		_ = c.Conn.Close()
	}
}
