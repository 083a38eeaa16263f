package hub

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Update is one dashboard event: export lifecycle changes and the count
// of exports currently in flight.
type Update struct {
	Type          string `json:"type"` // "export_start", "progress", "export_complete", "export_failed", "active_update"
	JobID         string `json:"job_id,omitempty"`
	Rows          int    `json:"rows,omitempty"`
	Status        string `json:"status,omitempty"`
	ActiveExports int    `json:"active_exports,omitempty"`
}

// Hub fans export progress out to connected dashboard websockets.
type Hub struct {
	dashboards map[*websocket.Conn]bool
	active     int
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		dashboards: make(map[*websocket.Conn]bool),
	}
}

func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dashboards[conn] = true
	slog.Info("Dashboard connected", "total_connections", len(h.dashboards))
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.dashboards[conn]; ok {
		delete(h.dashboards, conn)
		conn.Close()
		slog.Info("Dashboard disconnected", "total_connections", len(h.dashboards))
	}
}

func (h *Hub) Broadcast(update Update) {
	h.mu.Lock()
	defer h.mu.Unlock()

	payload, _ := json.Marshal(update)
	for conn := range h.dashboards {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			slog.Error("Dashboard broadcast failed", "error", err)
			conn.Close()
			delete(h.dashboards, conn)
		}
	}
}

// UpdateActive adjusts the in-flight export counter and announces it.
func (h *Hub) UpdateActive(delta int) {
	h.mu.Lock()
	h.active += delta
	active := h.active
	h.mu.Unlock()

	h.Broadcast(Update{Type: "active_update", ActiveExports: active})
}
