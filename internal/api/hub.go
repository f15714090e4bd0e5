package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"exoplanet-ai/internal/metrics"
	"exoplanet-ai/internal/storage"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

// feedMessage is what history feed clients receive: one snapshot on connect,
// then one message per new search.
type feedMessage struct {
	Type     string                 `json:"type"`
	Searches []storage.SearchRecord `json:"searches,omitempty"`
	Search   *storage.SearchRecord  `json:"search,omitempty"`
}

// Hub streams new search records to websocket clients.
type Hub struct {
	history   storage.HistoryStore
	limit     int
	metrics   *metrics.Metrics
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan storage.SearchRecord
}

// NewHub returns a hub that greets clients with the last limit records.
// An empty origins list, or one containing "*", accepts any origin.
func NewHub(history storage.HistoryStore, limit int, origins []string, m *metrics.Metrics) *Hub {
	h := &Hub{
		history:   history,
		limit:     limit,
		metrics:   m,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan storage.SearchRecord, 100),
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || len(origins) == 0 || slices.Contains(origins, "*") || slices.Contains(origins, origin)
	}}
	return h
}

// Publish queues rec for broadcast. It never blocks; when the queue is full
// the record is dropped from the feed (it is still in the store).
func (h *Hub) Publish(rec storage.SearchRecord) {
	select {
	case h.broadcast <- rec:
	default:
		if h.metrics != nil {
			h.metrics.WSBroadcastDrops.Inc()
		}
		log.Warn().Str("search_id", rec.ID).Msg("History feed queue full, dropping update")
	}
}

// Run broadcasts queued records until ctx is done, then disconnects every
// client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case rec := <-h.broadcast:
			h.broadcastToClients(rec)
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

func (h *Hub) broadcastToClients(rec storage.SearchRecord) {
	data, err := json.Marshal(feedMessage{Type: "search", Search: &rec})
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal search for broadcast")
		return
	}

	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for client := range h.clients {
		client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Debug().Err(err).Msg("Dropping history feed client")
			client.Close()
			delete(h.clients, client)
		}
	}
	h.reportClients()
}

func (h *Hub) closeAll() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for client := range h.clients {
		client.Close()
	}
	h.clients = make(map[*websocket.Conn]bool)
	h.reportClients()
}

// reportClients must be called with clientsMu held.
func (h *Hub) reportClients() {
	if h.metrics != nil {
		h.metrics.WSClients.Set(float64(len(h.clients)))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	return len(h.clients)
}

// subscribe sends the snapshot and registers conn under one hold of
// clientsMu. Records are stored before they are published, so every record
// reaches the client through the snapshot or the live feed; one stored just
// before the snapshot may arrive through both.
func (h *Hub) subscribe(conn *websocket.Conn) bool {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	recent, err := h.history.RecentSearches(h.limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load history snapshot")
	}
	if recent == nil {
		recent = []storage.SearchRecord{}
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(feedMessage{Type: "snapshot", Searches: recent}); err != nil {
		return false
	}

	h.clients[conn] = true
	h.reportClients()
	return true
}

// ServeHTTP upgrades the connection, sends the snapshot and then keeps the
// client registered until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	if !h.subscribe(conn) {
		return
	}

	// Keep connection alive
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.clientsMu.Lock()
	delete(h.clients, conn)
	h.reportClients()
	h.clientsMu.Unlock()
}
