// Package websocket streams pipeline run progress to connected clients.
// The hub is broadcast-only: clients subscribe and receive; inbound
// payloads are discarded.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"districtpulse/internal/operations"
)

// Message envelope types sent to clients.
const (
	TypeConnection = "connection"
	TypeProgress   = "run:progress"
)

// Envelope is the wire form of every hub message.
type Envelope struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// Hub maintains the set of active clients and fans broadcasts out to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	quit       chan struct{}

	mu      sync.Mutex
	running bool

	logger *slog.Logger
}

// NewHub creates a hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "websocket_hub")),
	}
}

// Start launches the hub loop. Calling Start twice is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

// Shutdown stops the hub loop and closes every client.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	h.running = false
	close(h.quit)
}

func (h *Hub) run() {
	for {
		select {
		case <-h.quit:
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.logger.Info("hub stopped")
			return

		case client := <-h.register:
			h.clients[client] = true
			h.logger.Info("client connected",
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr),
				slog.Int("clients", len(h.clients)))
			client.enqueue(marshalEnvelope(TypeConnection, map[string]string{
				"status":    "connected",
				"client_id": client.id,
			}))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Info("client disconnected",
					slog.String("client_id", client.id),
					slog.Int("clients", len(h.clients)))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer; drop it rather than stall
					// the broadcast loop.
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// BroadcastProgress satisfies the pipeline's progress sink. Updates are
// best-effort; a stopped hub discards them.
func (h *Hub) BroadcastProgress(update operations.ProgressUpdate) {
	h.Broadcast(marshalEnvelope(TypeProgress, update))
}

// Broadcast sends raw bytes to every connected client.
func (h *Hub) Broadcast(message []byte) {
	h.mu.Lock()
	running := h.running
	h.mu.Unlock()
	if !running {
		return
	}
	select {
	case h.broadcast <- message:
	case <-h.quit:
	}
}

func marshalEnvelope(msgType string, data interface{}) []byte {
	payload, err := json.Marshal(Envelope{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return []byte(`{"type":"error"}`)
	}
	return payload
}
