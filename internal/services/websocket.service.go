package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"nabz/internal/models"
)

// WebSocketMessage represents a message sent over WebSocket
type WebSocketMessage struct {
	Type      string      `json:"type"` // "snapshot", "alert", "auth", "ping", "error"
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Token     string      `json:"token,omitempty"` // For auth messages from client
}

// ClientConnection represents a connected WebSocket client
type ClientConnection struct {
	ID    string
	Conn  *websocket.Conn
	Send  chan WebSocketMessage
	Close chan bool
}

// WebSocketHub fans monitor output out to connected dashboard clients. The
// monitor pushes a "snapshot" message after each collection tick and an
// "alert" message for every critical alert; the hub is also the registry
// the realtime probe counts sockets against.
type WebSocketHub struct {
	clients    map[string]*ClientConnection
	broadcast  chan WebSocketMessage
	register   chan *ClientConnection
	unregister chan string
	mu         sync.RWMutex
	done       chan bool
	logger     *zap.Logger
}

// NewWebSocketHub creates and starts a hub.
func NewWebSocketHub(logger *zap.Logger) *WebSocketHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &WebSocketHub{
		clients:    make(map[string]*ClientConnection),
		broadcast:  make(chan WebSocketMessage, 256),
		register:   make(chan *ClientConnection),
		unregister: make(chan string),
		done:       make(chan bool),
		logger:     logger,
	}
	go h.run()
	return h
}

// run manages the hub's event loop
func (h *WebSocketHub) run() {
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("websocket client connected", zap.String("client", client.ID), zap.Int("total", total))

		case clientID := <-h.unregister:
			h.mu.Lock()
			if client, exists := h.clients[clientID]; exists {
				delete(h.clients, clientID)
				close(client.Send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("websocket client disconnected", zap.String("client", clientID), zap.Int("total", total))

		case msg := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients {
				select {
				case client.Send <- msg:
				default:
					// Client's send channel is full, skip this message
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a new client to the hub
func (h *WebSocketHub) Register(client *ClientConnection) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *WebSocketHub) Unregister(clientID string) {
	h.unregister <- clientID
}

// BroadcastSnapshot pushes a freshly collected snapshot to all clients.
// Fire-and-forget: a full hub queue drops the message rather than delaying
// the monitor loop.
func (h *WebSocketHub) BroadcastSnapshot(snap models.MetricSnapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		h.logger.Warn("failed to marshal snapshot for broadcast", zap.Error(err))
		return
	}
	msg := WebSocketMessage{
		Type:      "snapshot",
		Timestamp: time.Now(),
		Data:      json.RawMessage(data),
	}
	select {
	case h.broadcast <- msg:
	default:
	}
}

// NotifyCritical delivers a critical alert on the administrative channel.
// Implements the monitor's AdminNotifier.
func (h *WebSocketHub) NotifyCritical(alert models.Alert) {
	data, err := json.Marshal(alert)
	if err != nil {
		h.logger.Warn("failed to marshal alert for broadcast", zap.Error(err))
		return
	}
	msg := WebSocketMessage{
		Type:      "alert",
		Timestamp: time.Now(),
		Data:      json.RawMessage(data),
	}
	select {
	case h.broadcast <- msg:
	default:
	}
}

// RealtimeStats implements RealtimeProber against the hub's own registry.
func (h *WebSocketHub) RealtimeStats(_ context.Context) (models.RealtimeStats, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	queued := 0
	for _, client := range h.clients {
		queued += len(client.Send)
	}
	return models.RealtimeStats{
		ActiveSockets:  len(h.clients),
		QueuedMessages: queued,
	}, nil
}

// Stop gracefully stops the hub
func (h *WebSocketHub) Stop() {
	h.done <- true
}
