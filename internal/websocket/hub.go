// Package websocket streams newly recorded access events to connected admins.
package websocket

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"parcelview/internal/metrics"
	"parcelview/internal/models"
)

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Message struct {
	Type  string              `json:"type"`
	Event *models.AccessEvent `json:"event"`
}

const MessageAccessEvent = "access_event"

type Hub struct {
	clients    map[*Client]bool
	mu         sync.RWMutex
	logger     *zap.Logger
	Register   chan *Client
	Unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		logger:     logger,
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)
		case client := <-h.Unregister:
			h.unregisterClient(client)
		case <-h.done:
			h.closeAll()
			return
		}
	}
}

// Stop disconnects every subscriber and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Join hands a client to Run. It returns false once the hub has stopped, so
// callers never block on a hub that is no longer reading.
func (h *Hub) Join(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
	metrics.AdminStreamClients.Set(float64(len(h.clients)))
	h.logger.Info("admin stream client registered", zap.String("user_id", client.UserID.String()))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		metrics.AdminStreamClients.Set(float64(len(h.clients)))
		h.logger.Info("admin stream client unregistered", zap.String("user_id", client.UserID.String()))
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
	metrics.AdminStreamClients.Set(0)
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PublishAccessEvent fans the event out to every subscriber. A subscriber
// whose buffer is full misses the event.
func (h *Hub) PublishAccessEvent(event *models.AccessEvent) {
	data, err := json.Marshal(Message{Type: MessageAccessEvent, Event: event})
	if err != nil {
		h.logger.Error("failed to encode access event for stream", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			h.logger.Warn("admin stream client send buffer is full, dropping message",
				zap.String("user_id", client.UserID.String()))
		}
	}
}

// Subscribers lists the user ids currently connected.
func (h *Hub) Subscribers() []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(h.clients))
	for client := range h.clients {
		ids = append(ids, client.UserID)
	}
	return ids
}
