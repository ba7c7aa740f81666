package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/isoura4/isrobot-backend/internal/notify"
)

// Hub fans moderation-log and notification events out to connected
// dashboard clients
type Hub struct {
	// Registered clients keyed by moderator ID
	clients map[uuid.UUID]*Client

	// Outbound events for all clients
	broadcast chan []byte

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	notifier *notify.RedisNotifier
	logger   *zap.Logger

	mu sync.RWMutex
}

// NewHub creates a new Hub
func NewHub(notifier *notify.RedisNotifier, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]*Client),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		notifier:   notifier,
		logger:     logger,
	}
}

// Run starts the hub loop and the Redis subscription feeding it
func (h *Hub) Run(ctx context.Context) {
	go h.notifier.SubscribeModLog(ctx, func(channel string, payload []byte) {
		select {
		case h.broadcast <- payload:
		default:
			h.logger.Warn("hub broadcast buffer full, dropping event",
				zap.String("channel", channel))
		}
	})

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				close(client.send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if existing, ok := h.clients[client.moderatorID]; ok {
				close(existing.send)
			}
			h.clients[client.moderatorID] = client
			h.mu.Unlock()
			h.logger.Info("dashboard client connected",
				zap.String("moderator_id", client.moderatorID.String()))

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.moderatorID]; ok && current == client {
				delete(h.clients, client.moderatorID)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("dashboard client disconnected",
				zap.String("moderator_id", client.moderatorID.String()))

		case event := <-h.broadcast:
			h.mu.Lock()
			for id, client := range h.clients {
				select {
				case client.send <- event:
				default:
					close(client.send)
					delete(h.clients, id)
				}
			}
			h.mu.Unlock()
		}
	}
}

// SendToModerator delivers one event to a single connected moderator. A
// moderator who is not connected, or whose buffer is full, misses the event.
func (h *Hub) SendToModerator(moderatorID uuid.UUID, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.mu.RLock()
	client, ok := h.clients[moderatorID]
	h.mu.RUnlock()

	if ok {
		select {
		case client.send <- data:
		default:
		}
	}
	return nil
}

// OnlineModerators returns the IDs of connected dashboard clients
func (h *Hub) OnlineModerators() []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}
