package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/KevinKickass/FlasherCore/internal/auth"
	"github.com/KevinKickass/FlasherCore/internal/events"
)

type outbound struct {
	data     []byte
	folder   string
	nodeName string
}

// Hub maintains active WebSocket clients and broadcasts deployment events
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu          sync.RWMutex
	logger      *zap.Logger
	authService *auth.AuthService
}

// NewHub creates a new Hub. A nil authService admits every client.
func NewHub(logger *zap.Logger, authService *auth.AuthService) *Hub {
	return &Hub{
		broadcast:   make(chan outbound, 256),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		done:        make(chan struct{}),
		clients:     make(map[*Client]bool),
		logger:      logger,
		authService: authService,
	}
}

func (h *Hub) authRequired() bool {
	return h.authService != nil && h.authService.Enabled()
}

// Run is the hub's event loop. It returns when ctx is done and closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("WebSocket Hub started")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("WebSocket Hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("WebSocket client registered",
				zap.String("remote_addr", client.remoteAddr),
				zap.Int("total_clients", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Info("WebSocket client unregistered",
					zap.String("remote_addr", client.remoteAddr),
					zap.Int("total_clients", len(h.clients)))
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.wants(msg.folder, msg.nodeName) {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					// Slow or dead client
					delete(h.clients, client)
					close(client.send)
					h.logger.Warn("Client send buffer full, unregistering",
						zap.String("remote_addr", client.remoteAddr))
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues msg for every client. Messages are dropped when the
// queue is full.
func (h *Hub) Broadcast(msg Message) {
	h.enqueue(msg, "", "")
}

// Publish implements events.Sink. Clients with a subscription only see
// events of their node.
func (h *Hub) Publish(ctx context.Context, ev events.Event) error {
	h.enqueue(NewEventMessage(ev), ev.Folder, ev.NodeName)
	return nil
}

func (h *Hub) enqueue(msg Message, folder, nodeName string) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal broadcast message", zap.Error(err))
		return
	}

	select {
	case h.broadcast <- outbound{data: data, folder: folder, nodeName: nodeName}:
	default:
		h.logger.Warn("Hub broadcast channel full, message dropped",
			zap.String("message_type", string(msg.Type)))
	}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
