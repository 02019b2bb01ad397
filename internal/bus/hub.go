package bus

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"sladash-backend/internal/invalidation"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub fans invalidation events out to all connected clients. One goroutine
// owns the client set; events flow through a buffered broadcast channel so
// the write path never blocks on a slow tab. Events for the same key reach
// each client in commit order because both the hub loop and the per-client
// writer are single FIFO consumers.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan Event
	mutex      sync.RWMutex
	upgrader   websocket.Upgrader
	relay      Relay
	logger     *zap.Logger
	done       chan struct{}
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 1000), // absorbs write bursts
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
		done:   make(chan struct{}),
	}
}

// SetRelay routes published events through a cross-instance relay. Events
// come back via the relay subscription and only then fan out locally, so
// every instance (including the publisher) delivers exactly one copy.
func (h *Hub) SetRelay(relay Relay) {
	h.relay = relay
}

func (h *Hub) Start() error {
	if h.relay != nil {
		if err := h.relay.Subscribe(h.broadcastLocal); err != nil {
			return fmt.Errorf("subscribing to relay: %w", err)
		}
	}
	go h.run()
	h.logger.Info("invalidation hub started")
	return nil
}

func (h *Hub) Stop() error {
	close(h.done)

	h.mutex.Lock()
	for _, client := range h.clients {
		close(client.Send)
		if client.Conn != nil {
			client.Conn.Close()
		}
	}
	h.clients = make(map[string]*Client)
	h.mutex.Unlock()

	if h.relay != nil {
		if err := h.relay.Close(); err != nil {
			h.logger.Warn("closing relay", zap.Error(err))
		}
	}
	h.logger.Info("invalidation hub stopped")
	return nil
}

func (h *Hub) run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client.ID] = client
			h.mutex.Unlock()
			h.logger.Debug("client registered", zap.String("client", client.ID))
			go h.handleClient(client)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
				if client.Conn != nil {
					client.Conn.Close()
				}
			}
			h.mutex.Unlock()
			h.logger.Debug("client unregistered", zap.String("client", client.ID))

		case event := <-h.broadcast:
			h.fanOut(event)

		case <-ticker.C:
			h.healthCheck()

		case <-h.done:
			return
		}
	}
}

// Publish queues an event for delivery to every connected client. With a
// relay configured the event travels through it first so sibling instances
// deliver it too.
func (h *Hub) Publish(event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if h.relay != nil {
		return h.relay.Publish(event)
	}
	return h.broadcastLocal(event)
}

func (h *Hub) broadcastLocal(event Event) error {
	select {
	case h.broadcast <- event:
		return nil
	default:
		return fmt.Errorf("broadcast channel full, dropping event %s", event.Event)
	}
}

// RegisterClient adds a connection to the hub and immediately sends a
// resync event: a fresh connection cannot know what it missed, so its whole
// cache is stale by definition.
func (h *Hub) RegisterClient(clientID string, conn *websocket.Conn, keys []string) error {
	subscribed := make(map[string]bool, len(keys))
	for _, k := range keys {
		subscribed[k] = true
	}

	client := &Client{
		ID:       clientID,
		Conn:     conn,
		Keys:     subscribed,
		Send:     make(chan Event, 256),
		LastPing: time.Now(),
		IsActive: true,
	}

	client.Send <- Event{
		Event:        EventResync,
		AffectedKeys: []string{invalidation.KeyEverything},
		Timestamp:    time.Now(),
	}

	h.register <- client
	return nil
}

func (h *Hub) UnregisterClient(clientID string) error {
	h.mutex.RLock()
	client, exists := h.clients[clientID]
	h.mutex.RUnlock()

	if exists {
		h.unregister <- client
	}
	return nil
}

func (h *Hub) ConnectedClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) Stats() ClientStats {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	stats := ClientStats{TotalClients: len(h.clients)}
	for _, client := range h.clients {
		if client.IsActive {
			stats.ActiveClients++
		} else {
			stats.InactiveClients++
		}
	}
	return stats
}

func (h *Hub) Upgrader() *websocket.Upgrader {
	return &h.upgrader
}

func (h *Hub) fanOut(event Event) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for _, client := range h.clients {
		if !h.shouldSend(client, event) {
			continue
		}
		select {
		case client.Send <- event:
		default:
			// Slow consumer; it will resync via TTL refetch.
			client.IsActive = false
			h.logger.Warn("client send channel full, marking inactive",
				zap.String("client", client.ID))
		}
	}
}

// shouldSend applies the client's key subscriptions. No subscriptions means
// the client wants everything.
func (h *Hub) shouldSend(client *Client, event Event) bool {
	if len(client.Keys) == 0 {
		return true
	}
	for _, affected := range event.AffectedKeys {
		for key := range client.Keys {
			if invalidation.Affects(affected, key) {
				return true
			}
		}
	}
	return event.Event == EventResync
}

func (h *Hub) handleClient(client *Client) {
	defer func() {
		h.unregister <- client
	}()

	client.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.Conn.SetPongHandler(func(string) error {
		client.LastPing = time.Now()
		client.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	go h.writeEvents(client)

	// Inbound traffic is subscription management only.
	for {
		var message struct {
			Type string   `json:"type"`
			Keys []string `json:"keys"`
		}
		if err := client.Conn.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error",
					zap.String("client", client.ID), zap.Error(err))
			}
			break
		}

		switch message.Type {
		case MessageTypeSubscribe:
			h.mutex.Lock()
			for _, k := range message.Keys {
				client.Keys[k] = true
			}
			h.mutex.Unlock()
		case MessageTypeUnsubscribe:
			h.mutex.Lock()
			for _, k := range message.Keys {
				delete(client.Keys, k)
			}
			h.mutex.Unlock()
		}
	}
}

func (h *Hub) writeEvents(client *Client) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			payload, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("marshaling event", zap.Error(err))
				continue
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.Warn("writing to client",
					zap.String("client", client.ID), zap.Error(err))
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) healthCheck() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	now := time.Now()
	for clientID, client := range h.clients {
		if now.Sub(client.LastPing) > 90*time.Second {
			h.logger.Info("client timed out", zap.String("client", clientID))
			delete(h.clients, clientID)
			close(client.Send)
			if client.Conn != nil {
				client.Conn.Close()
			}
		}
	}
}
