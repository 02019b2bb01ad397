package bus

import (
	"time"

	"github.com/gorilla/websocket"
)

// Event is the invalidation message fanned out to every connected client
// after a write commits. Delivery is best-effort, at-most-once per
// connection; clients fall back to TTL-based refetch for missed events.
type Event struct {
	Event        string            `json:"event"`
	AffectedKeys []string          `json:"affectedKeys"`
	Context      map[string]string `json:"context,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
}

// EventResync tells a client to treat its whole cache as stale. Sent on
// (re)connect, since the client cannot know how many events it missed.
const EventResync = "RESYNC"

// Client is one WebSocket connection, normally one browser tab. Keys holds
// the query keys the tab subscribed to; empty means all events.
type Client struct {
	ID       string
	Conn     *websocket.Conn
	Keys     map[string]bool
	Send     chan Event
	LastPing time.Time
	IsActive bool
}

// Broadcaster is the fan-out contract consumed by the write path.
type Broadcaster interface {
	Publish(event Event) error
	ConnectedClients() int
	Start() error
	Stop() error
}

// Message types accepted from clients.
const (
	MessageTypeSubscribe   = "subscribe"
	MessageTypeUnsubscribe = "unsubscribe"
)

// ClientStats summarizes hub connections for the operational endpoint.
type ClientStats struct {
	TotalClients    int `json:"totalClients"`
	ActiveClients   int `json:"activeClients"`
	InactiveClients int `json:"inactiveClients"`
}
