package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/fileflows-bridge/internal/core/coordinator"
)

// ConnectionRecorder receives connect and disconnect events.
type ConnectionRecorder interface {
	RecordWebSocketConnection(action string)
}

// Options tunes connection keepalive. Zero values fall back to defaults.
type Options struct {
	HeartbeatInterval time.Duration
	PingInterval      time.Duration
	PongTimeout       time.Duration
	WriteTimeout      time.Duration
}

func (o Options) withDefaults() Options {
	if o.PongTimeout <= 0 {
		o.PongTimeout = 60 * time.Second
	}
	if o.PingInterval <= 0 || o.PingInterval >= o.PongTimeout {
		o.PingInterval = (o.PongTimeout * 9) / 10
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 30 * time.Second
	}
	return o
}

type broadcast struct {
	topic string
	data  []byte
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound messages for subscribed clients
	broadcast chan broadcast

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	logger   *logrus.Logger
	opts     Options
	recorder ConnectionRecorder

	// Messages sent to each client right after the welcome
	initial func() []Message

	// Mutex for thread-safe operations
	mu sync.RWMutex

	// Statistics
	stats *HubStats

	done chan struct{}
}

// HubStats contains hub statistics
type HubStats struct {
	ConnectedClients int       `json:"connected_clients"`
	TotalConnections int64     `json:"total_connections"`
	MessagesSent     int64     `json:"messages_sent"`
	MessagesReceived int64     `json:"messages_received"`
	LastActivity     time.Time `json:"last_activity"`
}

// NewHub creates a new WebSocket hub
func NewHub(logger *logrus.Logger, opts Options) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan broadcast, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
		opts:       opts.withDefaults(),
		stats: &HubStats{
			LastActivity: time.Now(),
		},
		done: make(chan struct{}),
	}
}

// SetRecorder installs a connection recorder. Call before Run.
func (h *Hub) SetRecorder(r ConnectionRecorder) {
	h.recorder = r
}

// OnConnect sets a function whose messages are sent to every new client.
// Call before Run.
func (h *Hub) OnConnect(fn func() []Message) {
	h.initial = fn
}

// Run handles client registration and broadcasting until ctx is done, then
// closes every client.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("WebSocket hub started")
	defer close(h.done)

	ticker := time.NewTicker(h.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.broadcastMessage(msg)

		case <-ticker.C:
			h.sendHeartbeat()

		case <-ctx.Done():
			h.closeAll()
			h.logger.Info("WebSocket hub stopped")
			return
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.stats.TotalConnections++
	h.stats.ConnectedClients = len(h.clients)
	h.stats.LastActivity = time.Now()
	connected := len(h.clients)
	h.mu.Unlock()

	h.logger.WithFields(logrus.Fields{
		"client_id":         client.ID,
		"remote_addr":       client.RemoteAddr,
		"connected_clients": connected,
	}).Info("WebSocket client connected")

	if h.recorder != nil {
		h.recorder.RecordWebSocketConnection("connect")
	}

	// Send welcome message
	welcome := Message{
		Type: MessageTypeConnection,
		Data: map[string]interface{}{
			"status":    "connected",
			"client_id": client.ID,
			"topics":    client.Topics(),
			"timestamp": time.Now().UTC(),
		},
	}
	client.trySend(welcome.ToJSON())

	if h.initial != nil {
		for _, msg := range h.initial() {
			client.trySend(msg.ToJSON())
		}
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		client.close()
		h.stats.ConnectedClients = len(h.clients)
		h.stats.LastActivity = time.Now()
	}
	connected := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}

	h.logger.WithFields(logrus.Fields{
		"client_id":         client.ID,
		"connected_clients": connected,
	}).Info("WebSocket client disconnected")

	if h.recorder != nil {
		h.recorder.RecordWebSocketConnection("disconnect")
	}
}

func (h *Hub) closeAll() {
	for _, client := range h.GetAllClients() {
		h.unregisterClient(client)
	}
}

func (h *Hub) broadcastMessage(msg broadcast) {
	var slow []*Client
	sent := 0

	h.mu.Lock()
	for client := range h.clients {
		if msg.topic != "" && !client.IsSubscribed(msg.topic) {
			continue
		}
		if client.trySend(msg.data) {
			sent++
		} else {
			slow = append(slow, client)
		}
	}
	h.stats.MessagesSent++
	h.stats.LastActivity = time.Now()
	h.mu.Unlock()

	// A full send buffer means the client stopped reading.
	for _, client := range slow {
		h.unregisterClient(client)
	}

	h.logger.WithFields(logrus.Fields{
		"topic":        msg.topic,
		"message_size": len(msg.data),
		"clients_sent": sent,
	}).Debug("Message broadcasted to WebSocket clients")
}

func (h *Hub) sendHeartbeat() {
	heartbeat := Message{
		Type: MessageTypeHeartbeat,
		Data: map[string]interface{}{
			"timestamp": time.Now().UTC(),
			"clients":   h.GetClientCount(),
		},
	}
	h.broadcastMessage(broadcast{data: heartbeat.ToJSON()})
}

// BroadcastToAll broadcasts a message to all connected clients
func (h *Hub) BroadcastToAll(message Message) {
	h.enqueue(broadcast{data: message.ToJSON()}, message.Type)
}

// BroadcastToTopic broadcasts a message to clients subscribed to topic
func (h *Hub) BroadcastToTopic(topic string, message Message) {
	h.enqueue(broadcast{topic: topic, data: message.ToJSON()}, message.Type)
}

func (h *Hub) enqueue(msg broadcast, messageType string) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.WithField("message_type", messageType).Warn("Broadcast channel is full, message dropped")
	}
}

// Subscriber returns a coordinator subscriber that pushes snapshot_updated
// after every published tick and coordinator_status whenever availability
// changes.
func (h *Hub) Subscriber() func(coordinator.Update) {
	var (
		mu    sync.Mutex
		known bool
		last  bool
	)
	return func(u coordinator.Update) {
		if u.Published {
			h.BroadcastToTopic(TopicSnapshot, SnapshotUpdatedMessage(u))
		}

		mu.Lock()
		flipped := !known || last != u.Status.Available
		known, last = true, u.Status.Available
		mu.Unlock()

		if flipped {
			h.logger.WithField("available", u.Status.Available).Info("FileFlows availability changed")
			h.BroadcastToTopic(TopicStatus, CoordinatorStatusMessage(u.Status))
		}
	}
}

// GetStats returns current hub statistics
func (h *Hub) GetStats() *HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	statsCopy := *h.stats
	statsCopy.ConnectedClients = len(h.clients)
	return &statsCopy
}

// GetClientCount returns the current number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetClientByID returns a client by its ID, or nil if not found
func (h *Hub) GetClientByID(clientID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.ID == clientID {
			return client
		}
	}

	return nil
}

// GetAllClients returns a copy of all connected clients
func (h *Hub) GetAllClients() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}

	return clients
}

func (h *Hub) countReceived() {
	h.mu.Lock()
	h.stats.MessagesReceived++
	h.stats.LastActivity = time.Now()
	h.mu.Unlock()
}
