// Package websocket serves the live change feed: store events and facet
// updates pushed to every connected canvas.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Message is the envelope written to clients
type Message struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// HubMetrics tracks WebSocket metrics
type HubMetrics struct {
	ActiveConnections int64
	MessagesSent      int64
	MessagesFailed    int64
}

// Hub maintains active connections and fans messages out to all of them
type Hub struct {
	clients map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	logger *zap.Logger

	metricsMu sync.Mutex
	metrics   HubMetrics
	onCount   func(int)
}

// HubOption customizes a Hub
type HubOption func(*Hub)

// WithConnectionGauge reports the connection count after every change
func WithConnectionGauge(fn func(n int)) HubOption {
	return func(h *Hub) { h.onCount = fn }
}

// NewHub creates a hub; call Run to start it
func NewHub(logger *zap.Logger, opts ...HubOption) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		broadcast:  make(chan []byte, 1024),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		logger:     logger,
		onCount:    func(int) {},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run is the hub's event loop. It returns after Stop.
func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("Hub shutting down")
			h.closeAllConnections()
			return
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case message := <-h.broadcast:
			h.broadcastAll(message)
		}
	}
}

// Stop shuts the hub down and waits for the loop to exit
func (h *Hub) Stop() {
	h.cancel()
	<-h.done
}

// Broadcast queues a message for every client. It never blocks; when the
// queue is full the message is dropped.
func (h *Hub) Broadcast(messageType string, data interface{}) error {
	if h.ctx.Err() != nil {
		return fmt.Errorf("hub stopped")
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}
	encoded, err := json.Marshal(Message{Type: messageType, Data: payload, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	select {
	case h.broadcast <- encoded:
		return nil
	case <-h.ctx.Done():
		return fmt.Errorf("hub stopped")
	default:
		h.countFailed(1)
		return fmt.Errorf("broadcast queue full, message dropped")
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	n := len(h.clients)
	h.mu.Unlock()

	h.metricsMu.Lock()
	h.metrics.ActiveConnections = int64(n)
	h.metricsMu.Unlock()
	h.onCount(n)

	h.logger.Info("Client registered",
		zap.String("connectionID", client.id),
		zap.Int("connections", n),
	)
}

// unregisterClient removes a client; only the hub goroutine closes send
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if !h.clients[client] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	n := len(h.clients)
	h.mu.Unlock()

	h.metricsMu.Lock()
	h.metrics.ActiveConnections = int64(n)
	h.metricsMu.Unlock()
	h.onCount(n)

	h.logger.Info("Client unregistered",
		zap.String("connectionID", client.id),
		zap.Int("remainingConnections", n),
	)
}

func (h *Hub) broadcastAll(message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	sent, failed := 0, 0
	for _, client := range clients {
		select {
		case client.send <- message:
			sent++
		default:
			failed++
			h.logger.Warn("Closing slow client", zap.String("connectionID", client.id))
			h.unregisterClient(client)
		}
	}

	h.metricsMu.Lock()
	h.metrics.MessagesSent += int64(sent)
	h.metrics.MessagesFailed += int64(failed)
	h.metricsMu.Unlock()
}

func (h *Hub) countFailed(n int) {
	h.metricsMu.Lock()
	h.metrics.MessagesFailed += int64(n)
	h.metricsMu.Unlock()
}

func (h *Hub) closeAllConnections() {
	h.mu.Lock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.mu.Unlock()
	h.onCount(0)
	h.logger.Info("All connections closed")
}

// Metrics returns current hub metrics
func (h *Hub) Metrics() HubMetrics {
	h.metricsMu.Lock()
	defer h.metricsMu.Unlock()
	return h.metrics
}

// ConnectionCount returns the number of registered clients
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
