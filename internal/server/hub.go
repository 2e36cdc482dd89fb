// Package server coordinates client registration, frame delivery, and
// connection cleanup for the chat WebSocket system via the Hub type.
package server

import (
	"context"
	"sync"
	"time"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Hub manages all WebSocket client connections and hands encoded frames to
// their write pumps. It implements chat.Transport.
type Hub struct {
	clients    map[chat.ConnID]*Client
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

var _ chat.Transport = (*Hub)(nil)

// NewHub creates and initializes a new Hub instance with all necessary channels
// and client map. The returned Hub is ready to manage WebSocket connections
// once Run is started.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[chat.ConnID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Register hands a client to the hub, which launches its pumps. It returns
// false when the hub is shutting down.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Unregister removes a client. It never blocks once the hub is shutting down.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
		h.remove(client.id, "hub stopped")
	}
}

// Send queues a frame for conn without blocking. A client whose buffer is
// full is evicted and chat.ErrSlowConsumer is returned.
func (h *Hub) Send(conn chat.ConnID, frame []byte) error {
	h.mutex.RLock()
	client, exists := h.clients[conn]
	if !exists || client.closed {
		h.mutex.RUnlock()
		return chat.ErrStaleConnection
	}

	select {
	case client.send <- frame:
		h.mutex.RUnlock()
		return nil
	default:
	}
	h.mutex.RUnlock()

	h.remove(conn, "send buffer full")
	return chat.ErrSlowConsumer
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Run starts the hub's main event loop, handling client registration and
// unregistration. It returns after ctx is cancelled or Shutdown is called.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.cancel()
			h.shutdownClients()
			return

		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				log.Warn().Msg("received nil client registration; skipping")
				continue
			}
			h.add(client)

		case client := <-h.unregister:
			h.remove(client.id, "connection closed")
		}
	}
}

func (h *Hub) add(client *Client) {
	h.mutex.Lock()
	client.closed = false
	h.clients[client.id] = client
	clientCount := len(h.clients)
	h.mutex.Unlock()

	metrics.WsConnections.Inc()
	log.Info().Str("conn", string(client.id)).Str("addr", client.addr).Int("clients", clientCount).
		Msg("client registered")

	h.wg.Add(3)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
	go func() {
		defer h.wg.Done()
		client.session.Run()
	}()
}

// remove deletes the client and closes its send channel so the write pump
// drains and closes the socket.
func (h *Hub) remove(conn chat.ConnID, reason string) {
	h.mutex.Lock()
	client, ok := h.clients[conn]
	if !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, conn)
	client.closed = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	// Close the channel after releasing the lock
	close(client.send)
	metrics.WsConnections.Dec()
	log.Info().Str("conn", string(conn)).Str("addr", client.addr).Str("reason", reason).
		Int("clients", clientCount).Msg("client unregistered")
}

// shutdownClients closes every socket so the read pumps end their sessions.
func (h *Hub) shutdownClients() {
	log.Info().Msg("shutting down all client connections")

	h.mutex.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.RUnlock()

	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				log.Warn().Err(err).Str("addr", client.addr).Msg("error closing client connection")
			}
		}
	}

	log.Info().Int("count", len(clients)).Msg("closed client connections")
}

// Shutdown initiates graceful shutdown of the hub and waits for all client
// goroutines to complete, or for the timeout to elapse.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Info().Msg("initiating hub shutdown")

	h.cancel()

	select {
	case <-h.done:
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		log.Warn().Msg("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
