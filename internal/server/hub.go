// Package server tracks open lobby connections through the Hub type and
// cleans up the usernames they own when they close.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Tyrowin/lobby/internal/api"
)

// Hub owns the set of open connections. It starts their pumps on register
// and logs out the usernames a connection owned on unregister.
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}

	svc    *api.Service
	router *api.Router
	logger *slog.Logger
}

// NewHub creates a Hub that serves requests through router and reports
// closed connections to svc.
func NewHub(svc *api.Service, router *api.Router, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		svc:        svc,
		router:     router,
		logger:     logger,
	}
}

// Len returns the number of open connections.
func (h *Hub) Len() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// registerClient hands c to the Run loop. It returns false once the hub is
// shutting down.
func (h *Hub) registerClient(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.ctx.Done():
		c.close()
		return false
	}
}

func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
		c.close()
	}
}

// Run starts the hub's main event loop. It returns after Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.logger.Warn("received nil client registration; skipping")
				continue
			}
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mutex.Lock()
	h.clients[client] = struct{}{}
	clientCount := len(h.clients)
	h.mutex.Unlock()
	client.logger.Info("client registered", "clients", clientCount)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump(h.ctx)
	}()
}

func (h *Hub) removeClient(client *Client) {
	h.mutex.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client)
	clientCount := len(h.clients)
	h.mutex.Unlock()

	client.close()
	client.logger.Info("client unregistered", "clients", clientCount)

	usernames := client.Usernames()
	if len(usernames) == 0 {
		return
	}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.svc.Disconnect(h.ctx, client, usernames)
	}()
}

// shutdownClients closes every open connection.
func (h *Hub) shutdownClients() {
	h.logger.Info("shutting down all client connections")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		client.close()
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				client.logger.Warn("error closing client connection", "error", err)
			}
		}
	}

	h.logger.Info("closed client connections", "count", len(clients))
}

// Shutdown stops the hub and waits for connection goroutines to finish, up to
// timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Info("initiating hub shutdown")
	h.cancel()

	deadline := time.After(timeout)
	select {
	case <-h.done:
	case <-deadline:
		h.logger.Warn("hub shutdown timeout reached before run loop exited")
		return context.DeadlineExceeded
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub shutdown completed")
		return nil
	case <-deadline:
		h.logger.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
