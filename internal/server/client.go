// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Tyrowin/lobby/internal/api"
	"github.com/Tyrowin/lobby/internal/notify"
)

// Client is one WebSocket connection. It carries request/response traffic
// and is the push handle installed in the registry by subscribe.
type Client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	hub    *Hub
	addr   string
	cfg    Config
	logger *slog.Logger

	rateLimiter *rateLimiter
	closeOnce   sync.Once

	namesMu sync.Mutex
	names   map[string]struct{}
}

// NewClient creates a Client for conn. The send buffer size and rate limit
// come from cfg.
func NewClient(conn *websocket.Conn, hub *Hub, addr string, cfg Config) *Client {
	cfg = cfg.sanitize()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	id := uuid.NewString()

	return &Client{
		id:          id,
		conn:        conn,
		send:        make(chan []byte, cfg.SendBuffer),
		done:        make(chan struct{}),
		hub:         hub,
		addr:        addr,
		cfg:         cfg,
		logger:      hub.logger.With("conn", id, "remote", addr),
		rateLimiter: newRateLimiter(cfg.RateLimit),
		names:       make(map[string]struct{}),
	}
}

// ID returns the connection id.
func (c *Client) ID() string {
	return c.id
}

// Send queues frame for the write pump. It reports Broken once the
// connection is closed and TimedOut when the queue stays full until ctx ends.
func (c *Client) Send(ctx context.Context, frame []byte) notify.Result {
	if c.isClosed() {
		return notify.Broken
	}

	select {
	case c.send <- frame:
		return notify.Delivered
	case <-c.done:
		return notify.Broken
	case <-ctx.Done():
		return notify.TimedOut
	}
}

// Bind records that this connection claimed username.
func (c *Client) Bind(username string) {
	c.namesMu.Lock()
	defer c.namesMu.Unlock()
	c.names[username] = struct{}{}
}

// Unbind forgets username.
func (c *Client) Unbind(username string) {
	c.namesMu.Lock()
	defer c.namesMu.Unlock()
	delete(c.names, username)
}

// Usernames returns the names claimed by this connection, sorted.
func (c *Client) Usernames() []string {
	c.namesMu.Lock()
	defer c.namesMu.Unlock()

	names := make([]string, 0, len(c.names))
	for name := range c.names {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// close marks the client closed; pending and future sends report Broken.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// isClosed reports whether close has been called.
func (c *Client) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait)); err != nil {
		c.logger.Warn("error setting initial read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait)); err != nil {
			c.logger.Warn("error setting read deadline in pong handler", "error", err)
		}
		return nil
	})
}

// logReadError logs a read failure at a level matching how expected it is.
func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.logger.Warn("message exceeded maximum size", "limit", c.cfg.MaxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.logger.Info("client disconnected", "reason", err.Error())
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.logger.Info("client connection closed", "reason", err.Error())
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		c.logger.Warn("unexpected websocket close", "error", err)
	default:
		c.logger.Warn("websocket read error", "error", err)
	}
}

// handleRequest runs one request frame and queues the response.
func (c *Client) handleRequest(ctx context.Context, raw []byte) {
	var resp api.Response
	if c.rateLimiter.allow() {
		resp = c.hub.router.Handle(ctx, c, raw)
	} else {
		c.logger.Warn("rate limit exceeded; rejecting request",
			"burst", c.cfg.RateLimit.Burst,
			"interval", c.cfg.RateLimit.RefillInterval)
		resp = c.hub.router.Reject(raw, api.ErrRateLimited)
	}

	frame, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("error encoding response", "op", resp.Op, "error", err)
		return
	}

	replyCtx, cancel := context.WithTimeout(ctx, c.cfg.WriteWait)
	defer cancel()
	if result := c.Send(replyCtx, frame); result != notify.Delivered {
		c.logger.Warn("response not queued", "op", resp.Op, "result", result.String())
	}
}

func (c *Client) readPump(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		c.hub.unregisterClient(c)
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.logger.Warn("error closing connection in readPump", "error", err)
		}
	}()

	c.setupReadConnection()

	for {
		messageType, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		c.handleRequest(ctx, raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.pingPeriod())
	defer func() {
		ticker.Stop()
		c.close()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case frame := <-c.send:
		return c.writeFrame(frame)
	case <-ticker.C:
		return c.handlePing()
	case <-c.done:
		c.writeCloseMessage()
		return false
	}
}

// closeConnection safely closes the WebSocket connection with proper error handling
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.logger.Warn("error closing connection in writePump", "error", err)
	}
}

// writeCloseMessage sends a close message to the client
func (c *Client) writeCloseMessage() {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		return
	}
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
		c.logger.Warn("error writing close message", "error", err)
	}
}

// writeFrame writes one text frame; each frame holds exactly one JSON document.
func (c *Client) writeFrame(frame []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		c.logger.Warn("error setting write deadline", "error", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		if !isExpectedCloseError(err) {
			c.logger.Warn("error writing message", "error", err)
		}
		return false
	}
	return true
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		c.logger.Warn("error setting write deadline for ping", "error", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Warn("error writing ping message", "error", err)
		return false
	}
	return true
}
