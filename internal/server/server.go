// Package server implements the HTTP server functionality for the lobby.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/lobby/internal/api"
	"github.com/Tyrowin/lobby/internal/lobby"
	"github.com/Tyrowin/lobby/internal/notify"
)

// Server ties the lobby service to its HTTP and WebSocket endpoints.
type Server struct {
	cfg      Config
	svc      *api.Service
	router   *api.Router
	hub      *Hub
	upgrader websocket.Upgrader
	http     *http.Server
	logger   *slog.Logger
}

// New builds the store, registry, fan-out engine, and request router from cfg
// and returns a Server ready to Start.
func New(cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.sanitize()

	store := lobby.NewStore(lobby.WithLogger(logger.With("component", "store")))
	registry := notify.NewRegistry()
	engine := notify.NewEngine(registry,
		notify.WithDeliveryTimeout(cfg.DeliveryTimeout),
		notify.WithConcurrency(cfg.FanoutConcurrency),
		notify.WithEngineLogger(logger.With("component", "notify")),
	)
	svc := api.NewService(store, registry, engine, logger.With("component", "service"))
	router := api.NewRouter(svc, logger.With("component", "router"))

	return newServer(cfg, svc, router, logger)
}

func newServer(cfg Config, svc *api.Service, router *api.Router, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		svc:    svc,
		router: router,
		hub:    NewHub(svc, router, logger.With("component", "hub")),
		logger: logger,
	}

	origins := newOriginPolicy(cfg.AllowedOrigins, logger)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     origins.checkOrigin,
	}

	s.http = &http.Server{
		Addr:              cfg.Port,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Service returns the lobby service behind the server.
func (s *Server) Service() *api.Service {
	return s.svc
}

// Hub returns the connection hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start launches the hub loop. Call it before serving connections.
func (s *Server) Start() {
	go s.hub.Run()
}

// ListenAndServe serves HTTP on the configured port and blocks until the
// listener closes. A clean Shutdown returns nil.
func (s *Server) ListenAndServe() error {
	s.logger.Info("server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections, closes open ones, and waits for their
// goroutines until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	httpErr := s.http.Shutdown(ctx)

	timeout := s.cfg.ShutdownTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	hubErr := s.hub.Shutdown(timeout)

	return errors.Join(httpErr, hubErr)
}
