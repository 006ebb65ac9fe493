// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and lobby statistics.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Tyrowin/lobby/internal/api"
)

// statsResponse is the body served by /stats.
type statsResponse struct {
	api.Stats
	Connections int `json:"connections"`
}

// handleWebSocket validates that the request uses GET, upgrades it, and
// hands the new Client to the hub, which starts its pumps.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := NewClient(conn, s.hub, r.RemoteAddr, s.cfg)
	if !s.hub.registerClient(client) {
		if err := conn.Close(); err != nil && !isExpectedCloseError(err) {
			s.logger.Warn("error closing connection during shutdown", "error", err)
		}
	}
}

// handleRoot is a plain text liveness probe.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "Lobby server is running!")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, statsResponse{Stats: s.svc.Stats(), Connections: s.hub.Len()})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("error writing JSON response", "error", err)
	}
}
