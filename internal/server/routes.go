// Package server wires HTTP handlers into a ServeMux for the lobby
// application via routing helpers.
package server

import "net/http"

// Routes returns a ServeMux with the health, stats, and WebSocket endpoints.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}
