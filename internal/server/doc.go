// Package server implements the HTTP and WebSocket transport for the lobby.
//
// Each WebSocket connection is a Client: it reads JSON requests, runs them
// through the api.Router, and writes responses and push frames from a single
// write pump. A Client is also the notify.Sender that subscribe installs, so
// push delivery and request replies share one ordered outbound queue.
package server
