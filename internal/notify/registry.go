// Package notify delivers lobby change events to subscribed clients.
//
// The Registry maps a username to an opaque Sender owned by the connection
// layer. The Engine resolves the audience of each event, encodes it once and
// pushes it to every subscribed recipient, evicting any recipient whose
// delivery does not succeed.
package notify

import (
	"context"
	"slices"
	"sync"
)

// Result is the outcome of a single push attempt.
type Result int

const (
	Delivered Result = iota
	TimedOut
	Broken
)

func (r Result) String() string {
	switch r {
	case Delivered:
		return "delivered"
	case TimedOut:
		return "timeout"
	case Broken:
		return "broken"
	default:
		return "unknown"
	}
}

// Sender is a push channel to one client. Send must return once ctx is done.
// Implementations must be comparable (typically pointers) so the registry
// can tell a stale handle from a replacement.
type Sender interface {
	Send(ctx context.Context, frame []byte) Result
}

// Registry holds the live push handle of each subscribed username. It has
// its own lock and never touches lobby state.
type Registry struct {
	mu   sync.RWMutex
	subs map[string]Sender
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{subs: make(map[string]Sender)}
}

// Subscribe installs or replaces the handle for username.
func (r *Registry) Subscribe(username string, s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[username] = s
}

// Unsubscribe removes the handle for username, if any.
func (r *Registry) Unsubscribe(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, username)
}

// Lookup returns the handle for username.
func (r *Registry) Lookup(username string) (Sender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.subs[username]
	return s, ok
}

// Evict removes username only while it is still bound to s, so a handle
// installed after a failed push survives. It reports whether it removed
// anything.
func (r *Registry) Evict(username string, s Sender) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.subs[username]; ok && current == s {
		delete(r.subs, username)
		return true
	}
	return false
}

// Usernames returns the subscribed usernames, sorted.
func (r *Registry) Usernames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.subs))
	for name := range r.subs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of subscriptions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
