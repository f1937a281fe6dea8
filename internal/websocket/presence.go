package websocket

import (
	"sort"
	"sync"

	"github.com/quillhub/backend/internal/metrics"
)

// Registry maps users to their live connections. It keeps two views:
// a single connection per user (latest wins) that receives notification
// pushes, and the full set of a user's connections used for mentions.
//
// OnDisconnect prunes the connection sets but leaves the single-connection
// entry alone; a push to a stale entry finds no client in the hub and is
// dropped.
type Registry struct {
	mu     sync.RWMutex
	single map[uint]string
	conns  map[uint]map[string]struct{}
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		single: make(map[uint]string),
		conns:  make(map[uint]map[string]struct{}),
	}
}

// MarkOnline makes connID the user's notification target
func (r *Registry) MarkOnline(userID uint, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.single[userID] = connID
}

// Register adds connID to the user's connection set. Repeated calls are no-ops.
func (r *Registry) Register(userID uint, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[userID]
	if !ok {
		set = make(map[string]struct{})
		r.conns[userID] = set
	}
	set[connID] = struct{}{}
	metrics.App().OnlineUsers.Set(float64(len(r.conns)))
}

// Lookup returns the user's notification target connection
func (r *Registry) Lookup(userID uint) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.single[userID]
	return connID, ok
}

// LookupAll returns every registered connection of the user, sorted
func (r *Registry) LookupAll(userID uint) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.conns[userID]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// OnDisconnect removes connID from every user's connection set
func (r *Registry) OnDisconnect(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for userID, set := range r.conns {
		if _, ok := set[connID]; !ok {
			continue
		}
		delete(set, connID)
		if len(set) == 0 {
			delete(r.conns, userID)
		}
	}
	metrics.App().OnlineUsers.Set(float64(len(r.conns)))
}

// IsOnline reports whether the user has a registered connection or a notification target
func (r *Registry) IsOnline(userID uint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.conns[userID]) > 0 {
		return true
	}
	_, ok := r.single[userID]
	return ok
}

// OnlineUsers lists users with at least one registered connection, sorted
func (r *Registry) OnlineUsers() []uint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]uint, 0, len(r.conns))
	for id := range r.conns {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
