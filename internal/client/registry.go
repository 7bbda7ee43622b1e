package client

import (
	"sync"

	"github.com/google/uuid"
)

// Registry holds every registered controller's unauthenticated and (if
// the auth handshake succeeded) authenticated client, keyed by iLO UUID
// rather than by address, so two controllers that briefly share an
// address across a DHCP lease change are never confused with each
// other.
type Registry struct {
	mu     sync.RWMutex
	unauth map[uuid.UUID]*UnauthenticatedClient
	auth   map[uuid.UUID]*AuthenticatedClient
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		unauth: make(map[uuid.UUID]*UnauthenticatedClient),
		auth:   make(map[uuid.UUID]*AuthenticatedClient),
	}
}

// PutUnauthenticated inserts or replaces the unauthenticated client for
// its UUID.
func (r *Registry) PutUnauthenticated(c *UnauthenticatedClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unauth[c.UUID] = c
}

// PutAuthenticated inserts or replaces the authenticated client for its
// UUID.
func (r *Registry) PutAuthenticated(c *AuthenticatedClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auth[c.UUID] = c
}

// Unauthenticated looks up a controller's unauthenticated client.
func (r *Registry) Unauthenticated(id uuid.UUID) (*UnauthenticatedClient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.unauth[id]
	return c, ok
}

// Authenticated looks up a controller's authenticated client.
func (r *Registry) Authenticated(id uuid.UUID) (*AuthenticatedClient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.auth[id]
	return c, ok
}

// Remove destroys both the unauthenticated and authenticated entries for
// id. Called when the controller's address is un-registered.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.unauth, id)
	delete(r.auth, id)
}

// UnauthenticatedSnapshot returns every unauthenticated client currently
// registered, for the updater's per-tick fan-out.
func (r *Registry) UnauthenticatedSnapshot() []*UnauthenticatedClient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*UnauthenticatedClient, 0, len(r.unauth))
	for _, c := range r.unauth {
		out = append(out, c)
	}
	return out
}

// AuthenticatedSnapshot returns every authenticated client currently
// registered, for the updater's per-tick fan-out.
func (r *Registry) AuthenticatedSnapshot() []*AuthenticatedClient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*AuthenticatedClient, 0, len(r.auth))
	for _, c := range r.auth {
		out = append(out, c)
	}
	return out
}

// Count returns the number of registered unauthenticated clients.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.unauth)
}
