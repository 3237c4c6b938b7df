package core

import (
	"slices"
	"sync"

	"github.com/samber/lo"
)

// PresenceChange describes the outcome of a join.
type PresenceChange struct {
	// Identities is the sorted directory right after the join.
	Identities []string
	// Superseded is the handle that previously held the identity, if any.
	// That connection stays open but is no longer reachable by name.
	Superseded Handle
	// Renamed is the identity the joining handle held before, if it differs.
	Renamed string
}

// Registry maps identities to their current connection handle.
// At most one entry exists per identity; the reverse index lets the gateway
// report disconnects by handle.
type Registry struct {
	mu         sync.RWMutex
	byIdentity map[string]Handle
	byHandle   map[Handle]string
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byIdentity: make(map[string]Handle),
		byHandle:   make(map[Handle]string),
	}
}

// Join installs or replaces the presence entry for identity.
func (r *Registry) Join(identity string, h Handle) PresenceChange {
	r.mu.Lock()
	defer r.mu.Unlock()

	var change PresenceChange
	if prev, ok := r.byHandle[h]; ok && prev != identity {
		delete(r.byIdentity, prev)
		change.Renamed = prev
	}
	if old, ok := r.byIdentity[identity]; ok && old != h {
		delete(r.byHandle, old)
		change.Superseded = old
	}

	r.byIdentity[identity] = h
	r.byHandle[h] = identity
	change.Identities = r.identitiesLocked()
	return change
}

// Leave removes the entry bound to h. Unknown or superseded handles are a no-op.
func (r *Registry) Leave(h Handle) (identity string, removed bool, identities []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.byHandle[h]
	if !ok {
		return "", false, nil
	}
	delete(r.byHandle, h)
	delete(r.byIdentity, identity)
	return identity, true, r.identitiesLocked()
}

// Resolve returns the current handle for identity.
func (r *Registry) Resolve(identity string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byIdentity[identity]
	return h, ok
}

// IdentityOf returns the identity currently bound to h.
func (r *Registry) IdentityOf(h Handle) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	identity, ok := r.byHandle[h]
	return identity, ok
}

// Identities returns a sorted snapshot of present identities.
func (r *Registry) Identities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.identitiesLocked()
}

// Handles returns a snapshot of every registered handle.
func (r *Registry) Handles() []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.byIdentity)
}

// size returns the number of presence entries.
func (r *Registry) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byIdentity)
}

func (r *Registry) identitiesLocked() []string {
	ids := lo.Keys(r.byIdentity)
	slices.Sort(ids)
	return ids
}
