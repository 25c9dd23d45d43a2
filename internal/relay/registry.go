package relay

import (
	"sync"

	"wisp/internal/domain"
)

// registry tracks every user who has registered a pre-key bundle with this
// relay and, for users currently online, the connection that can be pushed
// messages on. It has no persistence: a relay restart forgets every
// registration, matching the in-memory-only lifecycle the rest of the
// session layer follows.
type registry struct {
	mu      sync.RWMutex
	bundles map[domain.Username]domain.PreKeyBundle
	otpks   map[domain.Username][]domain.OneTimePreKeyPublic
	conns   map[domain.Username]*conn
}

func newRegistry() *registry {
	return &registry{
		bundles: make(map[domain.Username]domain.PreKeyBundle),
		otpks:   make(map[domain.Username][]domain.OneTimePreKeyPublic),
		conns:   make(map[domain.Username]*conn),
	}
}

// register stores bundle (without its one-time pre-key pool, which is
// tracked separately so each lookup can hand out a distinct one) and its
// accompanying one-time pre-key pool, and returns how many were accepted.
// A username is unique for the registry's lifetime: registering one
// already present is a conflict and leaves the existing registration
// untouched, regardless of whether that username currently has a live
// connection bound to it.
func (r *registry) register(bundle domain.PreKeyBundle, otpks []domain.OneTimePreKeyPublic) (stored int, conflict bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.bundles[bundle.Username]; exists {
		return 0, true
	}
	bundle.OneTimePreKey = nil
	r.bundles[bundle.Username] = bundle
	r.otpks[bundle.Username] = append(r.otpks[bundle.Username], otpks...)
	return len(otpks), false
}

// lookup returns username's bundle with at most one one-time pre-key popped
// from its pool, consuming it so it is never handed out twice.
func (r *registry) lookup(username domain.Username) (domain.PreKeyBundle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bundle, ok := r.bundles[username]
	if !ok {
		return domain.PreKeyBundle{}, false
	}
	if pool := r.otpks[username]; len(pool) > 0 {
		otk := pool[0]
		r.otpks[username] = pool[1:]
		bundle.OneTimePreKey = &otk
	}
	return bundle, true
}

// bind associates username with its live connection, replacing any prior
// one (a user reconnecting displaces their earlier session).
func (r *registry) bind(username domain.Username, c *conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[username] = c
}

// unbind removes username's live connection if it still points at c (a
// stale disconnect of a since-replaced connection must not evict the new
// one).
func (r *registry) unbind(username domain.Username, c *conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conns[username] == c {
		delete(r.conns, username)
	}
}

// connFor returns username's live connection, if any.
func (r *registry) connFor(username domain.Username) (*conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[username]
	return c, ok
}
