package cart

import "sync"

// Store maps session identifiers to carts. It is an explicit, injectable
// handle so handlers and tests can run against isolated instances.
type Store struct {
	mu    sync.Mutex
	carts map[string]*Cart
}

// NewStore creates an empty cart store
func NewStore() *Store {
	return &Store{carts: make(map[string]*Cart)}
}

// Mutate runs fn against the session's cart while holding the store lock.
// Carts never leave the store as live pointers; reads go through Snapshot.
func (s *Store) Mutate(sessionID string, fn func(*Cart) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[sessionID]
	if !ok {
		c = &Cart{}
		s.carts[sessionID] = c
	}
	return fn(c)
}

// Snapshot returns a copy of the session's cart for safe reads
func (s *Store) Snapshot(sessionID string) Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[sessionID]
	if !ok {
		return Cart{}
	}
	snap := *c
	snap.Lines = append([]Line(nil), c.Lines...)
	return snap
}

// Drop removes the session's cart entirely
func (s *Store) Drop(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, sessionID)
}
