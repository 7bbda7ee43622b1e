// Package inmemory is a test double for kvstore.Store backed by a plain
// map, used by unit tests. The daemon itself always connects to Redis
// via internal/kvstore/redisstore.
package inmemory

import (
	"context"
	"sync"
)

// Store is an in-process kvstore.Store implementation.
type Store struct {
	mu    sync.Mutex
	bools map[string]bool
	ints  map[string]int
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		bools: make(map[string]bool),
		ints:  make(map[string]int),
	}
}

func (s *Store) GetBool(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bools[key], nil
}

func (s *Store) SetBool(_ context.Context, key string, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bools[key] = value
	return nil
}

func (s *Store) GetCounter(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ints[key], nil
}

func (s *Store) SetCounter(_ context.Context, key string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ints[key] = value
	return nil
}

func (s *Store) IncrCounter(_ context.Context, key string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ints[key] += delta
	return s.ints[key], nil
}
