package memory

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-shop-client/storage"
)

var _ storage.KV = (*Store)(nil)

// Store is an in-process KV. Its contents vanish with the process, which makes
// it the natural ephemeral backend for the selected role.
type Store struct {
	values map[string]string
	lock   sync.RWMutex
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		values: make(map[string]string),
	}
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	v, ok := s.values[key]
	return v, ok, nil
}

func (s *Store) SetMany(_ context.Context, entries map[string]string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	for k, v := range entries {
		s.values[k] = v
	}
	return nil
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.values)
}
