// Package memory provides an in-process Storage backend.
package memory

import (
	"context"
	"sync"

	"github.com/utafrali/gomarket/internal/storage"
)

// Storage keeps values in a map. It is lost when the process exits.
type Storage struct {
	mu     sync.RWMutex
	values map[string]string
}

// New creates an empty in-memory storage.
func New() *Storage {
	return &Storage{values: make(map[string]string)}
}

// Get returns the value stored under key.
func (s *Storage) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return "", storage.KeyNotFound(key)
	}
	return v, nil
}

// Set stores value under key, replacing any previous value.
func (s *Storage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

// Ping always succeeds.
func (s *Storage) Ping(context.Context) error { return nil }
