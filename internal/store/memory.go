package store

import (
	"context"
	"fmt"
	"sync"
)

// MemStore is an in-memory Store for tests and embedding.
type MemStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	refs    map[string]string
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		objects: make(map[string][]byte),
		refs:    make(map[string]string),
	}
}

// Get retrieves an object by key.
func (s *MemStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return data, nil
}

// Put stores an object under its content key.
func (s *MemStore) Put(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

// Has checks whether an object exists.
func (s *MemStore) Has(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok, nil
}

// GetRef resolves a mutable name to a root key.
func (s *MemStore) GetRef(ref string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.refs[ref]
	if !ok {
		return "", fmt.Errorf("%w: ref %s", ErrNotFound, ref)
	}
	return key, nil
}

// PutRef stores a mutable name for a root key.
func (s *MemStore) PutRef(ref, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[ref] = key
	return nil
}

// Len reports the number of stored objects.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
