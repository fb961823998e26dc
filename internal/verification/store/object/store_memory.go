package object

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"onboarding/pkg/platform/sentinel"
)

const keyPrefix = "img-"

// NewKey returns a fresh object key. Every upload gets its own key, so
// deleting one session's images never touches another session's.
func NewKey() string {
	return keyPrefix + uuid.NewString()
}

type object struct {
	data        []byte
	contentType string
}

// InMemoryStore is an image store for tests and dev.
type InMemoryStore struct {
	mu      sync.RWMutex
	objects map[string]object
}

// New constructs an empty in-memory object store.
func New() *InMemoryStore {
	return &InMemoryStore{objects: make(map[string]object)}
}

// Put stores a copy of data under a new key. Objects are never overwritten.
func (s *InMemoryStore) Put(_ context.Context, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty object")
	}
	key := NewKey()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = object{data: append([]byte(nil), data...), contentType: contentType}
	return key, nil
}

func (s *InMemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", key, sentinel.ErrNotFound)
	}
	return append([]byte(nil), obj.data...), nil
}

func (s *InMemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Len reports how many objects are stored.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
