package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"pos-service/internal/models"
)

// MemoryStore is an in-process Store used when the remote is
// unreachable at startup (offline mode) and by tests. It honors the
// same path semantics as RedisStore; Transact is serialized by the
// lock, which trivially satisfies compare-and-swap.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]json.RawMessage
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]json.RawMessage{}}
}

// NewSeededMemoryStore returns a store preloaded with the fallback
// catalog so the register works offline on first run.
func NewSeededMemoryStore() *MemoryStore {
	s := NewMemoryStore()
	for cat, products := range models.SeedInventory() {
		for name, p := range products {
			raw, _ := json.Marshal(p)
			s.data[fmt.Sprintf("/inventory/%s/%s", cat, name)] = raw
		}
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, path string) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if val, ok := s.data[path]; ok {
		out := make(json.RawMessage, len(val))
		copy(out, val)
		return out, nil
	}

	entries := map[string]json.RawMessage{}
	for key, val := range s.data {
		if strings.HasPrefix(key, path+"/") {
			entries[key] = val
		}
	}
	return buildTree(path, entries)
}

func (s *MemoryStore) Set(_ context.Context, path string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[path] = raw
	return nil
}

func (s *MemoryStore) Transact(_ context.Context, path string, fn TransactFunc) (bool, json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.data[path])
	if err != nil {
		return false, nil, err
	}
	s.data[path] = next
	return true, next, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Reconnect(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
