package memory

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/vipnode/junior/kv/store"
)

// New implements an ephemeral in-memory store.
func New() *memoryStore {
	return &memoryStore{
		values: map[string]json.RawMessage{},
	}
}

// Assert Store implementation
var _ store.Store = &memoryStore{}

type memoryStore struct {
	mu     sync.RWMutex
	values map[string]json.RawMessage
}

func (s *memoryStore) Get(key string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append(json.RawMessage(nil), v...), nil
}

func (s *memoryStore) Set(key string, value json.RawMessage) error {
	if key == "" {
		return store.ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append(json.RawMessage(nil), value...)
	return nil
}

func (s *memoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return store.ErrNotFound
	}
	delete(s.values, key)
	return nil
}

func (s *memoryStore) Keys(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := []string{}
	for k := range s.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *memoryStore) Close() error {
	return nil
}
