package store

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
)

// MemoryStore is the degraded-mode fallback when the durable backend is
// unavailable: the current session keeps working, only resume-after-restart
// is lost. It is also the test double for every component that persists.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Write(_ context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = data
}

func (s *MemoryStore) Read(_ context.Context, key string, dest any) bool {
	s.mu.Lock()
	data, ok := s.data[key]
	s.mu.Unlock()
	if !ok {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

func (s *MemoryStore) Clear(_ context.Context, prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			delete(s.data, k)
		}
	}
}

// Len reports the number of stored slices. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
