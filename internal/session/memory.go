package session

import (
	"context"
	"sync"
)

// MemoryVolatile keeps per-client credentials in process memory. Concurrent
// writers are not ordered; the last write wins.
type MemoryVolatile struct {
	mu   sync.Mutex
	data map[string]map[string]string
}

func NewMemoryVolatile() *MemoryVolatile {
	return &MemoryVolatile{data: make(map[string]map[string]string)}
}

func (m *MemoryVolatile) For(clientID string) Substrate {
	return &memorySubstrate{parent: m, clientID: clientID}
}

func (m *MemoryVolatile) Ping(context.Context) error { return nil }

type memorySubstrate struct {
	parent   *MemoryVolatile
	clientID string
}

func (s *memorySubstrate) Name() string { return "memory" }

func (s *memorySubstrate) Get(_ context.Context, key string) (string, bool, error) {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	value := s.parent.data[s.clientID][key]
	return value, value != "", nil
}

func (s *memorySubstrate) Set(_ context.Context, key, value string) error {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	values, ok := s.parent.data[s.clientID]
	if !ok {
		values = make(map[string]string)
		s.parent.data[s.clientID] = values
	}
	values[key] = value
	return nil
}

func (s *memorySubstrate) Delete(_ context.Context, keys ...string) error {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	values, ok := s.parent.data[s.clientID]
	if !ok {
		return nil
	}
	for _, key := range keys {
		delete(values, key)
	}
	if len(values) == 0 {
		delete(s.parent.data, s.clientID)
	}
	return nil
}
