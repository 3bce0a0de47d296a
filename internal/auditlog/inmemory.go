package auditlog

import (
	"context"
	"sync"
)

const defaultMemoryCapacity = 256

// InMemoryStore is a bounded ring buffer of audit entries for deployments
// without a database. Oldest entries are overwritten at capacity.
type InMemoryStore struct {
	mu      sync.Mutex
	entries []Entry
	head    int
	count   int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make([]Entry, defaultMemoryCapacity)}
}

func (s *InMemoryStore) Append(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[s.head] = e
	s.head = (s.head + 1) % len(s.entries)
	if s.count < len(s.entries) {
		s.count++
	}
	return nil
}

func (s *InMemoryStore) Recent(_ context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > s.count {
		limit = s.count
	}
	out := make([]Entry, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (s.head - 1 - i + len(s.entries)) % len(s.entries)
		out = append(out, s.entries[idx])
	}
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }
