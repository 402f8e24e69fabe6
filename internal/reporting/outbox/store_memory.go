package outbox

import (
	"context"
	"sync"

	"losflow/internal/reporting"
)

// MemoryStore is the in-process outbox used by unit tests and local dev.
type MemoryStore struct {
	mu        sync.Mutex
	events    []reporting.StatusChanged
	published map[string]bool
}

// NewMemory creates an empty in-memory outbox.
func NewMemory() *MemoryStore {
	return &MemoryStore{published: make(map[string]bool)}
}

func (s *MemoryStore) Append(ctx context.Context, event reporting.StatusChanged) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *MemoryStore) PendingBatch(ctx context.Context, limit int) ([]reporting.StatusChanged, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []reporting.StatusChanged
	for _, e := range s.events {
		if s.published[e.EventID] {
			continue
		}
		pending = append(pending, e)
		if len(pending) == limit {
			break
		}
	}
	return pending, nil
}

func (s *MemoryStore) MarkPublished(ctx context.Context, eventIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range eventIDs {
		s.published[id] = true
	}
	return nil
}

// All returns every appended event; test helper.
func (s *MemoryStore) All() []reporting.StatusChanged {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]reporting.StatusChanged, len(s.events))
	copy(out, s.events)
	return out
}
