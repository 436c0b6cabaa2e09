// Package counters stores per-session selection counts.
package counters

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/abhiarc/Dream-interpreter/internal/domain"
)

// MemoryStore keeps counters in process memory for single-instance mode.
type MemoryStore struct {
	mu     sync.Mutex
	counts map[uuid.UUID]domain.SelectionCounters
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counts: make(map[uuid.UUID]domain.SelectionCounters)}
}

func (s *MemoryStore) Increment(_ context.Context, sessionID uuid.UUID, category domain.Category) error {
	if category == domain.General {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counts[sessionID]
	if !ok {
		c = domain.NewSelectionCounters()
		s.counts[sessionID] = c
	}
	c[category]++
	return nil
}

// Counts returns a copy of the session's counters, all zero if none were recorded.
func (s *MemoryStore) Counts(_ context.Context, sessionID uuid.UUID) (domain.SelectionCounters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := domain.NewSelectionCounters()
	for k, v := range s.counts[sessionID] {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counts, sessionID)
	return nil
}
