package state

import (
	"context"
	"sync"

	"guardian/internal/limits"
	"guardian/pkg/domain"
)

// InMemoryStateStore keeps interaction state per child. Used in tests and
// single-node deployments; production uses the Postgres store so quotas
// survive restarts.
type InMemoryStateStore struct {
	mu     sync.RWMutex
	states map[domain.ChildID]limits.InteractionState
}

func NewInMemory() *InMemoryStateStore {
	return &InMemoryStateStore{states: make(map[domain.ChildID]limits.InteractionState)}
}

// Get returns a copy so callers can mutate freely under their own lock.
func (s *InMemoryStateStore) Get(_ context.Context, childID domain.ChildID) (*limits.InteractionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[childID]
	if !ok {
		return nil, nil
	}
	out := st
	return &out, nil
}

func (s *InMemoryStateStore) Save(_ context.Context, state *limits.InteractionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.ChildID] = *state
	return nil
}
