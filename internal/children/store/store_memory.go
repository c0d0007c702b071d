// Package store provides child profile persistence.
package store

import (
	"context"
	"sync"

	"guardian/internal/children"
	"guardian/pkg/domain"
)

// MemoryStore is an in-memory profile store for tests and local development.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[domain.ChildID]*domain.ChildProfile
}

var _ children.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[domain.ChildID]*domain.ChildProfile)}
}

func (s *MemoryStore) Get(_ context.Context, childID domain.ChildID) (*domain.ChildProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[childID]
	if !ok {
		return nil, nil
	}
	cp := *profile
	return &cp, nil
}

func (s *MemoryStore) Save(_ context.Context, profile *domain.ChildProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *profile
	s.profiles[profile.ID] = &cp
	return nil
}

func (s *MemoryStore) ListByParent(_ context.Context, parentID domain.ParentID) ([]*domain.ChildProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.ChildProfile
	for _, p := range s.profiles {
		if p.ParentID == parentID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}
