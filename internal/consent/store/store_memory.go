package store

import (
	"context"
	"sync"
	"time"

	"guardian/internal/consent"
	"guardian/pkg/domain"
)

// InMemoryStore keeps consent history per child. Append-only: revocation
// stamps the record in place, nothing is removed.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[domain.ChildID][]*consent.Record
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{records: make(map[domain.ChildID][]*consent.Record)}
}

func (s *InMemoryStore) Append(_ context.Context, record *consent.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *record
	s.records[record.ChildID] = append(s.records[record.ChildID], &cp)
	return nil
}

func (s *InMemoryStore) ListByChild(_ context.Context, childID domain.ChildID) ([]*consent.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*consent.Record, 0, len(s.records[childID]))
	for _, r := range s.records[childID] {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (s *InMemoryStore) MarkRevoked(_ context.Context, childID domain.ChildID, scope domain.ConsentScope, revokedAt time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var revoked int
	for _, r := range s.records[childID] {
		if r.RevokedAt == nil && r.Verified && r.Covers(scope) {
			t := revokedAt
			r.RevokedAt = &t
			revoked++
		}
	}
	return revoked, nil
}
