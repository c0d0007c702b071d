// Package store provides safety event persistence.
package store

import (
	"context"
	"sort"
	"sync"

	"guardian/internal/safety"
	"guardian/pkg/domain"
)

// MemoryStore is an in-memory event store for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	events  []*safety.Event
	relayed map[domain.EventID]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{relayed: make(map[domain.EventID]bool)}
}

func (s *MemoryStore) Append(_ context.Context, event *safety.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *event
	s.events = append(s.events, &cp)
	return nil
}

func (s *MemoryStore) ListByChild(_ context.Context, childID domain.ChildID, f safety.Filter) (*safety.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*safety.Event
	for _, e := range s.events {
		if e.ChildID != childID {
			continue
		}
		if f.From != nil && e.Timestamp.Before(*f.From) {
			continue
		}
		if f.To != nil && e.Timestamp.After(*f.To) {
			continue
		}
		cp := *e
		matched = append(matched, &cp)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	page := &safety.Page{Total: len(matched), Offset: f.Offset, Limit: f.Limit}
	if f.Offset < len(matched) {
		end := f.Offset + f.Limit
		if end > len(matched) {
			end = len(matched)
		}
		page.Events = matched[f.Offset:end]
	}
	return page, nil
}

func (s *MemoryStore) ListUnrelayed(_ context.Context, limit int) ([]*safety.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*safety.Event
	for _, e := range s.events {
		if s.relayed[e.ID] {
			continue
		}
		cp := *e
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkRelayed(_ context.Context, ids []domain.EventID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		s.relayed[id] = true
	}
	return nil
}

func (s *MemoryStore) MarkReported(_ context.Context, id domain.EventID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.events {
		if e.ID == id {
			e.ReportedToParent = true
			return nil
		}
	}
	return nil
}
