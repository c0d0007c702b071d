// Package store provides retention ticket persistence.
package store

import (
	"context"
	"sort"
	"sync"

	"guardian/internal/retention"
	"guardian/pkg/domain"
)

// MemoryStore is an in-memory ticket store for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	tickets map[domain.TicketID]*retention.Ticket
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tickets: make(map[domain.TicketID]*retention.Ticket)}
}

func (s *MemoryStore) Save(_ context.Context, ticket *retention.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *ticket
	s.tickets[ticket.ID] = &cp
	return nil
}

func (s *MemoryStore) FindOpen(_ context.Context, childID domain.ChildID, category domain.DataCategory) (*retention.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tickets {
		if t.ChildID == childID && t.Category == category && t.Open() {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) ListOpen(_ context.Context) ([]*retention.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*retention.Ticket
	for _, t := range s.tickets {
		if t.Open() {
			cp := *t
			out = append(out, &cp)
		}
	}
	sortTickets(out)
	return out, nil
}

func (s *MemoryStore) ListByChild(_ context.Context, childID domain.ChildID) ([]*retention.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*retention.Ticket
	for _, t := range s.tickets {
		if t.ChildID == childID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sortTickets(out)
	return out, nil
}

func sortTickets(tickets []*retention.Ticket) {
	sort.Slice(tickets, func(i, j int) bool {
		if tickets[i].CreatedAt.Equal(tickets[j].CreatedAt) {
			return tickets[i].ID < tickets[j].ID
		}
		return tickets[i].CreatedAt.Before(tickets[j].CreatedAt)
	})
}
