package retention

import (
	"context"
	"time"

	"guardian/internal/safety"
	"guardian/pkg/domain"
)

// TicketStore persists retention tickets. Save upserts by ticket ID.
type TicketStore interface {
	Save(ctx context.Context, ticket *Ticket) error
	// FindOpen returns the open (pending or blocked) ticket for a child and
	// category, or nil when none exists.
	FindOpen(ctx context.Context, childID domain.ChildID, category domain.DataCategory) (*Ticket, error)
	ListOpen(ctx context.Context) ([]*Ticket, error)
	ListByChild(ctx context.Context, childID domain.ChildID) ([]*Ticket, error)
}

// CandidateSource reports which children hold records of a category older
// than the cutoff. Backed by the data stores the scheduler sweeps.
type CandidateSource interface {
	ListAged(ctx context.Context, category domain.DataCategory, olderThan time.Time) ([]domain.ChildID, error)
}

// Purger deletes a child's records of one category created before the
// cutoff, returning how many records were removed.
type Purger interface {
	Purge(ctx context.Context, childID domain.ChildID, category domain.DataCategory, olderThan time.Time) (int, error)
}

// HoldChecker decides whether deletion for a child and category is blocked,
// returning a human-readable reason when it is.
type HoldChecker interface {
	HasHold(ctx context.Context, childID domain.ChildID, category domain.DataCategory) (bool, string, error)
}

// EventPublisher records operator-facing safety events. Satisfied by the
// safety event bus.
type EventPublisher interface {
	Publish(ctx context.Context, event *safety.Event) error
}
