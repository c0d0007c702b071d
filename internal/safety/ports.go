package safety

import (
	"context"

	"guardian/pkg/domain"
)

// Store persists safety events. Append-only; events are never updated except
// for delivery bookkeeping.
type Store interface {
	Append(ctx context.Context, event *Event) error
	ListByChild(ctx context.Context, childID domain.ChildID, f Filter) (*Page, error)
	// ListUnrelayed returns events not yet relayed to the stream, oldest
	// first, up to limit.
	ListUnrelayed(ctx context.Context, limit int) ([]*Event, error)
	MarkRelayed(ctx context.Context, ids []domain.EventID) error
	MarkReported(ctx context.Context, id domain.EventID) error
}

// ParentNotifier delivers an event to the responsible parent.
type ParentNotifier interface {
	Notify(ctx context.Context, event *Event) error
}

// DeadLetterStore keeps undeliverable notifications for operator review.
type DeadLetterStore interface {
	Append(ctx context.Context, dl *DeadLetter) error
}
