package limits

import (
	"context"

	"guardian/pkg/domain"
)

// StateStore persists per-child interaction state. Implementations are pure
// I/O; all quota logic lives in the service, which serializes access per
// child before touching the store.
type StateStore interface {
	// Get returns the stored state, or nil when the child has none yet.
	Get(ctx context.Context, childID domain.ChildID) (*InteractionState, error)

	// Save upserts the state for state.ChildID.
	Save(ctx context.Context, state *InteractionState) error
}
