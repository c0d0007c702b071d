package children

import (
	"context"

	"guardian/pkg/domain"
)

// Store persists child profiles.
type Store interface {
	// Get returns nil, nil when the child is unknown.
	Get(ctx context.Context, childID domain.ChildID) (*domain.ChildProfile, error)
	Save(ctx context.Context, profile *domain.ChildProfile) error
	ListByParent(ctx context.Context, parentID domain.ParentID) ([]*domain.ChildProfile, error)
}
