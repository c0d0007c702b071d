// Package children manages child profiles and parent ownership checks.
package children

import (
	"context"
	"log/slog"

	"guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
)

// Service wraps the profile store with validation and access control.
type Service struct {
	store  Store
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a child profile service.
func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "profile store is required")
	}
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register validates and saves a profile.
func (s *Service) Register(ctx context.Context, profile *domain.ChildProfile) error {
	if profile == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "profile is required")
	}
	if err := profile.Validate(); err != nil {
		return err
	}
	if err := s.store.Save(ctx, profile); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "save child profile")
	}
	s.logger.InfoContext(ctx, "child profile registered",
		"child_id", profile.ID,
		"parent_id", profile.ParentID,
	)
	return nil
}

// Get returns the profile or a not-found error.
func (s *Service) Get(ctx context.Context, childID domain.ChildID) (*domain.ChildProfile, error) {
	if childID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "child_id is required")
	}
	profile, err := s.store.Get(ctx, childID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load child profile")
	}
	if profile == nil {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "unknown child %s", childID)
	}
	return profile, nil
}

// Owned returns the profile only when the parent owns the child.
func (s *Service) Owned(ctx context.Context, parentID domain.ParentID, childID domain.ChildID) (*domain.ChildProfile, error) {
	profile, err := s.Get(ctx, childID)
	if err != nil {
		return nil, err
	}
	if profile.ParentID != parentID {
		s.logger.WarnContext(ctx, "cross-family access denied",
			"parent_id", parentID,
			"child_id", childID,
		)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "child does not belong to this parent")
	}
	return profile, nil
}

// ListByParent returns all profiles registered by a parent.
func (s *Service) ListByParent(ctx context.Context, parentID domain.ParentID) ([]*domain.ChildProfile, error) {
	if parentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "parent_id is required")
	}
	profiles, err := s.store.ListByParent(ctx, parentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list child profiles")
	}
	return profiles, nil
}
