package consent

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"guardian/internal/consent/metrics"
	"guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
)

// Service is the consent ledger. It decides whether a data-handling action
// is authorized for a child and records grants and revocations. History is
// never rewritten; the newest verified record for a scope wins.
type Service struct {
	store   Store
	tickets TicketOpener
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTicketOpener wires the retention scheduler so revocations schedule
// deletion of the affected data.
func WithTicketOpener(t TicketOpener) Option {
	return func(s *Service) { s.tickets = t }
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("consent store is required")
	}
	svc := &Service{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Record appends a new consent record. Earlier records for the same scopes
// are superseded for authorization purposes but stay in history.
func (s *Service) Record(ctx context.Context, req GrantRequest) (*Record, error) {
	if req.ChildID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "child_id is required")
	}
	if req.ParentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "parent_id is required")
	}
	if len(req.Scopes) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "scopes must not be empty")
	}
	for _, scope := range req.Scopes {
		if !scope.IsValid() {
			return nil, dErrors.Newf(dErrors.CodeBadRequest, "invalid scope %q", scope)
		}
	}

	record := &Record{
		ID:        domain.NewConsentID(),
		ParentID:  req.ParentID,
		ChildID:   req.ChildID,
		Scopes:    req.Scopes,
		GrantedAt: time.Now(),
		Verified:  req.Verified,
		Method:    req.Method,
	}
	if err := s.store.Append(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "append consent record")
	}

	if s.metrics != nil {
		s.metrics.IncrementConsentsGranted()
	}
	s.logger.InfoContext(ctx, "consent recorded",
		"consent_id", record.ID,
		"child_id", record.ChildID,
		"scopes", record.Scopes,
		"verified", record.Verified,
	)
	return record, nil
}

// Verify reports whether an active verified record covers the scope.
func (s *Service) Verify(ctx context.Context, childID domain.ChildID, scope domain.ConsentScope) (bool, error) {
	records, err := s.store.ListByChild(ctx, childID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "list consent records")
	}
	return activeCovering(records, scope, time.Now()) != nil, nil
}

// Require returns CodeConsentMissing when no active record covers the
// scope. Callers on the request path surface this as 403; the action never
// silently proceeds.
func (s *Service) Require(ctx context.Context, childID domain.ChildID, scope domain.ConsentScope) error {
	ok, err := s.Verify(ctx, childID, scope)
	if err != nil {
		return err
	}
	if !ok {
		if s.metrics != nil {
			s.metrics.IncrementUnauthorizedAccess()
		}
		return dErrors.Newf(dErrors.CodeConsentMissing, "no active consent for scope %s", scope)
	}
	return nil
}

// Revoke marks the active records covering the scope as revoked and opens a
// retention ticket for the affected data. History stays intact.
func (s *Service) Revoke(ctx context.Context, childID domain.ChildID, scope domain.ConsentScope) error {
	if childID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "child_id is required")
	}
	if !scope.IsValid() {
		return dErrors.Newf(dErrors.CodeBadRequest, "invalid scope %q", scope)
	}
	now := time.Now()
	revoked, err := s.store.MarkRevoked(ctx, childID, scope, now)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "revoke consent")
	}
	if revoked == 0 {
		return dErrors.Newf(dErrors.CodeNotFound, "no active consent for scope %s", scope)
	}

	if s.metrics != nil {
		s.metrics.IncrementConsentsRevoked()
	}
	s.logger.InfoContext(ctx, "consent revoked",
		"child_id", childID,
		"scope", scope,
		"records_revoked", revoked,
	)

	if s.tickets != nil {
		if err := s.tickets.OpenForRevocation(ctx, childID, scope, now); err != nil {
			// The revocation itself stands; deletion is picked up by the
			// next retention sweep, which re-derives eligibility from the
			// consent history.
			s.logger.ErrorContext(ctx, "failed to open retention ticket after revocation",
				"child_id", childID,
				"scope", scope,
				"error", err,
			)
		}
	}
	return nil
}

// RevokeAll revokes every scope currently held for the child.
func (s *Service) RevokeAll(ctx context.Context, childID domain.ChildID) error {
	var lastErr error
	for _, scope := range domain.AllConsentScopes() {
		if err := s.Revoke(ctx, childID, scope); err != nil {
			if dErrors.Is(err, dErrors.CodeNotFound) {
				continue
			}
			lastErr = err
		}
	}
	return lastErr
}

// History returns the full consent history for audit and data export,
// newest first.
func (s *Service) History(ctx context.Context, childID domain.ChildID) ([]*Record, error) {
	records, err := s.store.ListByChild(ctx, childID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list consent records")
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].GrantedAt.After(records[j].GrantedAt)
	})
	return records, nil
}

// HasAnyActive reports whether any scope remains actively consented. The
// retention scheduler uses this to decide whether a legal basis still holds.
func (s *Service) HasAnyActive(ctx context.Context, childID domain.ChildID) (bool, error) {
	records, err := s.store.ListByChild(ctx, childID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "list consent records")
	}
	now := time.Now()
	for _, scope := range domain.AllConsentScopes() {
		if activeCovering(records, scope, now) != nil {
			return true, nil
		}
	}
	return false, nil
}

// activeCovering returns the newest active verified record covering the
// scope, or nil.
func activeCovering(records []*Record, scope domain.ConsentScope, now time.Time) *Record {
	var newest *Record
	for _, r := range records {
		if !r.Active(now) || !r.Covers(scope) {
			continue
		}
		if newest == nil || r.GrantedAt.After(newest.GrantedAt) {
			newest = r
		}
	}
	return newest
}
