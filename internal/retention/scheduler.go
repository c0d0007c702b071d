// Package retention enforces data retention windows.
//
// The scheduler opens a ticket whenever a child's data outlives its
// category window or a parent revokes consent, then executes tickets on a
// periodic sweep. Sweeps are idempotent: re-running over the same state
// opens no duplicate tickets and emits no duplicate alerts. A ticket that
// cannot be executed is never discarded; it stays open and is re-evaluated
// on every sweep, and an operator alert fires once it is overdue.
package retention

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"guardian/internal/retention/config"
	"guardian/internal/retention/metrics"
	"guardian/internal/safety"
	"guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
)

// Scheduler owns the retention ticket lifecycle.
type Scheduler struct {
	tickets TicketStore
	purger  Purger
	source  CandidateSource
	holds   HoldChecker
	events  EventPublisher
	cfg     config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	clock   func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithCandidateSource enables sweep discovery of aged records.
func WithCandidateSource(s CandidateSource) Option {
	return func(sc *Scheduler) {
		sc.source = s
	}
}

// WithHoldChecker sets the hold policy consulted before sweep deletions.
func WithHoldChecker(h HoldChecker) Option {
	return func(sc *Scheduler) {
		sc.holds = h
	}
}

// WithEventPublisher routes overdue-ticket alerts to the safety event bus.
func WithEventPublisher(p EventPublisher) Option {
	return func(sc *Scheduler) {
		sc.events = p
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(sc *Scheduler) {
		if logger != nil {
			sc.logger = logger
		}
	}
}

// WithMetrics sets the Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(sc *Scheduler) {
		sc.metrics = m
	}
}

func withClock(clock func() time.Time) Option {
	return func(sc *Scheduler) {
		sc.clock = clock
	}
}

// New creates a retention scheduler.
func New(tickets TicketStore, purger Purger, cfg config.Config, opts ...Option) (*Scheduler, error) {
	if tickets == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "ticket store is required")
	}
	if purger == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "purger is required")
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, dErrors.Wrap(errs[0], dErrors.CodeConfiguration, "invalid retention policy")
	}

	sc := &Scheduler{
		tickets: tickets,
		purger:  purger,
		cfg:     cfg,
		logger:  slog.Default(),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc, nil
}

// OpenForRevocation schedules deletion of the data categories a revoked
// consent scope covered. Deletion is eligible after the grace period so a
// parent can reverse the revocation.
func (sc *Scheduler) OpenForRevocation(ctx context.Context, childID domain.ChildID, scope domain.ConsentScope, now time.Time) error {
	for _, category := range categoriesForScope(scope) {
		if _, err := sc.open(ctx, childID, category, OriginRevocation, now.Add(sc.cfg.RevocationGrace()), ""); err != nil {
			return err
		}
	}
	return nil
}

// RequestDeletion opens tickets for a parent-initiated deletion request and
// returns the receipt with the shared confirmation code.
func (sc *Scheduler) RequestDeletion(ctx context.Context, childID domain.ChildID, categories []domain.DataCategory) (*DeletionReceipt, error) {
	if childID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "child_id is required")
	}
	if len(categories) == 0 {
		categories = domain.AllDataCategories()
	}
	for _, category := range categories {
		if !category.IsValid() {
			return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown data category %q", category)
		}
	}

	now := sc.clock().UTC()
	eligible := now.Add(sc.cfg.RevocationGrace())
	code := confirmationCode()

	receipt := &DeletionReceipt{ConfirmationCode: code, ScheduledAt: eligible}
	for _, category := range categories {
		ticket, err := sc.open(ctx, childID, category, OriginParentRequest, eligible, code)
		if err != nil {
			return nil, err
		}
		receipt.Tickets = append(receipt.Tickets, ticket)
	}
	sc.logger.InfoContext(ctx, "deletion requested",
		"child_id", childID,
		"categories", len(categories),
		"scheduled_at", eligible,
	)
	return receipt, nil
}

// TicketsForChild returns all tickets for a child, for the export surface.
func (sc *Scheduler) TicketsForChild(ctx context.Context, childID domain.ChildID) ([]*Ticket, error) {
	tickets, err := sc.tickets.ListByChild(ctx, childID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list retention tickets")
	}
	return tickets, nil
}

// Run sweeps on the configured interval until the context is cancelled.
func (sc *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(sc.cfg.SweepInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := sc.Sweep(ctx, sc.clock().UTC()); err != nil {
				sc.logger.ErrorContext(ctx, "retention sweep failed", "error", err)
			}
		}
	}
}

// Sweep discovers aged records, then evaluates every open ticket. Failures
// on individual tickets are logged and skipped so one bad ticket cannot
// stall the rest.
func (sc *Scheduler) Sweep(ctx context.Context, now time.Time) error {
	start := sc.clock()
	defer func() {
		if sc.metrics != nil {
			sc.metrics.SweepDuration.Observe(sc.clock().Sub(start).Seconds())
		}
	}()

	if err := sc.discover(ctx, now); err != nil {
		return err
	}

	open, err := sc.tickets.ListOpen(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "list open tickets")
	}
	for _, ticket := range open {
		if err := sc.evaluate(ctx, ticket, now); err != nil {
			sc.logger.ErrorContext(ctx, "ticket evaluation failed",
				"ticket_id", ticket.ID,
				"child_id", ticket.ChildID,
				"category", ticket.Category,
				"error", err,
			)
		}
	}
	return nil
}

func (sc *Scheduler) discover(ctx context.Context, now time.Time) error {
	if sc.source == nil {
		return nil
	}
	for _, category := range domain.AllDataCategories() {
		window, ok := sc.cfg.Window(category)
		if !ok {
			continue
		}
		cutoff := now.Add(-window)
		children, err := sc.source.ListAged(ctx, category, cutoff)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "list aged records")
		}
		for _, childID := range children {
			if _, err := sc.open(ctx, childID, category, OriginSweep, now, ""); err != nil {
				return err
			}
		}
	}
	return nil
}

// open creates a pending ticket unless one is already open for the same
// child and category.
func (sc *Scheduler) open(ctx context.Context, childID domain.ChildID, category domain.DataCategory, origin TicketOrigin, eligibleAt time.Time, code string) (*Ticket, error) {
	existing, err := sc.tickets.FindOpen(ctx, childID, category)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find open ticket")
	}
	if existing != nil {
		// An earlier eligibility date wins; a revocation must not wait on a
		// sweep ticket that was opened later.
		if eligibleAt.Before(existing.EligibleAt) {
			existing.EligibleAt = eligibleAt
			existing.Origin = origin
			if code != "" {
				existing.ConfirmationCode = code
			}
			if err := sc.tickets.Save(ctx, existing); err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save ticket")
			}
		}
		return existing, nil
	}

	ticket := &Ticket{
		ID:               domain.NewTicketID(),
		ChildID:          childID,
		Category:         category,
		Origin:           origin,
		Status:           StatusPending,
		EligibleAt:       eligibleAt,
		CreatedAt:        sc.clock().UTC(),
		ConfirmationCode: code,
	}
	if err := sc.tickets.Save(ctx, ticket); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save ticket")
	}
	if sc.metrics != nil {
		sc.metrics.TicketsOpened.WithLabelValues(string(origin)).Inc()
	}
	sc.logger.InfoContext(ctx, "retention ticket opened",
		"ticket_id", ticket.ID,
		"child_id", childID,
		"category", category,
		"origin", origin,
		"eligible_at", eligibleAt,
	)
	return ticket, nil
}

func (sc *Scheduler) evaluate(ctx context.Context, ticket *Ticket, now time.Time) error {
	if now.Before(ticket.EligibleAt) {
		return nil
	}

	// Sweep tickets consult the consent ledger; revocation and parent
	// request tickets already embody the parent's decision.
	if ticket.Origin == OriginSweep && sc.holds != nil {
		held, reason, err := sc.holds.HasHold(ctx, ticket.ChildID, ticket.Category)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "check retention hold")
		}
		if held {
			if ticket.Status != StatusBlocked || ticket.BlockedReason != reason {
				ticket.Status = StatusBlocked
				ticket.BlockedReason = reason
				if err := sc.tickets.Save(ctx, ticket); err != nil {
					return dErrors.Wrap(err, dErrors.CodeInternal, "save ticket")
				}
			}
			if sc.metrics != nil {
				sc.metrics.TicketsBlocked.Inc()
			}
			sc.reportOverdue(ctx, ticket, now)
			return nil
		}
		if ticket.Status == StatusBlocked {
			ticket.Status = StatusPending
			ticket.BlockedReason = ""
			if err := sc.tickets.Save(ctx, ticket); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "save ticket")
			}
		}
	}

	purged, err := sc.purger.Purge(ctx, ticket.ChildID, ticket.Category, sc.purgeCutoff(ticket, now))
	if err != nil {
		sc.reportOverdue(ctx, ticket, now)
		return dErrors.Wrap(err, dErrors.CodeInternal, "purge records")
	}

	executedAt := now
	ticket.Status = StatusExecuted
	ticket.ExecutedAt = &executedAt
	ticket.PurgedRecords = purged
	ticket.BlockedReason = ""
	if err := sc.tickets.Save(ctx, ticket); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "save ticket")
	}

	if sc.metrics != nil {
		sc.metrics.TicketsExecuted.Inc()
		sc.metrics.ExpiredRecords.WithLabelValues(ticket.Category.String()).Add(float64(purged))
	}
	sc.logger.InfoContext(ctx, "retention ticket executed",
		"ticket_id", ticket.ID,
		"child_id", ticket.ChildID,
		"category", ticket.Category,
		"purged_records", purged,
	)
	return nil
}

// purgeCutoff decides how much data a ticket removes. Legally retained
// categories are never purged before their window even on explicit request;
// everything else is wiped completely for revocation and parent tickets.
func (sc *Scheduler) purgeCutoff(ticket *Ticket, now time.Time) time.Time {
	window, ok := sc.cfg.Window(ticket.Category)
	legally := ticket.Category == domain.DataSafetyLogs || ticket.Category == domain.DataConsentRecords
	if (ticket.Origin == OriginSweep || legally) && ok {
		return now.Add(-window)
	}
	return now
}

// reportOverdue alerts operators once per ticket when deletion has not
// happened within the overdue threshold.
func (sc *Scheduler) reportOverdue(ctx context.Context, ticket *Ticket, now time.Time) {
	if ticket.ViolationReported || sc.events == nil {
		return
	}
	if now.Sub(ticket.EligibleAt) < sc.cfg.OverdueAfter() {
		return
	}

	event := &safety.Event{
		ChildID:     ticket.ChildID,
		Type:        safety.EventRetentionViolation,
		Severity:    safety.SeverityHigh,
		Description: "retention ticket pending past its deletion window for category " + ticket.Category.String(),
		ActionTaken: "operator alert raised",
	}
	if err := sc.events.Publish(ctx, event); err != nil {
		sc.logger.ErrorContext(ctx, "failed to publish retention violation",
			"ticket_id", ticket.ID, "error", err)
		return
	}
	ticket.ViolationReported = true
	if err := sc.tickets.Save(ctx, ticket); err != nil {
		sc.logger.ErrorContext(ctx, "failed to persist violation flag",
			"ticket_id", ticket.ID, "error", err)
	}
	if sc.metrics != nil {
		sc.metrics.Violations.Inc()
	}
}

// categoriesForScope maps a consent scope to the data it authorizes.
func categoriesForScope(scope domain.ConsentScope) []domain.DataCategory {
	switch scope {
	case domain.ScopeVoiceRecording:
		return []domain.DataCategory{domain.DataVoiceRecordings}
	case domain.ScopeSafetyMonitoring:
		return []domain.DataCategory{domain.DataSafetyLogs}
	case domain.ScopeDataCollection:
		return []domain.DataCategory{
			domain.DataConversations,
			domain.DataInteractionLogs,
			domain.DataAnalytics,
		}
	default:
		return nil
	}
}

// scopeForCategory is the inverse mapping used by the consent hold check.
func scopeForCategory(category domain.DataCategory) (domain.ConsentScope, bool) {
	switch category {
	case domain.DataVoiceRecordings:
		return domain.ScopeVoiceRecording, true
	case domain.DataSafetyLogs:
		return domain.ScopeSafetyMonitoring, true
	case domain.DataConversations, domain.DataInteractionLogs, domain.DataAnalytics:
		return domain.ScopeDataCollection, true
	default:
		return "", false
	}
}

func confirmationCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
