// Package safety records safety events and guarantees their delivery.
//
// Every event is persisted synchronously before Publish returns, so a
// moderation decision and its event commit together or not at all. Events
// that must reach a parent (parent alerts, high and critical severities) are
// delivered with bounded retries; exhausted retries land in a dead-letter
// store rather than being dropped.
package safety

import (
	"context"
	"log/slog"
	"time"

	"guardian/internal/safety/metrics"
	"guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
)

const (
	defaultNotifyAttempts = 4
	defaultNotifyBackoff  = 200 * time.Millisecond
	maxNotifyBackoff      = 5 * time.Second
)

// Bus is the safety event bus. It is safe for concurrent use.
type Bus struct {
	store       Store
	notifier    ParentNotifier
	deadLetters DeadLetterStore
	logger      *slog.Logger
	metrics     *metrics.Metrics
	clock       func() time.Time

	notifyAttempts int
	notifyBackoff  time.Duration
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics sets the Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bus) {
		b.metrics = m
	}
}

// WithNotifier sets the parent notification channel.
func WithNotifier(n ParentNotifier) Option {
	return func(b *Bus) {
		b.notifier = n
	}
}

// WithDeadLetterStore sets where undeliverable notifications are parked.
func WithDeadLetterStore(s DeadLetterStore) Option {
	return func(b *Bus) {
		b.deadLetters = s
	}
}

// WithNotifyRetry overrides the notification retry budget.
func WithNotifyRetry(attempts int, backoff time.Duration) Option {
	return func(b *Bus) {
		if attempts > 0 {
			b.notifyAttempts = attempts
		}
		if backoff > 0 {
			b.notifyBackoff = backoff
		}
	}
}

func withClock(clock func() time.Time) Option {
	return func(b *Bus) {
		b.clock = clock
	}
}

// New creates a safety event bus backed by the given store.
func New(store Store, opts ...Option) *Bus {
	b := &Bus{
		store:          store,
		logger:         slog.Default(),
		clock:          time.Now,
		notifyAttempts: defaultNotifyAttempts,
		notifyBackoff:  defaultNotifyBackoff,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish validates and persists the event, then delivers any required
// parent notification. Persistence is synchronous and fail-closed: if the
// store rejects the event, Publish returns the error and the caller must
// treat the triggering operation as uncommitted. Notification failures do
// not fail Publish; they are retried and, if exhausted, dead-lettered.
func (b *Bus) Publish(ctx context.Context, event *Event) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "safety event not committed")
	}
	if err := event.Validate(); err != nil {
		return err
	}
	if event.ID == "" {
		event.ID = domain.NewEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = b.clock().UTC()
	}

	if err := b.store.Append(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "persist safety event")
	}
	if b.metrics != nil {
		b.metrics.EventsPublished.WithLabelValues(event.Type.String(), event.Severity.String()).Inc()
	}
	b.logger.InfoContext(ctx, "safety event recorded",
		"event_id", event.ID,
		"child_id", event.ChildID,
		"event_type", event.Type,
		"severity", event.Severity,
	)

	if event.notifyParent() {
		b.deliver(ctx, event)
	}
	return nil
}

// ListByChild returns a page of events for one child, newest first.
func (b *Bus) ListByChild(ctx context.Context, childID domain.ChildID, f Filter) (*Page, error) {
	if childID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "child_id is required")
	}
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 500 {
		f.Limit = 500
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	page, err := b.store.ListByChild(ctx, childID, f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list safety events")
	}
	return page, nil
}

// deliver pushes the event to the parent notifier with exponential backoff.
// The event is already durable; delivery failure must never surface to the
// child-facing request, so errors end in the dead-letter store.
func (b *Bus) deliver(ctx context.Context, event *Event) {
	if b.notifier == nil {
		b.logger.WarnContext(ctx, "no parent notifier configured, skipping delivery",
			"event_id", event.ID)
		return
	}

	backoff := b.notifyBackoff
	var lastErr error
	for attempt := 1; attempt <= b.notifyAttempts; attempt++ {
		lastErr = b.notifier.Notify(ctx, event)
		if lastErr == nil {
			event.ReportedToParent = true
			if err := b.store.MarkReported(ctx, event.ID); err != nil {
				b.logger.ErrorContext(ctx, "failed to mark event reported",
					"event_id", event.ID, "error", err)
			}
			return
		}
		if b.metrics != nil {
			b.metrics.NotifyFailures.Inc()
		}
		b.logger.WarnContext(ctx, "parent notification failed",
			"event_id", event.ID,
			"attempt", attempt,
			"error", lastErr,
		)
		if attempt == b.notifyAttempts {
			break
		}
		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
			attempt = b.notifyAttempts
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxNotifyBackoff {
			backoff = maxNotifyBackoff
		}
	}

	if b.metrics != nil {
		b.metrics.NotifyRetryExhausted.Inc()
	}
	b.deadLetter(event, lastErr)
}

func (b *Bus) deadLetter(event *Event, cause error) {
	if b.deadLetters == nil {
		b.logger.Error("notification dropped: no dead-letter store configured",
			"event_id", event.ID, "error", cause)
		return
	}
	dl := &DeadLetter{
		Event:      *event,
		Attempts:   b.notifyAttempts,
		RecordedAt: b.clock().UTC(),
	}
	if cause != nil {
		dl.LastError = cause.Error()
	}
	// Detached context: the parked record must survive request cancellation.
	if err := b.deadLetters.Append(context.Background(), dl); err != nil {
		b.logger.Error("failed to dead-letter notification",
			"event_id", event.ID, "error", err)
		return
	}
	if b.metrics != nil {
		b.metrics.DeadLetters.Inc()
	}
	b.logger.Error("parent notification dead-lettered",
		"event_id", event.ID, "error", cause)
}
