package limits

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"guardian/internal/limits/config"
	"guardian/internal/limits/metrics"
	"guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
)

// maxGapCharge bounds how much of the gap between two accepted messages
// counts toward the bracket's daily minutes. A longer silence is idle time,
// not usage.
const maxGapCharge = 5 * time.Minute

// Service enforces per-child interaction quotas. Every decision runs its
// read-check-increment sequence under the child's lock so concurrent
// requests for the same child cannot both see quota available; different
// children proceed fully in parallel.
type Service struct {
	store   StateStore
	cfg     config.Config
	locks   *keyedLock
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

func New(store StateStore, cfg config.Config, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("state store is required")
	}
	svc := &Service{
		store:  store,
		cfg:    cfg,
		locks:  newKeyedLock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CheckAndReserve atomically decides whether the child may send one more
// message and, if so, consumes the quota. The whole sequence holds the
// per-child lock; the lock is never held across external I/O other than the
// state store round-trip.
func (s *Service) CheckAndReserve(ctx context.Context, childID domain.ChildID, age int, now time.Time) (LimitResult, error) {
	if childID.IsNil() {
		return LimitResult{}, dErrors.New(dErrors.CodeInvalidInput, "child_id is required")
	}
	bracketName, bracket, ok := s.cfg.BracketFor(age)
	if !ok {
		// Startup validation guarantees coverage; reaching this means the
		// process is running with an unvalidated config.
		return LimitResult{}, dErrors.Newf(dErrors.CodeConfiguration, "age %d matches no configured bracket", age)
	}

	if err := s.locks.Lock(ctx, childID); err != nil {
		return LimitResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "acquire child lock")
	}
	defer s.locks.Unlock(childID)

	st, err := s.store.Get(ctx, childID)
	if err != nil {
		return LimitResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "load interaction state")
	}
	if st == nil {
		st = &InteractionState{ChildID: childID}
	}

	local := now.In(s.cfg.Location())
	dayKey := local.Format("2006-01-02")
	if st.DayKey != dayKey {
		s.resetDay(st, dayKey)
	}

	// Cooldown gate. A cooldown forced by the consecutive cap keeps
	// reporting that cap; everything else reads as a plain cooldown.
	if st.CooldownUntil != nil {
		if now.Before(*st.CooldownUntil) {
			reason := ReasonCooldown
			if st.CooldownCause == ReasonConsecutiveCap {
				reason = ReasonConsecutiveCap
			}
			return s.deny(reason, st.CooldownUntil.Sub(now), st, now), nil
		}
		// Cooldown -> Idle.
		st.CooldownUntil = nil
		st.CooldownCause = ""
		st.ConsecutiveCount = 0
	}

	// Pacing floor between any two accepted messages.
	if st.LastInteraction != nil {
		if gap := now.Sub(*st.LastInteraction); gap < s.cfg.MinInterval() {
			return s.deny(ReasonCooldown, s.cfg.MinInterval()-gap, st, now), nil
		}
	}

	untilMidnight := nextMidnight(local).Sub(local)

	if st.DailyCount >= s.cfg.MaxDailyInteractions {
		return s.deny(ReasonDailyCap, untilMidnight, st, now), nil
	}
	if st.SecondsToday >= bracket.MaxDailyMinutes*60 {
		s.logger.InfoContext(ctx, "daily minutes exhausted",
			"child_id", childID,
			"bracket", bracketName,
			"minutes_used", st.SecondsToday/60,
		)
		return s.deny(ReasonDailyCap, untilMidnight, st, now), nil
	}

	// Session duration cap forces a cooldown.
	if st.SessionStartedAt != nil && now.Sub(*st.SessionStartedAt) >= s.cfg.MaxSessionDuration() {
		s.enterCooldown(st, now, ReasonSessionCap)
		if err := s.store.Save(ctx, st); err != nil {
			return LimitResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "persist interaction state")
		}
		return s.deny(ReasonSessionCap, s.cfg.CooldownPeriod(), st, now), nil
	}

	// Accept: mutate state under the lock, then persist.
	if st.SessionStartedAt == nil {
		started := now
		st.SessionStartedAt = &started
	} else if st.LastInteraction != nil {
		// Charge the gap to the daily minutes, capped so in-session
		// silence does not drain the bracket's budget.
		gap := now.Sub(*st.LastInteraction)
		if gap > maxGapCharge {
			gap = maxGapCharge
		}
		st.SecondsToday += int(gap.Seconds())
	}

	// A pause of at least twice the pacing floor breaks the consecutive run.
	if st.LastInteraction != nil && now.Sub(*st.LastInteraction) >= 2*s.cfg.MinInterval() {
		st.ConsecutiveCount = 0
	}
	st.DailyCount++
	st.ConsecutiveCount++
	last := now
	st.LastInteraction = &last

	result := LimitResult{
		Allowed:   true,
		Reason:    ReasonOK,
		State:     StateInSession,
		Remaining: s.cfg.MaxDailyInteractions - st.DailyCount,
	}

	// The message that reaches the consecutive cap is still served, but the
	// next one will find the child cooling down.
	if st.ConsecutiveCount >= s.cfg.MaxConsecutiveInteractions {
		s.enterCooldown(st, now, ReasonConsecutiveCap)
		result.State = StateCooldown
	}

	if err := s.store.Save(ctx, st); err != nil {
		return LimitResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "persist interaction state")
	}
	if s.metrics != nil {
		s.metrics.IncrementReservations()
	}
	return result, nil
}

// State returns a copy of the child's current state for reporting endpoints.
func (s *Service) State(ctx context.Context, childID domain.ChildID) (*InteractionState, error) {
	st, err := s.store.Get(ctx, childID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load interaction state")
	}
	return st, nil
}

func (s *Service) resetDay(st *InteractionState, dayKey string) {
	st.DayKey = dayKey
	st.DailyCount = 0
	st.SecondsToday = 0
	st.ConsecutiveCount = 0
	st.SessionStartedAt = nil
	st.LastInteraction = nil
}

func (s *Service) enterCooldown(st *InteractionState, now time.Time, cause Reason) {
	until := now.Add(s.cfg.CooldownPeriod())
	st.CooldownUntil = &until
	st.CooldownCause = cause
	st.SessionStartedAt = nil
	if s.metrics != nil {
		s.metrics.IncrementCooldowns()
	}
}

func (s *Service) deny(reason Reason, retryAfter time.Duration, st *InteractionState, now time.Time) LimitResult {
	if s.metrics != nil {
		s.metrics.IncrementDenials(string(reason))
	}
	return LimitResult{
		Allowed:    false,
		Reason:     reason,
		RetryAfter: retryAfter,
		State:      st.Phase(now),
	}
}

func nextMidnight(local time.Time) time.Time {
	y, m, d := local.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, local.Location())
}
