package limits

import (
	"time"

	"guardian/pkg/domain"
)

// SessionState is the per-child interaction state machine position.
type SessionState string

const (
	StateIdle      SessionState = "idle"
	StateInSession SessionState = "in_session"
	StateCooldown  SessionState = "cooldown"
)

// Reason explains why a reservation was denied (ReasonOK when it passed).
type Reason string

const (
	ReasonOK             Reason = "ok"
	ReasonDailyCap       Reason = "daily_cap"
	ReasonSessionCap     Reason = "session_cap"
	ReasonCooldown       Reason = "cooldown"
	ReasonConsecutiveCap Reason = "consecutive_cap"
)

// InteractionState is the only frequently-mutated shared record in the
// engine. It is owned exclusively by the limiter service; all mutation
// happens under the per-child lock and is persisted on every accepted
// reservation so a process restart cannot reset quotas.
type InteractionState struct {
	ChildID          domain.ChildID `json:"child_id"`
	DayKey           string         `json:"day_key"`
	DailyCount       int            `json:"daily_count"`
	ConsecutiveCount int            `json:"consecutive_count"`
	SecondsToday     int            `json:"seconds_today"`
	SessionStartedAt *time.Time     `json:"session_started_at,omitempty"`
	LastInteraction  *time.Time     `json:"last_interaction_at,omitempty"`
	CooldownUntil    *time.Time     `json:"cooldown_until,omitempty"`
	// CooldownCause records which cap forced the active cooldown, so
	// denials during it can report the original reason.
	CooldownCause Reason `json:"cooldown_cause,omitempty"`
}

// Phase derives the state machine position from the stored fields.
func (st *InteractionState) Phase(now time.Time) SessionState {
	if st.CooldownUntil != nil && now.Before(*st.CooldownUntil) {
		return StateCooldown
	}
	if st.SessionStartedAt != nil {
		return StateInSession
	}
	return StateIdle
}

// LimitResult is the outcome of one CheckAndReserve call.
type LimitResult struct {
	Allowed    bool          `json:"allowed"`
	Reason     Reason        `json:"reason"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
	State      SessionState  `json:"state"`
	Remaining  int           `json:"remaining"`
}
