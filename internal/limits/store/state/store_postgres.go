package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"guardian/internal/limits"
	"guardian/pkg/domain"
)

// PostgresStateStore persists interaction state so a restart cannot be used
// to reset quotas. This store is pure I/O; serialization per child is the
// service's job.
type PostgresStateStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStateStore {
	return &PostgresStateStore{db: db}
}

func (s *PostgresStateStore) Get(ctx context.Context, childID domain.ChildID) (*limits.InteractionState, error) {
	query := `
		SELECT child_id, day_key, daily_count, consecutive_count, seconds_today,
		       session_started_at, last_interaction_at, cooldown_until, cooldown_cause
		FROM interaction_states
		WHERE child_id = $1
	`
	st := &limits.InteractionState{}
	var sessionStarted, lastInteraction, cooldownUntil sql.NullTime
	var cooldownCause sql.NullString
	err := s.db.QueryRowContext(ctx, query, childID.String()).Scan(
		&st.ChildID,
		&st.DayKey,
		&st.DailyCount,
		&st.ConsecutiveCount,
		&st.SecondsToday,
		&sessionStarted,
		&lastInteraction,
		&cooldownUntil,
		&cooldownCause,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get interaction state: %w", err)
	}
	if sessionStarted.Valid {
		t := sessionStarted.Time
		st.SessionStartedAt = &t
	}
	if lastInteraction.Valid {
		t := lastInteraction.Time
		st.LastInteraction = &t
	}
	if cooldownUntil.Valid {
		t := cooldownUntil.Time
		st.CooldownUntil = &t
	}
	if cooldownCause.Valid {
		st.CooldownCause = limits.Reason(cooldownCause.String)
	}
	return st, nil
}

func (s *PostgresStateStore) Save(ctx context.Context, state *limits.InteractionState) error {
	if state == nil {
		return fmt.Errorf("interaction state is required")
	}
	query := `
		INSERT INTO interaction_states (child_id, day_key, daily_count, consecutive_count, seconds_today,
		                                session_started_at, last_interaction_at, cooldown_until, cooldown_cause)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (child_id) DO UPDATE SET
			day_key = EXCLUDED.day_key,
			daily_count = EXCLUDED.daily_count,
			consecutive_count = EXCLUDED.consecutive_count,
			seconds_today = EXCLUDED.seconds_today,
			session_started_at = EXCLUDED.session_started_at,
			last_interaction_at = EXCLUDED.last_interaction_at,
			cooldown_until = EXCLUDED.cooldown_until,
			cooldown_cause = EXCLUDED.cooldown_cause
	`
	_, err := s.db.ExecContext(ctx, query,
		state.ChildID.String(),
		state.DayKey,
		state.DailyCount,
		state.ConsecutiveCount,
		state.SecondsToday,
		nullableTime(state.SessionStartedAt),
		nullableTime(state.LastInteraction),
		nullableTime(state.CooldownUntil),
		nullableString(string(state.CooldownCause)),
	)
	if err != nil {
		return fmt.Errorf("save interaction state: %w", err)
	}
	return nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
