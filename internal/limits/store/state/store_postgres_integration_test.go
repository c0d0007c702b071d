//go:build integration

package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"guardian/internal/limits"
	"guardian/pkg/domain"
	"guardian/pkg/testutil/containers"
)

const stateDDL = `
	CREATE TABLE interaction_states (
		child_id UUID PRIMARY KEY,
		day_key TEXT NOT NULL,
		daily_count INT NOT NULL,
		consecutive_count INT NOT NULL,
		seconds_today INT NOT NULL,
		session_started_at TIMESTAMPTZ,
		last_interaction_at TIMESTAMPTZ,
		cooldown_until TIMESTAMPTZ,
		cooldown_cause TEXT
	)
`

func roundTripState(t *testing.T, store limits.StateStore) {
	t.Helper()
	ctx := context.Background()

	childID := domain.NewChildID()

	missing, err := store.Get(ctx, childID)
	require.NoError(t, err)
	require.Nil(t, missing)

	now := time.Now().UTC().Truncate(time.Millisecond)
	st := &limits.InteractionState{
		ChildID:          childID,
		DayKey:           "2026-09-01",
		DailyCount:       5,
		ConsecutiveCount: 2,
		SecondsToday:     480,
		SessionStartedAt: &now,
		LastInteraction:  &now,
	}
	require.NoError(t, store.Save(ctx, st))

	got, err := store.Get(ctx, childID)
	require.NoError(t, err)
	require.Equal(t, 5, got.DailyCount)
	require.Equal(t, 2, got.ConsecutiveCount)
	require.NotNil(t, got.SessionStartedAt)
	require.Nil(t, got.CooldownUntil)

	// Upsert replaces the row in place.
	cooldown := now.Add(10 * time.Minute)
	st.DailyCount = 6
	st.CooldownUntil = &cooldown
	st.CooldownCause = limits.ReasonConsecutiveCap
	require.NoError(t, store.Save(ctx, st))

	got, err = store.Get(ctx, childID)
	require.NoError(t, err)
	require.Equal(t, 6, got.DailyCount)
	require.NotNil(t, got.CooldownUntil)
	require.Equal(t, limits.ReasonConsecutiveCap, got.CooldownCause)
}

func TestPostgresStateStore_Integration(t *testing.T) {
	pg := containers.NewPostgresContainer(t, stateDDL)
	roundTripState(t, NewPostgres(pg.DB))
}

func TestRedisStateStore_Integration(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	roundTripState(t, NewRedis(rc.Client))
}
