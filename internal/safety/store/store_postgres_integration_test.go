//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"guardian/internal/safety"
	"guardian/pkg/domain"
	"guardian/pkg/testutil/containers"
)

const safetyDDL = `
	CREATE TABLE safety_events (
		event_id UUID PRIMARY KEY,
		child_id UUID NOT NULL,
		event_type TEXT NOT NULL,
		severity TEXT NOT NULL,
		description TEXT NOT NULL,
		action_taken TEXT NOT NULL DEFAULT '',
		occurred_at TIMESTAMPTZ NOT NULL,
		reported_to_parent BOOLEAN NOT NULL DEFAULT FALSE,
		relayed_at TIMESTAMPTZ
	)
`

const deadLetterDDL = `
	CREATE TABLE notification_dead_letters (
		event_id UUID NOT NULL,
		payload JSONB NOT NULL,
		attempts INT NOT NULL,
		last_error TEXT NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL
	)
`

func appendEvent(t *testing.T, store *PostgresStore, childID domain.ChildID, occurredAt time.Time) *safety.Event {
	t.Helper()
	event := &safety.Event{
		ID:          domain.NewEventID(),
		ChildID:     childID,
		Type:        safety.EventInappropriateContent,
		Severity:    safety.SeverityHigh,
		Description: "blocked message",
		ActionTaken: "message_blocked",
		Timestamp:   occurredAt,
	}
	require.NoError(t, store.Append(context.Background(), event))
	return event
}

func TestPostgresStore_Integration(t *testing.T) {
	pg := containers.NewPostgresContainer(t, safetyDDL, deadLetterDDL)
	store := NewPostgres(pg.DB)
	ctx := context.Background()

	childID := domain.NewChildID()
	base := time.Now().UTC().Truncate(time.Millisecond)
	first := appendEvent(t, store, childID, base.Add(-2*time.Hour))
	second := appendEvent(t, store, childID, base.Add(-1*time.Hour))
	appendEvent(t, store, domain.NewChildID(), base)

	t.Run("list by child newest first", func(t *testing.T) {
		page, err := store.ListByChild(ctx, childID, safety.Filter{Limit: 10})
		require.NoError(t, err)
		require.Equal(t, 2, page.Total)
		require.Equal(t, second.ID, page.Events[0].ID)
		require.Equal(t, first.ID, page.Events[1].ID)
	})

	t.Run("date filter", func(t *testing.T) {
		from := base.Add(-90 * time.Minute)
		page, err := store.ListByChild(ctx, childID, safety.Filter{From: &from, Limit: 10})
		require.NoError(t, err)
		require.Equal(t, 1, page.Total)
		require.Equal(t, second.ID, page.Events[0].ID)
	})

	t.Run("outbox relay cycle", func(t *testing.T) {
		unrelayed, err := store.ListUnrelayed(ctx, 10)
		require.NoError(t, err)
		require.Len(t, unrelayed, 3)
		// Oldest first, so the relay preserves per-child order.
		require.Equal(t, first.ID, unrelayed[0].ID)

		require.NoError(t, store.MarkRelayed(ctx, []domain.EventID{first.ID, second.ID}))
		unrelayed, err = store.ListUnrelayed(ctx, 10)
		require.NoError(t, err)
		require.Len(t, unrelayed, 1)
	})

	t.Run("mark reported", func(t *testing.T) {
		require.NoError(t, store.MarkReported(ctx, first.ID))
		page, err := store.ListByChild(ctx, childID, safety.Filter{Limit: 10})
		require.NoError(t, err)
		for _, e := range page.Events {
			if e.ID == first.ID {
				require.True(t, e.ReportedToParent)
			}
		}
	})

	t.Run("dead letters", func(t *testing.T) {
		dls := NewPostgresDeadLetterStore(pg.DB)
		require.NoError(t, dls.Append(ctx, &safety.DeadLetter{
			Event:      first,
			Attempts:   4,
			LastError:  "endpoint returned 502",
			RecordedAt: time.Now().UTC(),
		}))

		var count int
		require.NoError(t, pg.DB.QueryRowContext(ctx,
			`SELECT count(*) FROM notification_dead_letters WHERE event_id = $1`,
			first.ID.String(),
		).Scan(&count))
		require.Equal(t, 1, count)
	})
}
