//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"guardian/internal/retention"
	"guardian/pkg/domain"
	"guardian/pkg/testutil/containers"
)

const ticketDDL = `
	CREATE TABLE retention_tickets (
		ticket_id UUID PRIMARY KEY,
		child_id UUID NOT NULL,
		data_category TEXT NOT NULL,
		origin TEXT NOT NULL,
		status TEXT NOT NULL,
		eligible_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		executed_at TIMESTAMPTZ,
		purged_records INT NOT NULL DEFAULT 0,
		blocked_reason TEXT NOT NULL DEFAULT '',
		confirmation_code TEXT NOT NULL DEFAULT '',
		violation_reported BOOLEAN NOT NULL DEFAULT FALSE
	)
`

const conversationDDL = `
	CREATE TABLE conversation_messages (
		message_id UUID PRIMARY KEY,
		child_id UUID NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)
`

func TestPostgresStore_Integration(t *testing.T) {
	pg := containers.NewPostgresContainer(t, ticketDDL)
	store := NewPostgres(pg.DB)
	ctx := context.Background()

	childID := domain.NewChildID()
	now := time.Now().UTC().Truncate(time.Millisecond)
	ticket := &retention.Ticket{
		ID:         domain.NewTicketID(),
		ChildID:    childID,
		Category:   domain.DataConversations,
		Origin:     retention.OriginSweep,
		Status:     retention.StatusPending,
		EligibleAt: now,
		CreatedAt:  now,
	}
	require.NoError(t, store.Save(ctx, ticket))

	found, err := store.FindOpen(ctx, childID, domain.DataConversations)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, ticket.ID, found.ID)

	// Executing the ticket closes it; FindOpen no longer returns it.
	executedAt := now.Add(time.Minute)
	ticket.Status = retention.StatusExecuted
	ticket.ExecutedAt = &executedAt
	ticket.PurgedRecords = 7
	require.NoError(t, store.Save(ctx, ticket))

	found, err = store.FindOpen(ctx, childID, domain.DataConversations)
	require.NoError(t, err)
	require.Nil(t, found)

	byChild, err := store.ListByChild(ctx, childID)
	require.NoError(t, err)
	require.Len(t, byChild, 1)
	require.Equal(t, 7, byChild[0].PurgedRecords)
	require.NotNil(t, byChild[0].ExecutedAt)
}

func TestPostgresDataStore_Integration(t *testing.T) {
	pg := containers.NewPostgresContainer(t, conversationDDL)
	store := NewPostgresDataStore(pg.DB)
	ctx := context.Background()

	childID := domain.NewChildID()
	otherChild := domain.NewChildID()
	now := time.Now().UTC()

	insert := func(child domain.ChildID, age time.Duration) {
		_, err := pg.DB.ExecContext(ctx,
			`INSERT INTO conversation_messages (message_id, child_id, content, created_at) VALUES ($1, $2, $3, $4)`,
			domain.NewEventID().String(), child.String(), "hi", now.Add(-age),
		)
		require.NoError(t, err)
	}
	insert(childID, 40*24*time.Hour)
	insert(childID, time.Hour)
	insert(otherChild, 40*24*time.Hour)

	cutoff := now.Add(-30 * 24 * time.Hour)

	aged, err := store.ListAged(ctx, domain.DataConversations, cutoff)
	require.NoError(t, err)
	require.ElementsMatch(t, []domain.ChildID{childID, otherChild}, aged)

	purged, err := store.Purge(ctx, childID, domain.DataConversations, cutoff)
	require.NoError(t, err)
	require.Equal(t, 1, purged)

	// The fresh record and the other child's data are untouched.
	var remaining int
	require.NoError(t, pg.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM conversation_messages`,
	).Scan(&remaining))
	require.Equal(t, 2, remaining)
}
