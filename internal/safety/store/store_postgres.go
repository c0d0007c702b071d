package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"guardian/internal/safety"
	"guardian/pkg/domain"
)

// PostgresStore persists safety events as an append-only table that doubles
// as the relay outbox (relayed_at marks stream delivery).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event *safety.Event) error {
	if event == nil {
		return fmt.Errorf("safety event is required")
	}
	query := `
		INSERT INTO safety_events (event_id, child_id, event_type, severity, description, action_taken, occurred_at, reported_to_parent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID.String(),
		event.ChildID.String(),
		event.Type.String(),
		event.Severity.String(),
		event.Description,
		event.ActionTaken,
		event.Timestamp,
		event.ReportedToParent,
	)
	if err != nil {
		return fmt.Errorf("append safety event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByChild(ctx context.Context, childID domain.ChildID, f safety.Filter) (*safety.Page, error) {
	countQuery := `
		SELECT count(*)
		FROM safety_events
		WHERE child_id = $1
		  AND ($2::timestamptz IS NULL OR occurred_at >= $2)
		  AND ($3::timestamptz IS NULL OR occurred_at <= $3)
	`
	page := &safety.Page{Offset: f.Offset, Limit: f.Limit}
	if err := s.db.QueryRowContext(ctx, countQuery, childID.String(), f.From, f.To).Scan(&page.Total); err != nil {
		return nil, fmt.Errorf("count safety events: %w", err)
	}

	query := `
		SELECT event_id, child_id, event_type, severity, description, action_taken, occurred_at, reported_to_parent
		FROM safety_events
		WHERE child_id = $1
		  AND ($2::timestamptz IS NULL OR occurred_at >= $2)
		  AND ($3::timestamptz IS NULL OR occurred_at <= $3)
		ORDER BY occurred_at DESC
		LIMIT $4 OFFSET $5
	`
	rows, err := s.db.QueryContext(ctx, query, childID.String(), f.From, f.To, f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("list safety events: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	page.Events = events
	return page, nil
}

func (s *PostgresStore) ListUnrelayed(ctx context.Context, limit int) ([]*safety.Event, error) {
	query := `
		SELECT event_id, child_id, event_type, severity, description, action_taken, occurred_at, reported_to_parent
		FROM safety_events
		WHERE relayed_at IS NULL
		ORDER BY occurred_at ASC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list unrelayed safety events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (s *PostgresStore) MarkRelayed(ctx context.Context, ids []domain.EventID) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	query := `
		UPDATE safety_events
		SET relayed_at = now()
		WHERE event_id = ANY($1)
	`
	if _, err := s.db.ExecContext(ctx, query, pq.Array(raw)); err != nil {
		return fmt.Errorf("mark safety events relayed: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkReported(ctx context.Context, id domain.EventID) error {
	query := `
		UPDATE safety_events
		SET reported_to_parent = TRUE
		WHERE event_id = $1
	`
	if _, err := s.db.ExecContext(ctx, query, id.String()); err != nil {
		return fmt.Errorf("mark safety event reported: %w", err)
	}
	return nil
}

func scanEvents(rows *sql.Rows) ([]*safety.Event, error) {
	var events []*safety.Event
	for rows.Next() {
		e := &safety.Event{}
		if err := rows.Scan(&e.ID, &e.ChildID, &e.Type, &e.Severity, &e.Description, &e.ActionTaken, &e.Timestamp, &e.ReportedToParent); err != nil {
			return nil, fmt.Errorf("scan safety event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate safety events: %w", err)
	}
	return events, nil
}
