package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"guardian/internal/retention"
	"guardian/pkg/domain"
)

// PostgresStore persists retention tickets. Pure I/O; eligibility and hold
// logic live in the scheduler.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, ticket *retention.Ticket) error {
	if ticket == nil {
		return fmt.Errorf("retention ticket is required")
	}
	query := `
		INSERT INTO retention_tickets (
			ticket_id, child_id, data_category, origin, status, eligible_at,
			created_at, executed_at, purged_records, blocked_reason,
			confirmation_code, violation_reported
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (ticket_id) DO UPDATE SET
			origin = EXCLUDED.origin,
			status = EXCLUDED.status,
			eligible_at = EXCLUDED.eligible_at,
			executed_at = EXCLUDED.executed_at,
			purged_records = EXCLUDED.purged_records,
			blocked_reason = EXCLUDED.blocked_reason,
			confirmation_code = EXCLUDED.confirmation_code,
			violation_reported = EXCLUDED.violation_reported
	`
	_, err := s.db.ExecContext(ctx, query,
		ticket.ID.String(),
		ticket.ChildID.String(),
		ticket.Category.String(),
		string(ticket.Origin),
		string(ticket.Status),
		ticket.EligibleAt,
		ticket.CreatedAt,
		nullableTime(ticket.ExecutedAt),
		ticket.PurgedRecords,
		ticket.BlockedReason,
		ticket.ConfirmationCode,
		ticket.ViolationReported,
	)
	if err != nil {
		return fmt.Errorf("save retention ticket: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindOpen(ctx context.Context, childID domain.ChildID, category domain.DataCategory) (*retention.Ticket, error) {
	query := selectTickets + `
		WHERE child_id = $1
		  AND data_category = $2
		  AND status IN ('pending', 'blocked')
		LIMIT 1
	`
	rows, err := s.db.QueryContext(ctx, query, childID.String(), category.String())
	if err != nil {
		return nil, fmt.Errorf("find open retention ticket: %w", err)
	}
	defer rows.Close()

	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, nil
	}
	return tickets[0], nil
}

func (s *PostgresStore) ListOpen(ctx context.Context) ([]*retention.Ticket, error) {
	query := selectTickets + `
		WHERE status IN ('pending', 'blocked')
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list open retention tickets: %w", err)
	}
	defer rows.Close()

	return scanTickets(rows)
}

func (s *PostgresStore) ListByChild(ctx context.Context, childID domain.ChildID) ([]*retention.Ticket, error) {
	query := selectTickets + `
		WHERE child_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, childID.String())
	if err != nil {
		return nil, fmt.Errorf("list retention tickets: %w", err)
	}
	defer rows.Close()

	return scanTickets(rows)
}

const selectTickets = `
	SELECT ticket_id, child_id, data_category, origin, status, eligible_at,
	       created_at, executed_at, purged_records, blocked_reason,
	       confirmation_code, violation_reported
	FROM retention_tickets
`

func scanTickets(rows *sql.Rows) ([]*retention.Ticket, error) {
	var tickets []*retention.Ticket
	for rows.Next() {
		t := &retention.Ticket{}
		var executedAt sql.NullTime
		if err := rows.Scan(
			&t.ID, &t.ChildID, &t.Category, &t.Origin, &t.Status, &t.EligibleAt,
			&t.CreatedAt, &executedAt, &t.PurgedRecords, &t.BlockedReason,
			&t.ConfirmationCode, &t.ViolationReported,
		); err != nil {
			return nil, fmt.Errorf("scan retention ticket: %w", err)
		}
		if executedAt.Valid {
			at := executedAt.Time
			t.ExecutedAt = &at
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate retention tickets: %w", err)
	}
	return tickets, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
