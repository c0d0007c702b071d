package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"guardian/internal/consent"
	"guardian/pkg/domain"
)

// PostgresStore persists consent history. Pure I/O; supersession and
// authorization logic live in the service.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, record *consent.Record) error {
	if record == nil {
		return fmt.Errorf("consent record is required")
	}
	query := `
		INSERT INTO consent_records (consent_id, parent_id, child_id, scopes, granted_at, verified, method)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	scopes := make([]string, len(record.Scopes))
	for i, sc := range record.Scopes {
		scopes[i] = sc.String()
	}
	_, err := s.db.ExecContext(ctx, query,
		record.ID.String(),
		record.ParentID.String(),
		record.ChildID.String(),
		pq.Array(scopes),
		record.GrantedAt,
		record.Verified,
		record.Method,
	)
	if err != nil {
		return fmt.Errorf("append consent record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByChild(ctx context.Context, childID domain.ChildID) ([]*consent.Record, error) {
	query := `
		SELECT consent_id, parent_id, child_id, scopes, granted_at, verified, method, revoked_at
		FROM consent_records
		WHERE child_id = $1
		ORDER BY granted_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, childID.String())
	if err != nil {
		return nil, fmt.Errorf("list consent records: %w", err)
	}
	defer rows.Close()

	var records []*consent.Record
	for rows.Next() {
		r := &consent.Record{}
		var scopes []string
		var revokedAt sql.NullTime
		var method sql.NullString
		if err := rows.Scan(&r.ID, &r.ParentID, &r.ChildID, pq.Array(&scopes), &r.GrantedAt, &r.Verified, &method, &revokedAt); err != nil {
			return nil, fmt.Errorf("scan consent record: %w", err)
		}
		for _, sc := range scopes {
			r.Scopes = append(r.Scopes, domain.ConsentScope(sc))
		}
		if method.Valid {
			r.Method = method.String
		}
		if revokedAt.Valid {
			t := revokedAt.Time
			r.RevokedAt = &t
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consent records: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) MarkRevoked(ctx context.Context, childID domain.ChildID, scope domain.ConsentScope, revokedAt time.Time) (int, error) {
	query := `
		UPDATE consent_records
		SET revoked_at = $3
		WHERE child_id = $1
		  AND verified
		  AND revoked_at IS NULL
		  AND $2 = ANY(scopes)
	`
	res, err := s.db.ExecContext(ctx, query, childID.String(), scope.String(), revokedAt)
	if err != nil {
		return 0, fmt.Errorf("revoke consent records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("revoke consent records: %w", err)
	}
	return int(n), nil
}
