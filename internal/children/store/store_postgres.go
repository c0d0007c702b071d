package store

import (
	"context"
	"database/sql"
	"fmt"

	"guardian/internal/children"
	"guardian/pkg/domain"
)

// PostgresStore persists child profiles.
type PostgresStore struct {
	db *sql.DB
}

var _ children.Store = (*PostgresStore)(nil)

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, childID domain.ChildID) (*domain.ChildProfile, error) {
	query := `
		SELECT child_id, parent_id, age, safety_level, language, created_at
		FROM child_profiles
		WHERE child_id = $1
	`
	p := &domain.ChildProfile{}
	err := s.db.QueryRowContext(ctx, query, childID.String()).
		Scan(&p.ID, &p.ParentID, &p.Age, &p.SafetyLevel, &p.Language, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get child profile: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Save(ctx context.Context, profile *domain.ChildProfile) error {
	if profile == nil {
		return fmt.Errorf("child profile is required")
	}
	query := `
		INSERT INTO child_profiles (child_id, parent_id, age, safety_level, language, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (child_id) DO UPDATE SET
			age = EXCLUDED.age,
			safety_level = EXCLUDED.safety_level,
			language = EXCLUDED.language
	`
	_, err := s.db.ExecContext(ctx, query,
		profile.ID.String(),
		profile.ParentID.String(),
		profile.Age,
		profile.SafetyLevel.String(),
		profile.Language,
		profile.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save child profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByParent(ctx context.Context, parentID domain.ParentID) ([]*domain.ChildProfile, error) {
	query := `
		SELECT child_id, parent_id, age, safety_level, language, created_at
		FROM child_profiles
		WHERE parent_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, parentID.String())
	if err != nil {
		return nil, fmt.Errorf("list child profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*domain.ChildProfile
	for rows.Next() {
		p := &domain.ChildProfile{}
		if err := rows.Scan(&p.ID, &p.ParentID, &p.Age, &p.SafetyLevel, &p.Language, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan child profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate child profiles: %w", err)
	}
	return profiles, nil
}
