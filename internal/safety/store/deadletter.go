package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"guardian/internal/safety"
)

// MemoryDeadLetterStore keeps dead letters in memory for tests.
type MemoryDeadLetterStore struct {
	mu      sync.Mutex
	letters []*safety.DeadLetter
}

func NewMemoryDeadLetterStore() *MemoryDeadLetterStore {
	return &MemoryDeadLetterStore{}
}

func (s *MemoryDeadLetterStore) Append(_ context.Context, dl *safety.DeadLetter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *dl
	s.letters = append(s.letters, &cp)
	return nil
}

// All returns a snapshot of parked letters.
func (s *MemoryDeadLetterStore) All() []*safety.DeadLetter {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*safety.DeadLetter, len(s.letters))
	copy(out, s.letters)
	return out
}

// PostgresDeadLetterStore parks undeliverable notifications for operator
// review. The full event is kept as JSON so nothing is lost to schema drift.
type PostgresDeadLetterStore struct {
	db *sql.DB
}

func NewPostgresDeadLetterStore(db *sql.DB) *PostgresDeadLetterStore {
	return &PostgresDeadLetterStore{db: db}
}

func (s *PostgresDeadLetterStore) Append(ctx context.Context, dl *safety.DeadLetter) error {
	payload, err := json.Marshal(dl.Event)
	if err != nil {
		return fmt.Errorf("encode dead letter: %w", err)
	}
	query := `
		INSERT INTO notification_dead_letters (event_id, payload, attempts, last_error, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = s.db.ExecContext(ctx, query,
		dl.Event.ID.String(),
		payload,
		dl.Attempts,
		dl.LastError,
		dl.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("append dead letter: %w", err)
	}
	return nil
}
