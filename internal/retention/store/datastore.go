package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"guardian/pkg/domain"
)

// categoryTables maps each data category to the table and timestamp column
// holding that data. Categories are a closed set, so an unmapped category is
// a programming error surfaced at purge time.
var categoryTables = map[domain.DataCategory]struct {
	table string
	tsCol string
}{
	domain.DataConversations:   {"conversation_messages", "created_at"},
	domain.DataVoiceRecordings: {"voice_recordings", "recorded_at"},
	domain.DataInteractionLogs: {"interaction_logs", "occurred_at"},
	domain.DataAnalytics:       {"analytics_events", "occurred_at"},
	domain.DataSafetyLogs:      {"safety_events", "occurred_at"},
	domain.DataConsentRecords:  {"consent_records", "granted_at"},
}

// PostgresDataStore finds and purges aged child data across the product
// tables. It backs both the scheduler's candidate source and its purger.
type PostgresDataStore struct {
	db *sql.DB
}

func NewPostgresDataStore(db *sql.DB) *PostgresDataStore {
	return &PostgresDataStore{db: db}
}

// ListAged returns the children with at least one record in the category
// older than the cutoff.
func (s *PostgresDataStore) ListAged(ctx context.Context, category domain.DataCategory, olderThan time.Time) ([]domain.ChildID, error) {
	mapping, ok := categoryTables[category]
	if !ok {
		return nil, fmt.Errorf("no table mapped for data category %q", category)
	}
	query := fmt.Sprintf(
		`SELECT DISTINCT child_id FROM %s WHERE %s < $1`,
		mapping.table, mapping.tsCol,
	)
	rows, err := s.db.QueryContext(ctx, query, olderThan)
	if err != nil {
		return nil, fmt.Errorf("list aged %s records: %w", category, err)
	}
	defer rows.Close()

	var children []domain.ChildID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan aged record: %w", err)
		}
		children = append(children, domain.ChildID(raw))
	}
	return children, rows.Err()
}

// Purge deletes the child's records in the category older than the cutoff
// and reports how many rows were removed.
func (s *PostgresDataStore) Purge(ctx context.Context, childID domain.ChildID, category domain.DataCategory, olderThan time.Time) (int, error) {
	mapping, ok := categoryTables[category]
	if !ok {
		return 0, fmt.Errorf("no table mapped for data category %q", category)
	}
	query := fmt.Sprintf(
		`DELETE FROM %s WHERE child_id = $1 AND %s < $2`,
		mapping.table, mapping.tsCol,
	)
	res, err := s.db.ExecContext(ctx, query, childID.String(), olderThan)
	if err != nil {
		return 0, fmt.Errorf("purge %s records: %w", category, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count purged %s records: %w", category, err)
	}
	return int(affected), nil
}

// DataRecord is one stored item in the in-memory data store.
type DataRecord struct {
	ChildID   domain.ChildID
	Category  domain.DataCategory
	CreatedAt time.Time
}

// MemoryDataStore is the development stand-in for the product tables.
type MemoryDataStore struct {
	mu      sync.RWMutex
	records []DataRecord
}

func NewMemoryDataStore() *MemoryDataStore {
	return &MemoryDataStore{}
}

// Add records one stored item so the sweeper can find it later.
func (s *MemoryDataStore) Add(record DataRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
}

func (s *MemoryDataStore) ListAged(_ context.Context, category domain.DataCategory, olderThan time.Time) ([]domain.ChildID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[domain.ChildID]bool)
	var children []domain.ChildID
	for _, r := range s.records {
		if r.Category == category && r.CreatedAt.Before(olderThan) && !seen[r.ChildID] {
			seen[r.ChildID] = true
			children = append(children, r.ChildID)
		}
	}
	return children, nil
}

func (s *MemoryDataStore) Purge(_ context.Context, childID domain.ChildID, category domain.DataCategory, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	purged := 0
	for _, r := range s.records {
		if r.ChildID == childID && r.Category == category && r.CreatedAt.Before(olderThan) {
			purged++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return purged, nil
}
