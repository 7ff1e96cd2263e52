package store

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// SQLiteStore is the SQLite-backed Storer. It runs on an in-memory database
// so large record sets stay out of the Go heap's map buckets.
type SQLiteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS query_results (
    key TEXT PRIMARY KEY,
    scenario TEXT NOT NULL,
    endpoint TEXT NOT NULL,
    body TEXT NOT NULL,
    records INTEGER DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_query_results_scenario ON query_results(scenario, created_at);
`

// NewSQLiteStore creates a new in-memory SQLite store.
func NewSQLiteStore() (*SQLiteStore, error) {
	return NewSQLiteStoreWithDSN(":memory:")
}

// NewSQLiteStoreWithDSN creates a store with a specific data source name.
func NewSQLiteStoreWithDSN(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// each :memory: connection is its own database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// PutResult inserts or replaces a result.
func (s *SQLiteStore) PutResult(r *CachedResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO query_results (key, scenario, endpoint, body, records, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			scenario = excluded.scenario,
			endpoint = excluded.endpoint,
			body = excluded.body,
			records = excluded.records,
			created_at = excluded.created_at
	`, r.Key, r.Scenario, r.Endpoint, r.Body, r.Records, r.CreatedAt)
	return err
}

// GetResult returns nil, nil when key is absent.
func (s *SQLiteStore) GetResult(key string) (*CachedResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var r CachedResult
	err := s.db.QueryRow(`
		SELECT key, scenario, endpoint, body, records, created_at
		FROM query_results WHERE key = ?
	`, key).Scan(&r.Key, &r.Scenario, &r.Endpoint, &r.Body, &r.Records, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLiteStore) DeleteResult(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM query_results WHERE key = ?`, key)
	return err
}

func (s *SQLiteStore) DeleteScenario(scenario string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM query_results WHERE scenario = ?`, scenario)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *SQLiteStore) ListResults(scenario string) ([]*CachedResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT key, scenario, endpoint, body, records, created_at
		FROM query_results WHERE scenario = ?
		ORDER BY created_at, key
	`, scenario)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*CachedResult
	for rows.Next() {
		var r CachedResult
		if err := rows.Scan(&r.Key, &r.Scenario, &r.Endpoint, &r.Body, &r.Records, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CountResults() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM query_results`).Scan(&n)
	return n, err
}

var _ Storer = (*SQLiteStore)(nil)
