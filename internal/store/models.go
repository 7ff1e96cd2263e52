// Package store keeps Query Engine responses for the life of the dashboard.
// Both implementations are in-memory; nothing survives a page reload.
package store

import "fmt"

// CachedResult is one Query Engine response body.
type CachedResult struct {
	Key       string `json:"key"`      // hex SHA-256 of endpoint + request body
	Scenario  string `json:"scenario"` // "" for the base scenario
	Endpoint  string `json:"endpoint"`
	Body      string `json:"body"` // raw JSON response
	Records   int    `json:"records"`
	CreatedAt int64  `json:"createdAt"`
}

// Storer defines the interface for the query-result cache.
// MemStore and SQLiteStore share one test suite.
type Storer interface {
	PutResult(r *CachedResult) error
	GetResult(key string) (*CachedResult, error)
	DeleteResult(key string) error
	DeleteScenario(scenario string) (int, error)
	ListResults(scenario string) ([]*CachedResult, error)
	CountResults() (int, error)

	// Lifecycle
	Close() error
}

// Open returns the Storer for a configured cache backend.
// "none" and "" yield a nil Storer, which disables caching.
func Open(backend string) (Storer, error) {
	switch backend {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemStore(), nil
	case "sqlite":
		s, err := NewSQLiteStore()
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("store: unknown backend %q", backend)
	}
}
