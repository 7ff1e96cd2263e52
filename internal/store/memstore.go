package store

import (
	"sort"
	"sync"
)

// MemStore is a map-backed Storer.
type MemStore struct {
	mu      sync.RWMutex
	results map[string]*CachedResult
}

// NewMemStore creates a new in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{results: make(map[string]*CachedResult)}
}

// Close is a no-op for MemStore.
func (s *MemStore) Close() error {
	return nil
}

func (s *MemStore) PutResult(r *CachedResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *r
	s.results[r.Key] = &copy
	return nil
}

func (s *MemStore) GetResult(key string) (*CachedResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.results[key]; ok {
		copy := *r
		return &copy, nil
	}
	return nil, nil
}

func (s *MemStore) DeleteResult(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.results, key)
	return nil
}

// DeleteScenario drops every result fetched for scenario and reports how many went.
func (s *MemStore) DeleteScenario(scenario string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key, r := range s.results {
		if r.Scenario == scenario {
			delete(s.results, key)
			n++
		}
	}
	return n, nil
}

// ListResults returns the results for scenario, oldest first.
func (s *MemStore) ListResults(scenario string) ([]*CachedResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*CachedResult
	for _, r := range s.results {
		if r.Scenario == scenario {
			copy := *r
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

func (s *MemStore) CountResults() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results), nil
}

var _ Storer = (*MemStore)(nil)
