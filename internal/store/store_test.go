package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Store Factory for Testing Both Implementations
// =============================================================================

type storeFactory func() (Storer, error)

func memStoreFactory() (Storer, error) {
	return NewMemStore(), nil
}

func sqliteStoreFactory() (Storer, error) {
	return NewSQLiteStore()
}

// runTestsForAllStores runs a test function against both store implementations.
func runTestsForAllStores(t *testing.T, testName string, testFn func(t *testing.T, store Storer)) {
	factories := map[string]storeFactory{
		"MemStore":    memStoreFactory,
		"SQLiteStore": sqliteStoreFactory,
	}

	for name, factory := range factories {
		t.Run(name+"/"+testName, func(t *testing.T) {
			store, err := factory()
			require.NoError(t, err, "Failed to create store")
			defer store.Close()
			testFn(t, store)
		})
	}
}

func result(key, scenario string, createdAt int64) *CachedResult {
	return &CachedResult{
		Key:       key,
		Scenario:  scenario,
		Endpoint:  "http://qe/runs/r1/cfg/query",
		Body:      `{"records":[{"topaz_id":22,"soil_loss":1.5}]}`,
		Records:   1,
		CreatedAt: createdAt,
	}
}

func TestResultPutAndGet(t *testing.T) {
	runTestsForAllStores(t, "PutAndGet", func(t *testing.T, store Storer) {
		now := time.Now().UnixMilli()
		require.NoError(t, store.PutResult(result("k1", "", now)))

		got, err := store.GetResult("k1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "k1", got.Key)
		assert.Equal(t, 1, got.Records)
		assert.Contains(t, got.Body, "soil_loss")

		// replace
		updated := result("k1", "", now+1)
		updated.Records = 3
		require.NoError(t, store.PutResult(updated))
		got, err = store.GetResult("k1")
		require.NoError(t, err)
		assert.Equal(t, 3, got.Records)

		count, err := store.CountResults()
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestResultGetNotFound(t *testing.T) {
	runTestsForAllStores(t, "GetNotFound", func(t *testing.T, store Storer) {
		got, err := store.GetResult("nonexistent")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestResultDelete(t *testing.T) {
	runTestsForAllStores(t, "Delete", func(t *testing.T, store Storer) {
		require.NoError(t, store.PutResult(result("k1", "", 1)))
		require.NoError(t, store.DeleteResult("k1"))

		got, err := store.GetResult("k1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestResultScenarioScoping(t *testing.T) {
	runTestsForAllStores(t, "ScenarioScoping", func(t *testing.T, store Storer) {
		require.NoError(t, store.PutResult(result("b1", "", 1)))
		require.NoError(t, store.PutResult(result("s2", "omni/scenarios/a", 2)))
		require.NoError(t, store.PutResult(result("s1", "omni/scenarios/a", 1)))

		list, err := store.ListResults("omni/scenarios/a")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "s1", list[0].Key)
		assert.Equal(t, "s2", list[1].Key)

		n, err := store.DeleteScenario("omni/scenarios/a")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		count, err := store.CountResults()
		require.NoError(t, err)
		assert.Equal(t, 1, count, "base results survive a scenario purge")
	})
}

func TestOpen(t *testing.T) {
	s, err := Open("none")
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = Open("memory")
	require.NoError(t, err)
	assert.IsType(t, &MemStore{}, s)

	s, err = Open("sqlite")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.NoError(t, s.Close())

	_, err = Open("redis")
	assert.Error(t, err)
}
