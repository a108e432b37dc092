package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_LookupMiss(t *testing.T) {
	store := openTestStore(t)
	_, ok, err := store.Lookup("proc.sql", "abc123")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_PutThenLookupHit(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Put("proc.sql", "abc123", "run-1", `{"procedure_name":"dbo.Load"}`))

	entry, ok, err := store.Lookup("proc.sql", "abc123")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "run-1", entry.AnalysisRunID)
	assert.Equal(t, `{"procedure_name":"dbo.Load"}`, entry.ReportJSON)
}

func TestStore_LookupMissesOnHashChange(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Put("proc.sql", "abc123", "run-1", "{}"))

	_, ok, err := store.Lookup("proc.sql", "different-hash")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_PutOverwritesExisting(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Put("proc.sql", "hash1", "run-1", "{}"))
	require.NoError(t, store.Put("proc.sql", "hash2", "run-2", `{"v":2}`))

	entry, ok, err := store.Lookup("proc.sql", "hash2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "run-2", entry.AnalysisRunID)
}

func TestStore_Prune(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Put("old.sql", "h1", "run-1", "{}"))

	n, err := store.Prune(time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok, err := store.Lookup("old.sql", "h1")
	require.NoError(t, err)
	assert.False(t, ok)
}
