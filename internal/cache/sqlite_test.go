package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLite_SetGet(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	_, ok, err := s.Get(ctx, "towns")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "towns", []byte(`[{"name":"Hartford"}]`), time.Hour))
	got, ok, err := s.Get(ctx, "towns")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `[{"name":"Hartford"}]`, string(got))
}

func TestSQLite_Upsert(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	require.NoError(t, s.Set(ctx, "k", []byte("a"), time.Hour))
	require.NoError(t, s.Set(ctx, "k", []byte("b"), time.Hour))

	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b", string(got))

	var rows int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM response_cache`).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestSQLite_ExpiryAndPrune(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)
	now := time.Now()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), time.Hour))

	now = now.Add(5 * time.Minute)
	_, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := s.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok, err = s.Get(ctx, "b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	assert.NoError(t, s.Migrate(context.Background()))
}
