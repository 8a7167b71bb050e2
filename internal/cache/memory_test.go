package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, ok, err := m.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))
	got, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestMemory_CopiesValue(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	buf := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", buf, time.Minute))
	buf[0] = 'x'

	got, _, _ := m.Get(ctx, "k")
	assert.Equal(t, "abc", string(got))
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, m.Set(ctx, "long", []byte("2"), time.Hour))

	now = now.Add(2 * time.Second)
	_, ok, _ := m.Get(ctx, "short")
	assert.False(t, ok)

	n, err := m.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok, _ = m.Get(ctx, "long")
	assert.True(t, ok)
}

func TestMemory_Overwrite(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, "k", []byte("old"), time.Minute))
	require.NoError(t, m.Set(ctx, "k", []byte("new"), time.Minute))

	got, ok, _ := m.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "new", string(got))
	assert.NoError(t, m.Close())
}
