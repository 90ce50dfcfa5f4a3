package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteCache(t *testing.T, cfg Config) *SQLiteCache {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "cache.db")
	}
	c, err := NewSQLiteCache(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSQLiteCacheRoundTrip(t *testing.T) {
	c := newTestSQLiteCache(t, Config{})
	ctx := context.Background()

	_, found, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "k", []byte("0.5"), 0))
	value, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("0.5"), value)

	// Overwrite through the upsert path
	require.NoError(t, c.Set(ctx, "k", []byte("0.9"), 0))
	value, found, err = c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("0.9"), value)

	require.NoError(t, c.Delete(ctx, "k"))
	_, found, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSQLiteCachePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	first, err := NewSQLiteCache(Config{Path: path})
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "k", []byte("0.75"), 0))
	require.NoError(t, first.Close())

	second, err := NewSQLiteCache(Config{Path: path})
	require.NoError(t, err)
	defer second.Close()

	value, found, err := second.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("0.75"), value)
}

func TestSQLiteCacheTTLExpiry(t *testing.T) {
	c := newTestSQLiteCache(t, Config{})
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSQLiteCacheEntryBound(t *testing.T) {
	c := newTestSQLiteCache(t, Config{MaxEntries: 2})
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), 0))

	assert.LessOrEqual(t, c.Stats().Entries, int64(2))

	// The newest entry always survives
	_, found, err := c.Get(ctx, "c")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestSQLiteCacheClearAndStats(t *testing.T) {
	c := newTestSQLiteCache(t, Config{MaxEntries: 8})
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	_, _, _ = c.Get(ctx, "a")
	_, _, _ = c.Get(ctx, "missing")

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Entries)

	require.NoError(t, c.Clear(ctx))
	assert.Equal(t, int64(0), c.Stats().Entries)
}
