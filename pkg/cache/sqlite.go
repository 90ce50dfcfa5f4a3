package cache

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/promptpool/fpo/pkg/errors"
)

// SQLiteCache persists score entries across process restarts, so a rerun of
// the same registry against the same cases does not repeat oracle calls.
type SQLiteCache struct {
	db        *sql.DB
	config    Config
	stats     CacheStats
	closeOnce sync.Once
	closeChan chan struct{}
	cleanupWG sync.WaitGroup
}

// NewSQLiteCache opens (or creates) a SQLite-backed cache at cfg.Path.
func NewSQLiteCache(cfg Config) (*SQLiteCache, error) {
	if cfg.Path == "" {
		cfg.Path = "fpo_cache.db"
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.StoreFailed, "failed to open cache database"),
			errors.Fields{"path": cfg.Path})
	}
	db.SetMaxOpenConns(1)

	c := &SQLiteCache{
		db:        db,
		config:    cfg,
		stats:     CacheStats{MaxEntries: int64(cfg.MaxEntries)},
		closeChan: make(chan struct{}),
	}

	if err := c.initDB(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.StoreFailed, "failed to initialize cache schema")
	}

	c.cleanupWG.Add(1)
	go c.cleanupRoutine()

	return c, nil
}

func (c *SQLiteCache) initDB() error {
	// WAL keeps readers unblocked while an entry is written
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := c.db.Exec(pragma); err != nil {
			return err
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS cache_entries (
		key         TEXT PRIMARY KEY,
		value       BLOB NOT NULL,
		expires_at  INTEGER,
		accessed_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_cache_expires ON cache_entries(expires_at) WHERE expires_at > 0;
	CREATE INDEX IF NOT EXISTS idx_cache_accessed ON cache_entries(accessed_at);
	`
	_, err := c.db.Exec(schema)
	return err
}

func (c *SQLiteCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var expiresAt int64
	row := c.db.QueryRowContext(ctx,
		"SELECT value, COALESCE(expires_at, 0) FROM cache_entries WHERE key = ?", key)
	if err := row.Scan(&value, &expiresAt); err != nil {
		atomic.AddInt64(&c.stats.Misses, 1)
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, errors.StoreFailed, "cache read failed")
	}

	if expiresAt > 0 && time.Now().UnixNano() > expiresAt {
		_, _ = c.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE key = ?", key)
		atomic.AddInt64(&c.stats.Misses, 1)
		return nil, false, nil
	}

	_, _ = c.db.ExecContext(ctx,
		"UPDATE cache_entries SET accessed_at = ? WHERE key = ?", time.Now().UnixNano(), key)
	atomic.AddInt64(&c.stats.Hits, 1)
	return value, true, nil
}

func (c *SQLiteCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.config.DefaultTTL
	}
	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).UnixNano()
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, value, expires_at, accessed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			accessed_at = excluded.accessed_at`,
		key, value, expiresAt, time.Now().UnixNano())
	if err != nil {
		return errors.Wrap(err, errors.StoreFailed, "cache write failed")
	}
	atomic.AddInt64(&c.stats.Sets, 1)

	if c.config.MaxEntries > 0 {
		// Keep the most recently accessed entries inside the bound
		_, _ = c.db.ExecContext(ctx, `
			DELETE FROM cache_entries WHERE key IN (
				SELECT key FROM cache_entries
				ORDER BY accessed_at DESC
				LIMIT -1 OFFSET ?
			)`, c.config.MaxEntries)
	}
	return nil
}

func (c *SQLiteCache) Delete(ctx context.Context, key string) error {
	result, err := c.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE key = ?", key)
	if err != nil {
		return errors.Wrap(err, errors.StoreFailed, "cache delete failed")
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		atomic.AddInt64(&c.stats.Deletes, n)
	}
	return nil
}

func (c *SQLiteCache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, "DELETE FROM cache_entries"); err != nil {
		return errors.Wrap(err, errors.StoreFailed, "cache clear failed")
	}
	atomic.StoreInt64(&c.stats.Hits, 0)
	atomic.StoreInt64(&c.stats.Misses, 0)
	atomic.StoreInt64(&c.stats.Sets, 0)
	atomic.StoreInt64(&c.stats.Deletes, 0)
	return nil
}

func (c *SQLiteCache) Stats() CacheStats {
	stats := CacheStats{
		Hits:       atomic.LoadInt64(&c.stats.Hits),
		Misses:     atomic.LoadInt64(&c.stats.Misses),
		Sets:       atomic.LoadInt64(&c.stats.Sets),
		Deletes:    atomic.LoadInt64(&c.stats.Deletes),
		MaxEntries: int64(c.config.MaxEntries),
	}
	var entries int64
	if err := c.db.QueryRow("SELECT COUNT(*) FROM cache_entries").Scan(&entries); err == nil {
		stats.Entries = entries
	}
	return stats
}

func (c *SQLiteCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.closeChan)
	})
	c.cleanupWG.Wait()
	return c.db.Close()
}

func (c *SQLiteCache) cleanupRoutine() {
	defer c.cleanupWG.Done()

	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closeChan:
			return
		case <-ticker.C:
			_, _ = c.db.Exec(
				"DELETE FROM cache_entries WHERE expires_at > 0 AND expires_at < ?",
				time.Now().UnixNano())
		}
	}
}
