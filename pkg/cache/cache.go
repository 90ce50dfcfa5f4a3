// Package cache memoizes evaluation scores so repeated scoring of the same
// template against the same case does not spend another model call. Keys are
// derived from the template and case content, never from candidate or case
// ids, so renamed candidates still hit.
package cache

import (
	"context"
	"time"

	"github.com/promptpool/fpo/pkg/errors"
)

// Cache stores score payloads by content key.
type Cache interface {
	// Get retrieves a cached value by key.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given key and TTL. A zero TTL falls back
	// to the cache's default, and a zero default means no expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a cached value by key.
	Delete(ctx context.Context, key string) error

	// Clear removes all cached values.
	Clear(ctx context.Context) error

	// Stats returns cache counters.
	Stats() CacheStats

	// Close releases any resources held by the cache.
	Close() error
}

// CacheStats contains cache performance counters.
type CacheStats struct {
	Hits       int64     `json:"hits"`
	Misses     int64     `json:"misses"`
	Sets       int64     `json:"sets"`
	Deletes    int64     `json:"deletes"`
	Entries    int64     `json:"entries"`
	MaxEntries int64     `json:"max_entries"`
	LastAccess time.Time `json:"last_access"`
}

// Config selects and bounds a cache backend.
type Config struct {
	// Backend type (memory, sqlite)
	Backend string `yaml:"backend"`

	// Database path, sqlite only
	Path string `yaml:"path,omitempty"`

	// Entry bound, 0 means unbounded
	MaxEntries int `yaml:"max_entries,omitempty"`

	// Default TTL for entries, 0 means no expiration
	DefaultTTL time.Duration `yaml:"ttl,omitempty"`
}

// New creates the cache backend named by the config.
func New(cfg Config) (Cache, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryCache(cfg), nil
	case "sqlite":
		return NewSQLiteCache(cfg)
	default:
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "unsupported cache backend"),
			errors.Fields{"backend": cfg.Backend})
	}
}
