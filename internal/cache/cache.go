// Package cache stores serialized responses with a time-to-live. Backends
// are in-memory, SQLite and PostgreSQL.
package cache

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dds-finder/internal/config"
)

// Cache is a byte-value TTL store.
type Cache interface {
	// Get returns the value and true when the key exists and has not expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key for ttl, replacing any existing entry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// DeleteExpired removes expired entries and returns how many went.
	DeleteExpired(ctx context.Context) (int, error)
	Close() error
}

// New opens the backend named by cfg.Driver. SQL backends are migrated
// before they are returned.
func New(ctx context.Context, cfg config.CacheConfig) (Cache, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(), nil

	case "sqlite":
		c, err := NewSQLite(cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := c.Migrate(ctx); err != nil {
			_ = c.Close()
			return nil, err
		}
		return c, nil

	case "postgres":
		c, err := NewPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := c.Migrate(ctx); err != nil {
			_ = c.Close()
			return nil, err
		}
		return c, nil

	default:
		return nil, eris.Errorf("cache: unknown driver %q", cfg.Driver)
	}
}
