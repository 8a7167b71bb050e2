package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Loader pairs a Cache with in-flight deduplication: concurrent misses on
// one key run the load function once.
type Loader struct {
	cache Cache
	group singleflight.Group
}

// NewLoader wraps c.
func NewLoader(c Cache) *Loader {
	return &Loader{cache: c}
}

// GetOrLoad returns the cached JSON value for key, or calls load, stores
// its result for ttl and returns it. Cache failures degrade to a load;
// load errors are never cached. The shared load runs without the first
// caller's cancellation so other waiters are not failed by it.
func GetOrLoad[T any](ctx context.Context, l *Loader, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if v, ok := lookup[T](ctx, l.cache, key); ok {
		return v, nil
	}

	res, err, shared := l.group.Do(key, func() (any, error) {
		loadCtx := context.WithoutCancel(ctx)
		v, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		store(loadCtx, l.cache, key, v, ttl)
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	if shared {
		zap.L().Debug("cache: shared in-flight load", zap.String("key", key))
	}
	return res.(T), nil
}

// Invalidate removes key by overwriting it with an already-expired entry.
func (l *Loader) Invalidate(ctx context.Context, key string) error {
	return l.cache.Set(ctx, key, []byte("null"), -time.Second)
}

func lookup[T any](ctx context.Context, c Cache, key string) (T, bool) {
	var v T
	data, ok, err := c.Get(ctx, key)
	if err != nil {
		zap.L().Warn("cache: get failed", zap.String("key", key), zap.Error(err))
		return v, false
	}
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		zap.L().Warn("cache: decode failed", zap.String("key", key), zap.Error(err))
		return v, false
	}
	return v, true
}

func store(ctx context.Context, c Cache, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		zap.L().Warn("cache: encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.Set(ctx, key, data, ttl); err != nil {
		zap.L().Warn("cache: set failed", zap.String("key", key), zap.Error(err))
	}
}
