// Package cache provides the read cache in front of schedule listings. A
// single process caches in memory; once a redis L2 is configured every
// replica reads and writes redis only, so one invalidation is seen by all of
// them.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

type Cache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type MultiLevelConfig struct {
	L1MaxEntries int
	// L1TTL caps how long a value lives in the memory-only cache.
	L1TTL   time.Duration
	Breaker *CircuitBreakerConfig
}

func DefaultMultiLevelConfig() *MultiLevelConfig {
	return &MultiLevelConfig{
		L1MaxEntries: 1000,
		L1TTL:        time.Minute,
		Breaker:      DefaultCircuitBreakerConfig(),
	}
}

// MultiLevelCache uses the process-local L1 when no L2 is configured and
// the redis L2 otherwise. L2 failures are counted, logged and reported as
// misses: the database stays the source of truth, so a redis outage only
// costs hit rate.
type MultiLevelCache struct {
	l1      *MemoryCache
	l2      *RedisCache
	breaker *CircuitBreaker
	metrics *CacheMetrics
	l1TTL   time.Duration
	log     zerolog.Logger
}

// NewMultiLevelCache builds the cache. l2 may be nil for a memory-only setup.
func NewMultiLevelCache(l2 *RedisCache, config *MultiLevelConfig, log zerolog.Logger) *MultiLevelCache {
	if config == nil {
		config = DefaultMultiLevelConfig()
	}
	return &MultiLevelCache{
		l1:      NewMemoryCache(config.L1MaxEntries),
		l2:      l2,
		breaker: NewCircuitBreaker(config.Breaker),
		metrics: NewCacheMetrics(),
		l1TTL:   config.L1TTL,
		log:     log.With().Str("component", "cache").Logger(),
	}
}

func (c *MultiLevelCache) l1TTLFor(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > c.l1TTL {
		return c.l1TTL
	}
	return ttl
}

func (c *MultiLevelCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.l2 == nil {
		if err := c.l1.Set(ctx, key, value, c.l1TTLFor(ttl)); err != nil {
			c.metrics.RecordError()
			return err
		}
		c.metrics.RecordSet()
		return nil
	}

	if c.withL2("set", key, func() error {
		return c.l2.Set(ctx, key, value, ttl)
	}) == nil {
		c.metrics.RecordSet()
	}
	return nil
}

func (c *MultiLevelCache) Get(ctx context.Context, key string, dest interface{}) error {
	var err error
	if c.l2 == nil {
		err = c.l1.Get(ctx, key, dest)
		if err != nil && !errors.Is(err, ErrCacheMiss) {
			c.metrics.RecordError()
			return err
		}
	} else {
		err = ErrCacheMiss
		c.withL2("get", key, func() error {
			err = c.l2.Get(ctx, key, dest)
			if errors.Is(err, ErrCacheMiss) {
				return nil
			}
			return err
		})
	}

	if err != nil {
		c.metrics.RecordMiss()
		return ErrCacheMiss
	}
	c.metrics.RecordHit()
	return nil
}

func (c *MultiLevelCache) Delete(ctx context.Context, keys ...string) error {
	if err := c.l1.Delete(ctx, keys...); err != nil {
		return err
	}
	c.metrics.RecordDelete()

	if c.l2 != nil {
		return c.withL2("delete", "", func() error {
			return c.l2.Delete(ctx, keys...)
		})
	}
	return nil
}

// Incr bumps a counter shared by every user of the cache. Unlike reads, an
// L2 failure is returned so the caller can tell the counter did not move.
func (c *MultiLevelCache) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if c.l2 == nil {
		return c.l1.Incr(ctx, key, ttl)
	}
	var n int64
	err := c.withL2("incr", key, func() error {
		var err error
		n, err = c.l2.Incr(ctx, key, ttl)
		return err
	})
	return n, err
}

// withL2 runs fn through the breaker, logging any failure.
func (c *MultiLevelCache) withL2(op, key string, fn func() error) error {
	err := c.breaker.Execute(fn)
	if err == nil {
		return nil
	}
	c.metrics.RecordError()
	if errors.Is(err, ErrCircuitBreakerOpen) {
		c.log.Debug().Str("op", op).Str("key", key).Msg("l2 skipped, circuit open")
		return err
	}
	c.log.Warn().Err(err).Str("op", op).Str("key", key).Msg("l2 cache operation failed")
	return err
}

func (c *MultiLevelCache) Metrics() MetricsSnapshot {
	return c.metrics.GetStats()
}

func (c *MultiLevelCache) Stats() map[string]interface{} {
	m := c.metrics.GetStats()
	stats := map[string]interface{}{
		"l1":       c.l1.Stats(),
		"hits":     m.Hits,
		"misses":   m.Misses,
		"errors":   m.Errors,
		"hit_rate": c.metrics.HitRate(),
		"breaker":  c.breaker.GetStats(),
	}
	if c.l2 != nil {
		stats["l2"] = c.l2.Stats()
	}
	return stats
}

func (c *MultiLevelCache) Health(ctx context.Context) error {
	if c.l2 == nil {
		return nil
	}
	if err := c.l2.Health(ctx); err != nil {
		return errors.Join(ErrCacheDown, err)
	}
	return nil
}

func (c *MultiLevelCache) Close() error {
	if c.l2 != nil {
		return c.l2.Close()
	}
	return nil
}
