package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type view struct {
	ID   string `json:"id"`
	Desc string `json:"desc"`
}

func TestMemoryCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryCache(10)

	require.NoError(t, m.Set(ctx, "schedule_tasks:1", []view{{ID: "a", Desc: "Breakfast"}}, time.Minute))

	var got []view
	require.NoError(t, m.Get(ctx, "schedule_tasks:1", &got))
	assert.Equal(t, []view{{ID: "a", Desc: "Breakfast"}}, got)

	got[0].Desc = "mutated"
	var again []view
	require.NoError(t, m.Get(ctx, "schedule_tasks:1", &again))
	assert.Equal(t, "Breakfast", again[0].Desc)

	require.NoError(t, m.Delete(ctx, "schedule_tasks:1"))
	assert.ErrorIs(t, m.Get(ctx, "schedule_tasks:1", &got), ErrCacheMiss)
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemoryCache(10)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", "v", time.Second))
	var v string
	require.NoError(t, m.Get(ctx, "k", &v))

	now = now.Add(time.Second)
	assert.ErrorIs(t, m.Get(ctx, "k", &v), ErrCacheMiss)
	assert.Equal(t, 0, m.Len())
}

func TestMemoryCache_ExpiredReadKeepsFreshSet(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemoryCache(10)

	require.NoError(t, m.Set(ctx, "k", "old", time.Second))

	// The clock read by Get's expiry check lands a fresh Set first, the way a
	// concurrent writer would between the read and write locks.
	calls := 0
	m.now = func() time.Time {
		calls++
		if calls == 1 {
			now = now.Add(2 * time.Second)
			m.entries["k"] = memoryEntry{data: []byte(`"new"`), expiresAt: now.Add(time.Minute)}
		}
		return now
	}

	var v string
	assert.ErrorIs(t, m.Get(ctx, "k", &v), ErrCacheMiss)
	require.NoError(t, m.Get(ctx, "k", &v))
	assert.Equal(t, "new", v)
}

func TestMemoryCache_EvictsWhenFull(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryCache(2)

	require.NoError(t, m.Set(ctx, "a", 1, time.Second))
	require.NoError(t, m.Set(ctx, "b", 2, time.Hour))
	require.NoError(t, m.Set(ctx, "c", 3, time.Hour))

	assert.Equal(t, 2, m.Len())
	var n int
	assert.ErrorIs(t, m.Get(ctx, "a", &n), ErrCacheMiss, "entry closest to expiry should be evicted")
}

func TestMemoryCache_Incr(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemoryCache(10)
	m.now = func() time.Time { return now }

	for want := int64(1); want <= 3; want++ {
		got, err := m.Incr(ctx, "schedule_gen:1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	now = now.Add(time.Minute)
	got, err := m.Incr(ctx, "schedule_gen:1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got, "expired counter restarts from zero")

	require.NoError(t, m.Set(ctx, "text", "abc", 0))
	_, err = m.Incr(ctx, "text", 0)
	assert.Error(t, err)
}

func setupMultiLevel(t *testing.T) (*MultiLevelCache, *miniredis.Miniredis) {
	l2, mr := setupTestRedis(t)
	config := DefaultMultiLevelConfig()
	config.Breaker = &CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Hour, HalfOpenMaxCalls: 1}
	return NewMultiLevelCache(l2, config, zerolog.Nop()), mr
}

func TestMultiLevelCache_ReadsAndWritesL2Only(t *testing.T) {
	ctx := context.Background()
	c, mr := setupMultiLevel(t)

	require.NoError(t, c.Set(ctx, "schedule_tasks:1", []view{{ID: "a"}}, time.Minute))
	assert.True(t, mr.Exists("test:schedule_tasks:1"))
	assert.Equal(t, 0, c.l1.Len(), "L1 is bypassed once L2 is configured")

	var got []view
	require.NoError(t, c.Get(ctx, "schedule_tasks:1", &got))
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, int64(1), c.Metrics().Hits)
}

func TestMultiLevelCache_InvalidationSeenByOtherReplica(t *testing.T) {
	ctx := context.Background()
	a, mr := setupMultiLevel(t)

	client := NewRedisClient(&CacheConfig{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	b := NewMultiLevelCache(NewRedisCache(client, "test:"), nil, zerolog.Nop())

	require.NoError(t, a.Set(ctx, "schedule_tasks:1", []view{{ID: "a"}}, time.Minute))
	var got []view
	require.NoError(t, a.Get(ctx, "schedule_tasks:1", &got))

	require.NoError(t, b.Delete(ctx, "schedule_tasks:1"))
	assert.ErrorIs(t, a.Get(ctx, "schedule_tasks:1", &got), ErrCacheMiss)
}

func TestMultiLevelCache_MissAndInvalidate(t *testing.T) {
	ctx := context.Background()
	c, mr := setupMultiLevel(t)

	var got []view
	assert.ErrorIs(t, c.Get(ctx, "schedule_tasks:1", &got), ErrCacheMiss)
	assert.Equal(t, int64(1), c.Metrics().Misses)

	require.NoError(t, c.Set(ctx, "schedule_tasks:1", []view{{ID: "a"}}, time.Minute))
	require.NoError(t, c.Delete(ctx, "schedule_tasks:1"))
	assert.False(t, mr.Exists("test:schedule_tasks:1"))
	assert.ErrorIs(t, c.Get(ctx, "schedule_tasks:1", &got), ErrCacheMiss)
}

func TestMultiLevelCache_Incr(t *testing.T) {
	ctx := context.Background()
	c, mr := setupMultiLevel(t)

	n, err := c.Incr(ctx, "schedule_gen:1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.True(t, mr.Exists("test:schedule_gen:1"))

	var stored int64
	require.NoError(t, c.Get(ctx, "schedule_gen:1", &stored))
	assert.Equal(t, int64(1), stored)
}

func TestMultiLevelCache_SurvivesRedisOutage(t *testing.T) {
	ctx := context.Background()
	c, mr := setupMultiLevel(t)
	mr.Close()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	assert.Equal(t, CircuitBreakerOpen, c.breaker.State())

	var v string
	assert.ErrorIs(t, c.Get(ctx, "k", &v), ErrCacheMiss, "no stale local copy is served")
	assert.Error(t, c.Delete(ctx, "k"))

	_, err := c.Incr(ctx, "schedule_gen:1", time.Hour)
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)

	err = c.Health(ctx)
	assert.True(t, errors.Is(err, ErrCacheDown))
}

func TestMultiLevelCache_MemoryOnly(t *testing.T) {
	ctx := context.Background()
	c := NewMultiLevelCache(nil, nil, zerolog.Nop())

	require.NoError(t, c.Set(ctx, "k", 42, time.Minute))
	var n int
	require.NoError(t, c.Get(ctx, "k", &n))
	assert.Equal(t, 42, n)

	gen, err := c.Incr(ctx, "schedule_gen:1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)

	assert.NoError(t, c.Health(ctx))
	assert.NotContains(t, c.Stats(), "l2")
	assert.NoError(t, c.Close())
}
