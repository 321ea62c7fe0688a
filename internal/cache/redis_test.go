package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestDefaultCacheConfig(t *testing.T) {
	config := DefaultCacheConfig()

	if config.Addr != "localhost:6379" {
		t.Errorf("Expected Addr to be localhost:6379, got %s", config.Addr)
	}
	if config.PoolSize != 10 {
		t.Errorf("Expected PoolSize to be 10, got %d", config.PoolSize)
	}
	if config.MaxRetries != 3 {
		t.Errorf("Expected MaxRetries to be 3, got %d", config.MaxRetries)
	}
	if config.KeyPrefix != "planner:" {
		t.Errorf("Expected KeyPrefix to be planner:, got %s", config.KeyPrefix)
	}
}

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	config := DefaultCacheConfig()
	config.Addr = mr.Addr()
	client := NewRedisClient(config)
	t.Cleanup(func() { client.Close() })

	return NewRedisCache(client, "test:"), mr
}

func TestNewRedisClient_WithNilConfig(t *testing.T) {
	client := NewRedisClient(nil)
	defer client.Close()

	if client.Options().Addr != "localhost:6379" {
		t.Errorf("Expected default address, got %s", client.Options().Addr)
	}
}

func TestRedisCache_SetAndGet(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	type listing struct {
		Desc  string `json:"desc"`
		Count int    `json:"count"`
	}
	original := listing{Desc: "Breakfast", Count: 2}

	if err := cache.Set(ctx, "schedule_tasks:1", original, time.Minute); err != nil {
		t.Fatalf("Failed to set cache: %v", err)
	}
	if !mr.Exists("test:schedule_tasks:1") {
		t.Error("Expected key to be stored under the prefix")
	}

	var retrieved listing
	if err := cache.Get(ctx, "schedule_tasks:1", &retrieved); err != nil {
		t.Fatalf("Failed to get from cache: %v", err)
	}
	if retrieved != original {
		t.Errorf("Expected %+v, got %+v", original, retrieved)
	}
}

func TestRedisCache_TTL(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Failed to set cache: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	var v string
	if err := cache.Get(ctx, "k", &v); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after expiry, got %v", err)
	}
}

func TestRedisCache_Get_CacheMiss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	var result string
	err := cache.Get(context.Background(), "non-existent-key", &result)
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestRedisCache_Set_InvalidData(t *testing.T) {
	cache, _ := setupTestRedis(t)

	if err := cache.Set(context.Background(), "k", make(chan int), time.Minute); err == nil {
		t.Error("Expected error when setting unmarshalable data")
	}
}

func TestRedisCache_Get_InvalidJSON(t *testing.T) {
	cache, mr := setupTestRedis(t)
	mr.Set("test:invalid", "invalid-json")

	var result map[string]interface{}
	if err := cache.Get(context.Background(), "invalid", &result); err == nil {
		t.Error("Expected error when getting invalid JSON")
	}
}

func TestRedisCache_Delete(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	for _, k := range []string{"a", "b"} {
		if err := cache.Set(ctx, k, "data", time.Minute); err != nil {
			t.Fatalf("Failed to set %s: %v", k, err)
		}
	}

	if err := cache.Delete(ctx, "a", "b"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}

	for _, k := range []string{"a", "b"} {
		if mr.Exists("test:" + k) {
			t.Errorf("Expected %s to be deleted", k)
		}
	}

	if err := cache.Delete(ctx); err != nil {
		t.Errorf("Expected no-op delete to succeed, got %v", err)
	}
}

func TestRedisCache_Incr(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := cache.Incr(ctx, "schedule_gen:1", time.Hour)
		if err != nil {
			t.Fatalf("Failed to increment: %v", err)
		}
		if got != want {
			t.Errorf("Expected %d, got %d", want, got)
		}
	}

	if ttl := mr.TTL("test:schedule_gen:1"); ttl != time.Hour {
		t.Errorf("Expected ttl of 1h, got %v", ttl)
	}

	var n int64
	if err := cache.Get(ctx, "schedule_gen:1", &n); err != nil {
		t.Fatalf("Failed to read counter: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected counter 3, got %d", n)
	}
}

func TestRedisCache_Health(t *testing.T) {
	cache, mr := setupTestRedis(t)

	if err := cache.Health(context.Background()); err != nil {
		t.Errorf("Expected healthy cache, got %v", err)
	}

	mr.Close()
	if err := cache.Health(context.Background()); err == nil {
		t.Error("Expected health check to fail after redis shut down")
	}
}

func TestRedisCache_Stats(t *testing.T) {
	cache, _ := setupTestRedis(t)

	stats := cache.Stats()
	if _, ok := stats["pool_total"]; !ok {
		t.Error("Expected pool_total in stats")
	}
}

func TestRedisCache_Close(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := NewRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")

	if err := cache.Close(); err != nil {
		t.Errorf("Expected no error closing cache, got %v", err)
	}
}

func BenchmarkRedisCache_Set(b *testing.B) {
	mr := miniredis.NewMiniRedis()
	if err := mr.Start(); err != nil {
		b.Fatal(err)
	}
	defer mr.Close()

	cache := NewRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "bench:")
	defer cache.Close()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Set(ctx, "key", "value", time.Minute)
	}
}
