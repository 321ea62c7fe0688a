package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript resets the ttl only if the key still holds our token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

type RedisLockerConfig struct {
	Prefix string
	// TTL bounds how long a crashed holder blocks the key. A live holder
	// renews it every TTL/3.
	TTL          time.Duration
	RetryBackoff time.Duration
}

func DefaultRedisLockerConfig() *RedisLockerConfig {
	return &RedisLockerConfig{
		Prefix:       "lock:",
		TTL:          10 * time.Second,
		RetryBackoff: 25 * time.Millisecond,
	}
}

// RedisLocker is a single-instance redis lock (SET NX PX) shared by every
// process that talks to the same redis.
type RedisLocker struct {
	client *redis.Client
	config *RedisLockerConfig
	log    zerolog.Logger
}

func NewRedisLocker(client *redis.Client, config *RedisLockerConfig, log zerolog.Logger) *RedisLocker {
	if config == nil {
		config = DefaultRedisLockerConfig()
	}
	return &RedisLocker{
		client: client,
		config: config,
		log:    log.With().Str("component", "redis_locker").Logger(),
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	redisKey := l.config.Prefix + key

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token.String(), l.config.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, ctx.Err())
		case <-time.After(l.config.RetryBackoff):
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(redisKey, token.String(), stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			l.release(redisKey, token.String())
		})
	}, nil
}

func (l *RedisLocker) release(redisKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	n, err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Int()
	switch {
	case err != nil:
		l.log.Error().Err(err).Str("key", redisKey).Dur("ttl", l.config.TTL).
			Msg("failed to release lock, held until ttl expires")
	case n == 0:
		l.log.Warn().Str("key", redisKey).Msg("lock expired or taken over before release")
	}
}

// keepAlive renews the key until stop is closed or the lock is lost.
func (l *RedisLocker) keepAlive(redisKey, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := l.config.TTL / 3
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), interval)
		n, err := extendScript.Run(ctx, l.client, []string{redisKey}, token, l.config.TTL.Milliseconds()).Int()
		cancel()
		if err != nil {
			l.log.Warn().Err(err).Str("key", redisKey).Msg("failed to renew lock")
			continue
		}
		if n == 0 {
			l.log.Warn().Str("key", redisKey).Msg("lock lost before release")
			return
		}
	}
}
