package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultLeaseTTL   = 10 * time.Second
	defaultRetryDelay = 25 * time.Millisecond
)

// releaseScript deletes the lock key only while we still own it, so an
// expired lease taken over by another holder is never released from here.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with a SET NX lease per key. Leases expire
// after a TTL so a crashed holder cannot wedge an owner's drafts; a write
// that outlives its lease can still race, which is the accepted failure mode
// versus unbounded blocking.
type RedisLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{
		client: client,
		prefix: "draftlock:",
		ttl:    defaultLeaseTTL,
		retry:  defaultRetryDelay,
	}
}

// NewRedisLockerURL connects to Redis and verifies the connection.
func NewRedisLockerURL(ctx context.Context, redisURL string) (*RedisLocker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisLocker(client), nil
}

func (l *RedisLocker) Close() error {
	return l.client.Close()
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	full := l.prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, full, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}

	release := func() {
		// Best effort: an unreachable Redis just lets the lease expire.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{full}, token).Err()
	}
	return release, nil
}
