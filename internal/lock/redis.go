package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker holds SET NX PX locks for deployments with several API instances.
// The TTL bounds how long a crashed holder can block a key.
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	retry  time.Duration
	prefix string
}

func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		retry:  25 * time.Millisecond,
		prefix: "fieldbooking:lock:",
	}
}

func (l *RedisLocker) Lock(ctx context.Context, _ *gorm.DB, keys ...Key) (Unlock, error) {
	token := uuid.NewString()
	held := make([]string, 0, len(keys))
	release := func() {
		// Release with a fresh context: the request context may already be cancelled.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			_ = releaseScript.Run(rctx, l.client, []string{held[i]}, token).Err()
		}
		held = held[:0]
	}

	for _, k := range Sorted(keys) {
		name := l.prefix + k.String()
		if err := l.acquire(ctx, name, token); err != nil {
			release()
			return nil, fmt.Errorf("redis lock %s: %w", k, err)
		}
		held = append(held, name)
	}
	return release, nil
}

func (l *RedisLocker) acquire(ctx context.Context, name, token string) error {
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, name, token, l.ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
