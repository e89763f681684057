package locking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker takes locks with SET NX PX and releases them only while the
// stored token is still ours.
type RedisLocker struct {
	client *redis.Client
	prefix string
}

func NewRedisLocker(client *redis.Client, prefix string) *RedisLocker {
	if client == nil {
		panic("locking: redis client required")
	}
	return &RedisLocker{client: client, prefix: prefix}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error) {
	redisKey := l.prefix + key
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, redisKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("locking: acquire %s: %w", redisKey, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	var (
		once       sync.Once
		releaseErr error
	)
	return func(ctx context.Context) error {
		once.Do(func() {
			if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
				releaseErr = fmt.Errorf("locking: release %s: %w", redisKey, err)
			}
		})
		return releaseErr
	}, nil
}
