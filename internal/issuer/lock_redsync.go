package issuer

import (
	"context"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

const (
	redisLockPrefix = "tokend:lock:"
	redisLockExpiry = 10 * time.Second
)

// RedisLocker serializes issuance across service instances with a redsync
// distributed mutex, for deployments that run more than one replica against
// the same store.
type RedisLocker struct {
	rs *redsync.Redsync
}

func NewRedisLocker(rdb redis.UniversalClient) *RedisLocker {
	return &RedisLocker{
		rs: redsync.New(goredis.NewPool(rdb)),
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	mutex := l.rs.NewMutex(redisLockPrefix+key, redsync.WithExpiry(redisLockExpiry))
	if err := mutex.LockContext(ctx); err != nil {
		return nil, err
	}
	return func() {
		// Best effort, the mutex expires on its own if the release fails.
		mutex.UnlockContext(context.WithoutCancel(ctx))
	}, nil
}
