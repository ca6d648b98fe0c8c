package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Locker guards a job so only one instance runs it when several replicas
// share the schedule.
type Locker interface {
	// Acquire returns false when another holder owns the key. The release
	// func is safe to call once, even after the TTL expired.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error)
}

// releaseScript deletes the key only if we still hold it, so an expired
// lock taken over by another instance is not released from under them.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLocker struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisLocker(client *redis.Client, log *zap.Logger) Locker {
	return &redisLocker{client: client, log: log.Named("scheduler.lock")}
}

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			l.log.Warn("failed to release job lock", zap.String("key", key), zap.Error(err))
		}
	}
	return release, true, nil
}

// noopLocker always grants the lock, for single-instance deployments
// without Redis.
type noopLocker struct{}

func NewNoopLocker() Locker { return noopLocker{} }

func (noopLocker) Acquire(context.Context, string, time.Duration) (func(), bool, error) {
	return func() {}, true, nil
}
