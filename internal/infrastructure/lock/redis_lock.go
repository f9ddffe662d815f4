package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisLocker implements the advisory per-shop reconcile lock with SetNX.
// It is best-effort: a Redis outage degrades to lock-free reconciliation
// rather than blocking the run.
type RedisLocker struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisLocker creates a locker on an existing Redis client.
func NewRedisLocker(client *redis.Client, logger zerolog.Logger) *RedisLocker {
	return &RedisLocker{
		client: client,
		logger: logger,
	}
}

// Acquire takes the per-shop lock for at most ttl. The returned release func
// deletes the lock only if this holder still owns it.
func (l *RedisLocker) Acquire(ctx context.Context, shop string, ttl time.Duration) (func(), bool) {
	key := "reconcile-lock:" + shop
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		l.logger.Warn().Err(err).Str("shop", shop).Msg("Reconcile lock unavailable")
		return func() {}, false
	}
	if !ok {
		return func() {}, false
	}

	release := func() {
		// Compare-and-delete so an expired lock taken over by another run is
		// not released from under it.
		const script = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
		if err := l.client.Eval(context.Background(), script, []string{key}, token).Err(); err != nil {
			l.logger.Warn().Err(err).Str("shop", shop).Msg("Failed to release reconcile lock")
		}
	}
	return release, true
}
