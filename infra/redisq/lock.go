package redisq

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// defaultLockTTL bounds how long a held advisory lock survives a crashed
// holder before Redis reclaims the key on its own.
const defaultLockTTL = 10 * time.Second

// AdvisoryLock is a SETNX-based mutual exclusion primitive scoped to a
// string key. It narrows the idempotency race window between C2's read
// and C7's insert; the Postgres unique constraint on (environmentId,
// taskIdentifier, idempotencyKey) remains the authoritative backstop, so
// a failed acquisition here is advisory only and never itself rejects a
// request.
type AdvisoryLock struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewAdvisoryLock builds an AdvisoryLock over client with the default
// lock TTL.
func NewAdvisoryLock(client redis.Cmdable) *AdvisoryLock {
	return &AdvisoryLock{client: client, ttl: defaultLockTTL}
}

// TryLock attempts to acquire key, returning ok=false (no error) if
// another holder already has it. The returned release func must be
// called to free the key early; it no-ops past the lock's TTL.
func (l *AdvisoryLock) TryLock(ctx context.Context, key string) (ok bool, release func(context.Context) error, err error) {
	acquired, err := l.client.SetNX(ctx, lockKey(key), 1, l.ttl).Result()
	if err != nil {
		return false, nil, fmt.Errorf("redisq: acquiring lock %s: %w", key, err)
	}
	if !acquired {
		return false, nil, nil
	}
	release = func(ctx context.Context) error {
		if err := l.client.Del(ctx, lockKey(key)).Err(); err != nil {
			return fmt.Errorf("redisq: releasing lock %s: %w", key, err)
		}
		return nil
	}
	return true, release, nil
}

func lockKey(key string) string {
	return fmt.Sprintf("runtrigger:lock:idempotency:%s", key)
}
