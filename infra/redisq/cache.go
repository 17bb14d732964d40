package redisq

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nneven/runtrigger/pkg/logger"
)

// queueNameCacheTTL matches the teacher's auth API-key cache default.
const queueNameCacheTTL = 30 * time.Second

// QueueNameCache caches C6's resolved queue name per (environmentId,
// taskIdentifier) so repeated triggers of the same task skip the
// worker/task lookup once a name has been resolved.
type QueueNameCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewQueueNameCache builds a QueueNameCache over client.
func NewQueueNameCache(client redis.Cmdable) *QueueNameCache {
	return &QueueNameCache{client: client, ttl: queueNameCacheTTL}
}

func (c *QueueNameCache) cacheKey(environmentID, taskIdentifier string) string {
	return fmt.Sprintf("runtrigger:queuename:%s:%s", environmentID, taskIdentifier)
}

// Get returns the cached queue name, if any, for (environmentID,
// taskIdentifier). A cache miss is not an error: ok is false and the
// caller falls back to resolving the name itself.
func (c *QueueNameCache) Get(ctx context.Context, environmentID, taskIdentifier string) (name string, ok bool) {
	log := logger.FromContext(ctx)
	cached, err := c.client.Get(ctx, c.cacheKey(environmentID, taskIdentifier)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Debug("queue name cache lookup failed", "error", err)
		}
		return "", false
	}
	return cached, true
}

// Set caches name for (environmentID, taskIdentifier).
func (c *QueueNameCache) Set(ctx context.Context, environmentID, taskIdentifier, name string) {
	log := logger.FromContext(ctx)
	if err := c.client.Set(ctx, c.cacheKey(environmentID, taskIdentifier), name, c.ttl).Err(); err != nil {
		log.Warn("failed to cache queue name", "error", err)
	}
}
