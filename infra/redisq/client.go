// Package redisq backs two narrow concerns with Redis: an advisory lock
// that narrows (never replaces) the idempotency race window ahead of the
// Postgres unique-constraint backstop, and a queue-name cache; it also
// supplies the default masterQueue publish-side stub for trigger.Engine,
// since the run engine's own dispatch logic is out of scope.
package redisq

import (
	"github.com/redis/go-redis/v9"

	"github.com/nneven/runtrigger/pkg/config"
)

// NewClient builds a go-redis client from cfg.
func NewClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password.Value(),
		DB:       cfg.DB,
	})
}
