package redisq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/nneven/runtrigger/engine/run"
	"github.com/nneven/runtrigger/pkg/logger"
)

// Engine is a thin stand-in for trigger.Engine: it durably persists the
// Run via runs and, when the Run is queued now (QueuedAt set), publishes
// an envelope onto the Redis list backing its masterQueue/queueName pair;
// a delayed Run is persisted but not published. The actual run engine's dispatch and
// worker-pool logic is out of scope; this exists only so the trigger
// pipeline can be exercised end to end without it.
type Engine struct {
	client redis.Cmdable
	lock   *AdvisoryLock
}

// NewEngine builds an Engine over client. Trigger is handed the
// transaction-scoped run.Repository to persist through on each call,
// rather than holding one of its own, so the Run insert commits inside
// the same transaction as the counter bump that reserved its Number.
func NewEngine(client redis.Cmdable) *Engine {
	return &Engine{client: client, lock: NewAdvisoryLock(client)}
}

// envelope is the payload pushed onto the masterQueue/queueName list;
// the downstream dispatcher (out of scope) would decode it to locate
// the full Run row.
type envelope struct {
	RunID      string `json:"run_id"`
	FriendlyID string `json:"friendly_id"`
	QueueName  string `json:"queue_name"`
}

// Trigger implements trigger.Engine. If r carries an idempotency key, it
// first tries the advisory lock keyed on it to narrow the race window
// against a concurrent duplicate insert; a failed acquisition is not
// itself an error, since the Postgres unique constraint is the
// authoritative backstop. runs is always the transaction-scoped
// Repository the counter envelope supplies, so the insert below commits
// or rolls back together with the counter bump that reserved r.Number.
func (e *Engine) Trigger(ctx context.Context, r *run.Run, runs run.Repository) (*run.Run, error) {
	log := logger.FromContext(ctx)
	if r.IdempotencyKey != nil && *r.IdempotencyKey != "" {
		lockKey := fmt.Sprintf("%s:%s:%s", r.EnvironmentID, r.TaskIdentifier, *r.IdempotencyKey)
		ok, release, err := e.lock.TryLock(ctx, lockKey)
		if err != nil {
			log.Warn("advisory lock unavailable, relying on db constraint", "error", err)
		} else if ok {
			defer func() {
				if err := release(ctx); err != nil {
					log.Warn("failed to release advisory lock", "error", err)
				}
			}()
		}
	}

	persisted, err := runs.Create(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("redisq: persisting run: %w", err)
	}

	if persisted.QueuedAt != nil {
		persisted.Status = run.StatusQueued
		if err := e.publish(ctx, persisted); err != nil {
			return nil, err
		}
	}
	return persisted, nil
}

func (e *Engine) publish(ctx context.Context, r *run.Run) error {
	body, err := json.Marshal(envelope{
		RunID:      r.ID.String(),
		FriendlyID: r.FriendlyID,
		QueueName:  r.QueueName,
	})
	if err != nil {
		return fmt.Errorf("redisq: encoding run envelope: %w", err)
	}
	if err := e.client.RPush(ctx, queueKey(r.MasterQueue, r.QueueName), body).Err(); err != nil {
		return fmt.Errorf("redisq: publishing to queue %s/%s: %w", r.MasterQueue, r.QueueName, err)
	}
	return nil
}

func queueKey(masterQueue, queueName string) string {
	return fmt.Sprintf("runtrigger:queue:%s:%s", masterQueue, queueName)
}
