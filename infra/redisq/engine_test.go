package redisq_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nneven/runtrigger/engine/core"
	"github.com/nneven/runtrigger/engine/run"
	"github.com/nneven/runtrigger/infra/redisq"
)

type fakeRunRepo struct {
	created *run.Run
}

func (f *fakeRunRepo) FindByIdempotencyKey(context.Context, core.ID, string, string) (*run.Run, error) {
	return nil, nil
}

func (f *fakeRunRepo) FindAttemptByFriendlyID(context.Context, string) (*run.RunAttempt, error) {
	return nil, nil
}

func (f *fakeRunRepo) FindBatchByFriendlyID(context.Context, string) (*run.BatchTaskRun, error) {
	return nil, nil
}

func (f *fakeRunRepo) Create(_ context.Context, r *run.Run) (*run.Run, error) {
	f.created = r
	return r, nil
}

func TestEngine_Trigger(t *testing.T) {
	t.Run("Should persist and publish a run with no delay", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		repo := &fakeRunRepo{}
		engine := redisq.NewEngine(client)
		now := time.Now().UTC()
		r := &run.Run{
			ID:             core.MustNewID(),
			FriendlyID:     "run_abc",
			TaskIdentifier: "send-email",
			QueueName:      "task/send-email",
			MasterQueue:    "main",
			QueuedAt:       &now,
			EnvironmentID:  core.MustNewID(),
		}
		out, err := engine.Trigger(context.Background(), r, repo)
		require.NoError(t, err)
		assert.Equal(t, run.StatusQueued, out.Status)
		assert.Same(t, r, repo.created)
		length, err := client.LLen(context.Background(), "runtrigger:queue:main:task/send-email").Result()
		require.NoError(t, err)
		assert.Equal(t, int64(1), length)
	})

	t.Run("Should take the advisory lock window for an idempotency key without blocking persistence", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		repo := &fakeRunRepo{}
		engine := redisq.NewEngine(client)
		key := "dup-key"
		r := &run.Run{
			ID:             core.MustNewID(),
			FriendlyID:     "run_dup",
			TaskIdentifier: "send-email",
			QueueName:      "task/send-email",
			MasterQueue:    "main",
			Status:         run.StatusPending,
			IdempotencyKey: &key,
			EnvironmentID:  core.MustNewID(),
		}
		out, err := engine.Trigger(context.Background(), r, repo)
		require.NoError(t, err)
		assert.Equal(t, run.StatusPending, out.Status)
	})
}
