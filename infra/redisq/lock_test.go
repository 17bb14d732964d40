package redisq_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nneven/runtrigger/infra/redisq"
)

func TestAdvisoryLock_TryLock(t *testing.T) {
	t.Run("Should acquire an unheld key and release it", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		lock := redisq.NewAdvisoryLock(client)
		ok, release, err := lock.TryLock(context.Background(), "env:task:key")
		require.NoError(t, err)
		assert.True(t, ok)
		require.NotNil(t, release)
		assert.NoError(t, release(context.Background()))
	})

	t.Run("Should report failure to acquire an already-held key", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		lock := redisq.NewAdvisoryLock(client)
		ok, _, err := lock.TryLock(context.Background(), "env:task:key")
		require.NoError(t, err)
		require.True(t, ok)
		ok2, release2, err := lock.TryLock(context.Background(), "env:task:key")
		require.NoError(t, err)
		assert.False(t, ok2)
		assert.Nil(t, release2)
	})
}
