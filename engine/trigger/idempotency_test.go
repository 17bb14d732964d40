package trigger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nneven/runtrigger/engine/core"
	"github.com/nneven/runtrigger/engine/run"
)

func TestCheckIdempotency(t *testing.T) {
	t.Run("Should return nil without a lookup when no idempotency key is set", func(t *testing.T) {
		repo := newFakeRunRepo()
		got, err := checkIdempotency(context.Background(), repo, core.MustNewID(), "send-email", nil)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Should return nil when the key is an empty string", func(t *testing.T) {
		repo := newFakeRunRepo()
		key := ""
		got, err := checkIdempotency(context.Background(), repo, core.MustNewID(), "send-email", &key)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Should return the existing run verbatim on a match", func(t *testing.T) {
		repo := newFakeRunRepo()
		envID := core.MustNewID()
		key := "key-1"
		existingRun := &run.Run{FriendlyID: "run_existing", EnvironmentID: envID, TaskIdentifier: "send-email"}
		repo.byIdempotency[string(envID)+"/send-email/"+key] = existingRun
		got, err := checkIdempotency(context.Background(), repo, envID, "send-email", &key)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, existingRun.FriendlyID, got.FriendlyID)
	})
}
