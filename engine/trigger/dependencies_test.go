package trigger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nneven/runtrigger/engine/core"
	"github.com/nneven/runtrigger/engine/run"
)

func TestResolveDependencies(t *testing.T) {
	t.Run("Should return a zero-value result when no references are present", func(t *testing.T) {
		repo := newFakeRunRepo()
		got, err := resolveDependencies(context.Background(), repo, &NormalizedRequest{}, 0)
		require.NoError(t, err)
		assert.False(t, got.ResumeParentOnCompletion)
		assert.Nil(t, got.ParentTaskRunID)
		assert.Nil(t, got.BatchID)
		assert.Equal(t, 0, got.Depth)
	})

	t.Run("Should derive depth and root from a parent attempt", func(t *testing.T) {
		repo := newFakeRunRepo()
		rootID := core.MustNewID()
		parentTaskRunID := core.MustNewID()
		repo.attempts["attempt_parent"] = &run.RunAttempt{
			Status: run.AttemptStatusCompleted,
			TaskRun: run.TaskRunProjection{
				ID:            parentTaskRunID,
				Status:        run.StatusCompleted,
				Depth:         2,
				RootTaskRunID: &rootID,
			},
		}
		parentAttempt := "attempt_parent"
		got, err := resolveDependencies(context.Background(), repo, &NormalizedRequest{ParentAttempt: &parentAttempt}, 0)
		require.NoError(t, err)
		require.NotNil(t, got.ParentTaskRunID)
		assert.Equal(t, parentTaskRunID, *got.ParentTaskRunID)
		require.NotNil(t, got.RootTaskRunID)
		assert.Equal(t, rootID, *got.RootTaskRunID)
		assert.Equal(t, 3, got.Depth)
		assert.False(t, got.ResumeParentOnCompletion)
	})

	t.Run("Should use its own id as root when the parent attempt has no root", func(t *testing.T) {
		repo := newFakeRunRepo()
		parentTaskRunID := core.MustNewID()
		repo.attempts["attempt_parent"] = &run.RunAttempt{
			TaskRun: run.TaskRunProjection{ID: parentTaskRunID, Status: run.StatusPending},
		}
		parentAttempt := "attempt_parent"
		got, err := resolveDependencies(context.Background(), repo, &NormalizedRequest{ParentAttempt: &parentAttempt}, 0)
		require.NoError(t, err)
		require.NotNil(t, got.RootTaskRunID)
		assert.Equal(t, parentTaskRunID, *got.RootTaskRunID)
	})

	t.Run("Should set resumeParentOnCompletion when a dependent attempt is present", func(t *testing.T) {
		repo := newFakeRunRepo()
		repo.attempts["attempt_dep"] = &run.RunAttempt{
			Status:  run.AttemptStatusPending,
			TaskRun: run.TaskRunProjection{Status: run.StatusPending, Depth: 1},
		}
		dependentAttempt := "attempt_dep"
		got, err := resolveDependencies(context.Background(), repo, &NormalizedRequest{DependentAttempt: &dependentAttempt}, 0)
		require.NoError(t, err)
		assert.True(t, got.ResumeParentOnCompletion)
		assert.Equal(t, 2, got.Depth)
	})

	t.Run("Should reject a dependent attempt already in a terminal state", func(t *testing.T) {
		repo := newFakeRunRepo()
		repo.attempts["attempt_dep"] = &run.RunAttempt{
			Status:  run.AttemptStatusCompleted,
			TaskRun: run.TaskRunProjection{Status: run.StatusPending},
		}
		dependentAttempt := "attempt_dep"
		_, err := resolveDependencies(context.Background(), repo, &NormalizedRequest{DependentAttempt: &dependentAttempt}, 0)
		assert.Error(t, err)
	})

	t.Run("Should reject a dependent attempt whose joined run is terminal", func(t *testing.T) {
		repo := newFakeRunRepo()
		repo.attempts["attempt_dep"] = &run.RunAttempt{
			Status:  run.AttemptStatusExecuting,
			TaskRun: run.TaskRunProjection{Status: run.StatusFailed},
		}
		dependentAttempt := "attempt_dep"
		_, err := resolveDependencies(context.Background(), repo, &NormalizedRequest{DependentAttempt: &dependentAttempt}, 0)
		assert.Error(t, err)
	})

	t.Run("Should prefer the dependent batch id over the parent batch id", func(t *testing.T) {
		repo := newFakeRunRepo()
		depBatchID := core.MustNewID()
		parentBatchID := core.MustNewID()
		repo.batches["batch_dep"] = &run.BatchTaskRun{ID: depBatchID}
		repo.batches["batch_parent"] = &run.BatchTaskRun{ID: parentBatchID}
		depBatch := "batch_dep"
		parentBatch := "batch_parent"
		got, err := resolveDependencies(context.Background(), repo, &NormalizedRequest{
			DependentBatch: &depBatch,
			ParentBatch:    &parentBatch,
		}, 0)
		require.NoError(t, err)
		require.NotNil(t, got.BatchID)
		assert.Equal(t, depBatchID, *got.BatchID)
	})

	t.Run("Should reject a depth exceeding the configured maximum", func(t *testing.T) {
		repo := newFakeRunRepo()
		repo.attempts["attempt_parent"] = &run.RunAttempt{
			TaskRun: run.TaskRunProjection{ID: core.MustNewID(), Status: run.StatusPending, Depth: 5},
		}
		parentAttempt := "attempt_parent"
		_, err := resolveDependencies(
			context.Background(), repo, &NormalizedRequest{ParentAttempt: &parentAttempt}, 5,
		)
		assert.Error(t, err)
	})

	t.Run("Should allow a depth within the configured maximum", func(t *testing.T) {
		repo := newFakeRunRepo()
		repo.attempts["attempt_parent"] = &run.RunAttempt{
			TaskRun: run.TaskRunProjection{ID: core.MustNewID(), Status: run.StatusPending, Depth: 2},
		}
		parentAttempt := "attempt_parent"
		got, err := resolveDependencies(
			context.Background(), repo, &NormalizedRequest{ParentAttempt: &parentAttempt}, 5,
		)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Depth)
	})
}
