package trigger

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/nneven/runtrigger/engine/core"
	"github.com/nneven/runtrigger/engine/run"
)

// ResolvedDependencies is C4's output: the lineage fields derived from
// whichever of the four optional references were present (spec.md
// §4.4).
type ResolvedDependencies struct {
	ParentTaskRunID          *core.ID
	RootTaskRunID            *core.ID
	BatchID                  *core.ID
	Depth                    int
	ResumeParentOnCompletion bool
}

// resolveDependencies is C4 (spec.md §4.4). It loads, in parallel, each
// of the up to four friendlyId references present on the normalized
// request, validates the terminal-state gate on dependentAttempt and
// dependentBatch, and derives the lineage fields every successful Run
// carries. maxTaskTreeDepth, when positive, caps the derived depth
// (LIMITS_MAX_TASK_TREE_DEPTH); 0 or less leaves the tree uncapped, since
// spec.md §9 treats recursion depth as something an operator may choose
// to cap externally rather than something this core must always enforce.
func resolveDependencies(
	ctx context.Context, runs run.Repository, req *NormalizedRequest, maxTaskTreeDepth int,
) (*ResolvedDependencies, error) {
	var dependentAttempt, parentAttempt *run.RunAttempt
	var dependentBatch, parentBatch *run.BatchTaskRun

	g, gctx := errgroup.WithContext(ctx)
	if req.DependentAttempt != nil && *req.DependentAttempt != "" {
		g.Go(func() error {
			a, err := runs.FindAttemptByFriendlyID(gctx, *req.DependentAttempt)
			if err != nil {
				return fmt.Errorf("failed to load dependent attempt %s: %w", *req.DependentAttempt, err)
			}
			dependentAttempt = a
			return nil
		})
	}
	if req.ParentAttempt != nil && *req.ParentAttempt != "" {
		g.Go(func() error {
			a, err := runs.FindAttemptByFriendlyID(gctx, *req.ParentAttempt)
			if err != nil {
				return fmt.Errorf("failed to load parent attempt %s: %w", *req.ParentAttempt, err)
			}
			parentAttempt = a
			return nil
		})
	}
	if req.DependentBatch != nil && *req.DependentBatch != "" {
		g.Go(func() error {
			b, err := runs.FindBatchByFriendlyID(gctx, *req.DependentBatch)
			if err != nil {
				return fmt.Errorf("failed to load dependent batch %s: %w", *req.DependentBatch, err)
			}
			dependentBatch = b
			return nil
		})
	}
	if req.ParentBatch != nil && *req.ParentBatch != "" {
		g.Go(func() error {
			b, err := runs.FindBatchByFriendlyID(gctx, *req.ParentBatch)
			if err != nil {
				return fmt.Errorf("failed to load parent batch %s: %w", *req.ParentBatch, err)
			}
			parentBatch = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if dependentAttempt != nil {
		if err := validateNotTerminal(*req.DependentAttempt, dependentAttempt); err != nil {
			return nil, err
		}
	}
	if dependentBatch != nil && dependentBatch.DependentTaskAttempt != nil {
		if err := validateNotTerminal(*req.DependentBatch, dependentBatch.DependentTaskAttempt); err != nil {
			return nil, err
		}
	}

	resolved := &ResolvedDependencies{
		ResumeParentOnCompletion: dependentAttempt != nil || dependentBatch != nil,
	}

	if parentAttempt != nil {
		resolved.ParentTaskRunID = &parentAttempt.TaskRun.ID
		root := parentAttempt.TaskRun.RootTaskRunID
		if root == nil {
			root = &parentAttempt.TaskRun.ID
		}
		resolved.RootTaskRunID = root
	}

	switch {
	case dependentBatch != nil:
		resolved.BatchID = &dependentBatch.ID
	case parentBatch != nil:
		resolved.BatchID = &parentBatch.ID
	}

	switch {
	case dependentAttempt != nil:
		resolved.Depth = dependentAttempt.TaskRun.Depth + 1
	case parentAttempt != nil:
		resolved.Depth = parentAttempt.TaskRun.Depth + 1
	case dependentBatch != nil && dependentBatch.DependentTaskAttempt != nil:
		resolved.Depth = dependentBatch.DependentTaskAttempt.TaskRun.Depth + 1
	default:
		resolved.Depth = 0
	}

	if maxTaskTreeDepth > 0 && resolved.Depth > maxTaskTreeDepth {
		return nil, core.NewValidationError(
			"run lineage depth %d exceeds the configured maximum of %d", resolved.Depth, maxTaskTreeDepth,
		)
	}

	return resolved, nil
}

// validateNotTerminal implements the terminal-state gate of spec.md
// §4.4: a dependent reference whose attempt status OR joined taskRun
// status is terminal is rejected with a message naming which one and
// its status. formatTerminalStateError unifies the two otherwise
// near-identical wordings the source kept separate (spec.md §9).
func validateNotTerminal(friendlyID string, attempt *run.RunAttempt) error {
	if run.IsFinalAttemptStatus(attempt.Status) {
		return formatTerminalStateError(friendlyID, "attempt", string(attempt.Status))
	}
	if run.IsFinalRunStatus(attempt.TaskRun.Status) {
		return formatTerminalStateError(friendlyID, "run", string(attempt.TaskRun.Status))
	}
	return nil
}

func formatTerminalStateError(friendlyID, kind, status string) error {
	return core.NewValidationError(
		"dependent %s %s is already in a terminal state: %s", kind, friendlyID, status,
	)
}
