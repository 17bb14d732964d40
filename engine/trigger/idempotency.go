package trigger

import (
	"context"
	"fmt"

	"github.com/nneven/runtrigger/engine/core"
	"github.com/nneven/runtrigger/engine/run"
)

// checkIdempotency is C2 (spec.md §4.2). If idempotencyKey is set and a
// prior Run matches (environmentID, taskID, idempotencyKey), it is
// returned verbatim with no further side effects. A nil return with a
// nil error means no prior Run exists and the pipeline should continue.
func checkIdempotency(
	ctx context.Context,
	runs run.Repository,
	environmentID core.ID,
	taskID string,
	idempotencyKey *string,
) (*run.Run, error) {
	if idempotencyKey == nil || *idempotencyKey == "" {
		return nil, nil
	}
	existing, err := runs.FindByIdempotencyKey(ctx, environmentID, taskID, *idempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("failed to look up run by idempotency key: %w", err)
	}
	return existing, nil
}
