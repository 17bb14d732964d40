package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/nneven/runtrigger/engine/core"
	"github.com/nneven/runtrigger/engine/environment"
	"github.com/nneven/runtrigger/engine/run"
)

func friendlyRunID() (string, error) {
	id, err := core.NewID()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("run_%s", id), nil
}

// createParams bundles everything createRun (C7) needs that was produced
// by the earlier components, so the counter envelope's callback has a
// single closure-free argument to work from.
type createParams struct {
	req         *NormalizedRequest
	env         *environment.Environment
	deps        *ResolvedDependencies
	payload     run.IOPacket
	metadata    run.IOPacket
	queueName   string
	masterQueue string
	delayUntil  *time.Time
	friendlyID  string
}

// createRun is C7, the persisted run creator (spec.md §4.7). It wraps
// the final Run assembly in the tracing envelope and the per-(env, task)
// counter envelope, then hands the fully assembled shape to the
// downstream engine. friendlyID was minted by the caller before the
// C5/C6/C8 fan-out since C5's offload path is keyed by it.
func createRun(ctx context.Context, c *Collaborators, p *createParams) (*run.Run, error) {
	var created *run.Run
	opts := TraceEventOptions{
		BatchID:        p.deps.BatchID,
		IdempotencyKey: p.req.IdempotencyKey,
		RunIsTest:      p.req.IsTest,
		StyleIcon:      p.req.CustomIcon,
		ShowActions:    true,
	}

	err := c.Events.TraceEvent(ctx, p.req.TaskID, opts, func(ctx context.Context, tc TraceContext) error {
		r, err := createRunWithCounter(ctx, c, p, p.friendlyID, tc)
		if err != nil {
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// createRunWithCounter runs the counter envelope (spec.md §4.7, §5): the
// autoIncrementCounter primitive keyed by "v3-run:<envId>:<taskId>"
// serializes concurrent callers sharing that key and guarantees the
// callback runs exactly once with num one greater than the last
// committed value.
func createRunWithCounter(
	ctx context.Context,
	c *Collaborators,
	p *createParams,
	friendlyID string,
	tc TraceContext,
) (*run.Run, error) {
	counterKey := fmt.Sprintf("v3-run:%s:%s", p.env.ID, p.req.TaskID)

	var lockedToVersionID *core.ID
	if p.req.LockToVersion != nil && *p.req.LockToVersion != "" {
		w, err := c.Workers.FindByVersion(ctx, p.env.ProjectID, p.env.ID, *p.req.LockToVersion)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve locked worker version %s: %w", *p.req.LockToVersion, err)
		}
		if w != nil {
			id := w.ID
			lockedToVersionID = &id
		}
	}

	tagIDs, err := upsertTags(ctx, c.Tags, p.req.Tags, p.env.ProjectID)
	if err != nil {
		return nil, err
	}

	var created *run.Run
	deriveInitial := func(ctx context.Context) (int64, error) {
		return 0, nil
	}
	work := func(ctx context.Context, num int64, txRuns run.Repository) error {
		r := assembleRun(p, friendlyID, num, tc, lockedToVersionID, tagIDs)
		persisted, err := c.Engine.Trigger(ctx, r, txRuns)
		if err != nil {
			return fmt.Errorf("failed to hand run off to engine: %w", err)
		}
		created = persisted
		return nil
	}

	if err := c.Counters.Increment(ctx, counterKey, deriveInitial, work); err != nil {
		return nil, err
	}
	return created, nil
}

func upsertTags(ctx context.Context, tags run.TagRepository, names []string, projectID core.ID) ([]core.ID, error) {
	ids := make([]core.ID, 0, len(names))
	for _, name := range names {
		tag, err := tags.GetOrCreate(ctx, name, projectID)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert tag %q: %w", name, err)
		}
		ids = append(ids, tag.ID)
	}
	return ids, nil
}

// assembleRun builds the full Run shape passed to engine.trigger,
// applying the invariants of spec.md §3: queuedAt iff delayUntil unset.
// ParentSpanID is always tc.TraceparentSpanID; there is no replay-type
// parent link handling that clears it.
func assembleRun(
	p *createParams,
	friendlyID string,
	number int64,
	tc TraceContext,
	lockedToVersionID *core.ID,
	tagIDs []core.ID,
) *run.Run {
	r := &run.Run{
		ID:                       core.MustNewID(),
		FriendlyID:               friendlyID,
		Number:                   number,
		TaskIdentifier:           p.req.TaskID,
		IdempotencyKey:           p.req.IdempotencyKey,
		Status:                   run.StatusPending,
		QueueName:                p.queueName,
		MasterQueue:              p.masterQueue,
		Payload:                  p.payload.Data,
		PayloadType:              p.payload.DataType,
		Metadata:                 p.metadata.Data,
		MetadataType:             p.metadata.DataType,
		TraceID:                  tc.TraceID,
		SpanID:                   tc.SpanID,
		ParentSpanID:             tc.TraceparentSpanID,
		ConcurrencyKey:           p.req.ConcurrencyKey,
		DelayUntil:               p.delayUntil,
		TTL:                      p.req.TTL,
		MaxAttempts:              p.req.MaxAttempts,
		Tags:                     tagIDs,
		Depth:                    p.deps.Depth,
		ParentTaskRunID:          p.deps.ParentTaskRunID,
		RootTaskRunID:            p.deps.RootTaskRunID,
		BatchID:                  p.deps.BatchID,
		ResumeParentOnCompletion: p.deps.ResumeParentOnCompletion,
		LockedToVersionID:        lockedToVersionID,
		IsTest:                   p.req.IsTest,
		EnvironmentID:            p.env.ID,
		ProjectID:                p.env.ProjectID,
	}
	if r.DelayUntil == nil {
		now := time.Now().UTC()
		r.QueuedAt = &now
	}
	return r
}
