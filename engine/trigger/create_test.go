package trigger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nneven/runtrigger/engine/core"
	"github.com/nneven/runtrigger/engine/run"
)

type fakeCounterRepo struct {
	last int64
	// txRuns is the Repository handed to work, standing in for the
	// transaction-scoped Repository a real Increment would construct.
	txRuns run.Repository
}

func (f *fakeCounterRepo) Increment(
	ctx context.Context,
	_ string,
	deriveInitial func(ctx context.Context) (int64, error),
	work func(ctx context.Context, num int64, txRuns run.Repository) error,
) error {
	if f.last == 0 {
		initial, err := deriveInitial(ctx)
		if err != nil {
			return err
		}
		f.last = initial
	}
	f.last++
	txRuns := f.txRuns
	if txRuns == nil {
		txRuns = newFakeRunRepo()
	}
	return work(ctx, f.last, txRuns)
}

type fakeTagRepo struct {
	byName map[string]*run.Tag
}

func (f *fakeTagRepo) GetOrCreate(_ context.Context, name string, projectID core.ID) (*run.Tag, error) {
	if f.byName == nil {
		f.byName = make(map[string]*run.Tag)
	}
	if t, ok := f.byName[name]; ok {
		return t, nil
	}
	t := &run.Tag{ID: core.MustNewID(), Name: name, ProjectID: projectID}
	f.byName[name] = t
	return t, nil
}

type fakeEngine struct {
	received *run.Run
	gotRuns  run.Repository
}

func (f *fakeEngine) Trigger(_ context.Context, r *run.Run, runs run.Repository) (*run.Run, error) {
	f.received = r
	f.gotRuns = runs
	return r, nil
}

type fakeEventRepository struct{}

func (fakeEventRepository) TraceEvent(
	ctx context.Context,
	_ string,
	_ TraceEventOptions,
	body func(ctx context.Context, tc TraceContext) error,
) error {
	return body(ctx, TraceContext{TraceID: "trace-1", SpanID: "span-1"})
}

func TestFriendlyRunID(t *testing.T) {
	t.Run("Should mint an id prefixed with run_", func(t *testing.T) {
		id, err := friendlyRunID()
		require.NoError(t, err)
		assert.Contains(t, id, "run_")
	})
}

func TestAssembleRun_QueuedAt(t *testing.T) {
	t.Run("Should set queuedAt when delayUntil is unset", func(t *testing.T) {
		p := &createParams{req: &NormalizedRequest{TaskID: "send-email"}, env: prodEnv(), deps: &ResolvedDependencies{}}
		r := assembleRun(p, "run_1", 1, TraceContext{}, nil, nil)
		assert.NotNil(t, r.QueuedAt)
		assert.Nil(t, r.DelayUntil)
	})

	t.Run("Should leave queuedAt unset when delayUntil is set", func(t *testing.T) {
		delay := time.Now().Add(time.Hour)
		p := &createParams{
			req:        &NormalizedRequest{TaskID: "send-email"},
			env:        prodEnv(),
			deps:       &ResolvedDependencies{},
			delayUntil: &delay,
		}
		r := assembleRun(p, "run_1", 1, TraceContext{}, nil, nil)
		assert.Nil(t, r.QueuedAt)
		require.NotNil(t, r.DelayUntil)
		assert.Equal(t, delay, *r.DelayUntil)
	})
}

func TestCreateRun(t *testing.T) {
	t.Run("Should assemble, number, and hand off a run exactly once per counter key", func(t *testing.T) {
		counters := &fakeCounterRepo{}
		tags := &fakeTagRepo{}
		engine := &fakeEngine{}
		collaborators := &Collaborators{
			Tags:     tags,
			Counters: counters,
			Engine:   engine,
			Events:   fakeEventRepository{},
		}
		env := prodEnv()
		p := &createParams{
			req:        &NormalizedRequest{TaskID: "send-email", Tags: []string{"billing"}},
			env:        env,
			deps:       &ResolvedDependencies{},
			friendlyID: "run_1",
		}
		created, err := createRun(context.Background(), collaborators, p)
		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, int64(1), created.Number)
		assert.Same(t, created, engine.received)
		assert.Len(t, created.Tags, 1)
	})
}
