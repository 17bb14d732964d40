package trigger

import (
	"context"

	"github.com/nneven/runtrigger/engine/core"
	"github.com/nneven/runtrigger/engine/run"
	"github.com/nneven/runtrigger/engine/worker"
)

// fakeRunRepo is an in-memory run.Repository stand-in for C2/C4/C7 tests.
type fakeRunRepo struct {
	byIdempotency map[string]*run.Run
	attempts      map[string]*run.RunAttempt
	batches       map[string]*run.BatchTaskRun
	created       []*run.Run
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{
		byIdempotency: make(map[string]*run.Run),
		attempts:      make(map[string]*run.RunAttempt),
		batches:       make(map[string]*run.BatchTaskRun),
	}
}

func (f *fakeRunRepo) FindByIdempotencyKey(_ context.Context, envID core.ID, taskID, key string) (*run.Run, error) {
	return f.byIdempotency[string(envID)+"/"+taskID+"/"+key], nil
}

func (f *fakeRunRepo) FindAttemptByFriendlyID(_ context.Context, friendlyID string) (*run.RunAttempt, error) {
	return f.attempts[friendlyID], nil
}

func (f *fakeRunRepo) FindBatchByFriendlyID(_ context.Context, friendlyID string) (*run.BatchTaskRun, error) {
	return f.batches[friendlyID], nil
}

func (f *fakeRunRepo) Create(_ context.Context, r *run.Run) (*run.Run, error) {
	f.created = append(f.created, r)
	return r, nil
}

// fakeEntitlement is a trigger.Entitlement stand-in returning a fixed
// state or error.
type fakeEntitlement struct {
	state *EntitlementState
	err   error
}

func (f *fakeEntitlement) Get(context.Context, core.ID) (*EntitlementState, error) {
	return f.state, f.err
}

// fakeWorkerRepo is a worker.Repository stand-in for C6 tests.
type fakeWorkerRepo struct {
	current   *worker.Worker
	tasks     map[string]*worker.Task
	byVersion *worker.Worker
}

func (f *fakeWorkerRepo) CurrentForEnvironment(context.Context, core.ID) (*worker.Worker, error) {
	return f.current, nil
}

func (f *fakeWorkerRepo) FindTaskBySlug(_ context.Context, _ core.ID, slug string) (*worker.Task, error) {
	if f.tasks == nil {
		return nil, nil
	}
	return f.tasks[slug], nil
}

func (f *fakeWorkerRepo) FindByVersion(context.Context, core.ID, core.ID, string) (*worker.Worker, error) {
	return f.byVersion, nil
}
