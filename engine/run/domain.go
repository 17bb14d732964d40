// Package run models the durable Run record — the single artifact the
// trigger pipeline persists — along with the read-only projections
// (RunAttempt, BatchTaskRun) it consults to resolve dependencies and the
// Tag and counter abstractions C7 uses to assemble one.
package run

import (
	"context"
	"time"

	"github.com/nneven/runtrigger/engine/core"
)

// MaxTagsPerRun is the hard limit on tags.length enforced by the request
// normalizer (spec.md §3, §4.1).
const MaxTagsPerRun = 8

// Run is the durable record of one task invocation. Created exclusively
// by the persisted run creator (C7); mutated thereafter only by the
// downstream engine.
type Run struct {
	ID                       core.ID
	FriendlyID               string
	Number                   int64
	TaskIdentifier           string
	IdempotencyKey           *string
	Status                   Status
	QueueName                string
	MasterQueue              string
	Payload                  *string
	PayloadType              string
	Metadata                 *string
	MetadataType             string
	TraceID                  string
	SpanID                   string
	ParentSpanID             *string
	ConcurrencyKey           *string
	DelayUntil               *time.Time
	QueuedAt                 *time.Time
	TTL                      *string
	MaxAttempts              *int
	Tags                     []core.ID
	Depth                    int
	ParentTaskRunID          *core.ID
	RootTaskRunID            *core.ID
	BatchID                  *core.ID
	ResumeParentOnCompletion bool
	LockedToVersionID        *core.ID
	IsTest                   bool
	SeedMetadata             *string

	EnvironmentID core.ID
	ProjectID     core.ID
}

// RunAttempt is an engine-owned record of one execution attempt of a Run.
// The core only reads Status and the joined TaskRun to gate dependencies
// (spec.md §3).
type RunAttempt struct {
	ID         core.ID
	FriendlyID string
	Status     AttemptStatus
	TaskRun    TaskRunProjection
}

// BatchTaskRun is a fan-out batch. DependentTaskAttempt, when present,
// gates child creation on its terminal status.
type BatchTaskRun struct {
	ID                   core.ID
	FriendlyID           string
	DependentTaskAttempt *RunAttempt
}

// TaskRunProjection is the slice of a Run the dependency resolver needs
// when following a RunAttempt or BatchTaskRun join (spec.md §4.4).
type TaskRunProjection struct {
	ID            core.ID
	Status        Status
	Depth         int
	RootTaskRunID *core.ID
}

// Tag is a string label scoped to a project, upserted (get-or-create) per
// tag string.
type Tag struct {
	ID        core.ID
	Name      string
	ProjectID core.ID
}

// CounterRepository is the per-(environmentId, taskIdentifier) monotonic
// counter abstraction. Implementations MUST serialize concurrent callers
// sharing the same key (spec.md §5) — in Postgres this is a row lock
// acquired with SELECT ... FOR UPDATE inside the caller's transaction,
// never a database sequence, since the counter's initial seeding is
// dynamic (spec.md §9).
type CounterRepository interface {
	// Increment runs work once with num set to one greater than the
	// counter's last committed value, then commits the bump and work's
	// side effects atomically. deriveInitial supplies the starting
	// lastNumber the first time the counter row is seeded for key.
	//
	// work is handed txRuns, a Repository bound to the same transaction
	// that holds the counter row lock. Implementations MUST call
	// txRuns.Create (never some other, unlocked Repository) for the Run
	// insert to commit or roll back together with the counter bump
	// (spec.md §5, §7).
	Increment(
		ctx context.Context,
		key string,
		deriveInitial func(ctx context.Context) (int64, error),
		work func(ctx context.Context, num int64, txRuns Repository) error,
	) error
}

// Repository is the durable store for Run rows.
type Repository interface {
	// FindByIdempotencyKey looks up a Run by the unique tuple
	// (environmentId, taskIdentifier, idempotencyKey). Returns (nil, nil)
	// on no match.
	FindByIdempotencyKey(ctx context.Context, environmentID core.ID, taskIdentifier, idempotencyKey string) (*Run, error)

	// FindAttemptByFriendlyID loads a RunAttempt with its joined TaskRun
	// projection. Returns (nil, nil) on no match.
	FindAttemptByFriendlyID(ctx context.Context, friendlyID string) (*RunAttempt, error)

	// FindBatchByFriendlyID loads a BatchTaskRun with its optional
	// DependentTaskAttempt join. Returns (nil, nil) on no match.
	FindBatchByFriendlyID(ctx context.Context, friendlyID string) (*BatchTaskRun, error)

	// Create inserts run. When called via the txRuns Repository
	// CounterRepository.Increment hands to work, the insert runs inside
	// the counter's own transaction. On a unique-violation against
	// (environmentId, taskIdentifier, idempotencyKey), implementations
	// MUST re-read and return the existing Run instead of an error
	// (spec.md §5, §7).
	Create(ctx context.Context, run *Run) (*Run, error)
}

// TagRepository upserts tags by name, scoped to a project.
type TagRepository interface {
	// GetOrCreate returns the Tag row for (name, projectID), creating it
	// if absent.
	GetOrCreate(ctx context.Context, name string, projectID core.ID) (*Tag, error)
}
