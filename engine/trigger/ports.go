// Package trigger implements TriggerTask, the single synchronous
// service operation that normalizes, deduplicates, validates, and
// persists a request to execute a named task, handing the assembled Run
// to the downstream engine collaborator.
package trigger

import (
	"context"

	"github.com/nneven/runtrigger/engine/core"
	"github.com/nneven/runtrigger/engine/environment"
	"github.com/nneven/runtrigger/engine/run"
	"github.com/nneven/runtrigger/engine/worker"
)

// Entitlement is the out-of-scope collaborator C3 asks whether an
// organization has credit to run work (spec.md §6).
type Entitlement interface {
	// Get returns the organization's entitlement state. A nil reply is
	// treated as "has access" (spec.md §4.3); a non-nil error is returned
	// to the caller wrapped.
	Get(ctx context.Context, organizationID core.ID) (*EntitlementState, error)
}

// EntitlementState is the reply shape of the Entitlement collaborator.
type EntitlementState struct {
	HasAccess bool
}

// EventRepository is the tracing collaborator C7's tracing envelope
// sinks a server-kind span through (spec.md §4.7, §6).
type EventRepository interface {
	// TraceEvent creates one server-kind span for taskSlug carrying opts
	// as attributes, then invokes body with the resulting trace
	// identifiers so the caller can fold them into the Run being built.
	TraceEvent(ctx context.Context, taskSlug string, opts TraceEventOptions, body func(ctx context.Context, tc TraceContext) error) error
}

// TraceEventOptions are the attributes attached to the tracing envelope's
// span (spec.md §4.7).
type TraceEventOptions struct {
	BatchID        *core.ID
	IdempotencyKey *string
	RunIsTest      bool
	StyleIcon      string
	ShowActions    bool
}

// TraceContext carries the trace/span identifiers the tracing envelope
// yields, including the optional traceparent span id used to seed a
// Run's ParentSpanID (spec.md §4.7).
type TraceContext struct {
	TraceID           string
	SpanID            string
	TraceparentSpanID *string
}

// Engine is the downstream execution engine: the only component that
// durably persists a Run and hands it to the execution queue (spec.md
// §6). A successful return guarantees the Run is durably enqueued.
//
// runs is the transaction-scoped Repository CounterRepository.Increment
// hands to its work callback. Implementations MUST insert r through runs
// (never through some other, unlocked Repository) so the Run insert
// commits or rolls back together with the counter bump that reserved
// r.Number (spec.md §5, §7).
type Engine interface {
	Trigger(ctx context.Context, r *run.Run, runs run.Repository) (*run.Run, error)
}

// QueueCache is the optional cache C6 consults for a previously resolved
// queue name before falling back to the worker/task repository lookup
// (spec.md §4.6). A nil Collaborators.QueueCache disables caching
// entirely; resolveQueueName always falls back to the repository lookup
// on a miss, so a cache outage is never fatal.
type QueueCache interface {
	// Get returns the cached queue name, if any, for (environmentID,
	// taskIdentifier). ok is false on a miss.
	Get(ctx context.Context, environmentID, taskIdentifier string) (name string, ok bool)
	// Set caches name for (environmentID, taskIdentifier).
	Set(ctx context.Context, environmentID, taskIdentifier, name string)
}

// Collaborators bundles every injected, out-of-scope dependency
// TriggerTask needs (spec.md §9: "the service is constructed with
// injected collaborator handles").
type Collaborators struct {
	Environments environment.Repository
	Workers      worker.Repository
	Runs         run.Repository
	Tags         run.TagRepository
	Counters     run.CounterRepository
	Entitlement  Entitlement
	ObjectStore  run.ObjectStore
	Events       EventRepository
	Engine       Engine
	QueueCache   QueueCache
}
