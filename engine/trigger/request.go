package trigger

import (
	"github.com/nneven/runtrigger/engine/core"
)

// QueueOptions is the caller-supplied queue override (spec.md §6).
type QueueOptions struct {
	Name             *string
	ConcurrencyLimit *int
}

// RequestOptions mirrors TriggerTaskRequestBody.options (spec.md §6).
type RequestOptions struct {
	IdempotencyKey   *string
	Delay            any // string | time.Time, see ParseDelay
	TTL              any // number (seconds) | string
	Tags             any // string | []string
	Metadata         any
	MetadataType     *string
	PayloadType      *string
	ConcurrencyKey   *string
	Queue            *QueueOptions
	LockToVersion    *string
	MaxAttempts      *int
	Test             *bool
	DependentAttempt *string
	ParentAttempt    *string
	DependentBatch   *string
	ParentBatch      *string
}

// Request is the input to TriggerTask: a taskId, the environment it
// targets, and the normalized request body (spec.md §6).
type Request struct {
	TaskID      string
	Environment core.ID
	Payload     any
	Context     any
	Options     RequestOptions

	// QueueNameOverride is an extra caller-supplied override distinct
	// from Options.Queue.Name, accepted directly alongside the body per
	// the Queue Name Resolver's inputs (spec.md §4.6).
	QueueNameOverride *string
}

// NormalizedRequest is C1's output: canonical options ready for C2-C7,
// with no further shape validation required downstream (spec.md §4.1).
type NormalizedRequest struct {
	TaskID           string
	Payload          any
	PayloadType      string
	Metadata         any
	MetadataType     string
	IdempotencyKey   *string
	TTL              *string
	Tags             []string
	Delay            any
	ConcurrencyKey   *string
	QueueName        *string
	QueueConcurrency *int
	LockToVersion    *string
	MaxAttempts      *int
	IsTest           bool
	CustomIcon       string
	DependentAttempt *string
	ParentAttempt    *string
	DependentBatch   *string
	ParentBatch      *string
}
