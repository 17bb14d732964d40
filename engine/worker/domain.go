// Package worker models registered code bundles (BackgroundWorker) and
// the tasks they export (BackgroundWorkerTask). The trigger pipeline uses
// this package purely for reads: resolving the "current" worker for an
// environment and its queue configuration for a task slug (spec.md §4.6).
package worker

import (
	"context"
	"encoding/json"

	"github.com/nneven/runtrigger/engine/core"
)

// Worker is a registered code bundle deployed to an environment.
type Worker struct {
	ID            core.ID
	Version       string
	ProjectID     core.ID
	EnvironmentID core.ID
	ContentHash   string
}

// QueueConfig is the optional, nullable queue override a task can declare.
// It is stored as a JSON blob on Task and parsed on demand (spec.md §4.6
// step 5); a parse failure is non-fatal and must fall back to the default
// queue name.
type QueueConfig struct {
	Name *string `json:"name,omitempty"`
}

// Task is a task definition exported by a Worker. Unique on
// (WorkerID, Slug).
type Task struct {
	WorkerID    core.ID
	Slug        string
	QueueConfig json.RawMessage
}

// ParseQueueConfig parses t.QueueConfig against the optional/nullable
// {name?: string} schema. A nil or empty blob yields a zero-value
// QueueConfig and no error — there simply is no override.
func (t *Task) ParseQueueConfig() (QueueConfig, error) {
	var cfg QueueConfig
	if len(t.QueueConfig) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(t.QueueConfig, &cfg); err != nil {
		return QueueConfig{}, err
	}
	return cfg, nil
}

// Repository is the read-only view the core needs of the worker store.
type Repository interface {
	// CurrentForEnvironment returns the "current" worker for a
	// (non-development) environment, as marked by the most recent
	// deployment promotion. Returns (nil, nil) if none exists.
	CurrentForEnvironment(ctx context.Context, environmentID core.ID) (*Worker, error)

	// FindTaskBySlug looks up a BackgroundWorkerTask by (workerID, slug).
	// Returns (nil, nil) if no such task is registered.
	FindTaskBySlug(ctx context.Context, workerID core.ID, slug string) (*Task, error)

	// FindByVersion resolves a worker by (projectID, environmentID,
	// version), used to honor options.lockToVersion (spec.md §4.7). A
	// missing match must be treated as non-fatal by the caller.
	FindByVersion(ctx context.Context, projectID, environmentID core.ID, version string) (*Worker, error)
}
