package trigger

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/nneven/runtrigger/engine/environment"
	"github.com/nneven/runtrigger/engine/worker"
	"github.com/nneven/runtrigger/pkg/logger"
)

var queueNameDisallowed = regexp.MustCompile(`[^a-z0-9/_-]+`)

// defaultQueuePrefix is the fallback used whenever the operator has not
// set ENGINE_QUEUE_PREFIX (spec.md §4.6, §6).
const defaultQueuePrefix = "task/"

// defaultQueueName is the fallback used whenever no explicit override
// resolves (spec.md §4.6). prefix is normally the operator-configured
// ENGINE_QUEUE_PREFIX; an empty prefix falls back to defaultQueuePrefix.
func defaultQueueName(prefix, taskID string) string {
	if prefix == "" {
		prefix = defaultQueuePrefix
	}
	return fmt.Sprintf("%s%s", prefix, taskID)
}

// resolveQueueName is C6 (spec.md §4.6). It layers caller input over the
// worker-declared queue config over the default, then sanitizes the
// result. cache, when non-nil, is checked ahead of the worker/task
// repository lookup and populated with whatever that lookup resolves to,
// so repeated triggers of the same (environment, task) skip the
// repository round trip once a name has been resolved; a cache miss or a
// nil cache always falls back to the repository lookup, never an error.
// queuePrefix is ENGINE_QUEUE_PREFIX, threaded down from Config.
func resolveQueueName(
	ctx context.Context,
	workers worker.Repository,
	cache QueueCache,
	queuePrefix string,
	taskID string,
	env *environment.Environment,
	queueNameOpt *string,
) (string, error) {
	fallback := defaultQueueName(queuePrefix, taskID)

	if queueNameOpt != nil && *queueNameOpt != "" {
		return sanitizeQueueName(*queueNameOpt, queuePrefix, taskID), nil
	}

	if env.Type.IsDevelopment() {
		return sanitizeQueueName(fallback, queuePrefix, taskID), nil
	}

	if cache != nil {
		if cached, ok := cache.Get(ctx, env.ID.String(), taskID); ok {
			return cached, nil
		}
	}

	resolved, err := resolveQueueNameFromWorker(ctx, workers, queuePrefix, taskID, env, fallback)
	if err != nil {
		return "", err
	}

	if cache != nil {
		cache.Set(ctx, env.ID.String(), taskID, resolved)
	}
	return resolved, nil
}

// resolveQueueNameFromWorker performs the worker/task repository lookup
// resolveQueueName falls back to on a cache miss.
func resolveQueueNameFromWorker(
	ctx context.Context,
	workers worker.Repository,
	queuePrefix string,
	taskID string,
	env *environment.Environment,
	fallback string,
) (string, error) {
	w, err := workers.CurrentForEnvironment(ctx, env.ID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve current worker for environment %s: %w", env.ID, err)
	}
	if w == nil {
		return sanitizeQueueName(fallback, queuePrefix, taskID), nil
	}

	task, err := workers.FindTaskBySlug(ctx, w.ID, taskID)
	if err != nil {
		return "", fmt.Errorf("failed to look up task %s on worker %s: %w", taskID, w.ID, err)
	}
	if task == nil {
		return sanitizeQueueName(fallback, queuePrefix, taskID), nil
	}

	cfg, err := task.ParseQueueConfig()
	if err != nil {
		logger.FromContext(ctx).Warn(
			"failed to parse worker task queue config, falling back to default",
			"task_id", taskID, "worker_id", w.ID, "error", err,
		)
		return sanitizeQueueName(fallback, queuePrefix, taskID), nil
	}
	if cfg.Name == nil || *cfg.Name == "" {
		return sanitizeQueueName(fallback, queuePrefix, taskID), nil
	}
	return sanitizeQueueName(*cfg.Name, queuePrefix, taskID), nil
}

// sanitizeQueueName lowercases name, replaces any run of characters
// outside [a-z0-9/_-] with a single underscore, and falls back to
// defaultQueueName(queuePrefix, taskID) (re-sanitized) if the result is
// empty (spec.md §4.6).
func sanitizeQueueName(name, queuePrefix, taskID string) string {
	lowered := strings.ToLower(name)
	sanitized := queueNameDisallowed.ReplaceAllString(lowered, "_")
	if sanitized == "" {
		fallback := strings.ToLower(defaultQueueName(queuePrefix, taskID))
		sanitized = queueNameDisallowed.ReplaceAllString(fallback, "_")
	}
	return sanitized
}
