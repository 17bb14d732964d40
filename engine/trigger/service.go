package trigger

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nneven/runtrigger/engine/core"
	"github.com/nneven/runtrigger/engine/run"
	"github.com/nneven/runtrigger/pkg/logger"
)

// Service is the single synchronous TriggerTask operation, constructed
// with every injected collaborator it needs (spec.md §2, §9).
type Service struct {
	collaborators    *Collaborators
	payloadThreshold int
	masterQueue      string
	queuePrefix      string
	maxTagsPerRun    int
	maxTaskTreeDepth int
}

// Config configures Service-wide policy that is not itself a
// collaborator handle.
type Config struct {
	// PayloadOffloadThresholdBytes is TASK_PAYLOAD_OFFLOAD_THRESHOLD
	// (spec.md §6): payloads whose serialized size exceeds it are
	// offloaded to object storage.
	PayloadOffloadThresholdBytes int
	// MasterQueue is ENGINE_MASTER_QUEUE, the downstream engine's single
	// worker-pool queue every Run is handed off on (spec.md §9). Defaults
	// to "main" when unset.
	MasterQueue string
	// QueuePrefix is ENGINE_QUEUE_PREFIX, prepended to a task's
	// identifier to build its default per-task queue name (spec.md
	// §4.6). Defaults to "task/" when unset.
	QueuePrefix string
	// MaxTagsPerRun is LIMITS_MAX_TAGS_PER_RUN (spec.md §4.1). Defaults
	// to run.MaxTagsPerRun when unset or non-positive.
	MaxTagsPerRun int
	// MaxTaskTreeDepth is LIMITS_MAX_TASK_TREE_DEPTH (spec.md §4.4, §9).
	// A non-positive value leaves the lineage depth uncapped.
	MaxTaskTreeDepth int
}

// NewService constructs a Service from its collaborators and policy
// config.
func NewService(collaborators *Collaborators, cfg Config) *Service {
	masterQueue := cfg.MasterQueue
	if masterQueue == "" {
		masterQueue = "main"
	}
	queuePrefix := cfg.QueuePrefix
	if queuePrefix == "" {
		queuePrefix = defaultQueuePrefix
	}
	return &Service{
		collaborators:    collaborators,
		payloadThreshold: cfg.PayloadOffloadThresholdBytes,
		masterQueue:      masterQueue,
		queuePrefix:      queuePrefix,
		maxTagsPerRun:    cfg.MaxTagsPerRun,
		maxTaskTreeDepth: cfg.MaxTaskTreeDepth,
	}
}

// TriggerTask is the core's single entry point (spec.md §2). Data flows
// leaves-first: C1 -> C2 -> C3 -> C4 -> C5 (with metadata packing), C6
// and C8 in parallel -> C7. Any failure above C7 aborts without writing
// to the database; an object-store upload C5 already made is not undone.
func (s *Service) TriggerTask(ctx context.Context, req *Request) (*run.Run, error) {
	log := logger.FromContext(ctx)
	log.Debug("triggering task", "task_id", req.TaskID, "environment_id", req.Environment)

	env, err := s.collaborators.Environments.Get(ctx, req.Environment)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment %s: %w", req.Environment, err)
	}
	if env == nil {
		return nil, core.NewValidationError("environment %s does not exist", req.Environment)
	}

	normalized, err := normalizeRequest(req, env, s.maxTagsPerRun)
	if err != nil {
		return nil, err
	}

	if existing, err := checkIdempotency(
		ctx, s.collaborators.Runs, env.ID, normalized.TaskID, normalized.IdempotencyKey,
	); err != nil {
		return nil, err
	} else if existing != nil {
		log.Debug("idempotency hit, returning existing run", "run_id", existing.FriendlyID)
		return existing, nil
	}

	if err := checkEntitlement(ctx, s.collaborators.Entitlement, env); err != nil {
		return nil, err
	}

	deps, err := resolveDependencies(ctx, s.collaborators.Runs, normalized, s.maxTaskTreeDepth)
	if err != nil {
		return nil, err
	}

	// friendlyId is minted here, ahead of C7, because the payload
	// offload path (C5) is keyed by it and C5 runs in parallel with C6
	// and C8, strictly before C7 (spec.md §2, §4.5).
	friendlyID, err := friendlyRunID()
	if err != nil {
		return nil, fmt.Errorf("failed to mint run friendly id: %w", err)
	}

	var payload, metadata run.IOPacket
	var queueName string
	var delayUntil *time.Time

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := buildOffloadedPayload(gctx, s.collaborators.ObjectStore, s.payloadThreshold, normalized, friendlyID)
		if err != nil {
			return err
		}
		payload = p
		return nil
	})
	g.Go(func() error {
		m, err := run.BuildMetadataPacket(normalized.Metadata, normalized.MetadataType)
		if err != nil {
			return fmt.Errorf("failed to build metadata packet: %w", err)
		}
		metadata = m
		return nil
	})
	g.Go(func() error {
		delayUntil = ParseDelay(normalized.Delay, time.Now().UTC())
		return nil
	})
	g.Go(func() error {
		name, err := resolveQueueName(
			gctx, s.collaborators.Workers, s.collaborators.QueueCache, s.queuePrefix,
			normalized.TaskID, env, normalized.QueueName,
		)
		if err != nil {
			return err
		}
		queueName = name
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	created, err := createRun(ctx, s.collaborators, &createParams{
		req:         normalized,
		env:         env,
		deps:        deps,
		payload:     payload,
		metadata:    metadata,
		queueName:   queueName,
		masterQueue: s.masterQueue,
		delayUntil:  delayUntil,
		friendlyID:  friendlyID,
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// buildOffloadedPayload runs C5 (spec.md §4.5) end to end: it builds the
// packet, then consults the offload predicate and, if it trips, uploads
// the packet's body under "<runFriendlyId>/payload.json" and rewrites
// the packet to the application/store locator form.
func buildOffloadedPayload(
	ctx context.Context,
	store run.ObjectStore,
	thresholdBytes int,
	normalized *NormalizedRequest,
	friendlyID string,
) (run.IOPacket, error) {
	packet, err := run.BuildPacket(normalized.Payload, normalized.PayloadType)
	if err != nil {
		return run.IOPacket{}, fmt.Errorf("failed to build payload packet: %w", err)
	}
	policy := run.OffloadPolicy{Store: store, ThresholdBytes: thresholdBytes}
	offloaded, _, err := policy.Apply(ctx, packet, friendlyID)
	if err != nil {
		return run.IOPacket{}, err
	}
	return offloaded, nil
}
