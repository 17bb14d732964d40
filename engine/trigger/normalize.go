package trigger

import (
	"github.com/nneven/runtrigger/engine/core"
	"github.com/nneven/runtrigger/engine/environment"
	"github.com/nneven/runtrigger/engine/run"
)

const defaultDevelopmentTTL = "10m"

// normalizeRequest is C1, the request normalizer (spec.md §4.1). It
// canonicalizes the caller's options into a NormalizedRequest and is the
// only component that rejects malformed shape outright. maxTagsPerRun is
// the operator-configured cap (LIMITS_MAX_TAGS_PER_RUN) normalizeTags
// enforces.
func normalizeRequest(req *Request, env *environment.Environment, maxTagsPerRun int) (*NormalizedRequest, error) {
	opts := req.Options

	idempotencyKey := opts.IdempotencyKey

	ttl, err := normalizeTTL(opts.TTL, env)
	if err != nil {
		return nil, err
	}

	tags, err := normalizeTags(opts.Tags, maxTagsPerRun)
	if err != nil {
		return nil, err
	}

	payloadType := JSONPayloadTypeOr(opts.PayloadType)
	metadataType := JSONPayloadTypeOr(opts.MetadataType)

	isTest := false
	if opts.Test != nil {
		isTest = *opts.Test
	}

	var queueName *string
	var queueConcurrency *int
	if req.QueueNameOverride != nil && *req.QueueNameOverride != "" {
		queueName = req.QueueNameOverride
	} else if opts.Queue != nil {
		if opts.Queue.Name != nil && *opts.Queue.Name != "" {
			queueName = opts.Queue.Name
		}
		queueConcurrency = opts.Queue.ConcurrencyLimit
	}

	return &NormalizedRequest{
		TaskID:           req.TaskID,
		Payload:          req.Payload,
		PayloadType:      payloadType,
		Metadata:         opts.Metadata,
		MetadataType:     metadataType,
		IdempotencyKey:   idempotencyKey,
		TTL:              ttl,
		Tags:             tags,
		Delay:            opts.Delay,
		ConcurrencyKey:   opts.ConcurrencyKey,
		QueueName:        queueName,
		QueueConcurrency: queueConcurrency,
		LockToVersion:    opts.LockToVersion,
		MaxAttempts:      opts.MaxAttempts,
		IsTest:           isTest,
		CustomIcon:       "task",
		DependentAttempt: opts.DependentAttempt,
		ParentAttempt:    opts.ParentAttempt,
		DependentBatch:   opts.DependentBatch,
		ParentBatch:      opts.ParentBatch,
	}, nil
}

// JSONPayloadTypeOr returns *t if set and non-empty, else the default
// application/json content type (spec.md §6).
func JSONPayloadTypeOr(t *string) string {
	if t != nil && *t != "" {
		return *t
	}
	return run.JSONPayloadType
}

// normalizeTTL implements spec.md §4.1's ttl rule: a numeric value
// (seconds) is stringified via the duration grammar; a string passes
// through unchanged; an absent value defaults to "10m" in DEVELOPMENT
// environments and stays unset otherwise.
func normalizeTTL(ttl any, env *environment.Environment) (*string, error) {
	switch v := ttl.(type) {
	case nil:
		if env != nil && env.Type.IsDevelopment() {
			def := defaultDevelopmentTTL
			return &def, nil
		}
		return nil, nil
	case string:
		if v == "" {
			if env != nil && env.Type.IsDevelopment() {
				def := defaultDevelopmentTTL
				return &def, nil
			}
			return nil, nil
		}
		return &v, nil
	case int:
		return StringifyDuration(int64(v)), nil
	case int64:
		return StringifyDuration(v), nil
	case float64:
		return StringifyDuration(int64(v)), nil
	default:
		return nil, core.NewValidationError("ttl must be a number of seconds or a duration string, got %T", v)
	}
}

// normalizeTags implements spec.md §4.1's tags rule: a bare string lifts
// to a one-element sequence; a sequence longer than maxTagsPerRun fails
// validation naming the limit and the requested count. A maxTagsPerRun
// of 0 or less falls back to run.MaxTagsPerRun, the package's hard
// ceiling, so an unconfigured caller still gets a bound.
func normalizeTags(tags any, maxTagsPerRun int) ([]string, error) {
	if maxTagsPerRun <= 0 {
		maxTagsPerRun = run.MaxTagsPerRun
	}
	var list []string
	switch v := tags.(type) {
	case nil:
		return nil, nil
	case string:
		if v == "" {
			return nil, nil
		}
		list = []string{v}
	case []string:
		list = v
	default:
		return nil, core.NewValidationError("tags must be a string or an array of strings, got %T", v)
	}
	if len(list) > maxTagsPerRun {
		return nil, core.NewValidationError(
			"a run may have at most %d tags, got %d", maxTagsPerRun, len(list),
		)
	}
	return list, nil
}
