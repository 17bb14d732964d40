package postgres

import (
	"time"

	"github.com/nneven/runtrigger/engine/core"
	"github.com/nneven/runtrigger/engine/run"
)

// runRow mirrors the runs table shape for scany scanning; *string-typed
// nullable columns map directly onto run.Run's own pointer fields so no
// field-by-field nil-juggling is needed on conversion.
type runRow struct {
	ID                       core.ID
	FriendlyID               string `db:"friendly_id"`
	Number                   int64
	TaskIdentifier           string     `db:"task_identifier"`
	IdempotencyKey           *string    `db:"idempotency_key"`
	Status                   run.Status `db:"status"`
	QueueName                string     `db:"queue_name"`
	MasterQueue              string     `db:"master_queue"`
	Payload                  *string
	PayloadType              string `db:"payload_type"`
	Metadata                 *string
	MetadataType             string     `db:"metadata_type"`
	TraceID                  string     `db:"trace_id"`
	SpanID                   string     `db:"span_id"`
	ParentSpanID             *string    `db:"parent_span_id"`
	ConcurrencyKey           *string    `db:"concurrency_key"`
	DelayUntil               *time.Time `db:"delay_until"`
	QueuedAt                 *time.Time `db:"queued_at"`
	TTL                      *string
	MaxAttempts              *int    `db:"max_attempts"`
	Depth                    int
	ParentTaskRunID          *core.ID `db:"parent_task_run_id"`
	RootTaskRunID            *core.ID `db:"root_task_run_id"`
	BatchID                  *core.ID `db:"batch_id"`
	ResumeParentOnCompletion bool     `db:"resume_parent_on_completion"`
	LockedToVersionID        *core.ID `db:"locked_to_version_id"`
	IsTest                   bool     `db:"is_test"`
	SeedMetadata             *string  `db:"seed_metadata"`
	EnvironmentID            core.ID  `db:"environment_id"`
	ProjectID                core.ID  `db:"project_id"`
}

func (r *runRow) toRun() *run.Run {
	return &run.Run{
		ID:                       r.ID,
		FriendlyID:               r.FriendlyID,
		Number:                   r.Number,
		TaskIdentifier:           r.TaskIdentifier,
		IdempotencyKey:           r.IdempotencyKey,
		Status:                   r.Status,
		QueueName:                r.QueueName,
		MasterQueue:              r.MasterQueue,
		Payload:                  r.Payload,
		PayloadType:              r.PayloadType,
		Metadata:                 r.Metadata,
		MetadataType:             r.MetadataType,
		TraceID:                  r.TraceID,
		SpanID:                   r.SpanID,
		ParentSpanID:             r.ParentSpanID,
		ConcurrencyKey:           r.ConcurrencyKey,
		DelayUntil:               r.DelayUntil,
		QueuedAt:                 r.QueuedAt,
		TTL:                      r.TTL,
		MaxAttempts:              r.MaxAttempts,
		Depth:                    r.Depth,
		ParentTaskRunID:          r.ParentTaskRunID,
		RootTaskRunID:            r.RootTaskRunID,
		BatchID:                  r.BatchID,
		ResumeParentOnCompletion: r.ResumeParentOnCompletion,
		LockedToVersionID:        r.LockedToVersionID,
		IsTest:                   r.IsTest,
		SeedMetadata:             r.SeedMetadata,
		EnvironmentID:            r.EnvironmentID,
		ProjectID:                r.ProjectID,
	}
}

type attemptRow struct {
	ID            core.ID
	FriendlyID    string            `db:"friendly_id"`
	Status        run.AttemptStatus `db:"status"`
	TaskRunID     core.ID           `db:"task_run_id"`
	TaskRunStatus run.Status        `db:"task_run_status"`
	TaskRunDepth  int               `db:"task_run_depth"`
	TaskRunRootID *core.ID          `db:"task_run_root_id"`
}

func (r *attemptRow) toAttempt() *run.RunAttempt {
	return &run.RunAttempt{
		ID:         r.ID,
		FriendlyID: r.FriendlyID,
		Status:     r.Status,
		TaskRun: run.TaskRunProjection{
			ID:            r.TaskRunID,
			Status:        r.TaskRunStatus,
			Depth:         r.TaskRunDepth,
			RootTaskRunID: r.TaskRunRootID,
		},
	}
}

type batchRow struct {
	ID                core.ID
	FriendlyID        string             `db:"friendly_id"`
	AttemptID         *core.ID           `db:"attempt_id"`
	AttemptFriendlyID *string            `db:"attempt_friendly_id"`
	AttemptStatus     *run.AttemptStatus `db:"attempt_status"`
}

func (r *batchRow) toBatch() *run.BatchTaskRun {
	b := &run.BatchTaskRun{ID: r.ID, FriendlyID: r.FriendlyID}
	if r.AttemptID != nil {
		b.DependentTaskAttempt = &run.RunAttempt{
			ID:         *r.AttemptID,
			FriendlyID: derefString(r.AttemptFriendlyID),
		}
		if r.AttemptStatus != nil {
			b.DependentTaskAttempt.Status = *r.AttemptStatus
		}
	}
	return b
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
