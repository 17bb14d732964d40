package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nneven/runtrigger/engine/core"
	"github.com/nneven/runtrigger/engine/run"
)

var runColumns = []string{
	"id", "friendly_id", "number", "task_identifier", "idempotency_key",
	"status", "queue_name", "master_queue", "payload", "payload_type",
	"metadata", "metadata_type", "trace_id", "span_id", "parent_span_id",
	"concurrency_key", "delay_until", "queued_at", "ttl", "max_attempts",
	"depth", "parent_task_run_id", "root_task_run_id", "batch_id",
	"resume_parent_on_completion", "locked_to_version_id", "is_test",
	"seed_metadata", "environment_id", "project_id",
}

// DB is the minimal pgx surface RunRepo depends on, satisfied by both
// *pgxpool.Pool and pgxmock's mocked pool in tests.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// RunRepo implements run.Repository and run.CounterRepository backed by
// Postgres.
type RunRepo struct {
	db DB
}

func NewRunRepo(db DB) *RunRepo {
	return &RunRepo{db: db}
}

func (r *RunRepo) FindByIdempotencyKey(
	ctx context.Context,
	environmentID core.ID,
	taskIdentifier, idempotencyKey string,
) (*run.Run, error) {
	sql, args, err := squirrel.Select(runColumns...).
		From("runs").
		Where(squirrel.Eq{
			"environment_id":  environmentID,
			"task_identifier": taskIdentifier,
			"idempotency_key": idempotencyKey,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building idempotency lookup query: %w", err)
	}
	var row runRow
	if err := pgxscan.Get(ctx, r.db, &row, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	return row.toRun(), nil
}

func (r *RunRepo) FindAttemptByFriendlyID(ctx context.Context, friendlyID string) (*run.RunAttempt, error) {
	sql, args, err := squirrel.Select(
		"a.id AS id", "a.friendly_id AS friendly_id", "a.status AS status",
		"t.id AS task_run_id", "t.status AS task_run_status",
		"t.depth AS task_run_depth", "t.root_task_run_id AS task_run_root_id",
	).
		From("run_attempts a").
		Join("runs t ON t.id = a.task_run_id").
		Where(squirrel.Eq{"a.friendly_id": friendlyID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building attempt lookup query: %w", err)
	}
	var row attemptRow
	if err := pgxscan.Get(ctx, r.db, &row, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning run attempt: %w", err)
	}
	return row.toAttempt(), nil
}

func (r *RunRepo) FindBatchByFriendlyID(ctx context.Context, friendlyID string) (*run.BatchTaskRun, error) {
	sql, args, err := squirrel.Select(
		"b.id AS id", "b.friendly_id AS friendly_id",
		"a.id AS attempt_id", "a.friendly_id AS attempt_friendly_id", "a.status AS attempt_status",
	).
		From("batch_task_runs b").
		LeftJoin("run_attempts a ON a.id = b.dependent_task_attempt_id").
		Where(squirrel.Eq{"b.friendly_id": friendlyID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building batch lookup query: %w", err)
	}
	var row batchRow
	if err := pgxscan.Get(ctx, r.db, &row, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning batch task run: %w", err)
	}
	return row.toBatch(), nil
}

// Create implements run.Repository. On a unique violation against
// (environment_id, task_identifier, idempotency_key) — a concurrent
// caller winning the same idempotency race — it re-reads and returns
// the row that won instead of surfacing the constraint error.
func (r *RunRepo) Create(ctx context.Context, in *run.Run) (*run.Run, error) {
	values := runInsertValues(in)
	sql, args, err := squirrel.Insert("runs").
		Columns(runColumns...).
		Values(values...).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building run insert query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation && in.IdempotencyKey != nil {
			existing, findErr := r.FindByIdempotencyKey(ctx, in.EnvironmentID, in.TaskIdentifier, *in.IdempotencyKey)
			if findErr != nil {
				return nil, fmt.Errorf("re-reading run after unique violation: %w", findErr)
			}
			if existing != nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("inserting run: %w", err)
	}
	return in, nil
}

// Increment implements run.CounterRepository with a SELECT ... FOR UPDATE
// transaction: the row for key is locked, deriveInitial supplies a
// starting value on first use, work runs with the next number reserved
// against a Repository bound to this same transaction, and the new
// counter value is only persisted if work succeeds — so the counter bump
// and whatever work does through txRuns (the Run insert) commit or roll
// back together.
func (r *RunRepo) Increment(
	ctx context.Context,
	key string,
	deriveInitial func(ctx context.Context) (int64, error),
	work func(ctx context.Context, num int64, txRuns run.Repository) error,
) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning counter transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()
	var current int64
	row := tx.QueryRow(ctx, "SELECT value FROM run_counters WHERE key = $1 FOR UPDATE", key)
	if err := row.Scan(&current); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("locking counter row: %w", err)
		}
		initial, err := deriveInitial(ctx)
		if err != nil {
			return fmt.Errorf("deriving initial counter value: %w", err)
		}
		current = initial
		if _, err := tx.Exec(
			ctx,
			"INSERT INTO run_counters (key, value) VALUES ($1, $2)",
			key, current,
		); err != nil {
			return fmt.Errorf("seeding counter row: %w", err)
		}
	}
	next := current + 1
	txRuns := &RunRepo{db: tx}
	if err := work(ctx, next, txRuns); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "UPDATE run_counters SET value = $2 WHERE key = $1", key, next); err != nil {
		return fmt.Errorf("persisting counter value: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing counter transaction: %w", err)
	}
	committed = true
	return nil
}

func runInsertValues(in *run.Run) []any {
	return []any{
		in.ID, in.FriendlyID, in.Number, in.TaskIdentifier, in.IdempotencyKey,
		in.Status, in.QueueName, in.MasterQueue, in.Payload, in.PayloadType,
		in.Metadata, in.MetadataType, in.TraceID, in.SpanID, in.ParentSpanID,
		in.ConcurrencyKey, in.DelayUntil, in.QueuedAt, in.TTL, in.MaxAttempts,
		in.Depth, in.ParentTaskRunID, in.RootTaskRunID, in.BatchID,
		in.ResumeParentOnCompletion, in.LockedToVersionID, in.IsTest,
		in.SeedMetadata, in.EnvironmentID, in.ProjectID,
	}
}
