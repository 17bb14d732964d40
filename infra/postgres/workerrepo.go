package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"github.com/nneven/runtrigger/engine/core"
	"github.com/nneven/runtrigger/engine/worker"
)

// WorkerRepo implements worker.Repository backed by Postgres.
type WorkerRepo struct {
	db DB
}

func NewWorkerRepo(db DB) *WorkerRepo {
	return &WorkerRepo{db: db}
}

type workerRow struct {
	ID            core.ID
	Version       string
	ProjectID     core.ID `db:"project_id"`
	EnvironmentID core.ID `db:"environment_id"`
	ContentHash   string  `db:"content_hash"`
}

func (w *workerRow) toWorker() *worker.Worker {
	return &worker.Worker{
		ID:            w.ID,
		Version:       w.Version,
		ProjectID:     w.ProjectID,
		EnvironmentID: w.EnvironmentID,
		ContentHash:   w.ContentHash,
	}
}

var workerColumns = []string{"id", "version", "project_id", "environment_id", "content_hash"}

func (r *WorkerRepo) CurrentForEnvironment(ctx context.Context, environmentID core.ID) (*worker.Worker, error) {
	sql, args, err := squirrel.Select(workerColumns...).
		From("workers").
		Where(squirrel.Eq{"environment_id": environmentID, "is_current": true}).
		Limit(1).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building current worker query: %w", err)
	}
	var row workerRow
	if err := pgxscan.Get(ctx, r.db, &row, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning current worker: %w", err)
	}
	return row.toWorker(), nil
}

func (r *WorkerRepo) FindByVersion(
	ctx context.Context,
	projectID, environmentID core.ID,
	version string,
) (*worker.Worker, error) {
	sql, args, err := squirrel.Select(workerColumns...).
		From("workers").
		Where(squirrel.Eq{
			"project_id":     projectID,
			"environment_id": environmentID,
			"version":        version,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building worker-by-version query: %w", err)
	}
	var row workerRow
	if err := pgxscan.Get(ctx, r.db, &row, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning worker by version: %w", err)
	}
	return row.toWorker(), nil
}

func (r *WorkerRepo) FindTaskBySlug(ctx context.Context, workerID core.ID, slug string) (*worker.Task, error) {
	sql, args, err := squirrel.Select("worker_id", "slug", "queue_config").
		From("worker_tasks").
		Where(squirrel.Eq{"worker_id": workerID, "slug": slug}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building task-by-slug query: %w", err)
	}
	var row struct {
		WorkerID    core.ID `db:"worker_id"`
		Slug        string
		QueueConfig []byte `db:"queue_config"`
	}
	if err := pgxscan.Get(ctx, r.db, &row, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning worker task: %w", err)
	}
	return &worker.Task{WorkerID: row.WorkerID, Slug: row.Slug, QueueConfig: row.QueueConfig}, nil
}
