package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"github.com/nneven/runtrigger/engine/core"
	"github.com/nneven/runtrigger/engine/environment"
)

// EnvironmentRepo implements environment.Repository backed by Postgres.
// The core only ever reads through it (environment.go's package doc).
type EnvironmentRepo struct {
	db DB
}

func NewEnvironmentRepo(db DB) *EnvironmentRepo {
	return &EnvironmentRepo{db: db}
}

type environmentRow struct {
	ID                      core.ID
	Type                    environment.Type
	ProjectID               core.ID `db:"project_id"`
	OrganizationID          core.ID `db:"organization_id"`
	MaximumConcurrencyLimit int     `db:"maximum_concurrency_limit"`
}

func (r *EnvironmentRepo) Get(ctx context.Context, id core.ID) (*environment.Environment, error) {
	sql, args, err := squirrel.Select(
		"id", "type", "project_id", "organization_id", "maximum_concurrency_limit",
	).
		From("environments").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building environment lookup query: %w", err)
	}
	var row environmentRow
	if err := pgxscan.Get(ctx, r.db, &row, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning environment: %w", err)
	}
	return &environment.Environment{
		ID:                      row.ID,
		Type:                    row.Type,
		ProjectID:               row.ProjectID,
		OrganizationID:          row.OrganizationID,
		MaximumConcurrencyLimit: row.MaximumConcurrencyLimit,
	}, nil
}
