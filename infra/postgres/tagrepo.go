package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"github.com/nneven/runtrigger/engine/core"
	"github.com/nneven/runtrigger/engine/run"
)

// TagRepo implements run.TagRepository backed by Postgres.
type TagRepo struct {
	db DB
}

func NewTagRepo(db DB) *TagRepo {
	return &TagRepo{db: db}
}

// GetOrCreate looks up a tag by (project_id, name), inserting it when
// absent. Concurrent first-inserts are resolved by the unique
// constraint on (project_id, name) plus an ON CONFLICT DO NOTHING
// re-select, matching the teacher's upsert pattern elsewhere.
func (r *TagRepo) GetOrCreate(ctx context.Context, name string, projectID core.ID) (*run.Tag, error) {
	if tag, err := r.find(ctx, name, projectID); err != nil {
		return nil, err
	} else if tag != nil {
		return tag, nil
	}
	id := core.MustNewID()
	insertSQL, args, err := squirrel.Insert("tags").
		Columns("id", "name", "project_id").
		Values(id, name, projectID).
		Suffix("ON CONFLICT (project_id, name) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building tag insert query: %w", err)
	}
	if _, err := r.db.Exec(ctx, insertSQL, args...); err != nil {
		return nil, fmt.Errorf("inserting tag: %w", err)
	}
	tag, err := r.find(ctx, name, projectID)
	if err != nil {
		return nil, err
	}
	if tag == nil {
		return nil, fmt.Errorf("tag %q vanished after insert", name)
	}
	return tag, nil
}

type tagRow struct {
	ID        core.ID
	Name      string
	ProjectID core.ID `db:"project_id"`
}

func (r *TagRepo) find(ctx context.Context, name string, projectID core.ID) (*run.Tag, error) {
	sql, args, err := squirrel.Select("id", "name", "project_id AS project_id").
		From("tags").
		Where(squirrel.Eq{"name": name, "project_id": projectID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building tag lookup query: %w", err)
	}
	var row tagRow
	if err := pgxscan.Get(ctx, r.db, &row, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning tag: %w", err)
	}
	return &run.Tag{ID: row.ID, Name: row.Name, ProjectID: row.ProjectID}, nil
}
