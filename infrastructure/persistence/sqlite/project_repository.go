package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"kaku/domain/core/entities"
	"kaku/domain/core/valueobjects"
	pkgerrors "kaku/pkg/errors"
)

// ProjectRepository stores projects. The (universe_id, slug) constraint
// enforces unique names per universe.
type ProjectRepository struct {
	store *Store
}

// NewProjectRepository creates a project repository on store
func NewProjectRepository(store *Store) *ProjectRepository {
	return &ProjectRepository{store: store}
}

func (r *ProjectRepository) Create(ctx context.Context, project *entities.Project) error {
	s := project.Snapshot()
	record, err := json.Marshal(s)
	if err != nil {
		return pkgerrors.NewInternalError("encode project").WithCause(err)
	}
	_, err = r.store.db.ExecContext(ctx,
		`INSERT INTO projects (id, universe_id, slug, name, version, record) VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.UniverseID, s.Slug, s.Name, s.Version, string(record))
	if err != nil {
		if isConstraint(err) {
			return pkgerrors.NewConflictError("a project named " + s.Name + " already exists in this universe")
		}
		return dbError("create project", err)
	}
	return nil
}

func (r *ProjectRepository) Get(ctx context.Context, id valueobjects.ProjectID) (*entities.Project, error) {
	var record string
	err := r.store.db.QueryRowContext(ctx, `SELECT record FROM projects WHERE id = ?`, id.String()).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.NewNotFoundError("project " + id.String())
	}
	if err != nil {
		return nil, dbError("get project", err)
	}
	return decodeProject(record)
}

func (r *ProjectRepository) Update(ctx context.Context, project *entities.Project, expectedVersion int) error {
	s := project.Snapshot()
	record, err := json.Marshal(s)
	if err != nil {
		return pkgerrors.NewInternalError("encode project").WithCause(err)
	}
	res, err := r.store.db.ExecContext(ctx,
		`UPDATE projects SET record = ?, version = ? WHERE id = ? AND version = ?`,
		string(record), s.Version, s.ID, expectedVersion)
	if err != nil {
		return dbError("update project", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbError("rows affected", err)
	}
	if n == 0 {
		if _, err := r.Get(ctx, project.ID()); err != nil {
			return err
		}
		return pkgerrors.NewConflictError("project " + s.ID + " was modified concurrently")
	}
	return nil
}

func (r *ProjectRepository) ListByUniverse(ctx context.Context, universeID valueobjects.UniverseID) ([]*entities.Project, error) {
	return r.list(ctx, `SELECT record FROM projects WHERE universe_id = ? ORDER BY name, id`, universeID.String())
}

func (r *ProjectRepository) List(ctx context.Context) ([]*entities.Project, error) {
	return r.list(ctx, `SELECT record FROM projects ORDER BY name, id`)
}

func (r *ProjectRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entities.Project, error) {
	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError("list projects", err)
	}
	defer rows.Close()

	var out []*entities.Project
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, dbError("scan project", err)
		}
		p, err := decodeProject(record)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("iterate projects", err)
	}
	return out, nil
}

func decodeProject(record string) (*entities.Project, error) {
	var s entities.ProjectSnapshot
	if err := json.Unmarshal([]byte(record), &s); err != nil {
		return nil, pkgerrors.NewInternalError("corrupt project record").WithCause(err)
	}
	return entities.RestoreProject(s)
}
