package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"kaku/domain/core/entities"
	"kaku/domain/core/valueobjects"
	pkgerrors "kaku/pkg/errors"
)

// PoIRepository stores PoIs as JSON snapshots
type PoIRepository struct {
	store *Store
}

// NewPoIRepository creates a PoI repository on store
func NewPoIRepository(store *Store) *PoIRepository {
	return &PoIRepository{store: store}
}

func (r *PoIRepository) Create(ctx context.Context, poi *entities.PoI) error {
	s := poi.Snapshot()
	record, err := json.Marshal(s)
	if err != nil {
		return pkgerrors.NewInternalError("encode poi").WithCause(err)
	}
	_, err = r.store.db.ExecContext(ctx,
		`INSERT INTO pois (id, project_id, created_at, refuted_by, version, record) VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.ProjectID, s.CreatedAt.UnixMilli(), nullable(s.RefutedBy), s.Version, string(record))
	if err != nil {
		if isConstraint(err) {
			return pkgerrors.NewConflictError("poi " + s.ID + " already exists")
		}
		return dbError("create poi", err)
	}
	return nil
}

func (r *PoIRepository) Get(ctx context.Context, id valueobjects.PoIID) (*entities.PoI, error) {
	row := r.store.db.QueryRowContext(ctx,
		`SELECT record, refuted_by, version FROM pois WHERE id = ?`, id.String())
	p, err := scanPoI(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.NewNotFoundError("poi " + id.String())
	}
	return p, err
}

func (r *PoIRepository) GetMany(ctx context.Context, ids []valueobjects.PoIID) ([]*entities.PoI, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id.String()
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	rows, err := r.store.db.QueryContext(ctx,
		`SELECT record, refuted_by, version FROM pois WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, dbError("get pois", err)
	}
	return scanPoIs(rows)
}

func (r *PoIRepository) Update(ctx context.Context, poi *entities.PoI, expectedVersion int) error {
	s := poi.Snapshot()
	record, err := json.Marshal(s)
	if err != nil {
		return pkgerrors.NewInternalError("encode poi").WithCause(err)
	}
	res, err := r.store.db.ExecContext(ctx,
		`UPDATE pois SET record = ?, refuted_by = ?, version = ? WHERE id = ? AND version = ?`,
		string(record), nullable(s.RefutedBy), s.Version, s.ID, expectedVersion)
	if err != nil {
		return dbError("update poi", err)
	}
	return r.checkAffected(ctx, res, poi.ID(), func() error {
		return pkgerrors.NewConflictError("poi " + s.ID + " was modified concurrently")
	})
}

func (r *PoIRepository) SetRefutedBy(ctx context.Context, id, refuter valueobjects.PoIID) error {
	res, err := r.store.db.ExecContext(ctx,
		`UPDATE pois SET refuted_by = ?, version = version + 1 WHERE id = ? AND refuted_by IS NULL`,
		refuter.String(), id.String())
	if err != nil {
		return dbError("refute poi", err)
	}
	return r.checkAffected(ctx, res, id, func() error {
		return pkgerrors.NewConflictError("poi " + id.String() + " is already refuted")
	})
}

// checkAffected turns a conditional write that matched no row into NotFound
// or, when the row exists, the caller's conflict.
func (r *PoIRepository) checkAffected(ctx context.Context, res sql.Result, id valueobjects.PoIID, conflict func() error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return dbError("rows affected", err)
	}
	if n == 1 {
		return nil
	}
	var exists int
	err = r.store.db.QueryRowContext(ctx, `SELECT 1 FROM pois WHERE id = ?`, id.String()).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return pkgerrors.NewNotFoundError("poi " + id.String())
	}
	if err != nil {
		return dbError("check poi", err)
	}
	return conflict()
}

func (r *PoIRepository) Delete(ctx context.Context, id valueobjects.PoIID) error {
	if _, err := r.store.db.ExecContext(ctx, `DELETE FROM pois WHERE id = ?`, id.String()); err != nil {
		return dbError("delete poi", err)
	}
	return nil
}

func (r *PoIRepository) ListByProject(ctx context.Context, projectID valueobjects.ProjectID) ([]*entities.PoI, error) {
	rows, err := r.store.db.QueryContext(ctx,
		`SELECT record, refuted_by, version FROM pois WHERE project_id = ? ORDER BY created_at, id`,
		projectID.String())
	if err != nil {
		return nil, dbError("list pois", err)
	}
	return scanPoIs(rows)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanPoI decodes a row. The refuted_by and version columns win over the
// JSON record since the conditional refutation only writes the columns.
func scanPoI(row scanner) (*entities.PoI, error) {
	var record string
	var refutedBy sql.NullString
	var version int
	if err := row.Scan(&record, &refutedBy, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, dbError("scan poi", err)
	}
	var s entities.PoISnapshot
	if err := json.Unmarshal([]byte(record), &s); err != nil {
		return nil, pkgerrors.NewInternalError("corrupt poi record").WithCause(err)
	}
	s.RefutedBy = refutedBy.String
	s.Version = version
	return entities.RestorePoI(s)
}

func scanPoIs(rows *sql.Rows) ([]*entities.PoI, error) {
	defer rows.Close()
	var out []*entities.PoI
	for rows.Next() {
		p, err := scanPoI(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("iterate pois", err)
	}
	return out, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
