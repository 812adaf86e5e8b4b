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

// ScribeRepository stores scribes
type ScribeRepository struct {
	store *Store
}

// NewScribeRepository creates a scribe repository on store
func NewScribeRepository(store *Store) *ScribeRepository {
	return &ScribeRepository{store: store}
}

func (r *ScribeRepository) Create(ctx context.Context, scribe *entities.Scribe) error {
	record, err := json.Marshal(scribe.Snapshot())
	if err != nil {
		return pkgerrors.NewInternalError("encode scribe").WithCause(err)
	}
	_, err = r.store.db.ExecContext(ctx, `INSERT INTO scribes (id, record) VALUES (?, ?)`, scribe.ID().String(), string(record))
	if err != nil {
		if isConstraint(err) {
			return pkgerrors.NewConflictError("scribe " + scribe.ID().String() + " already exists")
		}
		return dbError("create scribe", err)
	}
	return nil
}

func (r *ScribeRepository) Get(ctx context.Context, id valueobjects.ScribeID) (*entities.Scribe, error) {
	var record string
	err := r.store.db.QueryRowContext(ctx, `SELECT record FROM scribes WHERE id = ?`, id.String()).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.NewNotFoundError("scribe " + id.String())
	}
	if err != nil {
		return nil, dbError("get scribe", err)
	}
	var s entities.ScribeSnapshot
	if err := json.Unmarshal([]byte(record), &s); err != nil {
		return nil, pkgerrors.NewInternalError("corrupt scribe record").WithCause(err)
	}
	return entities.RestoreScribe(s)
}
