package memory

import (
	"context"
	"sync"

	"kaku/domain/core/entities"
	"kaku/domain/core/valueobjects"
	pkgerrors "kaku/pkg/errors"
)

// ScribeRepository keeps scribes in memory
type ScribeRepository struct {
	mu      sync.RWMutex
	records map[valueobjects.ScribeID]entities.ScribeSnapshot
}

// NewScribeRepository creates an empty repository
func NewScribeRepository() *ScribeRepository {
	return &ScribeRepository{records: make(map[valueobjects.ScribeID]entities.ScribeSnapshot)}
}

func (r *ScribeRepository) Create(ctx context.Context, scribe *entities.Scribe) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[scribe.ID()]; exists {
		return pkgerrors.NewConflictError("scribe " + scribe.ID().String() + " already exists")
	}
	r.records[scribe.ID()] = scribe.Snapshot()
	return nil
}

func (r *ScribeRepository) Get(ctx context.Context, id valueobjects.ScribeID) (*entities.Scribe, error) {
	r.mu.RLock()
	s, ok := r.records[id]
	r.mu.RUnlock()
	if !ok {
		return nil, pkgerrors.NewNotFoundError("scribe " + id.String())
	}
	return entities.RestoreScribe(s)
}
