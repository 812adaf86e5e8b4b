package memory

import (
	"context"
	"sort"
	"sync"

	"kaku/domain/core/entities"
	"kaku/domain/core/valueobjects"
	pkgerrors "kaku/pkg/errors"
)

// PoIRepository keeps PoI snapshots in process memory. Records are copied on
// the way in and out, so callers never share state with the store.
type PoIRepository struct {
	mu        sync.RWMutex
	records   map[valueobjects.PoIID]entities.PoISnapshot
	byProject map[valueobjects.ProjectID]map[valueobjects.PoIID]struct{}
}

// NewPoIRepository creates an empty repository
func NewPoIRepository() *PoIRepository {
	return &PoIRepository{
		records:   make(map[valueobjects.PoIID]entities.PoISnapshot),
		byProject: make(map[valueobjects.ProjectID]map[valueobjects.PoIID]struct{}),
	}
}

func (r *PoIRepository) Create(ctx context.Context, poi *entities.PoI) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[poi.ID()]; exists {
		return pkgerrors.NewConflictError("poi " + poi.ID().String() + " already exists")
	}
	r.records[poi.ID()] = poi.Snapshot()
	ids, ok := r.byProject[poi.ProjectID()]
	if !ok {
		ids = make(map[valueobjects.PoIID]struct{})
		r.byProject[poi.ProjectID()] = ids
	}
	ids[poi.ID()] = struct{}{}
	return nil
}

func (r *PoIRepository) Get(ctx context.Context, id valueobjects.PoIID) (*entities.PoI, error) {
	r.mu.RLock()
	s, ok := r.records[id]
	r.mu.RUnlock()
	if !ok {
		return nil, pkgerrors.NewNotFoundError("poi " + id.String())
	}
	return entities.RestorePoI(s)
}

func (r *PoIRepository) GetMany(ctx context.Context, ids []valueobjects.PoIID) ([]*entities.PoI, error) {
	r.mu.RLock()
	snaps := make([]entities.PoISnapshot, 0, len(ids))
	for _, id := range ids {
		if s, ok := r.records[id]; ok {
			snaps = append(snaps, s)
		}
	}
	r.mu.RUnlock()
	return restoreAll(snaps)
}

func (r *PoIRepository) Update(ctx context.Context, poi *entities.PoI, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.records[poi.ID()]
	if !ok {
		return pkgerrors.NewNotFoundError("poi " + poi.ID().String())
	}
	if cur.Version != expectedVersion {
		return pkgerrors.NewConflictError("poi " + poi.ID().String() + " was modified concurrently")
	}
	r.records[poi.ID()] = poi.Snapshot()
	return nil
}

func (r *PoIRepository) SetRefutedBy(ctx context.Context, id, refuter valueobjects.PoIID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.records[id]
	if !ok {
		return pkgerrors.NewNotFoundError("poi " + id.String())
	}
	if cur.RefutedBy != "" {
		return pkgerrors.NewConflictError("poi "+id.String()+" is already refuted").
			WithDetail("refuted_by", cur.RefutedBy)
	}
	cur.RefutedBy = refuter.String()
	cur.Version++
	r.records[id] = cur
	return nil
}

func (r *PoIRepository) Delete(ctx context.Context, id valueobjects.PoIID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.records[id]
	if !ok {
		return nil
	}
	delete(r.records, id)
	if projectID, err := valueobjects.ParseProjectID(s.ProjectID); err == nil {
		delete(r.byProject[projectID], id)
	}
	return nil
}

func (r *PoIRepository) ListByProject(ctx context.Context, projectID valueobjects.ProjectID) ([]*entities.PoI, error) {
	r.mu.RLock()
	snaps := make([]entities.PoISnapshot, 0, len(r.byProject[projectID]))
	for id := range r.byProject[projectID] {
		snaps = append(snaps, r.records[id])
	}
	r.mu.RUnlock()

	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].CreatedAt.Equal(snaps[j].CreatedAt) {
			return snaps[i].ID < snaps[j].ID
		}
		return snaps[i].CreatedAt.Before(snaps[j].CreatedAt)
	})
	return restoreAll(snaps)
}

func restoreAll(snaps []entities.PoISnapshot) ([]*entities.PoI, error) {
	out := make([]*entities.PoI, 0, len(snaps))
	for _, s := range snaps {
		p, err := entities.RestorePoI(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
