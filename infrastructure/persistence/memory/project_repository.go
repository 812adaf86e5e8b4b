package memory

import (
	"context"
	"sort"
	"sync"

	"kaku/domain/core/entities"
	"kaku/domain/core/valueobjects"
	pkgerrors "kaku/pkg/errors"
)

// ProjectRepository keeps projects in memory with a (universe, slug) unique
// index.
type ProjectRepository struct {
	mu      sync.RWMutex
	records map[valueobjects.ProjectID]entities.ProjectSnapshot
	slugs   map[string]valueobjects.ProjectID
}

// NewProjectRepository creates an empty repository
func NewProjectRepository() *ProjectRepository {
	return &ProjectRepository{
		records: make(map[valueobjects.ProjectID]entities.ProjectSnapshot),
		slugs:   make(map[string]valueobjects.ProjectID),
	}
}

func slugKey(universeID valueobjects.UniverseID, slug string) string {
	return universeID.String() + "/" + slug
}

func (r *ProjectRepository) Create(ctx context.Context, project *entities.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := slugKey(project.UniverseID(), project.Slug())
	if _, exists := r.slugs[key]; exists {
		return pkgerrors.NewConflictError("a project named " + project.Name() + " already exists in this universe")
	}
	if _, exists := r.records[project.ID()]; exists {
		return pkgerrors.NewConflictError("project " + project.ID().String() + " already exists")
	}
	r.records[project.ID()] = project.Snapshot()
	r.slugs[key] = project.ID()
	return nil
}

func (r *ProjectRepository) Get(ctx context.Context, id valueobjects.ProjectID) (*entities.Project, error) {
	r.mu.RLock()
	s, ok := r.records[id]
	r.mu.RUnlock()
	if !ok {
		return nil, pkgerrors.NewNotFoundError("project " + id.String())
	}
	return entities.RestoreProject(s)
}

func (r *ProjectRepository) Update(ctx context.Context, project *entities.Project, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.records[project.ID()]
	if !ok {
		return pkgerrors.NewNotFoundError("project " + project.ID().String())
	}
	if cur.Version != expectedVersion {
		return pkgerrors.NewConflictError("project " + project.ID().String() + " was modified concurrently")
	}
	r.records[project.ID()] = project.Snapshot()
	return nil
}

func (r *ProjectRepository) ListByUniverse(ctx context.Context, universeID valueobjects.UniverseID) ([]*entities.Project, error) {
	return r.list(func(s entities.ProjectSnapshot) bool { return s.UniverseID == universeID.String() })
}

func (r *ProjectRepository) List(ctx context.Context) ([]*entities.Project, error) {
	return r.list(func(entities.ProjectSnapshot) bool { return true })
}

func (r *ProjectRepository) list(keep func(entities.ProjectSnapshot) bool) ([]*entities.Project, error) {
	r.mu.RLock()
	snaps := make([]entities.ProjectSnapshot, 0, len(r.records))
	for _, s := range r.records {
		if keep(s) {
			snaps = append(snaps, s)
		}
	}
	r.mu.RUnlock()

	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].Name == snaps[j].Name {
			return snaps[i].ID < snaps[j].ID
		}
		return snaps[i].Name < snaps[j].Name
	})
	out := make([]*entities.Project, 0, len(snaps))
	for _, s := range snaps {
		p, err := entities.RestoreProject(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
