package resilience

import (
	"context"

	"kaku/application/ports"
	"kaku/domain/core/entities"
	"kaku/domain/core/valueobjects"
)

// PoIRepository guards a ports.PoIRepository
type PoIRepository struct {
	next ports.PoIRepository
	b    *Breaker
}

// NewPoIRepository wraps next
func NewPoIRepository(next ports.PoIRepository, b *Breaker) *PoIRepository {
	return &PoIRepository{next: next, b: b}
}

func (r *PoIRepository) Create(ctx context.Context, poi *entities.PoI) error {
	return run(r.b, "poi.create", func() error { return r.next.Create(ctx, poi) })
}

func (r *PoIRepository) Get(ctx context.Context, id valueobjects.PoIID) (*entities.PoI, error) {
	return execute(r.b, "poi.get", func() (*entities.PoI, error) { return r.next.Get(ctx, id) })
}

func (r *PoIRepository) GetMany(ctx context.Context, ids []valueobjects.PoIID) ([]*entities.PoI, error) {
	return execute(r.b, "poi.get_many", func() ([]*entities.PoI, error) { return r.next.GetMany(ctx, ids) })
}

func (r *PoIRepository) Update(ctx context.Context, poi *entities.PoI, expectedVersion int) error {
	return run(r.b, "poi.update", func() error { return r.next.Update(ctx, poi, expectedVersion) })
}

func (r *PoIRepository) SetRefutedBy(ctx context.Context, id, refuter valueobjects.PoIID) error {
	return run(r.b, "poi.refute", func() error { return r.next.SetRefutedBy(ctx, id, refuter) })
}

func (r *PoIRepository) Delete(ctx context.Context, id valueobjects.PoIID) error {
	return run(r.b, "poi.delete", func() error { return r.next.Delete(ctx, id) })
}

func (r *PoIRepository) ListByProject(ctx context.Context, projectID valueobjects.ProjectID) ([]*entities.PoI, error) {
	return execute(r.b, "poi.list", func() ([]*entities.PoI, error) { return r.next.ListByProject(ctx, projectID) })
}

// ProjectRepository guards a ports.ProjectRepository
type ProjectRepository struct {
	next ports.ProjectRepository
	b    *Breaker
}

// NewProjectRepository wraps next
func NewProjectRepository(next ports.ProjectRepository, b *Breaker) *ProjectRepository {
	return &ProjectRepository{next: next, b: b}
}

func (r *ProjectRepository) Create(ctx context.Context, project *entities.Project) error {
	return run(r.b, "project.create", func() error { return r.next.Create(ctx, project) })
}

func (r *ProjectRepository) Get(ctx context.Context, id valueobjects.ProjectID) (*entities.Project, error) {
	return execute(r.b, "project.get", func() (*entities.Project, error) { return r.next.Get(ctx, id) })
}

func (r *ProjectRepository) Update(ctx context.Context, project *entities.Project, expectedVersion int) error {
	return run(r.b, "project.update", func() error { return r.next.Update(ctx, project, expectedVersion) })
}

func (r *ProjectRepository) ListByUniverse(ctx context.Context, universeID valueobjects.UniverseID) ([]*entities.Project, error) {
	return execute(r.b, "project.list_by_universe", func() ([]*entities.Project, error) {
		return r.next.ListByUniverse(ctx, universeID)
	})
}

func (r *ProjectRepository) List(ctx context.Context) ([]*entities.Project, error) {
	return execute(r.b, "project.list", func() ([]*entities.Project, error) { return r.next.List(ctx) })
}

// ScribeRepository guards a ports.ScribeRepository
type ScribeRepository struct {
	next ports.ScribeRepository
	b    *Breaker
}

// NewScribeRepository wraps next
func NewScribeRepository(next ports.ScribeRepository, b *Breaker) *ScribeRepository {
	return &ScribeRepository{next: next, b: b}
}

func (r *ScribeRepository) Create(ctx context.Context, scribe *entities.Scribe) error {
	return run(r.b, "scribe.create", func() error { return r.next.Create(ctx, scribe) })
}

func (r *ScribeRepository) Get(ctx context.Context, id valueobjects.ScribeID) (*entities.Scribe, error) {
	return execute(r.b, "scribe.get", func() (*entities.Scribe, error) { return r.next.Get(ctx, id) })
}
