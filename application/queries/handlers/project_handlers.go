package handlers

import (
	"context"

	"go.uber.org/zap"

	"kaku/application/ports"
	"kaku/application/queries"
	"kaku/application/services"
	"kaku/domain/core/valueobjects"
	"kaku/domain/index"
	pkgerrors "kaku/pkg/errors"
)

// ProjectQueryHandler answers project and taxonomy lookups
type ProjectQueryHandler struct {
	graph    *services.GraphService
	projects ports.ProjectRepository
	logger   *zap.Logger
}

// NewProjectQueryHandler creates a new project query handler
func NewProjectQueryHandler(graph *services.GraphService, projects ports.ProjectRepository, logger *zap.Logger) *ProjectQueryHandler {
	return &ProjectQueryHandler{graph: graph, projects: projects, logger: logger}
}

// GetProject returns one project
func (h *ProjectQueryHandler) GetProject(ctx context.Context, q queries.GetProjectQuery) (*queries.ProjectView, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	id, err := valueobjects.ParseProjectID(q.ProjectID)
	if err != nil {
		return nil, err
	}
	p, err := h.projects.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	view := queries.NewProjectView(p)
	return &view, nil
}

// ListProjects returns a universe's projects ordered by name
func (h *ProjectQueryHandler) ListProjects(ctx context.Context, q queries.ListProjectsQuery) ([]queries.ProjectView, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	id, err := valueobjects.ParseUniverseID(q.UniverseID)
	if err != nil {
		return nil, err
	}
	projects, err := h.projects.ListByUniverse(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "list projects")
	}
	out := make([]queries.ProjectView, 0, len(projects))
	for _, p := range projects {
		out = append(out, queries.NewProjectView(p))
	}
	return out, nil
}

// CategoryTree lists the category nodes below a prefix, or the whole
// taxonomy for an empty prefix
func (h *ProjectQueryHandler) CategoryTree(ctx context.Context, q queries.CategoryTreeQuery) (*queries.CategoryTree, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	id, err := valueobjects.ParseProjectID(q.ProjectID)
	if err != nil {
		return nil, err
	}
	var prefix valueobjects.CategoryPath
	if q.Prefix != "" {
		if prefix, err = valueobjects.NewCategoryPath(q.Prefix); err != nil {
			return nil, err
		}
	}

	pi, err := h.graph.ProjectIndex(ctx, id)
	if err != nil {
		return nil, err
	}
	tree := &queries.CategoryTree{ProjectID: id.String(), Prefix: prefix.String(), Nodes: []index.CategoryNode{}}
	_ = pi.Read(func(v index.View) error {
		tree.Nodes = append(tree.Nodes, v.Categories(prefix)...)
		return nil
	})
	return tree, nil
}
