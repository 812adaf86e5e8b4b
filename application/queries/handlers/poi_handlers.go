package handlers

import (
	"context"

	"go.uber.org/zap"

	"kaku/application/ports"
	"kaku/application/queries"
	"kaku/application/services"
	"kaku/domain/core/entities"
	"kaku/domain/core/valueobjects"
	"kaku/domain/index"
	pkgerrors "kaku/pkg/errors"
)

// PoIQueryHandler answers lookups of single PoIs and their neighbourhoods
type PoIQueryHandler struct {
	graph    *services.GraphService
	pois     ports.PoIRepository
	projects ports.ProjectRepository
	logger   *zap.Logger
}

// NewPoIQueryHandler creates a new PoI query handler
func NewPoIQueryHandler(graph *services.GraphService, pois ports.PoIRepository, projects ports.ProjectRepository, logger *zap.Logger) *PoIQueryHandler {
	return &PoIQueryHandler{graph: graph, pois: pois, projects: projects, logger: logger}
}

// GetPoI returns a PoI. Scratched PoIs resolve with their scratch time.
func (h *PoIQueryHandler) GetPoI(ctx context.Context, q queries.GetPoIQuery) (*queries.PoIView, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	poi, err := h.load(ctx, q.PoIID)
	if err != nil {
		return nil, err
	}
	switch {
	case q.Variant == "note" && poi.Variant() != entities.VariantNote:
		return nil, pkgerrors.NewNotFoundError("note " + q.PoIID)
	case q.Variant == "structured" && !poi.Variant().Structured():
		return nil, pkgerrors.NewNotFoundError("thought " + q.PoIID)
	}
	view := queries.NewPoIView(poi)
	return &view, nil
}

// ListNotes returns a project's Notes, oldest first
func (h *PoIQueryHandler) ListNotes(ctx context.Context, q queries.ListNotesQuery) ([]queries.PoIView, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	projectID, err := valueobjects.ParseProjectID(q.ProjectID)
	if err != nil {
		return nil, err
	}
	if _, err := h.projects.Get(ctx, projectID); err != nil {
		return nil, err
	}

	all, err := h.pois.ListByProject(ctx, projectID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "list notes")
	}
	out := []queries.PoIView{}
	for _, p := range all {
		if p.Variant() != entities.VariantNote || (p.IsScratched() && !q.IncludeScratched) {
			continue
		}
		out = append(out, queries.NewPoIView(p))
	}
	return out, nil
}

// GetLinks returns both link directions. Links to and from scratched PoIs
// are included so traversals never dangle.
func (h *PoIQueryHandler) GetLinks(ctx context.Context, q queries.GetLinksQuery) (*queries.LinksView, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	poi, err := h.load(ctx, q.PoIID)
	if err != nil {
		return nil, err
	}

	out := &queries.LinksView{ID: poi.ID().String(), From: []string{}, To: []string{}}
	err = h.read(ctx, poi, func(v index.View) error {
		for _, id := range v.Ordered(v.LinksFrom(poi.ID())) {
			out.From = append(out.From, id.String())
		}
		for _, id := range v.Ordered(v.LinksTo(poi.ID())) {
			out.To = append(out.To, id.String())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetChildren returns the direct children, oldest first
func (h *PoIQueryHandler) GetChildren(ctx context.Context, q queries.GetChildrenQuery) ([]queries.PoIView, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	poi, err := h.load(ctx, q.PoIID)
	if err != nil {
		return nil, err
	}

	var ids []valueobjects.PoIID
	if err := h.read(ctx, poi, func(v index.View) error {
		ids = v.Ordered(v.Children(poi.ID()))
		return nil
	}); err != nil {
		return nil, err
	}
	return h.views(ctx, ids)
}

// GetAncestors returns the parent chain, nearest first
func (h *PoIQueryHandler) GetAncestors(ctx context.Context, q queries.GetAncestorsQuery) ([]queries.PoIView, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	poi, err := h.load(ctx, q.PoIID)
	if err != nil {
		return nil, err
	}

	var ids []valueobjects.PoIID
	if err := h.read(ctx, poi, func(v index.View) error {
		var err error
		ids, err = v.Ancestors(poi.ID())
		return err
	}); err != nil {
		return nil, pkgerrors.NewInternalError("walk ancestors").WithCause(err)
	}
	return h.views(ctx, ids)
}

func (h *PoIQueryHandler) load(ctx context.Context, raw string) (*entities.PoI, error) {
	id, err := valueobjects.ParsePoIID(raw)
	if err != nil {
		return nil, err
	}
	return h.pois.Get(ctx, id)
}

func (h *PoIQueryHandler) read(ctx context.Context, poi *entities.PoI, fn func(v index.View) error) error {
	pi, err := h.graph.ProjectIndex(ctx, poi.ProjectID())
	if err != nil {
		return err
	}
	return pi.Read(fn)
}

// views fetches records and returns them in the order of ids
func (h *PoIQueryHandler) views(ctx context.Context, ids []valueobjects.PoIID) ([]queries.PoIView, error) {
	out := []queries.PoIView{}
	if len(ids) == 0 {
		return out, nil
	}
	records, err := h.pois.GetMany(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "fetch pois")
	}
	byID := make(map[valueobjects.PoIID]*entities.PoI, len(records))
	for _, p := range records {
		byID[p.ID()] = p
	}
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, queries.NewPoIView(p))
		}
	}
	return out, nil
}
