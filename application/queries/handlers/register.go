package handlers

import (
	"context"

	"kaku/application/queries"
	"kaku/application/queries/bus"
	pkgerrors "kaku/pkg/errors"
)

// Set groups every query handler for registration
type Set struct {
	PoIs     *PoIQueryHandler
	Projects *ProjectQueryHandler
	Search   *SearchPoIsHandler
}

func typed[Q bus.Query, R any](fn func(context.Context, Q) (R, error)) bus.QueryHandler {
	return bus.QueryHandlerFunc(func(ctx context.Context, query bus.Query) (interface{}, error) {
		q, ok := query.(Q)
		if !ok {
			return nil, pkgerrors.NewInternalError("unexpected query type")
		}
		return fn(ctx, q)
	})
}

// Register binds every handler of the set to b
func (s *Set) Register(b *bus.QueryBus) error {
	regs := []struct {
		q bus.Query
		h bus.QueryHandler
	}{
		{queries.GetPoIQuery{}, typed(s.PoIs.GetPoI)},
		{queries.ListNotesQuery{}, typed(s.PoIs.ListNotes)},
		{queries.GetLinksQuery{}, typed(s.PoIs.GetLinks)},
		{queries.GetChildrenQuery{}, typed(s.PoIs.GetChildren)},
		{queries.GetAncestorsQuery{}, typed(s.PoIs.GetAncestors)},
		{queries.GetProjectQuery{}, typed(s.Projects.GetProject)},
		{queries.ListProjectsQuery{}, typed(s.Projects.ListProjects)},
		{queries.CategoryTreeQuery{}, typed(s.Projects.CategoryTree)},
		{queries.SearchPoIsQuery{}, typed(s.Search.Handle)},
	}
	for _, r := range regs {
		if err := b.Register(r.q, r.h); err != nil {
			return err
		}
	}
	return nil
}
