package handlers

import (
	"context"

	"go.uber.org/zap"

	"kaku/application/commands"
	"kaku/application/ports"
	"kaku/application/services"
	"kaku/domain/core/valueobjects"
	"kaku/domain/index"
)

// LinkThoughtHandler adds directed links between Thoughts and Questions
type LinkThoughtHandler struct {
	graph  *services.GraphService
	pois   ports.PoIRepository
	now    ports.Clock
	logger *zap.Logger
}

// NewLinkThoughtHandler creates a new link handler
func NewLinkThoughtHandler(graph *services.GraphService, pois ports.PoIRepository, now ports.Clock, logger *zap.Logger) *LinkThoughtHandler {
	return &LinkThoughtHandler{graph: graph, pois: pois, now: now, logger: logger}
}

// Handle executes the link command. Re-linking succeeds without a change.
func (h *LinkThoughtHandler) Handle(ctx context.Context, cmd commands.LinkThoughtCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	fromID, err := valueobjects.ParsePoIID(cmd.FromID)
	if err != nil {
		return err
	}
	toID, err := valueobjects.ParsePoIID(cmd.ToID)
	if err != nil {
		return err
	}

	release, err := h.graph.Lock(ctx, fromID, toID)
	if err != nil {
		return err
	}
	defer release()

	from, err := endpoint(ctx, h.pois, fromID, "link source")
	if err != nil {
		return err
	}
	var to = from
	if toID != fromID {
		if to, err = endpoint(ctx, h.pois, toID, "link target"); err != nil {
			return err
		}
	}

	prev := from.Clone()
	added, err := from.LinkTo(to, h.now())
	if err != nil || !added {
		return err
	}
	if err := h.graph.Amend(ctx, prev, from, index.NewMutation().Link(fromID, toID)); err != nil {
		return err
	}

	h.logger.Info("PoIs linked", zap.String("fromID", fromID.String()), zap.String("toID", toID.String()))
	return nil
}

// TagPoIHandler appends tags
type TagPoIHandler struct {
	graph  *services.GraphService
	pois   ports.PoIRepository
	now    ports.Clock
	logger *zap.Logger
}

// NewTagPoIHandler creates a new tag handler
func NewTagPoIHandler(graph *services.GraphService, pois ports.PoIRepository, now ports.Clock, logger *zap.Logger) *TagPoIHandler {
	return &TagPoIHandler{graph: graph, pois: pois, now: now, logger: logger}
}

// Handle executes the tag command
func (h *TagPoIHandler) Handle(ctx context.Context, cmd commands.TagPoICommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	id, err := valueobjects.ParsePoIID(cmd.PoIID)
	if err != nil {
		return err
	}
	tags, err := valueobjects.NewTags(cmd.Tags)
	if err != nil {
		return err
	}

	release, err := h.graph.Lock(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	poi, err := h.pois.Get(ctx, id)
	if err != nil {
		return err
	}

	prev := poi.Clone()
	added, err := poi.Tag(tags, h.now())
	if err != nil || len(added) == 0 {
		return err
	}
	if err := h.graph.Amend(ctx, prev, poi, index.NewMutation().Tag(id, added...)); err != nil {
		return err
	}

	h.logger.Info("PoI tagged", zap.String("poiID", id.String()), zap.Int("added", len(added)))
	return nil
}

// CategorizePoIHandler appends category paths
type CategorizePoIHandler struct {
	graph  *services.GraphService
	pois   ports.PoIRepository
	now    ports.Clock
	logger *zap.Logger
}

// NewCategorizePoIHandler creates a new categorize handler
func NewCategorizePoIHandler(graph *services.GraphService, pois ports.PoIRepository, now ports.Clock, logger *zap.Logger) *CategorizePoIHandler {
	return &CategorizePoIHandler{graph: graph, pois: pois, now: now, logger: logger}
}

// Handle executes the categorize command
func (h *CategorizePoIHandler) Handle(ctx context.Context, cmd commands.CategorizePoICommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	id, err := valueobjects.ParsePoIID(cmd.PoIID)
	if err != nil {
		return err
	}
	paths, err := valueobjects.NewCategoryPaths(cmd.Categories)
	if err != nil {
		return err
	}

	release, err := h.graph.Lock(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	poi, err := h.pois.Get(ctx, id)
	if err != nil {
		return err
	}

	prev := poi.Clone()
	added, err := poi.Categorize(paths, h.now())
	if err != nil || len(added) == 0 {
		return err
	}
	if err := h.graph.Amend(ctx, prev, poi, index.NewMutation().Categorize(id, added...)); err != nil {
		return err
	}

	h.logger.Info("PoI categorized", zap.String("poiID", id.String()), zap.Int("added", len(added)))
	return nil
}
