package handlers

import (
	"context"

	"go.uber.org/zap"

	"kaku/application/commands"
	"kaku/application/ports"
	"kaku/application/services"
	"kaku/domain/core/entities"
	"kaku/domain/core/valueobjects"
	"kaku/domain/index"
	pkgerrors "kaku/pkg/errors"
)

// ScratchHandler logically deletes PoIs. The record, its parent edge, its
// refutation and every link stay resolvable; only the tag, category and
// text indices drop it.
type ScratchHandler struct {
	graph  *services.GraphService
	pois   ports.PoIRepository
	now    ports.Clock
	logger *zap.Logger
}

// NewScratchHandler creates a new scratch handler
func NewScratchHandler(graph *services.GraphService, pois ports.PoIRepository, now ports.Clock, logger *zap.Logger) *ScratchHandler {
	return &ScratchHandler{graph: graph, pois: pois, now: now, logger: logger}
}

// scratch is idempotent: a PoI that is already scratched succeeds silently.
// structured selects which variants the caller may address.
func (h *ScratchHandler) scratch(ctx context.Context, raw string, structured bool) error {
	id, err := valueobjects.ParsePoIID(raw)
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
	if poi.Variant().Structured() != structured {
		kind := string(entities.VariantNote)
		if structured {
			kind = string(entities.VariantThought)
		}
		return pkgerrors.NewNotFoundError(kind + " " + id.String())
	}

	prev := poi.Clone()
	if !poi.Scratch(h.now()) {
		return nil
	}
	if err := h.graph.Amend(ctx, prev, poi, index.NewMutation().Scratch(id)); err != nil {
		return err
	}

	h.logger.Info("PoI scratched",
		zap.String("poiID", id.String()),
		zap.String("variant", string(poi.Variant())),
	)
	return nil
}

// HandleNote executes the scratch note command
func (h *ScratchHandler) HandleNote(ctx context.Context, cmd commands.ScratchNoteCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	return h.scratch(ctx, cmd.NoteID, false)
}

// HandleThought executes the scratch thought command. Questions are
// scratched through it as well.
func (h *ScratchHandler) HandleThought(ctx context.Context, cmd commands.ScratchThoughtCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	return h.scratch(ctx, cmd.ThoughtID, true)
}
