package handlers

import (
	"context"

	"go.uber.org/zap"

	"kaku/application/commands"
	"kaku/application/ports"
	"kaku/application/services"
	"kaku/domain/core/valueobjects"
)

// RefuteThoughtHandler records that a Thought refutes a Thought or
// Question. The first refuter wins; later attempts get Conflict.
type RefuteThoughtHandler struct {
	graph  *services.GraphService
	pois   ports.PoIRepository
	now    ports.Clock
	logger *zap.Logger
}

// NewRefuteThoughtHandler creates a new refute handler
func NewRefuteThoughtHandler(graph *services.GraphService, pois ports.PoIRepository, now ports.Clock, logger *zap.Logger) *RefuteThoughtHandler {
	return &RefuteThoughtHandler{graph: graph, pois: pois, now: now, logger: logger}
}

// Handle executes the refute command
func (h *RefuteThoughtHandler) Handle(ctx context.Context, cmd commands.RefuteThoughtCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	targetID, err := valueobjects.ParsePoIID(cmd.TargetID)
	if err != nil {
		return err
	}
	refuterID, err := valueobjects.ParsePoIID(cmd.RefuterID)
	if err != nil {
		return err
	}

	release, err := h.graph.Lock(ctx, targetID, refuterID)
	if err != nil {
		return err
	}
	defer release()

	target, err := h.pois.Get(ctx, targetID)
	if err != nil {
		return err
	}
	refuter, err := endpoint(ctx, h.pois, refuterID, "refuter")
	if err != nil {
		return err
	}

	if err := target.RefuteBy(refuter, h.now()); err != nil {
		return err
	}
	if err := h.graph.Refute(ctx, target); err != nil {
		return err
	}

	h.logger.Info("PoI refuted",
		zap.String("targetID", targetID.String()),
		zap.String("refuterID", refuterID.String()),
	)
	return nil
}
