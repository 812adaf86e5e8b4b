package handlers

import (
	"context"

	"go.uber.org/zap"

	"kaku/application/commands"
	"kaku/application/ports"
	"kaku/application/services"
	"kaku/domain/core/entities"
	"kaku/domain/core/valueobjects"
	pkgerrors "kaku/pkg/errors"
)

// CreateNoteHandler imports Notes
type CreateNoteHandler struct {
	graph    *services.GraphService
	projects ports.ProjectRepository
	scribes  ports.ScribeRepository
	now      ports.Clock
	logger   *zap.Logger
}

// NewCreateNoteHandler creates a new create note handler
func NewCreateNoteHandler(
	graph *services.GraphService,
	projects ports.ProjectRepository,
	scribes ports.ScribeRepository,
	now ports.Clock,
	logger *zap.Logger,
) *CreateNoteHandler {
	return &CreateNoteHandler{graph: graph, projects: projects, scribes: scribes, now: now, logger: logger}
}

// Handle executes the create note command
func (h *CreateNoteHandler) Handle(ctx context.Context, cmd commands.CreateNoteCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	noteID, err := valueobjects.ParsePoIID(cmd.NoteID)
	if err != nil {
		return err
	}
	projectID, err := valueobjects.ParseProjectID(cmd.ProjectID)
	if err != nil {
		return err
	}
	scribeID, err := valueobjects.ParseScribeID(cmd.ScribeID)
	if err != nil {
		return err
	}
	content, err := valueobjects.NewContent(cmd.Content)
	if err != nil {
		return err
	}

	release, err := h.graph.Lock(ctx, noteID)
	if err != nil {
		return err
	}
	defer release()

	if err := writableProject(ctx, h.projects, h.scribes, projectID, scribeID); err != nil {
		return err
	}

	note, err := entities.NewPoI(entities.NewPoIParams{
		ID:         noteID,
		Variant:    entities.VariantNote,
		ProjectID:  projectID,
		ScribeID:   scribeID,
		Content:    content,
		Media:      cmd.Media,
		Citations:  cmd.Citations,
		CreatedAt:  h.now(),
		ImportedAt: cmd.ImportedAt,
	})
	if err != nil {
		return err
	}

	if err := h.graph.Insert(ctx, note); err != nil {
		return err
	}

	h.logger.Info("Note created",
		zap.String("noteID", noteID.String()),
		zap.String("projectID", projectID.String()),
	)
	return nil
}

// CreateThoughtHandler creates Thoughts and Questions with their initial
// relations
type CreateThoughtHandler struct {
	graph    *services.GraphService
	pois     ports.PoIRepository
	projects ports.ProjectRepository
	scribes  ports.ScribeRepository
	now      ports.Clock
	logger   *zap.Logger
}

// NewCreateThoughtHandler creates a new create thought handler
func NewCreateThoughtHandler(
	graph *services.GraphService,
	pois ports.PoIRepository,
	projects ports.ProjectRepository,
	scribes ports.ScribeRepository,
	now ports.Clock,
	logger *zap.Logger,
) *CreateThoughtHandler {
	return &CreateThoughtHandler{graph: graph, pois: pois, projects: projects, scribes: scribes, now: now, logger: logger}
}

// Handle executes the create thought command
func (h *CreateThoughtHandler) Handle(ctx context.Context, cmd commands.CreateThoughtCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	params, err := h.params(cmd)
	if err != nil {
		return err
	}

	// The parent and link targets are locked too so they cannot be
	// scratched between the checks below and the insert.
	lockIDs := append([]valueobjects.PoIID{params.ID, params.ParentID}, params.Links...)
	release, err := h.graph.Lock(ctx, lockIDs...)
	if err != nil {
		return err
	}
	defer release()

	if err := writableProject(ctx, h.projects, h.scribes, params.ProjectID, params.ScribeID); err != nil {
		return err
	}

	thought, err := entities.NewPoI(params)
	if err != nil {
		return err
	}

	if !params.ParentID.IsZero() {
		parent, err := endpoint(ctx, h.pois, params.ParentID, "parent")
		if err != nil {
			return err
		}
		if err := checkParent(thought, parent); err != nil {
			return err
		}
	}
	for _, to := range params.Links {
		target, err := endpoint(ctx, h.pois, to, "link target")
		if err != nil {
			return err
		}
		if err := thought.CanLinkTo(target); err != nil {
			return err
		}
	}

	if err := h.graph.Insert(ctx, thought); err != nil {
		return err
	}

	h.logger.Info("Thought created",
		zap.String("thoughtID", params.ID.String()),
		zap.String("variant", string(params.Variant)),
		zap.String("projectID", params.ProjectID.String()),
		zap.String("parentID", params.ParentID.String()),
		zap.Int("links", len(params.Links)),
	)
	return nil
}

func (h *CreateThoughtHandler) params(cmd commands.CreateThoughtCommand) (entities.NewPoIParams, error) {
	var p entities.NewPoIParams
	var err error

	if p.Variant, err = entities.ParseVariant(cmd.Variant); err != nil {
		return p, err
	}
	if !p.Variant.Structured() {
		return p, pkgerrors.NewValidationError("variant must be thought or question")
	}
	if p.ID, err = valueobjects.ParsePoIID(cmd.ThoughtID); err != nil {
		return p, err
	}
	if p.ProjectID, err = valueobjects.ParseProjectID(cmd.ProjectID); err != nil {
		return p, err
	}
	if p.ScribeID, err = valueobjects.ParseScribeID(cmd.ScribeID); err != nil {
		return p, err
	}
	if cmd.ParentID != "" {
		if p.ParentID, err = valueobjects.ParsePoIID(cmd.ParentID); err != nil {
			return p, err
		}
	}
	if p.Content, err = valueobjects.NewContent(cmd.Content); err != nil {
		return p, err
	}
	if p.Tags, err = valueobjects.NewTags(cmd.Tags); err != nil {
		return p, err
	}
	if p.Categories, err = valueobjects.NewCategoryPaths(cmd.Categories); err != nil {
		return p, err
	}
	if p.Links, err = parsePoIIDs(cmd.Links); err != nil {
		return p, err
	}
	p.Media = cmd.Media
	p.Citations = cmd.Citations
	p.ImportedAt = cmd.ImportedAt
	p.CreatedAt = h.now()
	return p, nil
}

// checkParent enforces the parent rules that need the parent record. A new
// PoI has no children yet, so attaching it can never close a cycle; the
// index still verifies that on insert.
func checkParent(child, parent *entities.PoI) error {
	if !parent.Variant().Structured() {
		return pkgerrors.NewInvalidStateError("a parent must be a thought or question").
			WithDetail("parent", parent.ID().String())
	}
	if parent.ProjectID() != child.ProjectID() {
		return pkgerrors.NewInvalidStateError("parent belongs to a different project").
			WithDetail("parent", parent.ID().String())
	}
	if parent.IsScratched() {
		return pkgerrors.NewInvalidStateError("parent is scratched").
			WithDetail("parent", parent.ID().String())
	}
	return nil
}
