package handlers

import (
	"context"

	"go.uber.org/zap"

	"kaku/application/commands"
	"kaku/application/ports"
	"kaku/application/services"
	"kaku/domain/core/entities"
	"kaku/domain/core/valueobjects"
	"kaku/domain/events"
)

// CreateProjectHandler creates projects and their empty indices
type CreateProjectHandler struct {
	graph    *services.GraphService
	projects ports.ProjectRepository
	now      ports.Clock
	logger   *zap.Logger
}

// NewCreateProjectHandler creates a new create project handler
func NewCreateProjectHandler(graph *services.GraphService, projects ports.ProjectRepository, now ports.Clock, logger *zap.Logger) *CreateProjectHandler {
	return &CreateProjectHandler{graph: graph, projects: projects, now: now, logger: logger}
}

// Handle executes the create project command. Conflict if the universe
// already has a project with the same slug.
func (h *CreateProjectHandler) Handle(ctx context.Context, cmd commands.CreateProjectCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	projectID, err := valueobjects.ParseProjectID(cmd.ProjectID)
	if err != nil {
		return err
	}
	universeID, err := valueobjects.ParseUniverseID(cmd.UniverseID)
	if err != nil {
		return err
	}

	project, err := entities.NewProject(projectID, universeID, cmd.Name, h.now())
	if err != nil {
		return err
	}
	if err := h.projects.Create(ctx, project); err != nil {
		return err
	}
	if _, err := h.graph.ProjectIndex(ctx, projectID); err != nil {
		return err
	}

	h.graph.Publish(ctx, project.GetUncommittedEvents())
	project.MarkEventsAsCommitted()

	h.logger.Info("Project created",
		zap.String("projectID", projectID.String()),
		zap.String("slug", project.Slug()),
	)
	return nil
}

// SetProjectLockHandler locks and unlocks projects
type SetProjectLockHandler struct {
	graph    *services.GraphService
	projects ports.ProjectRepository
	now      ports.Clock
	logger   *zap.Logger
}

// NewSetProjectLockHandler creates a new project lock handler
func NewSetProjectLockHandler(graph *services.GraphService, projects ports.ProjectRepository, now ports.Clock, logger *zap.Logger) *SetProjectLockHandler {
	return &SetProjectLockHandler{graph: graph, projects: projects, now: now, logger: logger}
}

// Handle executes the lock command. Setting the current state again is a
// no-op.
func (h *SetProjectLockHandler) Handle(ctx context.Context, cmd commands.SetProjectLockCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	projectID, err := valueobjects.ParseProjectID(cmd.ProjectID)
	if err != nil {
		return err
	}

	release, err := h.graph.LockProject(ctx, projectID)
	if err != nil {
		return err
	}
	defer release()

	project, err := h.projects.Get(ctx, projectID)
	if err != nil {
		return err
	}

	version := project.Version()
	var changed bool
	if cmd.Locked {
		changed = project.Lock(h.now())
	} else {
		changed = project.Unlock(h.now())
	}
	if !changed {
		return nil
	}
	if err := h.projects.Update(ctx, project, version); err != nil {
		return err
	}

	h.graph.Publish(ctx, project.GetUncommittedEvents())
	project.MarkEventsAsCommitted()

	h.logger.Info("Project lock changed",
		zap.String("projectID", projectID.String()),
		zap.Bool("locked", cmd.Locked),
	)
	return nil
}

// RegisterScribeHandler registers scribes
type RegisterScribeHandler struct {
	graph   *services.GraphService
	scribes ports.ScribeRepository
	now     ports.Clock
	logger  *zap.Logger
}

// NewRegisterScribeHandler creates a new register scribe handler
func NewRegisterScribeHandler(graph *services.GraphService, scribes ports.ScribeRepository, now ports.Clock, logger *zap.Logger) *RegisterScribeHandler {
	return &RegisterScribeHandler{graph: graph, scribes: scribes, now: now, logger: logger}
}

// Handle executes the register scribe command
func (h *RegisterScribeHandler) Handle(ctx context.Context, cmd commands.RegisterScribeCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	scribeID, err := valueobjects.ParseScribeID(cmd.ScribeID)
	if err != nil {
		return err
	}
	orgID, err := valueobjects.ParseOrganizationID(cmd.OrganizationID)
	if err != nil {
		return err
	}

	scribe, err := entities.NewScribe(scribeID, orgID, cmd.DisplayName, h.now())
	if err != nil {
		return err
	}
	if err := h.scribes.Create(ctx, scribe); err != nil {
		return err
	}

	h.graph.Publish(ctx, []events.DomainEvent{
		events.NewModelEvent(events.ModelScribe, events.ActionCreated, scribeID.String(), "", scribe.CreatedAt()),
	})

	h.logger.Info("Scribe registered", zap.String("scribeID", scribeID.String()))
	return nil
}
