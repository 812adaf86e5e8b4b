package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"kaku/application/commands"
	"kaku/application/commands/bus"
	"kaku/application/queries"
	querybus "kaku/application/queries/bus"
	pkgerrors "kaku/pkg/errors"
)

// ProjectHandler serves projects, universes and scribes
type ProjectHandler struct {
	base
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
}

// NewProjectHandler creates a project handler
func NewProjectHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *ProjectHandler {
	return &ProjectHandler{
		base:       base{errors: errs, logger: logger},
		commandBus: commandBus,
		queryBus:   queryBus,
	}
}

// CreateProjectRequest is the body of POST /projects
type CreateProjectRequest struct {
	ID         string `json:"id,omitempty" validate:"omitempty,uuid"`
	UniverseID string `json:"universe_id" validate:"required,uuid"`
	Name       string `json:"name" validate:"required,max=200"`
}

// RegisterScribeRequest is the body of POST /scribes
type RegisterScribeRequest struct {
	ID             string `json:"id,omitempty" validate:"omitempty,uuid"`
	OrganizationID string `json:"organization_id" validate:"required,uuid"`
	DisplayName    string `json:"display_name" validate:"required,max=200"`
}

// CreateProject handles POST /projects
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := h.decode(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	cmd := commands.CreateProjectCommand{ProjectID: req.ID, UniverseID: req.UniverseID, Name: req.Name}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.respondError(w, r, err)
		return
	}

	project, err := querybus.Ask[*queries.ProjectView](r.Context(), h.queryBus, queries.GetProjectQuery{ProjectID: req.ID})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, CreatedResponse{ID: project.ID, Slug: project.Slug})
}

// GetProject handles GET /projects/{projectID}
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	project, err := querybus.Ask[*queries.ProjectView](r.Context(), h.queryBus, queries.GetProjectQuery{
		ProjectID: chi.URLParam(r, "projectID"),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, project)
}

// ListUniverseProjects handles GET /universes/{universeID}/projects
func (h *ProjectHandler) ListUniverseProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := querybus.Ask[[]queries.ProjectView](r.Context(), h.queryBus, queries.ListProjectsQuery{
		UniverseID: chi.URLParam(r, "universeID"),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, items(projects))
}

// LockProject handles POST /projects/{projectID}/lock
func (h *ProjectHandler) LockProject(w http.ResponseWriter, r *http.Request) {
	h.setLock(w, r, true)
}

// UnlockProject handles POST /projects/{projectID}/unlock
func (h *ProjectHandler) UnlockProject(w http.ResponseWriter, r *http.Request) {
	h.setLock(w, r, false)
}

func (h *ProjectHandler) setLock(w http.ResponseWriter, r *http.Request, locked bool) {
	cmd := commands.SetProjectLockCommand{ProjectID: chi.URLParam(r, "projectID"), Locked: locked}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CategoryTree handles GET /projects/{projectID}/categories
func (h *ProjectHandler) CategoryTree(w http.ResponseWriter, r *http.Request) {
	tree, err := querybus.Ask[*queries.CategoryTree](r.Context(), h.queryBus, queries.CategoryTreeQuery{
		ProjectID: chi.URLParam(r, "projectID"),
		Prefix:    r.URL.Query().Get("prefix"),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, tree)
}

// RegisterScribe handles POST /scribes
func (h *ProjectHandler) RegisterScribe(w http.ResponseWriter, r *http.Request) {
	var req RegisterScribeRequest
	if err := h.decode(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	cmd := commands.RegisterScribeCommand{
		ScribeID:       req.ID,
		OrganizationID: req.OrganizationID,
		DisplayName:    req.DisplayName,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, CreatedResponse{ID: req.ID})
}
