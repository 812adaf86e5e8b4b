package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"kaku/application/commands"
	"kaku/application/commands/bus"
	"kaku/application/queries"
	querybus "kaku/application/queries/bus"
	"kaku/domain/core/entities"
	pkgerrors "kaku/pkg/errors"
)

// PoIHandler serves Notes, Thoughts and Questions and their relations
type PoIHandler struct {
	base
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
}

// NewPoIHandler creates a PoI handler
func NewPoIHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *PoIHandler {
	return &PoIHandler{
		base:       base{errors: errs, logger: logger},
		commandBus: commandBus,
		queryBus:   queryBus,
	}
}

// CreateNoteRequest is the body of POST /projects/{projectID}/notes
type CreateNoteRequest struct {
	ID         string    `json:"id,omitempty" validate:"omitempty,uuid"`
	ScribeID   string    `json:"scribe_id,omitempty" validate:"omitempty,uuid"`
	ImportedAt time.Time `json:"imported_at"`
	Content    string    `json:"content" validate:"required"`
	Media      []string  `json:"media,omitempty"`
	Citations  []string  `json:"citations,omitempty"`
}

// CreateThoughtRequest is the body of the thought and question create
// endpoints
type CreateThoughtRequest struct {
	ID         string     `json:"id,omitempty" validate:"omitempty,uuid"`
	ScribeID   string     `json:"scribe_id,omitempty" validate:"omitempty,uuid"`
	ImportedAt *time.Time `json:"imported_at,omitempty"`
	Content    string     `json:"content" validate:"required"`
	ParentID   string     `json:"parent_id,omitempty" validate:"omitempty,uuid"`
	Tags       []string   `json:"tags,omitempty"`
	Categories []string   `json:"categories,omitempty"`
	Links      []string   `json:"links,omitempty"`
	Media      []string   `json:"media,omitempty"`
	Citations  []string   `json:"citations,omitempty"`
}

// RefuteRequest is the body of POST /thoughts/{thoughtID}/refutation
type RefuteRequest struct {
	RefuterID string `json:"refuter_id" validate:"required,uuid"`
}

// LinkRequest is the body of POST /thoughts/{thoughtID}/links
type LinkRequest struct {
	ToID string `json:"to_id" validate:"required,uuid"`
}

// TagsRequest is the body of POST /thoughts/{thoughtID}/tags
type TagsRequest struct {
	Tags []string `json:"tags" validate:"required,min=1"`
}

// CategoriesRequest is the body of POST /thoughts/{thoughtID}/categories
type CategoriesRequest struct {
	Categories []string `json:"categories" validate:"required,min=1"`
}

// CreateNote handles POST /projects/{projectID}/notes
func (h *PoIHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if err := h.decode(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	cmd := commands.CreateNoteCommand{
		NoteID:     req.ID,
		ProjectID:  chi.URLParam(r, "projectID"),
		ScribeID:   scribeOf(r, req.ScribeID),
		Content:    req.Content,
		ImportedAt: req.ImportedAt,
		Media:      req.Media,
		Citations:  req.Citations,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, CreatedResponse{ID: req.ID})
}

// CreateThought handles POST /projects/{projectID}/thoughts
func (h *PoIHandler) CreateThought(w http.ResponseWriter, r *http.Request) {
	h.createStructured(w, r, entities.VariantThought)
}

// CreateQuestion handles POST /projects/{projectID}/questions
func (h *PoIHandler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	h.createStructured(w, r, entities.VariantQuestion)
}

func (h *PoIHandler) createStructured(w http.ResponseWriter, r *http.Request, variant entities.Variant) {
	var req CreateThoughtRequest
	if err := h.decode(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	cmd := commands.CreateThoughtCommand{
		ThoughtID:  req.ID,
		Variant:    string(variant),
		ProjectID:  chi.URLParam(r, "projectID"),
		ScribeID:   scribeOf(r, req.ScribeID),
		Content:    req.Content,
		ParentID:   req.ParentID,
		Tags:       req.Tags,
		Categories: req.Categories,
		Links:      req.Links,
		Media:      req.Media,
		Citations:  req.Citations,
	}
	if req.ImportedAt != nil {
		cmd.ImportedAt = *req.ImportedAt
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, CreatedResponse{ID: req.ID})
}

// ListNotes handles GET /projects/{projectID}/notes
func (h *PoIHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := querybus.Ask[[]queries.PoIView](r.Context(), h.queryBus, queries.ListNotesQuery{
		ProjectID:        chi.URLParam(r, "projectID"),
		IncludeScratched: r.URL.Query().Get("include_scratched") == "true",
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, items(notes))
}

// GetNote handles GET /notes/{noteID}
func (h *PoIHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	h.get(w, r, chi.URLParam(r, "noteID"), "note")
}

// GetThought handles GET /thoughts/{thoughtID}
func (h *PoIHandler) GetThought(w http.ResponseWriter, r *http.Request) {
	h.get(w, r, chi.URLParam(r, "thoughtID"), "structured")
}

func (h *PoIHandler) get(w http.ResponseWriter, r *http.Request, id, variant string) {
	poi, err := querybus.Ask[*queries.PoIView](r.Context(), h.queryBus, queries.GetPoIQuery{PoIID: id, Variant: variant})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, poi)
}

// DeleteNote handles DELETE /notes/{noteID}. Notes are scratched, never
// removed.
func (h *PoIHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, commands.ScratchNoteCommand{NoteID: chi.URLParam(r, "noteID")})
}

// ScratchThought handles DELETE /thoughts/{thoughtID}
func (h *PoIHandler) ScratchThought(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, commands.ScratchThoughtCommand{ThoughtID: chi.URLParam(r, "thoughtID")})
}

// Refute handles POST /thoughts/{thoughtID}/refutation
func (h *PoIHandler) Refute(w http.ResponseWriter, r *http.Request) {
	var req RefuteRequest
	if err := h.decode(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.send(w, r, commands.RefuteThoughtCommand{TargetID: chi.URLParam(r, "thoughtID"), RefuterID: req.RefuterID})
}

// Link handles POST /thoughts/{thoughtID}/links
func (h *PoIHandler) Link(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if err := h.decode(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.send(w, r, commands.LinkThoughtCommand{FromID: chi.URLParam(r, "thoughtID"), ToID: req.ToID})
}

// Tag handles POST /thoughts/{thoughtID}/tags
func (h *PoIHandler) Tag(w http.ResponseWriter, r *http.Request) {
	var req TagsRequest
	if err := h.decode(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.send(w, r, commands.TagPoICommand{PoIID: chi.URLParam(r, "thoughtID"), Tags: req.Tags})
}

// Categorize handles POST /thoughts/{thoughtID}/categories
func (h *PoIHandler) Categorize(w http.ResponseWriter, r *http.Request) {
	var req CategoriesRequest
	if err := h.decode(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.send(w, r, commands.CategorizePoICommand{PoIID: chi.URLParam(r, "thoughtID"), Categories: req.Categories})
}

// GetLinks handles GET /thoughts/{thoughtID}/links
func (h *PoIHandler) GetLinks(w http.ResponseWriter, r *http.Request) {
	links, err := querybus.Ask[*queries.LinksView](r.Context(), h.queryBus, queries.GetLinksQuery{
		PoIID: chi.URLParam(r, "thoughtID"),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, links)
}

// GetChildren handles GET /thoughts/{thoughtID}/children
func (h *PoIHandler) GetChildren(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, queries.GetChildrenQuery{PoIID: chi.URLParam(r, "thoughtID")})
}

// GetAncestors handles GET /thoughts/{thoughtID}/ancestors
func (h *PoIHandler) GetAncestors(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, queries.GetAncestorsQuery{PoIID: chi.URLParam(r, "thoughtID")})
}

func (h *PoIHandler) list(w http.ResponseWriter, r *http.Request, q querybus.Query) {
	views, err := querybus.Ask[[]queries.PoIView](r.Context(), h.queryBus, q)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, items(views))
}

func (h *PoIHandler) send(w http.ResponseWriter, r *http.Request, cmd bus.Command) {
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
