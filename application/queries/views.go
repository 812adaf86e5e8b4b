package queries

import (
	"time"

	"kaku/domain/core/entities"
	"kaku/domain/index"
)

// PoIView is the read model of a PoI
type PoIView struct {
	ID          string     `json:"id"`
	Variant     string     `json:"variant"`
	ProjectID   string     `json:"project_id"`
	ScribeID    string     `json:"scribe_id"`
	Content     string     `json:"content"`
	Media       []string   `json:"media,omitempty"`
	Citations   []string   `json:"citations,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ImportedAt  *time.Time `json:"imported_at,omitempty"`
	ParentID    string     `json:"parent_id,omitempty"`
	RefutedBy   string     `json:"refuted_by,omitempty"`
	Categories  []string   `json:"categories,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Links       []string   `json:"links,omitempty"`
	Scratched   bool       `json:"scratched"`
	ScratchedAt *time.Time `json:"scratched_at,omitempty"`
	Score       *float64   `json:"score,omitempty"`
}

// NewPoIView maps an entity to its read model
func NewPoIView(p *entities.PoI) PoIView {
	v := PoIView{
		ID:          p.ID().String(),
		Variant:     string(p.Variant()),
		ProjectID:   p.ProjectID().String(),
		ScribeID:    p.ScribeID().String(),
		Content:     p.Content().String(),
		Media:       p.Media(),
		Citations:   p.Citations(),
		CreatedAt:   p.CreatedAt(),
		ParentID:    p.ParentID().String(),
		RefutedBy:   p.RefutedBy().String(),
		Scratched:   p.IsScratched(),
		ScratchedAt: p.ScratchedAt(),
	}
	if t := p.ImportedAt(); !t.IsZero() {
		v.ImportedAt = &t
	}
	for _, c := range p.Categories() {
		v.Categories = append(v.Categories, c.String())
	}
	for _, t := range p.Tags() {
		v.Tags = append(v.Tags, t.String())
	}
	for _, l := range p.Links() {
		v.Links = append(v.Links, l.String())
	}
	return v
}

// LinksView holds both directions of a PoI's links. From are the PoIs it
// points at; To are the PoIs pointing at it.
type LinksView struct {
	ID   string   `json:"id"`
	From []string `json:"from"`
	To   []string `json:"to"`
}

// ProjectView is the read model of a project
type ProjectView struct {
	ID         string    `json:"id"`
	UniverseID string    `json:"universe_id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	Locked     bool      `json:"locked"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewProjectView maps a project to its read model
func NewProjectView(p *entities.Project) ProjectView {
	return ProjectView{
		ID:         p.ID().String(),
		UniverseID: p.UniverseID().String(),
		Name:       p.Name(),
		Slug:       p.Slug(),
		Locked:     p.IsLocked(),
		CreatedAt:  p.CreatedAt(),
	}
}

// CategoryTree lists category nodes with direct and subtree counts
type CategoryTree struct {
	ProjectID string               `json:"project_id"`
	Prefix    string               `json:"prefix,omitempty"`
	Nodes     []index.CategoryNode `json:"nodes"`
}

// SearchResult is one page of a search
type SearchResult struct {
	Items  []PoIView `json:"items"`
	Total  int       `json:"total"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
	Plan   string    `json:"plan,omitempty"`
}
