package entities

import (
	"time"

	"kaku/domain/core/valueobjects"
	pkgerrors "kaku/pkg/errors"
)

// PoISnapshot is the flat persistence form of a PoI. Repositories store and
// load snapshots; the aggregate itself keeps its fields private.
type PoISnapshot struct {
	ID          string     `json:"id" dynamodbav:"ID"`
	Variant     Variant    `json:"variant" dynamodbav:"Variant"`
	ProjectID   string     `json:"project_id" dynamodbav:"ProjectID"`
	ScribeID    string     `json:"scribe_id" dynamodbav:"ScribeID"`
	Content     string     `json:"content" dynamodbav:"Content"`
	Media       []string   `json:"media,omitempty" dynamodbav:"Media,omitempty"`
	Citations   []string   `json:"citations,omitempty" dynamodbav:"Citations,omitempty"`
	CreatedAt   time.Time  `json:"created_at" dynamodbav:"CreatedAt"`
	ImportedAt  time.Time  `json:"imported_at,omitempty" dynamodbav:"ImportedAt"`
	ParentID    string     `json:"parent_id,omitempty" dynamodbav:"ParentID,omitempty"`
	RefutedBy   string     `json:"refuted_by,omitempty" dynamodbav:"RefutedBy,omitempty"`
	Categories  []string   `json:"categories,omitempty" dynamodbav:"Categories,omitempty"`
	Tags        []string   `json:"tags,omitempty" dynamodbav:"Tags,omitempty"`
	Links       []string   `json:"links,omitempty" dynamodbav:"Links,omitempty"`
	ScratchedAt *time.Time `json:"scratched_at,omitempty" dynamodbav:"ScratchedAt,omitempty"`
	Version     int        `json:"version" dynamodbav:"Version"`
}

// Snapshot flattens the PoI for storage
func (p *PoI) Snapshot() PoISnapshot {
	s := PoISnapshot{
		ID:          p.id.String(),
		Variant:     p.variant,
		ProjectID:   p.projectID.String(),
		ScribeID:    p.scribeID.String(),
		Content:     p.content.String(),
		Media:       p.Media(),
		Citations:   p.Citations(),
		CreatedAt:   p.createdAt,
		ImportedAt:  p.importedAt,
		ParentID:    p.parentID.String(),
		RefutedBy:   p.refutedBy.String(),
		ScratchedAt: p.ScratchedAt(),
		Version:     p.version,
	}
	for _, c := range p.categories {
		s.Categories = append(s.Categories, c.String())
	}
	for _, t := range p.tags {
		s.Tags = append(s.Tags, t.String())
	}
	for _, l := range p.links {
		s.Links = append(s.Links, l.String())
	}
	return s
}

// RestorePoI rebuilds a PoI from storage without raising events. A record
// that no longer parses is reported as an internal error.
func RestorePoI(s PoISnapshot) (*PoI, error) {
	corrupt := func(err error) error {
		return pkgerrors.NewInternalError("corrupt poi record " + s.ID).WithCause(err)
	}

	id, err := valueobjects.ParsePoIID(s.ID)
	if err != nil {
		return nil, corrupt(err)
	}
	variant, err := ParseVariant(string(s.Variant))
	if err != nil {
		return nil, corrupt(err)
	}
	projectID, err := valueobjects.ParseProjectID(s.ProjectID)
	if err != nil {
		return nil, corrupt(err)
	}
	scribeID, err := valueobjects.ParseScribeID(s.ScribeID)
	if err != nil {
		return nil, corrupt(err)
	}
	content, err := valueobjects.NewContent(s.Content)
	if err != nil {
		return nil, corrupt(err)
	}

	p := &PoI{
		id:         id,
		variant:    variant,
		projectID:  projectID,
		scribeID:   scribeID,
		content:    content,
		media:      append([]string(nil), s.Media...),
		citations:  append([]string(nil), s.Citations...),
		createdAt:  utc(s.CreatedAt),
		importedAt: utc(s.ImportedAt),
		version:    s.Version,
	}
	if s.ScratchedAt != nil {
		t := s.ScratchedAt.UTC()
		p.scratchedAt = &t
	}
	if s.ParentID != "" {
		if p.parentID, err = valueobjects.ParsePoIID(s.ParentID); err != nil {
			return nil, corrupt(err)
		}
	}
	if s.RefutedBy != "" {
		if p.refutedBy, err = valueobjects.ParsePoIID(s.RefutedBy); err != nil {
			return nil, corrupt(err)
		}
	}
	for _, raw := range s.Categories {
		c, err := valueobjects.NewCategoryPath(raw)
		if err != nil {
			return nil, corrupt(err)
		}
		p.categories = append(p.categories, c)
	}
	for _, raw := range s.Tags {
		t, err := valueobjects.NewTag(raw)
		if err != nil {
			return nil, corrupt(err)
		}
		p.tags = append(p.tags, t)
	}
	for _, raw := range s.Links {
		l, err := valueobjects.ParsePoIID(raw)
		if err != nil {
			return nil, corrupt(err)
		}
		p.links = append(p.links, l)
	}
	return p, nil
}
