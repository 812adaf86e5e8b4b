package queries

import (
	"kaku/pkg/utils"
)

// GetPoIQuery fetches one PoI, scratched or not
type GetPoIQuery struct {
	PoIID string `json:"poi_id" validate:"required,uuid"`
	// Variant restricts the lookup: "note" or "structured". Empty accepts
	// any variant.
	Variant string `json:"variant" validate:"omitempty,oneof=note structured"`
}

func (q GetPoIQuery) Validate() error { return utils.ValidateStruct(q) }

// ListNotesQuery lists the Notes of a project, oldest first
type ListNotesQuery struct {
	ProjectID        string `json:"project_id" validate:"required,uuid"`
	IncludeScratched bool   `json:"include_scratched"`
}

func (q ListNotesQuery) Validate() error { return utils.ValidateStruct(q) }

// GetLinksQuery returns the outbound links and the backlinks of a PoI
type GetLinksQuery struct {
	PoIID string `json:"poi_id" validate:"required,uuid"`
}

func (q GetLinksQuery) Validate() error { return utils.ValidateStruct(q) }

// GetChildrenQuery lists the direct children of a PoI, oldest first
type GetChildrenQuery struct {
	PoIID string `json:"poi_id" validate:"required,uuid"`
}

func (q GetChildrenQuery) Validate() error { return utils.ValidateStruct(q) }

// GetAncestorsQuery walks from a PoI's parent to its root
type GetAncestorsQuery struct {
	PoIID string `json:"poi_id" validate:"required,uuid"`
}

func (q GetAncestorsQuery) Validate() error { return utils.ValidateStruct(q) }

// CategoryTreeQuery lists the category nodes of a project below Prefix
type CategoryTreeQuery struct {
	ProjectID string `json:"project_id" validate:"required,uuid"`
	Prefix    string `json:"prefix" validate:"max=1024"`
}

func (q CategoryTreeQuery) Validate() error { return utils.ValidateStruct(q) }

// GetProjectQuery fetches one project
type GetProjectQuery struct {
	ProjectID string `json:"project_id" validate:"required,uuid"`
}

func (q GetProjectQuery) Validate() error { return utils.ValidateStruct(q) }

// ListProjectsQuery lists the projects of a universe by name
type ListProjectsQuery struct {
	UniverseID string `json:"universe_id" validate:"required,uuid"`
}

func (q ListProjectsQuery) Validate() error { return utils.ValidateStruct(q) }

// SearchPoIsQuery composes text, category, tag and link filters over one
// project. MinSimilarity and Limit fall back to the configured defaults when
// unset.
type SearchPoIsQuery struct {
	ProjectID        string   `json:"project_id" validate:"required,uuid"`
	Text             string   `json:"q" validate:"max=1000"`
	MinSimilarity    *float64 `json:"min_similarity" validate:"omitempty,min=0,max=1"`
	Category         string   `json:"category" validate:"max=1024"`
	CategoryGlob     string   `json:"category_glob" validate:"max=1024"`
	Tag              string   `json:"tag" validate:"max=64"`
	LinkedTo         string   `json:"linked_to" validate:"omitempty,uuid"`
	LinkedFrom       string   `json:"linked_from" validate:"omitempty,uuid"`
	Variation        string   `json:"variation" validate:"omitempty,oneof=note thought question"`
	IncludeScratched bool     `json:"include_scratched"`
	Limit            int      `json:"limit" validate:"min=0"`
	Offset           int      `json:"offset" validate:"min=0"`
	Explain          bool     `json:"explain"`
}

func (q SearchPoIsQuery) Validate() error { return utils.ValidateStruct(q) }
