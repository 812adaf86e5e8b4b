package commands

import (
	"time"

	"kaku/pkg/utils"
)

// CreateNoteCommand imports an unstructured Note into a project
type CreateNoteCommand struct {
	NoteID     string    `json:"note_id" validate:"required,uuid"`
	ProjectID  string    `json:"project_id" validate:"required,uuid"`
	ScribeID   string    `json:"scribe_id" validate:"required,uuid"`
	Content    string    `json:"content" validate:"required"`
	ImportedAt time.Time `json:"imported_at" validate:"required"`
	Media      []string  `json:"media" validate:"max=50,dive,required,max=2048"`
	Citations  []string  `json:"citations" validate:"max=50,dive,required,max=2048"`
}

func (c CreateNoteCommand) Validate() error { return utils.ValidateStruct(c) }

// CreateThoughtCommand creates a Thought or, with Variant "question", a
// Question. Both share every field.
type CreateThoughtCommand struct {
	ThoughtID  string    `json:"thought_id" validate:"required,uuid"`
	Variant    string    `json:"variant" validate:"required,oneof=thought question"`
	ProjectID  string    `json:"project_id" validate:"required,uuid"`
	ScribeID   string    `json:"scribe_id" validate:"required,uuid"`
	Content    string    `json:"content" validate:"required"`
	ImportedAt time.Time `json:"imported_at"`
	ParentID   string    `json:"parent_id" validate:"omitempty,uuid"`
	Tags       []string  `json:"tags" validate:"max=50"`
	Categories []string  `json:"categories" validate:"max=50"`
	Links      []string  `json:"links" validate:"max=100,dive,uuid"`
	Media      []string  `json:"media" validate:"max=50,dive,required,max=2048"`
	Citations  []string  `json:"citations" validate:"max=50,dive,required,max=2048"`
}

func (c CreateThoughtCommand) Validate() error { return utils.ValidateStruct(c) }

// ScratchNoteCommand logically deletes a Note
type ScratchNoteCommand struct {
	NoteID string `json:"note_id" validate:"required,uuid"`
}

func (c ScratchNoteCommand) Validate() error { return utils.ValidateStruct(c) }

// ScratchThoughtCommand logically deletes a Thought or Question
type ScratchThoughtCommand struct {
	ThoughtID string `json:"thought_id" validate:"required,uuid"`
}

func (c ScratchThoughtCommand) Validate() error { return utils.ValidateStruct(c) }

// RefuteThoughtCommand marks TargetID as refuted by the Thought RefuterID
type RefuteThoughtCommand struct {
	TargetID  string `json:"target_id" validate:"required,uuid"`
	RefuterID string `json:"refuter_id" validate:"required,uuid"`
}

func (c RefuteThoughtCommand) Validate() error { return utils.ValidateStruct(c) }

// LinkThoughtCommand adds the directed edge FromID -> ToID
type LinkThoughtCommand struct {
	FromID string `json:"from_id" validate:"required,uuid"`
	ToID   string `json:"to_id" validate:"required,uuid"`
}

func (c LinkThoughtCommand) Validate() error { return utils.ValidateStruct(c) }

// TagPoICommand appends tags to a Thought or Question
type TagPoICommand struct {
	PoIID string   `json:"poi_id" validate:"required,uuid"`
	Tags  []string `json:"tags" validate:"required,min=1,max=50"`
}

func (c TagPoICommand) Validate() error { return utils.ValidateStruct(c) }

// CategorizePoICommand appends category paths to a Thought or Question
type CategorizePoICommand struct {
	PoIID      string   `json:"poi_id" validate:"required,uuid"`
	Categories []string `json:"categories" validate:"required,min=1,max=50"`
}

func (c CategorizePoICommand) Validate() error { return utils.ValidateStruct(c) }
