package commands

import (
	"kaku/pkg/utils"
)

// CreateProjectCommand creates a project in a universe
type CreateProjectCommand struct {
	ProjectID  string `json:"project_id" validate:"required,uuid"`
	UniverseID string `json:"universe_id" validate:"required,uuid"`
	Name       string `json:"name" validate:"required,max=200"`
}

func (c CreateProjectCommand) Validate() error { return utils.ValidateStruct(c) }

// SetProjectLockCommand locks or unlocks a project
type SetProjectLockCommand struct {
	ProjectID string `json:"project_id" validate:"required,uuid"`
	Locked    bool   `json:"locked"`
}

func (c SetProjectLockCommand) Validate() error { return utils.ValidateStruct(c) }

// RegisterScribeCommand registers a scribe of an organization
type RegisterScribeCommand struct {
	ScribeID       string `json:"scribe_id" validate:"required,uuid"`
	OrganizationID string `json:"organization_id" validate:"required,uuid"`
	DisplayName    string `json:"display_name" validate:"required,max=200"`
}

func (c RegisterScribeCommand) Validate() error { return utils.ValidateStruct(c) }
