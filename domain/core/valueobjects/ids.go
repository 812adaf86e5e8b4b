package valueobjects

import (
	"encoding/json"

	"github.com/google/uuid"

	pkgerrors "kaku/pkg/errors"
)

// PoIID identifies a Note, Thought or Question. Identifiers are never reused,
// not even after the PoI is scratched.
type PoIID struct {
	value string
}

// NewPoIID creates a new random PoIID
func NewPoIID() PoIID {
	return PoIID{value: uuid.New().String()}
}

// ParsePoIID validates and wraps an existing identifier
func ParsePoIID(s string) (PoIID, error) {
	v, err := parseUUID("poi id", s)
	return PoIID{value: v}, err
}

func (id PoIID) String() string { return id.value }

// IsZero checks if the PoIID is the zero value
func (id PoIID) IsZero() bool { return id.value == "" }

func (id PoIID) MarshalJSON() ([]byte, error) { return json.Marshal(id.value) }

func (id *PoIID) UnmarshalJSON(data []byte) error {
	return unmarshalID(data, "poi id", &id.value)
}

// ProjectID identifies a project
type ProjectID struct {
	value string
}

// NewProjectID creates a new random ProjectID
func NewProjectID() ProjectID {
	return ProjectID{value: uuid.New().String()}
}

// ParseProjectID validates and wraps an existing identifier
func ParseProjectID(s string) (ProjectID, error) {
	v, err := parseUUID("project id", s)
	return ProjectID{value: v}, err
}

func (id ProjectID) String() string { return id.value }

func (id ProjectID) IsZero() bool { return id.value == "" }

func (id ProjectID) MarshalJSON() ([]byte, error) { return json.Marshal(id.value) }

func (id *ProjectID) UnmarshalJSON(data []byte) error {
	return unmarshalID(data, "project id", &id.value)
}

// ScribeID identifies the human author of PoIs
type ScribeID struct {
	value string
}

// NewScribeID creates a new random ScribeID
func NewScribeID() ScribeID {
	return ScribeID{value: uuid.New().String()}
}

// ParseScribeID validates and wraps an existing identifier
func ParseScribeID(s string) (ScribeID, error) {
	v, err := parseUUID("scribe id", s)
	return ScribeID{value: v}, err
}

func (id ScribeID) String() string { return id.value }

func (id ScribeID) IsZero() bool { return id.value == "" }

func (id ScribeID) MarshalJSON() ([]byte, error) { return json.Marshal(id.value) }

func (id *ScribeID) UnmarshalJSON(data []byte) error {
	return unmarshalID(data, "scribe id", &id.value)
}

// UniverseID references the universe that owns a project. Universes are
// managed elsewhere; only the reference is kept here.
type UniverseID struct {
	value string
}

// ParseUniverseID validates and wraps an existing identifier
func ParseUniverseID(s string) (UniverseID, error) {
	v, err := parseUUID("universe id", s)
	return UniverseID{value: v}, err
}

func (id UniverseID) String() string { return id.value }

func (id UniverseID) IsZero() bool { return id.value == "" }

func (id UniverseID) MarshalJSON() ([]byte, error) { return json.Marshal(id.value) }

func (id *UniverseID) UnmarshalJSON(data []byte) error {
	return unmarshalID(data, "universe id", &id.value)
}

// OrganizationID references the organization owning universes and scribes
type OrganizationID struct {
	value string
}

// ParseOrganizationID validates and wraps an existing identifier
func ParseOrganizationID(s string) (OrganizationID, error) {
	v, err := parseUUID("organization id", s)
	return OrganizationID{value: v}, err
}

func (id OrganizationID) String() string { return id.value }

func (id OrganizationID) IsZero() bool { return id.value == "" }

func (id OrganizationID) MarshalJSON() ([]byte, error) { return json.Marshal(id.value) }

func (id *OrganizationID) UnmarshalJSON(data []byte) error {
	return unmarshalID(data, "organization id", &id.value)
}

func parseUUID(kind, s string) (string, error) {
	if s == "" {
		return "", pkgerrors.NewValidationErrorf("%s cannot be empty", kind)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return "", pkgerrors.NewValidationErrorf("%s must be a valid UUID", kind)
	}
	return u.String(), nil
}

func unmarshalID(data []byte, kind string, dst *string) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return pkgerrors.NewValidationErrorf("%s must be a string", kind)
	}
	if s == "" {
		*dst = ""
		return nil
	}
	v, err := parseUUID(kind, s)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
