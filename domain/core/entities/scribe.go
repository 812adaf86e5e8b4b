package entities

import (
	"strings"
	"time"

	"kaku/domain/core/valueobjects"
	pkgerrors "kaku/pkg/errors"
)

// Scribe is the human actor writing PoIs. Scribes belong to an organization.
type Scribe struct {
	id             valueobjects.ScribeID
	organizationID valueobjects.OrganizationID
	displayName    string
	createdAt      time.Time
}

// NewScribe validates and creates a scribe
func NewScribe(id valueobjects.ScribeID, org valueobjects.OrganizationID, displayName string, now time.Time) (*Scribe, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("scribe id is required")
	}
	if org.IsZero() {
		return nil, pkgerrors.NewValidationError("organization id is required")
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, pkgerrors.NewValidationError("display name cannot be empty")
	}
	return &Scribe{id: id, organizationID: org, displayName: displayName, createdAt: now.UTC()}, nil
}

func (s *Scribe) ID() valueobjects.ScribeID                   { return s.id }
func (s *Scribe) OrganizationID() valueobjects.OrganizationID { return s.organizationID }
func (s *Scribe) DisplayName() string                         { return s.displayName }
func (s *Scribe) CreatedAt() time.Time                        { return s.createdAt }

// ScribeSnapshot is the persistence form of a Scribe
type ScribeSnapshot struct {
	ID             string    `json:"id" dynamodbav:"ID"`
	OrganizationID string    `json:"organization_id" dynamodbav:"OrganizationID"`
	DisplayName    string    `json:"display_name" dynamodbav:"DisplayName"`
	CreatedAt      time.Time `json:"created_at" dynamodbav:"CreatedAt"`
}

// Snapshot flattens the scribe for storage
func (s *Scribe) Snapshot() ScribeSnapshot {
	return ScribeSnapshot{
		ID:             s.id.String(),
		OrganizationID: s.organizationID.String(),
		DisplayName:    s.displayName,
		CreatedAt:      s.createdAt,
	}
}

// RestoreScribe rebuilds a scribe from storage
func RestoreScribe(s ScribeSnapshot) (*Scribe, error) {
	id, err := valueobjects.ParseScribeID(s.ID)
	if err != nil {
		return nil, pkgerrors.NewInternalError("corrupt scribe record").WithCause(err)
	}
	org, err := valueobjects.ParseOrganizationID(s.OrganizationID)
	if err != nil {
		return nil, pkgerrors.NewInternalError("corrupt scribe record " + s.ID).WithCause(err)
	}
	return &Scribe{id: id, organizationID: org, displayName: s.DisplayName, createdAt: s.CreatedAt.UTC()}, nil
}
