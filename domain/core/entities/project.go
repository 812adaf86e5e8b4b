package entities

import (
	"strings"
	"time"
	"unicode/utf8"

	"kaku/domain/core/valueobjects"
	"kaku/domain/events"
	pkgerrors "kaku/pkg/errors"
)

// MaxProjectNameLength bounds project names, in runes.
const MaxProjectNameLength = 200

// Project owns a set of PoIs and belongs to a universe. Name and slug are
// unique within the universe.
type Project struct {
	id         valueobjects.ProjectID
	universeID valueobjects.UniverseID
	name       string
	slug       string
	locked     bool
	createdAt  time.Time
	version    int

	events []events.DomainEvent
}

// NewProject validates the name and derives the slug
func NewProject(id valueobjects.ProjectID, universeID valueobjects.UniverseID, name string, now time.Time) (*Project, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("project id is required")
	}
	if universeID.IsZero() {
		return nil, pkgerrors.NewValidationError("universe id is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.NewValidationError("project name cannot be empty")
	}
	if utf8.RuneCountInString(name) > MaxProjectNameLength {
		return nil, pkgerrors.NewValidationErrorf("project name exceeds maximum length of %d characters", MaxProjectNameLength)
	}
	slug, err := valueobjects.Slugify(name)
	if err != nil {
		return nil, err
	}

	p := &Project{
		id:         id,
		universeID: universeID,
		name:       name,
		slug:       slug,
		createdAt:  now.UTC(),
		version:    1,
	}
	p.events = append(p.events, events.NewModelEvent(events.ModelProject, events.ActionCreated,
		id.String(), id.String(), p.createdAt))
	return p, nil
}

func (p *Project) ID() valueobjects.ProjectID          { return p.id }
func (p *Project) UniverseID() valueobjects.UniverseID { return p.universeID }
func (p *Project) Name() string                        { return p.name }
func (p *Project) Slug() string                        { return p.slug }
func (p *Project) IsLocked() bool                      { return p.locked }
func (p *Project) CreatedAt() time.Time                { return p.createdAt }
func (p *Project) Version() int                        { return p.version }

// EnsureWritable rejects new PoIs in a locked project
func (p *Project) EnsureWritable() error {
	if p.locked {
		return pkgerrors.NewInvalidStateError("project " + p.slug + " is locked")
	}
	return nil
}

// Lock freezes the project against new PoIs. Reports false if already locked.
func (p *Project) Lock(at time.Time) bool {
	return p.setLocked(true, events.ActionLocked, at)
}

// Unlock reopens the project. Reports false if it was not locked.
func (p *Project) Unlock(at time.Time) bool {
	return p.setLocked(false, events.ActionUnlocked, at)
}

func (p *Project) setLocked(locked bool, action events.Action, at time.Time) bool {
	if p.locked == locked {
		return false
	}
	p.locked = locked
	p.version++
	p.events = append(p.events, events.NewModelEvent(events.ModelProject, action,
		p.id.String(), p.id.String(), at))
	return true
}

// GetUncommittedEvents returns events raised since the last commit
func (p *Project) GetUncommittedEvents() []events.DomainEvent { return p.events }

// MarkEventsAsCommitted clears the uncommitted events
func (p *Project) MarkEventsAsCommitted() { p.events = nil }

// ProjectSnapshot is the persistence form of a Project
type ProjectSnapshot struct {
	ID         string    `json:"id" dynamodbav:"ID"`
	UniverseID string    `json:"universe_id" dynamodbav:"UniverseID"`
	Name       string    `json:"name" dynamodbav:"Name"`
	Slug       string    `json:"slug" dynamodbav:"Slug"`
	Locked     bool      `json:"locked" dynamodbav:"Locked"`
	CreatedAt  time.Time `json:"created_at" dynamodbav:"CreatedAt"`
	Version    int       `json:"version" dynamodbav:"Version"`
}

// Snapshot flattens the project for storage
func (p *Project) Snapshot() ProjectSnapshot {
	return ProjectSnapshot{
		ID:         p.id.String(),
		UniverseID: p.universeID.String(),
		Name:       p.name,
		Slug:       p.slug,
		Locked:     p.locked,
		CreatedAt:  p.createdAt,
		Version:    p.version,
	}
}

// RestoreProject rebuilds a project from storage
func RestoreProject(s ProjectSnapshot) (*Project, error) {
	id, err := valueobjects.ParseProjectID(s.ID)
	if err != nil {
		return nil, pkgerrors.NewInternalError("corrupt project record").WithCause(err)
	}
	universeID, err := valueobjects.ParseUniverseID(s.UniverseID)
	if err != nil {
		return nil, pkgerrors.NewInternalError("corrupt project record " + s.ID).WithCause(err)
	}
	return &Project{
		id:         id,
		universeID: universeID,
		name:       s.Name,
		slug:       s.Slug,
		locked:     s.Locked,
		createdAt:  s.CreatedAt.UTC(),
		version:    s.Version,
	}, nil
}
