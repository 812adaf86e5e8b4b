package ports

import (
	"context"
	"time"

	"kaku/domain/core/entities"
	"kaku/domain/core/valueobjects"
	"kaku/domain/events"
)

// PoIRepository is the durable PoI store. It is the source of truth; the
// in-memory indices are rebuilt from it.
type PoIRepository interface {
	// Create persists a new PoI. Conflict if the id already exists.
	Create(ctx context.Context, poi *entities.PoI) error

	// Get returns a PoI, scratched or not. NotFound if the id never existed.
	Get(ctx context.Context, id valueobjects.PoIID) (*entities.PoI, error)

	// GetMany returns the PoIs that exist among ids, in no particular order
	GetMany(ctx context.Context, ids []valueobjects.PoIID) ([]*entities.PoI, error)

	// Update replaces the stored record if its version still equals
	// expectedVersion. Conflict otherwise.
	Update(ctx context.Context, poi *entities.PoI, expectedVersion int) error

	// SetRefutedBy records the refuter only while none is set and bumps the
	// stored version in the same write, so any Update prepared from an earlier
	// read fails with Conflict. The loser of a race receives Conflict.
	SetRefutedBy(ctx context.Context, id, refuter valueobjects.PoIID) error

	// Delete physically removes a record. Used only to compensate a create
	// whose index update failed.
	Delete(ctx context.Context, id valueobjects.PoIID) error

	// ListByProject returns every PoI of a project, scratched included
	ListByProject(ctx context.Context, projectID valueobjects.ProjectID) ([]*entities.PoI, error)
}

// ProjectRepository persists projects
type ProjectRepository interface {
	// Create persists a project. Conflict if the universe already holds a
	// project with the same slug.
	Create(ctx context.Context, project *entities.Project) error

	// Get returns a project. NotFound if unknown.
	Get(ctx context.Context, id valueobjects.ProjectID) (*entities.Project, error)

	// Update replaces the record if the version matches
	Update(ctx context.Context, project *entities.Project, expectedVersion int) error

	// ListByUniverse returns a universe's projects ordered by name
	ListByUniverse(ctx context.Context, universeID valueobjects.UniverseID) ([]*entities.Project, error)

	// List returns every project
	List(ctx context.Context) ([]*entities.Project, error)
}

// ScribeRepository persists scribes
type ScribeRepository interface {
	Create(ctx context.Context, scribe *entities.Scribe) error
	Get(ctx context.Context, id valueobjects.ScribeID) (*entities.Scribe, error)
}

// EventPublisher hands domain events to the external dispatcher.
// Delivery guarantees belong to the dispatcher.
type EventPublisher interface {
	Publish(ctx context.Context, events ...events.DomainEvent) error
}

// Locker serialises commands touching the same keys. Commands on disjoint
// keys never wait on each other.
type Locker interface {
	// Acquire blocks until every key is held or ctx ends. The returned
	// release function must be called exactly once.
	Acquire(ctx context.Context, keys ...string) (release func(), err error)
}

// Clock returns the current time
type Clock func() time.Time

// SearchSettings supplies search defaults. Values may change at runtime
// when the configuration is reloaded.
type SearchSettings interface {
	DefaultMinSimilarity() float64
	MaxLimit() int
}
