package services

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kaku/application/ports"
	"kaku/domain/core/entities"
	"kaku/domain/core/valueobjects"
	"kaku/domain/events"
	"kaku/domain/index"
	pkgerrors "kaku/pkg/errors"
)

// GraphService applies PoI changes to the store and the project indices as
// one unit. The store write is the commit point; the staged index mutation
// follows, and if it is rejected the store write is compensated so neither
// side keeps a partial command.
type GraphService struct {
	pois      ports.PoIRepository
	projects  ports.ProjectRepository
	registry  *index.Registry
	locker    ports.Locker
	publisher ports.EventPublisher
	logger    *zap.Logger
}

// NewGraphService creates a graph service
func NewGraphService(
	pois ports.PoIRepository,
	projects ports.ProjectRepository,
	registry *index.Registry,
	locker ports.Locker,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *GraphService {
	return &GraphService{
		pois:      pois,
		projects:  projects,
		registry:  registry,
		locker:    locker,
		publisher: publisher,
		logger:    logger,
	}
}

// Lock serialises commands on the given PoIs
func (s *GraphService) Lock(ctx context.Context, ids ...valueobjects.PoIID) (func(), error) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if !id.IsZero() {
			keys = append(keys, "poi#"+id.String())
		}
	}
	release, err := s.locker.Acquire(ctx, keys...)
	if err != nil {
		return nil, pkgerrors.NewUnavailableError("lock").WithCause(err)
	}
	return release, nil
}

// LockProject serialises commands on a project record
func (s *GraphService) LockProject(ctx context.Context, id valueobjects.ProjectID) (func(), error) {
	release, err := s.locker.Acquire(ctx, "project#"+id.String())
	if err != nil {
		return nil, pkgerrors.NewUnavailableError("lock").WithCause(err)
	}
	return release, nil
}

// ProjectIndex returns the indices of an existing project. NotFound if the
// project is unknown.
func (s *GraphService) ProjectIndex(ctx context.Context, projectID valueobjects.ProjectID) (*index.ProjectIndex, error) {
	if pi, ok := s.registry.Get(projectID); ok {
		return pi, nil
	}
	if _, err := s.projects.Get(ctx, projectID); err != nil {
		return nil, err
	}
	return s.registry.Ensure(projectID), nil
}

// Insert persists a new PoI and indexes it.
func (s *GraphService) Insert(ctx context.Context, poi *entities.PoI) error {
	pi, err := s.ProjectIndex(ctx, poi.ProjectID())
	if err != nil {
		return err
	}

	if err := s.pois.Create(ctx, poi); err != nil {
		return pkgerrors.Wrap(err, "store poi")
	}

	if err := pi.Apply(index.NewMutation().Insert(index.DocumentFor(poi))); err != nil {
		s.logger.Error("Index rejected new poi, compensating store write",
			zap.String("poiID", poi.ID().String()),
			zap.Error(err),
		)
		if cerr := s.pois.Delete(context.WithoutCancel(ctx), poi.ID()); cerr != nil {
			s.logger.Error("Compensating delete failed", zap.String("poiID", poi.ID().String()), zap.Error(cerr))
		}
		return pkgerrors.NewInternalError("index update failed").WithCause(err)
	}

	s.publish(ctx, poi.GetUncommittedEvents())
	poi.MarkEventsAsCommitted()
	return nil
}

// Amend persists next, which must be prev after in-memory changes, and
// applies m to the project indices.
func (s *GraphService) Amend(ctx context.Context, prev, next *entities.PoI, m *index.Mutation) error {
	pi, err := s.ProjectIndex(ctx, next.ProjectID())
	if err != nil {
		return err
	}

	if err := s.pois.Update(ctx, next, prev.Version()); err != nil {
		return pkgerrors.Wrap(err, "store poi")
	}

	if !m.Empty() {
		if err := pi.Apply(m); err != nil {
			s.logger.Error("Index rejected amendment, compensating store write",
				zap.String("poiID", next.ID().String()),
				zap.Strings("ops", m.Describe()),
				zap.Error(err),
			)
			if cerr := s.pois.Update(context.WithoutCancel(ctx), prev, next.Version()); cerr != nil {
				s.logger.Error("Compensating update failed", zap.String("poiID", next.ID().String()), zap.Error(cerr))
			}
			return pkgerrors.NewInternalError("index update failed").WithCause(err)
		}
	}

	s.publish(ctx, next.GetUncommittedEvents())
	next.MarkEventsAsCommitted()
	return nil
}

// Refute records the refutation on target. Refutation is not indexed, so
// the store's conditional write is the whole command.
func (s *GraphService) Refute(ctx context.Context, target *entities.PoI) error {
	if err := s.pois.SetRefutedBy(ctx, target.ID(), target.RefutedBy()); err != nil {
		return pkgerrors.Wrap(err, "refute")
	}
	s.publish(ctx, target.GetUncommittedEvents())
	target.MarkEventsAsCommitted()
	return nil
}

// Publish forwards events outside of a PoI change, e.g. project events.
func (s *GraphService) Publish(ctx context.Context, evts []events.DomainEvent) {
	s.publish(ctx, evts)
}

// publish is fire-and-forget: a dispatcher failure never fails the command.
func (s *GraphService) publish(ctx context.Context, evts []events.DomainEvent) {
	if len(evts) == 0 || s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, evts...); err != nil {
		s.logger.Warn("Failed to publish domain events",
			zap.Int("count", len(evts)),
			zap.String("eventType", evts[0].GetEventType()),
			zap.Error(err),
		)
	}
}

// Rebuild reconstructs every project index from the store. It runs at
// startup, which is why a crash can never leave indices and store apart.
func (s *GraphService) Rebuild(ctx context.Context) error {
	projects, err := s.projects.List(ctx)
	if err != nil {
		return pkgerrors.Wrap(err, "list projects")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, p := range projects {
		projectID := p.ID()
		g.Go(func() error {
			return s.RebuildProject(ctx, projectID)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.logger.Info("Indices rebuilt from store", zap.Int("projects", len(projects)))
	return nil
}

// RebuildProject replaces one project's index with one built from the store
func (s *GraphService) RebuildProject(ctx context.Context, projectID valueobjects.ProjectID) error {
	pois, err := s.pois.ListByProject(ctx, projectID)
	if err != nil {
		return pkgerrors.Wrapf(err, "list pois of project %s", projectID)
	}
	docs := make([]index.Document, 0, len(pois))
	for _, p := range pois {
		docs = append(docs, index.DocumentFor(p))
	}

	pi := index.NewProjectIndex(projectID)
	if err := pi.Load(docs); err != nil {
		if errors.Is(err, index.ErrParentCycle) {
			return pkgerrors.NewInternalError("stored parent relation of project " + projectID.String() + " has a cycle").WithCause(err)
		}
		return pkgerrors.NewInternalError("load project index").WithCause(err)
	}
	s.registry.Replace(pi)
	return nil
}
