package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kaku/application/commands"
	"kaku/application/commands/bus"
	"kaku/application/ports"
	"kaku/application/ports/mocks"
	"kaku/application/services"
	"kaku/domain/core/entities"
	"kaku/domain/core/valueobjects"
	"kaku/domain/index"
	"kaku/infrastructure/concurrency"
	"kaku/infrastructure/persistence/memory"
)

// harness wires the real in-memory adapters behind a command bus. The clock
// advances one millisecond per call so creation order is deterministic.
type harness struct {
	t         *testing.T
	ctx       context.Context
	pois      *memory.PoIRepository
	projects  *memory.ProjectRepository
	scribes   *memory.ScribeRepository
	registry  *index.Registry
	publisher *mocks.MockEventPublisher
	graph     *services.GraphService
	handlers  *Set
	bus       *bus.CommandBus
	clock     time.Time
}

func newHarness(t *testing.T) *harness {
	return newHarnessWith(t, nil)
}

// newHarnessWith lets a test substitute the PoI store seen by the graph
// service and the handlers.
func newHarnessWith(t *testing.T, wrap func(ports.PoIRepository) ports.PoIRepository) *harness {
	h := &harness{
		t:         t,
		ctx:       context.Background(),
		pois:      memory.NewPoIRepository(),
		projects:  memory.NewProjectRepository(),
		scribes:   memory.NewScribeRepository(),
		registry:  index.NewRegistry(),
		publisher: new(mocks.MockEventPublisher),
		clock:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	h.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()

	var pois ports.PoIRepository = h.pois
	if wrap != nil {
		pois = wrap(pois)
	}

	logger := zap.NewNop()
	now := ports.Clock(h.now)
	h.graph = services.NewGraphService(pois, h.projects, h.registry, concurrency.NewKeyedLocker(), h.publisher, logger)
	h.handlers = &Set{
		CreateNote:     NewCreateNoteHandler(h.graph, h.projects, h.scribes, now, logger),
		CreateThought:  NewCreateThoughtHandler(h.graph, pois, h.projects, h.scribes, now, logger),
		Scratch:        NewScratchHandler(h.graph, pois, now, logger),
		Refute:         NewRefuteThoughtHandler(h.graph, pois, now, logger),
		Link:           NewLinkThoughtHandler(h.graph, pois, now, logger),
		Tag:            NewTagPoIHandler(h.graph, pois, now, logger),
		Categorize:     NewCategorizePoIHandler(h.graph, pois, now, logger),
		CreateProject:  NewCreateProjectHandler(h.graph, h.projects, now, logger),
		SetProjectLock: NewSetProjectLockHandler(h.graph, h.projects, now, logger),
		RegisterScribe: NewRegisterScribeHandler(h.graph, h.scribes, now, logger),
	}
	h.bus = bus.NewCommandBus()
	require.NoError(t, h.handlers.Register(h.bus))
	return h
}

func (h *harness) now() time.Time {
	h.clock = h.clock.Add(time.Millisecond)
	return h.clock
}

func (h *harness) send(cmd bus.Command) error {
	return h.bus.Send(h.ctx, cmd)
}

func (h *harness) project(name string) string {
	id := valueobjects.NewProjectID().String()
	require.NoError(h.t, h.send(commands.CreateProjectCommand{
		ProjectID:  id,
		UniverseID: valueobjects.NewProjectID().String(),
		Name:       name,
	}))
	return id
}

func (h *harness) scribe() string {
	id := valueobjects.NewScribeID().String()
	require.NoError(h.t, h.send(commands.RegisterScribeCommand{
		ScribeID:       id,
		OrganizationID: valueobjects.NewProjectID().String(),
		DisplayName:    "Ada",
	}))
	return id
}

func (h *harness) thoughtCmd(projectID, scribeID, content string) commands.CreateThoughtCommand {
	return commands.CreateThoughtCommand{
		ThoughtID: valueobjects.NewPoIID().String(),
		Variant:   string(entities.VariantThought),
		ProjectID: projectID,
		ScribeID:  scribeID,
		Content:   content,
	}
}

func (h *harness) thought(projectID, scribeID, content string) string {
	cmd := h.thoughtCmd(projectID, scribeID, content)
	require.NoError(h.t, h.send(cmd))
	return cmd.ThoughtID
}

func (h *harness) note(projectID, scribeID, content string) string {
	id := valueobjects.NewPoIID().String()
	require.NoError(h.t, h.send(commands.CreateNoteCommand{
		NoteID:     id,
		ProjectID:  projectID,
		ScribeID:   scribeID,
		Content:    content,
		ImportedAt: h.clock,
	}))
	return id
}

func (h *harness) get(id string) *entities.PoI {
	poiID, err := valueobjects.ParsePoIID(id)
	require.NoError(h.t, err)
	p, err := h.pois.Get(h.ctx, poiID)
	require.NoError(h.t, err)
	return p
}

func (h *harness) view(projectID string, fn func(v index.View)) {
	id, err := valueobjects.ParseProjectID(projectID)
	require.NoError(h.t, err)
	pi, ok := h.registry.Get(id)
	require.True(h.t, ok)
	require.NoError(h.t, pi.Read(func(v index.View) error {
		fn(v)
		return nil
	}))
}

func mustPoIID(t *testing.T, s string) valueobjects.PoIID {
	id, err := valueobjects.ParsePoIID(s)
	require.NoError(t, err)
	return id
}

func mustTag(t *testing.T, s string) valueobjects.Tag {
	tag, err := valueobjects.NewTag(s)
	require.NoError(t, err)
	return tag
}

func mustPath(t *testing.T, s string) valueobjects.CategoryPath {
	p, err := valueobjects.NewCategoryPath(s)
	require.NoError(t, err)
	return p
}
