package handlers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"kaku/application/commands"
	"kaku/application/ports"
	"kaku/domain/core/entities"
	"kaku/domain/core/valueobjects"
	"kaku/domain/events"
	"kaku/domain/index"
	pkgerrors "kaku/pkg/errors"
)

func TestCreateNote(t *testing.T) {
	h := newHarness(t)
	projectID := h.project("Notes")
	scribeID := h.scribe()

	t.Run("persists and indexes", func(t *testing.T) {
		id := h.note(projectID, scribeID, "imported from the archive")

		note := h.get(id)
		assert.Equal(t, entities.VariantNote, note.Variant())
		assert.False(t, note.ImportedAt().IsZero())
		h.view(projectID, func(v index.View) {
			assert.True(t, v.Contains(note.ID()))
		})
	})

	tests := []struct {
		name   string
		mutate func(*commands.CreateNoteCommand)
		check  func(error) bool
	}{
		{"empty content", func(c *commands.CreateNoteCommand) { c.Content = "   " }, pkgerrors.IsValidation},
		{"missing imported_at", func(c *commands.CreateNoteCommand) { c.ImportedAt = time.Time{} }, pkgerrors.IsValidation},
		{"unknown project", func(c *commands.CreateNoteCommand) { c.ProjectID = valueobjects.NewProjectID().String() }, pkgerrors.IsNotFound},
		{"unknown scribe", func(c *commands.CreateNoteCommand) { c.ScribeID = valueobjects.NewScribeID().String() }, pkgerrors.IsNotFound},
		{"malformed id", func(c *commands.CreateNoteCommand) { c.NoteID = "nope" }, pkgerrors.IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := commands.CreateNoteCommand{
				NoteID:     valueobjects.NewPoIID().String(),
				ProjectID:  projectID,
				ScribeID:   scribeID,
				Content:    "text",
				ImportedAt: h.clock,
			}
			tt.mutate(&cmd)

			err := h.send(cmd)

			assert.True(t, tt.check(err), "unexpected error %v", err)
			_, getErr := h.pois.Get(h.ctx, mustPoIIDOrNew(cmd.NoteID))
			assert.True(t, pkgerrors.IsNotFound(getErr))
		})
	}
}

func mustPoIIDOrNew(s string) valueobjects.PoIID {
	if id, err := valueobjects.ParsePoIID(s); err == nil {
		return id
	}
	return valueobjects.NewPoIID()
}

func TestCreateNote_LockedProject(t *testing.T) {
	h := newHarness(t)
	projectID := h.project("Frozen")
	scribeID := h.scribe()
	require.NoError(t, h.send(commands.SetProjectLockCommand{ProjectID: projectID, Locked: true}))

	err := h.send(commands.CreateNoteCommand{
		NoteID:     valueobjects.NewPoIID().String(),
		ProjectID:  projectID,
		ScribeID:   scribeID,
		Content:    "late",
		ImportedAt: h.clock,
	})
	assert.True(t, pkgerrors.IsInvalidState(err))

	require.NoError(t, h.send(commands.SetProjectLockCommand{ProjectID: projectID, Locked: false}))
	h.note(projectID, scribeID, "on time")
}

func TestCreateThought_WithRelations(t *testing.T) {
	// Arrange
	h := newHarness(t)
	projectID := h.project("Physics")
	scribeID := h.scribe()
	rootID := h.thought(projectID, scribeID, "matter is made of atoms")
	otherID := h.thought(projectID, scribeID, "energy is conserved")

	cmd := h.thoughtCmd(projectID, scribeID, "what holds the nucleus together?")
	cmd.Variant = string(entities.VariantQuestion)
	cmd.ParentID = rootID
	cmd.Tags = []string{"Nuclear Force", "open"}
	cmd.Categories = []string{"science.physics.nuclear"}
	cmd.Links = []string{otherID}

	// Act
	err := h.send(cmd)

	// Assert
	require.NoError(t, err)
	q := h.get(cmd.ThoughtID)
	assert.Equal(t, entities.VariantQuestion, q.Variant())
	assert.Equal(t, rootID, q.ParentID().String())

	qID, root, other := q.ID(), mustPoIID(t, rootID), mustPoIID(t, otherID)
	h.view(projectID, func(v index.View) {
		assert.True(t, v.Tagged(mustTag(t, "nuclear-force")).Has(qID))
		assert.True(t, v.Descendants(mustPath(t, "science")).Has(qID))
		assert.True(t, v.Children(root).Has(qID))
		assert.True(t, v.LinksTo(other).Has(qID))
		assert.True(t, v.LinksFrom(qID).Has(other))
	})
}

func TestCreateThought_RejectsBadEndpoints(t *testing.T) {
	h := newHarness(t)
	projectID := h.project("Endpoints")
	otherProjectID := h.project("Elsewhere")
	scribeID := h.scribe()
	noteID := h.note(projectID, scribeID, "a note")
	foreignID := h.thought(otherProjectID, scribeID, "foreign")
	scratchedID := h.thought(projectID, scribeID, "gone")
	require.NoError(t, h.send(commands.ScratchThoughtCommand{ThoughtID: scratchedID}))

	tests := []struct {
		name   string
		mutate func(*commands.CreateThoughtCommand)
		check  func(error) bool
	}{
		{"note parent", func(c *commands.CreateThoughtCommand) { c.ParentID = noteID }, pkgerrors.IsInvalidState},
		{"missing parent", func(c *commands.CreateThoughtCommand) { c.ParentID = valueobjects.NewPoIID().String() }, pkgerrors.IsInvalidState},
		{"foreign parent", func(c *commands.CreateThoughtCommand) { c.ParentID = foreignID }, pkgerrors.IsInvalidState},
		{"scratched parent", func(c *commands.CreateThoughtCommand) { c.ParentID = scratchedID }, pkgerrors.IsInvalidState},
		{"own parent", func(c *commands.CreateThoughtCommand) { c.ParentID = c.ThoughtID }, pkgerrors.IsValidation},
		{"link to note", func(c *commands.CreateThoughtCommand) { c.Links = []string{noteID} }, pkgerrors.IsInvalidState},
		{"link across projects", func(c *commands.CreateThoughtCommand) { c.Links = []string{foreignID} }, pkgerrors.IsInvalidState},
		{"link to self", func(c *commands.CreateThoughtCommand) { c.Links = []string{c.ThoughtID} }, pkgerrors.IsValidation},
		{"bad category", func(c *commands.CreateThoughtCommand) { c.Categories = []string{"a..b"} }, pkgerrors.IsValidation},
		{"note variant", func(c *commands.CreateThoughtCommand) { c.Variant = "note" }, pkgerrors.IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := h.thoughtCmd(projectID, scribeID, "candidate")
			tt.mutate(&cmd)

			err := h.send(cmd)

			assert.True(t, tt.check(err), "unexpected error %v", err)
			_, getErr := h.pois.Get(h.ctx, mustPoIID(t, cmd.ThoughtID))
			assert.True(t, pkgerrors.IsNotFound(getErr))
		})
	}
}

func TestCreateThought_DuplicateID(t *testing.T) {
	h := newHarness(t)
	projectID := h.project("Dup")
	scribeID := h.scribe()
	cmd := h.thoughtCmd(projectID, scribeID, "first")
	require.NoError(t, h.send(cmd))

	err := h.send(cmd)

	assert.True(t, pkgerrors.IsConflict(err))
}

func TestScratch(t *testing.T) {
	// Arrange
	h := newHarness(t)
	projectID := h.project("Scratch")
	scribeID := h.scribe()
	targetCmd := h.thoughtCmd(projectID, scribeID, "ephemeral idea")
	targetCmd.Tags = []string{"temp"}
	targetCmd.Categories = []string{"drafts"}
	require.NoError(t, h.send(targetCmd))
	linkerCmd := h.thoughtCmd(projectID, scribeID, "points at the idea")
	linkerCmd.Links = []string{targetCmd.ThoughtID}
	require.NoError(t, h.send(linkerCmd))
	target, linker := mustPoIID(t, targetCmd.ThoughtID), mustPoIID(t, linkerCmd.ThoughtID)

	// Act
	require.NoError(t, h.send(commands.ScratchThoughtCommand{ThoughtID: targetCmd.ThoughtID}))
	before := len(h.publisher.Published())
	require.NoError(t, h.send(commands.ScratchThoughtCommand{ThoughtID: targetCmd.ThoughtID}))

	// Assert
	assert.True(t, h.get(targetCmd.ThoughtID).IsScratched())
	assert.Len(t, h.publisher.Published(), before, "repeat scratch emits nothing")
	h.view(projectID, func(v index.View) {
		assert.False(t, v.Tagged(mustTag(t, "temp")).Has(target))
		assert.False(t, v.Descendants(mustPath(t, "drafts")).Has(target))
		assert.Empty(t, v.TextSearch("ephemeral idea", 1.0))
		assert.True(t, v.LinksTo(target).Has(linker))
		assert.True(t, v.Contains(target))
	})
}

func TestScratch_VariantAndMissing(t *testing.T) {
	h := newHarness(t)
	projectID := h.project("Variants")
	scribeID := h.scribe()
	noteID := h.note(projectID, scribeID, "a note")
	thoughtID := h.thought(projectID, scribeID, "a thought")

	assert.True(t, pkgerrors.IsNotFound(h.send(commands.ScratchThoughtCommand{ThoughtID: noteID})))
	assert.True(t, pkgerrors.IsNotFound(h.send(commands.ScratchNoteCommand{NoteID: thoughtID})))
	assert.True(t, pkgerrors.IsNotFound(h.send(commands.ScratchNoteCommand{NoteID: valueobjects.NewPoIID().String()})))

	require.NoError(t, h.send(commands.ScratchNoteCommand{NoteID: noteID}))
	assert.True(t, h.get(noteID).IsScratched())
}

func TestRefute(t *testing.T) {
	h := newHarness(t)
	projectID := h.project("Debate")
	otherProjectID := h.project("Other debate")
	scribeID := h.scribe()
	claim := h.thought(projectID, scribeID, "the earth is flat")
	rebuttal := h.thought(projectID, scribeID, "ships vanish hull first")
	noteID := h.note(projectID, scribeID, "a note")
	qCmd := h.thoughtCmd(projectID, scribeID, "is it round?")
	qCmd.Variant = string(entities.VariantQuestion)
	require.NoError(t, h.send(qCmd))
	foreign := h.thought(otherProjectID, scribeID, "foreign")

	tests := []struct {
		name    string
		target  string
		refuter string
		check   func(error) bool
	}{
		{"note target", noteID, rebuttal, pkgerrors.IsInvalidState},
		{"question refuter", claim, qCmd.ThoughtID, pkgerrors.IsInvalidState},
		{"note refuter", claim, noteID, pkgerrors.IsInvalidState},
		{"missing refuter", claim, valueobjects.NewPoIID().String(), pkgerrors.IsInvalidState},
		{"foreign refuter", claim, foreign, pkgerrors.IsInvalidState},
		{"self", claim, claim, pkgerrors.IsValidation},
		{"missing target", valueobjects.NewPoIID().String(), rebuttal, pkgerrors.IsNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.send(commands.RefuteThoughtCommand{TargetID: tt.target, RefuterID: tt.refuter})
			assert.True(t, tt.check(err), "unexpected error %v", err)
		})
	}

	require.NoError(t, h.send(commands.RefuteThoughtCommand{TargetID: qCmd.ThoughtID, RefuterID: rebuttal}))
	assert.Equal(t, rebuttal, h.get(qCmd.ThoughtID).RefutedBy().String())

	require.NoError(t, h.send(commands.RefuteThoughtCommand{TargetID: claim, RefuterID: rebuttal}))
	err := h.send(commands.RefuteThoughtCommand{TargetID: claim, RefuterID: h.thought(projectID, scribeID, "late")})
	assert.True(t, pkgerrors.IsConflict(err))
	assert.Equal(t, rebuttal, h.get(claim).RefutedBy().String())
}

func TestRefute_ConcurrentRefutersHaveOneWinner(t *testing.T) {
	h := newHarness(t)
	projectID := h.project("Race")
	scribeID := h.scribe()
	target := h.thought(projectID, scribeID, "contested")

	const n = 8
	refuters := make([]string, n)
	for i := range refuters {
		refuters[i] = h.thought(projectID, scribeID, "rebuttal")
	}

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range refuters {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = h.send(commands.RefuteThoughtCommand{TargetID: target, RefuterID: refuters[i]})
		}(i)
	}
	wg.Wait()

	winner := ""
	for i, err := range errs {
		if err == nil {
			assert.Empty(t, winner, "more than one refuter won")
			winner = refuters[i]
			continue
		}
		assert.True(t, pkgerrors.IsConflict(err), "loser got %v", err)
	}
	require.NotEmpty(t, winner)
	assert.Equal(t, winner, h.get(target).RefutedBy().String())
}

func TestLink(t *testing.T) {
	h := newHarness(t)
	projectID := h.project("Links")
	otherProjectID := h.project("Other links")
	scribeID := h.scribe()
	x := h.thought(projectID, scribeID, "x")
	y := h.thought(projectID, scribeID, "y")
	noteID := h.note(projectID, scribeID, "n")
	foreign := h.thought(otherProjectID, scribeID, "f")

	require.NoError(t, h.send(commands.LinkThoughtCommand{FromID: x, ToID: y}))
	require.NoError(t, h.send(commands.LinkThoughtCommand{FromID: y, ToID: x}), "cycles are allowed")
	version := h.get(x).Version()
	require.NoError(t, h.send(commands.LinkThoughtCommand{FromID: x, ToID: y}))
	assert.Equal(t, version, h.get(x).Version(), "relinking is a no-op")

	xID, yID := mustPoIID(t, x), mustPoIID(t, y)
	h.view(projectID, func(v index.View) {
		assert.True(t, v.LinksFrom(xID).Has(yID))
		assert.True(t, v.LinksTo(yID).Has(xID))
		assert.Equal(t, 1, v.OutDegree(xID))
	})

	assert.True(t, pkgerrors.IsInvalidState(h.send(commands.LinkThoughtCommand{FromID: x, ToID: noteID})))
	assert.True(t, pkgerrors.IsInvalidState(h.send(commands.LinkThoughtCommand{FromID: noteID, ToID: x})))
	assert.True(t, pkgerrors.IsInvalidState(h.send(commands.LinkThoughtCommand{FromID: x, ToID: foreign})))
	assert.True(t, pkgerrors.IsInvalidState(h.send(commands.LinkThoughtCommand{FromID: x, ToID: valueobjects.NewPoIID().String()})))
	assert.True(t, pkgerrors.IsValidation(h.send(commands.LinkThoughtCommand{FromID: x, ToID: x})))
}

func TestTagAndCategorize(t *testing.T) {
	h := newHarness(t)
	projectID := h.project("Taxonomy")
	scribeID := h.scribe()
	id := h.thought(projectID, scribeID, "quantum tunnelling")
	noteID := h.note(projectID, scribeID, "n")

	require.NoError(t, h.send(commands.TagPoICommand{PoIID: id, Tags: []string{"Physics", "physics "}}))
	require.NoError(t, h.send(commands.CategorizePoICommand{PoIID: id, Categories: []string{"a.b.c"}}))

	poiID := mustPoIID(t, id)
	h.view(projectID, func(v index.View) {
		assert.Equal(t, 1, v.TagCount(mustTag(t, "physics")))
		for _, p := range []string{"a", "a.b", "a.b.c"} {
			assert.True(t, v.Descendants(mustPath(t, p)).Has(poiID), p)
		}
		assert.False(t, v.Descendants(mustPath(t, "a.b.d")).Has(poiID))
		hits := v.TextSearch("physics", 1.0)
		require.Len(t, hits, 1, "tags are searchable text")
	})

	assert.True(t, pkgerrors.IsInvalidState(h.send(commands.TagPoICommand{PoIID: noteID, Tags: []string{"x"}})))
	assert.True(t, pkgerrors.IsInvalidState(h.send(commands.CategorizePoICommand{PoIID: noteID, Categories: []string{"x"}})))
}

func TestCreateProject_DuplicateNameInUniverse(t *testing.T) {
	h := newHarness(t)
	universe := valueobjects.NewProjectID().String()
	create := func(name string) error {
		return h.send(commands.CreateProjectCommand{
			ProjectID:  valueobjects.NewProjectID().String(),
			UniverseID: universe,
			Name:       name,
		})
	}

	require.NoError(t, create("Life"))
	assert.True(t, pkgerrors.IsConflict(create("life")))
	require.NoError(t, create("Life 2"))
}

func TestEventsArePublished(t *testing.T) {
	h := newHarness(t)
	projectID := h.project("Events")
	scribeID := h.scribe()
	id := h.thought(projectID, scribeID, "observable")

	var types []string
	for _, e := range h.publisher.Published() {
		types = append(types, e.GetEventType())
		if me, ok := e.(events.ModelEvent); ok && me.ID == id {
			assert.Equal(t, events.KindCreate, me.Kind)
			assert.Equal(t, projectID, me.ProjectID)
		}
	}
	assert.Contains(t, types, "project.created")
	assert.Contains(t, types, "scribe.created")
	assert.Contains(t, types, "thought.created")
}

func TestPublishFailureDoesNotFailCommand(t *testing.T) {
	h := newHarness(t)
	h.publisher.ExpectedCalls = nil
	h.publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("dispatcher down"))

	projectID := h.project("Unplugged")
	scribeID := h.scribe()
	h.thought(projectID, scribeID, "still stored")
}

func TestInsert_IndexFailureCompensatesStore(t *testing.T) {
	// Arrange: the index already holds the id, so applying the insert fails
	// after the store write.
	h := newHarness(t)
	projectID := h.project("Rollback")
	scribeID := h.scribe()
	cmd := h.thoughtCmd(projectID, scribeID, "doomed")
	pid, _ := valueobjects.ParseProjectID(projectID)
	pi, ok := h.registry.Get(pid)
	require.True(t, ok)
	require.NoError(t, pi.Apply(index.NewMutation().Insert(index.Document{ID: mustPoIID(t, cmd.ThoughtID)})))

	// Act
	err := h.send(cmd)

	// Assert
	assert.True(t, pkgerrors.IsInternal(err))
	_, getErr := h.pois.Get(h.ctx, mustPoIID(t, cmd.ThoughtID))
	assert.True(t, pkgerrors.IsNotFound(getErr))
	assert.NotContains(t, eventTypes(h), "thought.created")
}

func TestAmend_IndexFailureRestoresStore(t *testing.T) {
	h := newHarness(t)
	projectID := h.project("Restore")
	scribeID := h.scribe()
	id := h.thought(projectID, scribeID, "stable")
	pid, _ := valueobjects.ParseProjectID(projectID)
	h.registry.Replace(index.NewProjectIndex(pid))

	err := h.send(commands.TagPoICommand{PoIID: id, Tags: []string{"lost"}})

	assert.True(t, pkgerrors.IsInternal(err))
	p := h.get(id)
	assert.Empty(t, p.Tags())
	assert.Equal(t, 1, p.Version())
}

// failingUpdates rejects every Update so store failures can be observed
type failingUpdates struct {
	ports.PoIRepository
}

func (failingUpdates) Update(context.Context, *entities.PoI, int) error {
	return pkgerrors.NewDatabaseError("update", errors.New("disk full"))
}

func TestAmend_StoreFailureLeavesIndexUntouched(t *testing.T) {
	h := newHarnessWith(t, func(r ports.PoIRepository) ports.PoIRepository { return failingUpdates{r} })
	projectID := h.project("Disk")
	scribeID := h.scribe()
	id := h.thought(projectID, scribeID, "stuck")

	err := h.send(commands.TagPoICommand{PoIID: id, Tags: []string{"never"}})

	assert.True(t, pkgerrors.IsInternal(err))
	h.view(projectID, func(v index.View) {
		assert.Zero(t, v.TagCount(mustTag(t, "never")))
	})
}

func TestLifeScenario(t *testing.T) {
	h := newHarness(t)
	projectID := h.project("life")
	scribeID := h.scribe()
	t1 := h.thought(projectID, scribeID, "T1")
	t2Cmd := h.thoughtCmd(projectID, scribeID, "T2")
	t2Cmd.ParentID = t1
	require.NoError(t, h.send(t2Cmd))

	require.NoError(t, h.send(commands.RefuteThoughtCommand{TargetID: t1, RefuterID: t2Cmd.ThoughtID}))

	assert.Equal(t, t2Cmd.ThoughtID, h.get(t1).RefutedBy().String())
	h.view(projectID, func(v index.View) {
		ancestors, err := v.Ancestors(mustPoIID(t, t2Cmd.ThoughtID))
		require.NoError(t, err)
		assert.Equal(t, []valueobjects.PoIID{mustPoIID(t, t1)}, ancestors)
	})
}

func eventTypes(h *harness) []string {
	var out []string
	for _, e := range h.publisher.Published() {
		out = append(out, e.GetEventType())
	}
	return out
}
