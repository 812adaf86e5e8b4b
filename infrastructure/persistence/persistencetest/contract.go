// Package persistencetest holds the behaviour every repository adapter must
// share. Adapter packages run these suites against their own constructors.
package persistencetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaku/application/ports"
	"kaku/domain/core/entities"
	"kaku/domain/core/valueobjects"
	pkgerrors "kaku/pkg/errors"
)

var base = time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)

// Thought builds a valid thought in project, created n minutes after a
// fixed base time.
func Thought(t *testing.T, project valueobjects.ProjectID, n int, opts ...func(*entities.NewPoIParams)) *entities.PoI {
	t.Helper()
	content, err := valueobjects.NewContent("thought body")
	require.NoError(t, err)
	params := entities.NewPoIParams{
		ID:        valueobjects.NewPoIID(),
		Variant:   entities.VariantThought,
		ProjectID: project,
		ScribeID:  valueobjects.NewScribeID(),
		Content:   content,
		Media:     []string{"s3://bucket/a.png"},
		CreatedAt: base.Add(time.Duration(n) * time.Minute),
	}
	for _, o := range opts {
		o(&params)
	}
	p, err := entities.NewPoI(params)
	require.NoError(t, err)
	return p
}

// RunPoIRepository exercises the PoI store contract
func RunPoIRepository(t *testing.T, newRepo func(t *testing.T) ports.PoIRepository) {
	ctx := context.Background()

	t.Run("create get roundtrip", func(t *testing.T) {
		repo := newRepo(t)
		project := valueobjects.NewProjectID()
		tags, _ := valueobjects.NewTags([]string{"alpha", "beta"})
		paths, _ := valueobjects.NewCategoryPaths([]string{"a.b"})
		p := Thought(t, project, 1, func(np *entities.NewPoIParams) {
			np.Tags = tags
			np.Categories = paths
		})

		require.NoError(t, repo.Create(ctx, p))
		got, err := repo.Get(ctx, p.ID())

		require.NoError(t, err)
		assert.Equal(t, p.Snapshot(), got.Snapshot())
	})

	t.Run("duplicate create conflicts", func(t *testing.T) {
		repo := newRepo(t)
		p := Thought(t, valueobjects.NewProjectID(), 1)
		require.NoError(t, repo.Create(ctx, p))
		assert.True(t, pkgerrors.IsConflict(repo.Create(ctx, p)))
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := newRepo(t).Get(ctx, valueobjects.NewPoIID())
		assert.True(t, pkgerrors.IsNotFound(err))
	})

	t.Run("update checks version", func(t *testing.T) {
		repo := newRepo(t)
		p := Thought(t, valueobjects.NewProjectID(), 1)
		require.NoError(t, repo.Create(ctx, p))

		prev := p.Version()
		require.True(t, p.Scratch(base.Add(time.Hour)))
		require.NoError(t, repo.Update(ctx, p, prev))
		assert.True(t, pkgerrors.IsConflict(repo.Update(ctx, p, prev)))

		got, err := repo.Get(ctx, p.ID())
		require.NoError(t, err)
		assert.True(t, got.IsScratched())
		assert.Equal(t, p.Version(), got.Version())
	})

	t.Run("refutation is first writer wins", func(t *testing.T) {
		repo := newRepo(t)
		project := valueobjects.NewProjectID()
		target := Thought(t, project, 1)
		require.NoError(t, repo.Create(ctx, target))

		refuters := make([]valueobjects.PoIID, 6)
		errs := make([]error, len(refuters))
		var wg sync.WaitGroup
		for i := range refuters {
			refuters[i] = valueobjects.NewPoIID()
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = repo.SetRefutedBy(ctx, target.ID(), refuters[i])
			}(i)
		}
		wg.Wait()

		var winner valueobjects.PoIID
		wins := 0
		for i, err := range errs {
			if err == nil {
				wins++
				winner = refuters[i]
				continue
			}
			assert.True(t, pkgerrors.IsConflict(err), "loser got %v", err)
		}
		require.Equal(t, 1, wins)

		got, err := repo.Get(ctx, target.ID())
		require.NoError(t, err)
		assert.Equal(t, winner, got.RefutedBy())
		assert.Equal(t, target.Version()+1, got.Version())

		assert.True(t, pkgerrors.IsNotFound(repo.SetRefutedBy(ctx, valueobjects.NewPoIID(), winner)))
	})

	t.Run("refutation invalidates earlier reads", func(t *testing.T) {
		repo := newRepo(t)
		target := Thought(t, valueobjects.NewProjectID(), 1)
		require.NoError(t, repo.Create(ctx, target))

		// A tagger commits, then another writer reads the tagged record.
		tagger, err := repo.Get(ctx, target.ID())
		require.NoError(t, err)
		tags, _ := valueobjects.NewTags([]string{"late"})
		before := tagger.Version()
		_, err = tagger.Tag(tags, base.Add(time.Minute))
		require.NoError(t, err)
		require.NoError(t, repo.Update(ctx, tagger, before))

		stale, err := repo.Get(ctx, target.ID())
		require.NoError(t, err)

		refuter := valueobjects.NewPoIID()
		require.NoError(t, repo.SetRefutedBy(ctx, target.ID(), refuter))

		// The stale writer must not erase the refutation.
		staleVersion := stale.Version()
		require.True(t, stale.Scratch(base.Add(time.Hour)))
		assert.True(t, pkgerrors.IsConflict(repo.Update(ctx, stale, staleVersion)))

		got, err := repo.Get(ctx, target.ID())
		require.NoError(t, err)
		assert.Equal(t, refuter, got.RefutedBy())
		assert.False(t, got.IsScratched())
		assert.Equal(t, staleVersion+1, got.Version())
	})

	t.Run("list by project orders by creation", func(t *testing.T) {
		repo := newRepo(t)
		project := valueobjects.NewProjectID()
		later := Thought(t, project, 5)
		earlier := Thought(t, project, 2)
		other := Thought(t, valueobjects.NewProjectID(), 1)
		for _, p := range []*entities.PoI{later, earlier, other} {
			require.NoError(t, repo.Create(ctx, p))
		}

		got, err := repo.ListByProject(ctx, project)

		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, earlier.ID(), got[0].ID())
		assert.Equal(t, later.ID(), got[1].ID())
	})

	t.Run("get many skips unknown ids", func(t *testing.T) {
		repo := newRepo(t)
		p := Thought(t, valueobjects.NewProjectID(), 1)
		require.NoError(t, repo.Create(ctx, p))

		got, err := repo.GetMany(ctx, []valueobjects.PoIID{p.ID(), valueobjects.NewPoIID()})

		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, p.ID(), got[0].ID())
	})

	t.Run("delete removes the record", func(t *testing.T) {
		repo := newRepo(t)
		p := Thought(t, valueobjects.NewProjectID(), 1)
		require.NoError(t, repo.Create(ctx, p))
		require.NoError(t, repo.Delete(ctx, p.ID()))

		_, err := repo.Get(ctx, p.ID())
		assert.True(t, pkgerrors.IsNotFound(err))
		list, err := repo.ListByProject(ctx, p.ProjectID())
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

// RunProjectRepository exercises the project store contract
func RunProjectRepository(t *testing.T, newRepo func(t *testing.T) ports.ProjectRepository) {
	ctx := context.Background()
	universe, err := valueobjects.ParseUniverseID(valueobjects.NewProjectID().String())
	require.NoError(t, err)

	t.Run("slug is unique per universe", func(t *testing.T) {
		repo := newRepo(t)
		a, err := entities.NewProject(valueobjects.NewProjectID(), universe, "Life", base)
		require.NoError(t, err)
		b, err := entities.NewProject(valueobjects.NewProjectID(), universe, "LIFE", base)
		require.NoError(t, err)
		otherUniverse, _ := valueobjects.ParseUniverseID(valueobjects.NewProjectID().String())
		c, err := entities.NewProject(valueobjects.NewProjectID(), otherUniverse, "Life", base)
		require.NoError(t, err)

		require.NoError(t, repo.Create(ctx, a))
		assert.True(t, pkgerrors.IsConflict(repo.Create(ctx, b)))
		require.NoError(t, repo.Create(ctx, c))

		list, err := repo.ListByUniverse(ctx, universe)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, a.Snapshot(), list[0].Snapshot())

		all, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("update checks version", func(t *testing.T) {
		repo := newRepo(t)
		p, err := entities.NewProject(valueobjects.NewProjectID(), universe, "Lockable", base)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, p))

		prev := p.Version()
		require.True(t, p.Lock(base))
		require.NoError(t, repo.Update(ctx, p, prev))
		assert.True(t, pkgerrors.IsConflict(repo.Update(ctx, p, prev)))

		got, err := repo.Get(ctx, p.ID())
		require.NoError(t, err)
		assert.True(t, got.IsLocked())
	})

	t.Run("unknown project", func(t *testing.T) {
		_, err := newRepo(t).Get(ctx, valueobjects.NewProjectID())
		assert.True(t, pkgerrors.IsNotFound(err))
	})
}

// RunScribeRepository exercises the scribe store contract
func RunScribeRepository(t *testing.T, newRepo func(t *testing.T) ports.ScribeRepository) {
	ctx := context.Background()
	repo := newRepo(t)
	org, err := valueobjects.ParseOrganizationID(valueobjects.NewProjectID().String())
	require.NoError(t, err)
	s, err := entities.NewScribe(valueobjects.NewScribeID(), org, "Ada", base)
	require.NoError(t, err)

	require.NoError(t, repo.Create(ctx, s))
	assert.True(t, pkgerrors.IsConflict(repo.Create(ctx, s)))

	got, err := repo.Get(ctx, s.ID())
	require.NoError(t, err)
	assert.Equal(t, s.Snapshot(), got.Snapshot())

	_, err = repo.Get(ctx, valueobjects.NewScribeID())
	assert.True(t, pkgerrors.IsNotFound(err))
}
