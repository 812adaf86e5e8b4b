package planner

import (
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaku/domain/core/entities"
	"kaku/domain/core/valueobjects"
	"kaku/domain/index"
)

func fixedID(t *testing.T, n int) valueobjects.PoIID {
	id, err := valueobjects.ParsePoIID("00000000-0000-4000-8000-00000000000" + string(rune('0'+n)))
	require.NoError(t, err)
	return id
}

func tags(t *testing.T, raw ...string) []valueobjects.Tag {
	out, err := valueobjects.NewTags(raw)
	require.NoError(t, err)
	return out
}

func paths(t *testing.T, raw ...string) []valueobjects.CategoryPath {
	out, err := valueobjects.NewCategoryPaths(raw)
	require.NoError(t, err)
	return out
}

func path(t *testing.T, raw string) valueobjects.CategoryPath {
	p, err := valueobjects.NewCategoryPath(raw)
	require.NoError(t, err)
	return p
}

// fixture builds a five-document project:
//
//	d1 atoms and void     physics          science.physics
//	d2 quantum fields     physics, quantum science.physics.quantum  -> d1
//	d3 cells divide       biology          science.biology
//	d4 painting                            art
//	d5 old draft          physics          science.physics          scratched
func fixture(t *testing.T) *index.ProjectIndex {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	docs := []index.Document{
		{ID: fixedID(t, 1), Variant: entities.VariantThought, Content: "atoms and void", Tags: tags(t, "physics"), Categories: paths(t, "science.physics")},
		{ID: fixedID(t, 2), Variant: entities.VariantQuestion, Content: "quantum fields", Tags: tags(t, "physics", "quantum"), Categories: paths(t, "science.physics.quantum"), Links: []valueobjects.PoIID{fixedID(t, 1)}},
		{ID: fixedID(t, 3), Variant: entities.VariantThought, Content: "cells divide", Tags: tags(t, "biology"), Categories: paths(t, "science.biology")},
		{ID: fixedID(t, 4), Variant: entities.VariantThought, Content: "painting", Categories: paths(t, "art")},
		{ID: fixedID(t, 5), Variant: entities.VariantThought, Content: "old draft", Tags: tags(t, "physics"), Categories: paths(t, "science.physics"), Scratched: true},
	}
	for i := range docs {
		docs[i].CreatedAt = base.Add(time.Duration(i) * time.Minute)
	}
	pi := index.NewProjectIndex(valueobjects.NewProjectID())
	require.NoError(t, pi.Load(docs))
	return pi
}

func plan(t *testing.T, pi *index.ProjectIndex, f Filter) (p *Plan, candidates index.Set) {
	require.NoError(t, pi.Read(func(v index.View) error {
		var err error
		if p, err = Build(v, f); err != nil {
			return err
		}
		candidates = p.Candidates()
		return nil
	}))
	return p, candidates
}

func TestExplain_Golden(t *testing.T) {
	pi := fixture(t)
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	tests := []struct {
		name   string
		filter Filter
	}{
		{"exact_filters", Filter{
			Text: "atom", MinSimilarity: 0.3, Tag: tags(t, "physics")[0], Category: path(t, "science"),
			Variation: entities.VariantThought, Limit: 20,
		}},
		{"text_seed", Filter{Text: "atoms", MinSimilarity: 0.5, Limit: 10, Offset: 5}},
		{"all_including_scratched", Filter{IncludeScratched: true, Limit: 20}},
		{"links_and_glob", Filter{LinkedTo: fixedID(t, 1), CategoryGlob: "science.*", Limit: 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := plan(t, pi, tt.filter)
			g.Assert(t, tt.name, []byte(p.Explain()))
		})
	}
}

func TestBuild_OrdersBySelectivity(t *testing.T) {
	pi := fixture(t)

	p, got := plan(t, pi, Filter{Tag: tags(t, "physics")[0], Category: path(t, "science")})

	require.Len(t, p.Steps, 2)
	assert.Equal(t, SourceTag, p.Steps[0].Source)
	assert.Equal(t, SourceCategory, p.Steps[1].Source)
	assert.Equal(t, index.NewSet(fixedID(t, 1), fixedID(t, 2)), got)
}

func TestCandidates(t *testing.T) {
	pi := fixture(t)

	tests := []struct {
		name   string
		filter Filter
		want   []int
	}{
		{"subtree", Filter{Category: path(t, "science.physics")}, []int{1, 2}},
		{"subtree is label-wise", Filter{Category: path(t, "science.phys")}, nil},
		{"glob direct children", Filter{CategoryGlob: "science.*"}, []int{1, 3}},
		{"glob subtree", Filter{CategoryGlob: "science.**"}, []int{1, 2, 3}},
		{"backlinks", Filter{LinkedTo: fixedID(t, 1)}, []int{2}},
		{"forward links", Filter{LinkedFrom: fixedID(t, 2)}, []int{1}},
		{"empty intersection", Filter{Tag: tags(t, "biology")[0], LinkedTo: fixedID(t, 1)}, nil},
		{"unknown tag", Filter{Tag: tags(t, "chemistry")[0]}, nil},
		{"scratched excluded", Filter{Tag: tags(t, "physics")[0]}, []int{1, 2}},
		{"scratched included", Filter{Tag: tags(t, "physics")[0], IncludeScratched: true}, []int{1, 2, 5}},
		{"subtree with scratched", Filter{Category: path(t, "science.physics"), IncludeScratched: true}, []int{1, 2, 5}},
		{"glob with scratched", Filter{CategoryGlob: "science.*", IncludeScratched: true}, []int{1, 3, 5}},
		{"glob subtree with scratched", Filter{CategoryGlob: "science.**", IncludeScratched: true}, []int{1, 2, 3, 5}},
		{"glob never matching with scratched", Filter{CategoryGlob: "art.*", IncludeScratched: true}, nil},
		{"all", Filter{}, []int{1, 2, 3, 4}},
		{"text", Filter{Text: "atoms and void", MinSimilarity: 1}, []int{1}},
		{"short text is substring", Filter{Text: "ng", MinSimilarity: 1}, []int{4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := plan(t, pi, tt.filter)
			want := index.NewSet()
			for _, n := range tt.want {
				want.Add(fixedID(t, n))
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestBuild_InvalidGlob(t *testing.T) {
	pi := fixture(t)
	err := pi.Read(func(v index.View) error {
		_, err := Build(v, Filter{CategoryGlob: "science.[a"})
		return err
	})
	assert.Error(t, err)
}
