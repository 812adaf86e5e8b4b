// Package planner decides how a search is evaluated against a project's
// indices. Exact filters run first, cheapest first, and are intersected;
// text similarity is a ranking applied by the caller once records are
// fetched.
package planner

import (
	"fmt"
	"sort"
	"strings"

	"kaku/domain/core/entities"
	"kaku/domain/core/valueobjects"
	"kaku/domain/index"
)

// Source names an index a step reads
type Source string

const (
	SourceTag          Source = "tag"
	SourceCategory     Source = "category"
	SourceCategoryGlob Source = "category_glob"
	SourceLinkedTo     Source = "linked_to"
	SourceLinkedFrom   Source = "linked_from"
	SourceText         Source = "text"
	SourceAll          Source = "all"
)

// Filter is a composed search over one project. Zero fields are unset.
type Filter struct {
	Text             string
	MinSimilarity    float64
	Category         valueobjects.CategoryPath
	CategoryGlob     string
	Tag              valueobjects.Tag
	LinkedTo         valueobjects.PoIID
	LinkedFrom       valueobjects.PoIID
	Variation        entities.Variant
	IncludeScratched bool
	Limit            int
	Offset           int
}

// HasText reports whether results are ranked by similarity
func (f Filter) HasText() bool { return strings.TrimSpace(f.Text) != "" }

// Step is one candidate source with its estimated cardinality
type Step struct {
	Source   Source
	Arg      string
	Estimate int

	eval func() index.Set
}

// Plan is the evaluation order chosen for a filter
type Plan struct {
	Filter Filter
	// Steps holds the exact filters in evaluation order. When empty, Seed
	// supplies the candidates.
	Steps []Step
	Seed  *Step
}

// Build estimates every exact filter and orders them ascending. v must stay
// valid until Candidates returns, i.e. both run inside one index read.
func Build(v index.View, f Filter) (*Plan, error) {
	p := &Plan{Filter: f}
	scratched := f.IncludeScratched

	if !f.Tag.IsZero() {
		tag := f.Tag
		p.Steps = append(p.Steps, Step{
			Source:   SourceTag,
			Arg:      tag.String(),
			Estimate: v.TagCount(tag),
			eval: func() index.Set {
				return withScratched(v, v.Tagged(tag), scratched, func(d index.Document) bool {
					for _, t := range d.Tags {
						if t == tag {
							return true
						}
					}
					return false
				})
			},
		})
	}
	if !f.Category.IsZero() {
		path := f.Category
		p.Steps = append(p.Steps, Step{
			Source:   SourceCategory,
			Arg:      path.String(),
			Estimate: v.EstimateDescendants(path),
			eval: func() index.Set {
				return withScratched(v, v.Descendants(path), scratched, func(d index.Document) bool {
					for _, c := range d.Categories {
						if path.Contains(c) {
							return true
						}
					}
					return false
				})
			},
		})
	}
	if f.CategoryGlob != "" {
		pattern := f.CategoryGlob
		matched, err := v.Glob(pattern)
		if err != nil {
			return nil, err
		}
		p.Steps = append(p.Steps, Step{
			Source:   SourceCategoryGlob,
			Arg:      pattern,
			Estimate: matched.Len(),
			eval: func() index.Set {
				return withScratched(v, matched, scratched, func(d index.Document) bool {
					for _, c := range d.Categories {
						if index.GlobMatch(pattern, c) {
							return true
						}
					}
					return false
				})
			},
		})
	}
	if !f.LinkedTo.IsZero() {
		id := f.LinkedTo
		p.Steps = append(p.Steps, Step{
			Source:   SourceLinkedTo,
			Arg:      id.String(),
			Estimate: v.InDegree(id),
			eval:     func() index.Set { return v.LinksTo(id) },
		})
	}
	if !f.LinkedFrom.IsZero() {
		id := f.LinkedFrom
		p.Steps = append(p.Steps, Step{
			Source:   SourceLinkedFrom,
			Arg:      id.String(),
			Estimate: v.OutDegree(id),
			eval:     func() index.Set { return v.LinksFrom(id) },
		})
	}

	sort.SliceStable(p.Steps, func(i, j int) bool { return p.Steps[i].Estimate < p.Steps[j].Estimate })

	if len(p.Steps) == 0 {
		p.Seed = seed(v, f)
	}
	return p, nil
}

func seed(v index.View, f Filter) *Step {
	if f.HasText() {
		text, minSim, scratched := f.Text, f.MinSimilarity, f.IncludeScratched
		return &Step{
			Source:   SourceText,
			Arg:      text,
			Estimate: v.EstimateText(text),
			eval: func() index.Set {
				out := make(index.Set)
				for _, h := range v.TextSearch(text, minSim) {
					out.Add(h.ID)
				}
				return withScratched(v, out, scratched, func(d index.Document) bool {
					s := index.Similarity(text, d.Text())
					return s > 0 && s >= minSim
				})
			},
		}
	}
	scratched := f.IncludeScratched
	return &Step{
		Source:   SourceAll,
		Estimate: v.Size(scratched),
		eval:     func() index.Set { return v.All(scratched) },
	}
}

// withScratched adds the scratched documents matching pred when the caller
// asked for them; the searchable indices never hold scratched ids.
func withScratched(v index.View, s index.Set, include bool, pred func(index.Document) bool) index.Set {
	if !include {
		return s
	}
	out := s.Clone()
	for id := range v.All(true) {
		d, _ := v.Document(id)
		if d.Scratched && pred(d) {
			out.Add(id)
		}
	}
	return out
}

// Candidates evaluates the plan. Exact steps are intersected in order and
// evaluation stops at the first empty intermediate result.
func (p *Plan) Candidates() index.Set {
	if p.Seed != nil {
		return p.Seed.eval()
	}
	var acc index.Set
	for i, s := range p.Steps {
		if s.Estimate == 0 && !p.Filter.IncludeScratched {
			return make(index.Set)
		}
		set := s.eval()
		if i == 0 {
			acc = set.Clone()
		} else {
			acc = acc.Intersect(set)
		}
		if acc.Len() == 0 {
			return acc
		}
	}
	return acc
}

// Explain renders the plan, one line per stage
func (p *Plan) Explain() string {
	var b strings.Builder
	f := p.Filter
	n := 1
	line := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, "%d. "+format+"\n", append([]interface{}{n}, args...)...)
		n++
	}

	if p.Seed != nil {
		if p.Seed.Source == SourceText {
			line("seed text %q min=%.2f (est %d)", p.Seed.Arg, f.MinSimilarity, p.Seed.Estimate)
		} else {
			line("seed all (est %d)", p.Seed.Estimate)
		}
	}
	for i, s := range p.Steps {
		verb := "intersect"
		if i == 0 {
			verb = "seed"
		}
		line("%s %s %q (est %d)", verb, s.Source, s.Arg, s.Estimate)
	}
	line("fetch records")

	var post []string
	if f.Variation != "" {
		post = append(post, "variation="+string(f.Variation))
	}
	if f.IncludeScratched {
		post = append(post, "include scratched")
	} else {
		post = append(post, "exclude scratched")
	}
	line("filter %s", strings.Join(post, ", "))

	if f.HasText() {
		if p.Seed == nil || p.Seed.Source != SourceText {
			line("score text %q min=%.2f", f.Text, f.MinSimilarity)
		}
		line("order by score desc, created desc, id")
	} else {
		line("order by created desc, id")
	}
	line("page offset=%d limit=%d", f.Offset, f.Limit)
	return b.String()
}
