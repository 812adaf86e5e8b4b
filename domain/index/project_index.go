package index

import (
	"errors"
	"sort"
	"sync"
	"time"

	"kaku/domain/core/valueobjects"
)

// ErrIndexState marks a mutation the current index state cannot accept.
// The caller treats it as an internal failure: commands validate against the
// store before staging, so a rejected op means store and index disagree.
var ErrIndexState = errors.New("index state rejects mutation")

// ProjectIndex bundles the indices of one project behind one lock. Writers
// apply a whole Mutation inside a single critical section, so readers see
// the state before or after a command and never in between.
type ProjectIndex struct {
	mu        sync.RWMutex
	projectID valueobjects.ProjectID

	docs     map[valueobjects.PoIID]Document
	taxonomy *Taxonomy
	tags     *Tags
	links    *Links
	forest   *Forest
	text     *TextIndex
}

// NewProjectIndex creates empty indices for a project
func NewProjectIndex(projectID valueobjects.ProjectID) *ProjectIndex {
	return &ProjectIndex{
		projectID: projectID,
		docs:      make(map[valueobjects.PoIID]Document),
		taxonomy:  NewTaxonomy(),
		tags:      NewTags(),
		links:     NewLinks(),
		forest:    NewForest(),
		text:      NewTextIndex(),
	}
}

// ProjectID returns the owning project
func (pi *ProjectIndex) ProjectID() valueobjects.ProjectID { return pi.projectID }

// Apply runs every op of m or none of them.
func (pi *ProjectIndex) Apply(m *Mutation) error {
	pi.mu.Lock()
	defer pi.mu.Unlock()

	for i, o := range m.ops {
		if err := o.apply(pi); err != nil {
			for j := i - 1; j >= 0; j-- {
				m.ops[j].undo(pi)
			}
			return err
		}
	}
	return nil
}

// Load fills the index from stored documents without ordering constraints:
// parents and link targets may appear after the documents referring to them.
func (pi *ProjectIndex) Load(docs []Document) error {
	pi.mu.Lock()
	defer pi.mu.Unlock()

	for _, d := range docs {
		d = d.clone()
		pi.docs[d.ID] = d
		if !d.Scratched {
			pi.searchable(d)
		}
	}
	for _, d := range docs {
		if err := pi.forest.Attach(d.ID, d.Parent); err != nil {
			return err
		}
		for _, to := range d.Links {
			pi.links.Link(d.ID, to)
		}
	}
	return nil
}

// Read runs fn against a consistent view of the indices.
func (pi *ProjectIndex) Read(fn func(v View) error) error {
	pi.mu.RLock()
	defer pi.mu.RUnlock()
	return fn(View{pi: pi})
}

func (pi *ProjectIndex) searchable(d Document) {
	for _, t := range d.Tags {
		pi.tags.Add(d.ID, t)
	}
	for _, c := range d.Categories {
		pi.taxonomy.Add(d.ID, c)
	}
	pi.text.Index(d.ID, d.Text())
}

func (pi *ProjectIndex) unsearchable(id valueobjects.PoIID) {
	pi.tags.Remove(id)
	pi.taxonomy.Remove(id)
	pi.text.Remove(id)
}

// Stats summarises index sizes
type Stats struct {
	PoIs       int `json:"pois"`
	Scratched  int `json:"scratched"`
	Tags       int `json:"tags"`
	Categories int `json:"categories"`
	Links      int `json:"links"`
	Trigrams   int `json:"trigrams"`
}

// View is a read-only handle valid inside ProjectIndex.Read.
type View struct {
	pi *ProjectIndex
}

// Contains reports whether id is known, scratched or not
func (v View) Contains(id valueobjects.PoIID) bool {
	_, ok := v.pi.docs[id]
	return ok
}

// Document returns the indexed view of id
func (v View) Document(id valueobjects.PoIID) (Document, bool) {
	d, ok := v.pi.docs[id]
	if !ok {
		return Document{}, false
	}
	return d.clone(), true
}

// All returns every id, optionally including scratched ones
func (v View) All(includeScratched bool) Set {
	out := make(Set, len(v.pi.docs))
	for id, d := range v.pi.docs {
		if includeScratched || !d.Scratched {
			out.Add(id)
		}
	}
	return out
}

// Size returns how many ids All(includeScratched) would return
func (v View) Size(includeScratched bool) int {
	if includeScratched {
		return len(v.pi.docs)
	}
	n := 0
	for _, d := range v.pi.docs {
		if !d.Scratched {
			n++
		}
	}
	return n
}

func (v View) Descendants(path valueobjects.CategoryPath) Set { return v.pi.taxonomy.Descendants(path) }

func (v View) EstimateDescendants(path valueobjects.CategoryPath) int {
	return v.pi.taxonomy.EstimateDescendants(path)
}

func (v View) Glob(pattern string) (Set, error) { return v.pi.taxonomy.Glob(pattern) }

func (v View) Categories(prefix valueobjects.CategoryPath) []CategoryNode {
	return v.pi.taxonomy.Nodes(prefix)
}

func (v View) Tagged(tag valueobjects.Tag) Set     { return v.pi.tags.Lookup(tag) }
func (v View) TagCount(tag valueobjects.Tag) int   { return v.pi.tags.Count(tag) }
func (v View) LinksFrom(id valueobjects.PoIID) Set { return v.pi.links.LinksFrom(id) }
func (v View) LinksTo(id valueobjects.PoIID) Set   { return v.pi.links.LinksTo(id) }
func (v View) OutDegree(id valueobjects.PoIID) int { return v.pi.links.OutDegree(id) }
func (v View) InDegree(id valueobjects.PoIID) int  { return v.pi.links.InDegree(id) }
func (v View) Children(id valueobjects.PoIID) Set  { return v.pi.forest.Children(id) }

func (v View) Ancestors(id valueobjects.PoIID) ([]valueobjects.PoIID, error) {
	return v.pi.forest.Ancestors(id)
}

func (v View) TextSearch(query string, minSimilarity float64) []Hit {
	return v.pi.text.Search(query, minSimilarity)
}

func (v View) EstimateText(query string) int { return v.pi.text.EstimateCandidates(query) }

// CreatedAt returns the creation time of id
func (v View) CreatedAt(id valueobjects.PoIID) time.Time { return v.pi.docs[id].CreatedAt }

// Ordered sorts ids by creation time ascending, ties by id.
func (v View) Ordered(s Set) []valueobjects.PoIID {
	out := s.Sorted()
	sort.SliceStable(out, func(i, j int) bool {
		return v.pi.docs[out[i]].CreatedAt.Before(v.pi.docs[out[j]].CreatedAt)
	})
	return out
}

// Verify checks internal consistency: backlinks mirror links, searchable
// indices hold no scratched ids, every parent edge points at a known id.
func (v View) Verify() error {
	if err := v.pi.links.Verify(); err != nil {
		return err
	}
	for id, d := range v.pi.docs {
		if d.Scratched && (v.pi.text.Has(id) || len(v.pi.taxonomy.PathsOf(id)) > 0) {
			return errors.New("scratched poi " + id.String() + " is still searchable")
		}
		if !d.Parent.IsZero() {
			if _, ok := v.pi.docs[d.Parent]; !ok {
				return errors.New("poi " + id.String() + " has unknown parent")
			}
		}
	}
	return nil
}

// Stats reports index sizes
func (v View) Stats() Stats {
	s := Stats{
		PoIs:     len(v.pi.docs),
		Tags:     v.pi.tags.Distinct(),
		Links:    v.pi.links.Edges(),
		Trigrams: v.pi.text.Trigrams(),
	}
	for _, d := range v.pi.docs {
		if d.Scratched {
			s.Scratched++
		}
	}
	s.Categories = len(v.pi.taxonomy.Nodes(valueobjects.CategoryPath{}))
	return s
}
