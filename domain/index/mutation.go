package index

import (
	"fmt"

	"kaku/domain/core/valueobjects"
)

// op is one staged index change. apply must leave the indices untouched when
// it returns an error, and undo must exactly reverse a successful apply.
type op interface {
	apply(pi *ProjectIndex) error
	undo(pi *ProjectIndex)
	String() string
}

// Mutation stages the index changes of one command so they can be applied as
// a unit.
type Mutation struct {
	ops []op
}

// NewMutation starts an empty mutation
func NewMutation() *Mutation { return &Mutation{} }

// Empty reports whether nothing was staged
func (m *Mutation) Empty() bool { return len(m.ops) == 0 }

// Insert stages a new PoI with all its relations.
func (m *Mutation) Insert(doc Document) *Mutation {
	m.ops = append(m.ops, &insertOp{doc: doc.clone()})
	return m
}

// Scratch stages the removal of id from the tag, taxonomy and text indices.
// Links and the parent edge stay so traversals keep resolving.
func (m *Mutation) Scratch(id valueobjects.PoIID) *Mutation {
	m.ops = append(m.ops, &scratchOp{id: id})
	return m
}

// Tag stages added tags
func (m *Mutation) Tag(id valueobjects.PoIID, tags ...valueobjects.Tag) *Mutation {
	m.ops = append(m.ops, &tagOp{id: id, tags: tags})
	return m
}

// Categorize stages added category paths
func (m *Mutation) Categorize(id valueobjects.PoIID, paths ...valueobjects.CategoryPath) *Mutation {
	m.ops = append(m.ops, &categorizeOp{id: id, paths: paths})
	return m
}

// Link stages from -> to
func (m *Mutation) Link(from, to valueobjects.PoIID) *Mutation {
	m.ops = append(m.ops, &linkOp{from: from, to: to})
	return m
}

// Describe lists the staged ops, for logs
func (m *Mutation) Describe() []string {
	out := make([]string, len(m.ops))
	for i, o := range m.ops {
		out[i] = o.String()
	}
	return out
}

type insertOp struct {
	doc Document
}

func (o *insertOp) String() string { return "insert " + o.doc.ID.String() }

func (o *insertOp) apply(pi *ProjectIndex) error {
	d := o.doc
	if _, ok := pi.docs[d.ID]; ok {
		return fmt.Errorf("%w: %s already indexed", ErrIndexState, d.ID)
	}
	if !d.Parent.IsZero() {
		if _, ok := pi.docs[d.Parent]; !ok {
			return fmt.Errorf("%w: parent %s not indexed", ErrIndexState, d.Parent)
		}
		if err := pi.forest.CanAttach(d.ID, d.Parent); err != nil {
			return fmt.Errorf("%w: %v", ErrIndexState, err)
		}
	}
	for _, to := range d.Links {
		if _, ok := pi.docs[to]; !ok {
			return fmt.Errorf("%w: link target %s not indexed", ErrIndexState, to)
		}
	}

	pi.docs[d.ID] = d
	_ = pi.forest.Attach(d.ID, d.Parent)
	for _, to := range d.Links {
		pi.links.Link(d.ID, to)
	}
	if !d.Scratched {
		pi.searchable(d)
	}
	return nil
}

func (o *insertOp) undo(pi *ProjectIndex) {
	d := o.doc
	pi.unsearchable(d.ID)
	for _, to := range d.Links {
		pi.links.Unlink(d.ID, to)
	}
	pi.forest.Detach(d.ID)
	delete(pi.docs, d.ID)
}

type scratchOp struct {
	id   valueobjects.PoIID
	done bool
}

func (o *scratchOp) String() string { return "scratch " + o.id.String() }

func (o *scratchOp) apply(pi *ProjectIndex) error {
	d, ok := pi.docs[o.id]
	if !ok {
		return fmt.Errorf("%w: %s not indexed", ErrIndexState, o.id)
	}
	if d.Scratched {
		return nil
	}
	d.Scratched = true
	pi.docs[o.id] = d
	pi.unsearchable(o.id)
	o.done = true
	return nil
}

func (o *scratchOp) undo(pi *ProjectIndex) {
	if !o.done {
		return
	}
	d := pi.docs[o.id]
	d.Scratched = false
	pi.docs[o.id] = d
	pi.searchable(d)
}

type tagOp struct {
	id    valueobjects.PoIID
	tags  []valueobjects.Tag
	added []valueobjects.Tag
}

func (o *tagOp) String() string { return fmt.Sprintf("tag %s %v", o.id, o.tags) }

func (o *tagOp) apply(pi *ProjectIndex) error {
	d, ok := pi.docs[o.id]
	if !ok || d.Scratched {
		return fmt.Errorf("%w: %s not taggable", ErrIndexState, o.id)
	}
	o.added = nil
	for _, t := range o.tags {
		if pi.tags.Add(o.id, t) {
			o.added = append(o.added, t)
		}
	}
	d.Tags = append(append([]valueobjects.Tag(nil), d.Tags...), o.added...)
	pi.docs[o.id] = d
	pi.text.Index(o.id, d.Text())
	return nil
}

func (o *tagOp) undo(pi *ProjectIndex) {
	d := pi.docs[o.id]
	for _, t := range o.added {
		pi.tags.RemoveTag(o.id, t)
	}
	d.Tags = d.Tags[:len(d.Tags)-len(o.added)]
	pi.docs[o.id] = d
	pi.text.Index(o.id, d.Text())
}

type categorizeOp struct {
	id    valueobjects.PoIID
	paths []valueobjects.CategoryPath
	added []valueobjects.CategoryPath
}

func (o *categorizeOp) String() string { return fmt.Sprintf("categorize %s %v", o.id, o.paths) }

func (o *categorizeOp) apply(pi *ProjectIndex) error {
	d, ok := pi.docs[o.id]
	if !ok || d.Scratched {
		return fmt.Errorf("%w: %s not categorizable", ErrIndexState, o.id)
	}
	o.added = nil
	for _, p := range o.paths {
		if pi.taxonomy.Add(o.id, p) {
			o.added = append(o.added, p)
		}
	}
	d.Categories = append(append([]valueobjects.CategoryPath(nil), d.Categories...), o.added...)
	pi.docs[o.id] = d
	return nil
}

func (o *categorizeOp) undo(pi *ProjectIndex) {
	d := pi.docs[o.id]
	for _, p := range o.added {
		pi.taxonomy.RemovePath(o.id, p)
	}
	d.Categories = d.Categories[:len(d.Categories)-len(o.added)]
	pi.docs[o.id] = d
}

type linkOp struct {
	from, to valueobjects.PoIID
	added    bool
}

func (o *linkOp) String() string { return fmt.Sprintf("link %s -> %s", o.from, o.to) }

func (o *linkOp) apply(pi *ProjectIndex) error {
	from, ok := pi.docs[o.from]
	if !ok {
		return fmt.Errorf("%w: link source %s not indexed", ErrIndexState, o.from)
	}
	if _, ok := pi.docs[o.to]; !ok {
		return fmt.Errorf("%w: link target %s not indexed", ErrIndexState, o.to)
	}
	o.added = pi.links.Link(o.from, o.to)
	if o.added {
		from.Links = append(append([]valueobjects.PoIID(nil), from.Links...), o.to)
		pi.docs[o.from] = from
	}
	return nil
}

func (o *linkOp) undo(pi *ProjectIndex) {
	if !o.added {
		return
	}
	pi.links.Unlink(o.from, o.to)
	d := pi.docs[o.from]
	d.Links = d.Links[:len(d.Links)-1]
	pi.docs[o.from] = d
}
