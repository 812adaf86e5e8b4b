package index

import (
	"fmt"

	"kaku/domain/core/valueobjects"
)

// Links is the directed cross-reference graph. Cycles are allowed. The
// forward and backward maps always mirror each other.
type Links struct {
	forward  map[valueobjects.PoIID]Set
	backward map[valueobjects.PoIID]Set
	edges    int
}

// NewLinks creates an empty link graph
func NewLinks() *Links {
	return &Links{forward: make(map[valueobjects.PoIID]Set), backward: make(map[valueobjects.PoIID]Set)}
}

// Link adds from -> to and reports whether the edge is new.
func (l *Links) Link(from, to valueobjects.PoIID) bool {
	out, ok := l.forward[from]
	if !ok {
		out = make(Set)
		l.forward[from] = out
	}
	if out.Has(to) {
		return false
	}
	in, ok := l.backward[to]
	if !ok {
		in = make(Set)
		l.backward[to] = in
	}
	out.Add(to)
	in.Add(from)
	l.edges++
	return true
}

// Unlink removes from -> to
func (l *Links) Unlink(from, to valueobjects.PoIID) {
	out := l.forward[from]
	if !out.Has(to) {
		return
	}
	out.Remove(to)
	if out.Len() == 0 {
		delete(l.forward, from)
	}
	in := l.backward[to]
	in.Remove(from)
	if in.Len() == 0 {
		delete(l.backward, to)
	}
	l.edges--
}

// LinksFrom returns the targets of id's outbound edges
func (l *Links) LinksFrom(id valueobjects.PoIID) Set {
	if s, ok := l.forward[id]; ok {
		return s.Clone()
	}
	return make(Set)
}

// LinksTo returns the ids linking to id, the backlink view
func (l *Links) LinksTo(id valueobjects.PoIID) Set {
	if s, ok := l.backward[id]; ok {
		return s.Clone()
	}
	return make(Set)
}

// OutDegree and InDegree give set sizes without copying.
func (l *Links) OutDegree(id valueobjects.PoIID) int { return l.forward[id].Len() }
func (l *Links) InDegree(id valueobjects.PoIID) int  { return l.backward[id].Len() }

// Edges returns the number of edges
func (l *Links) Edges() int { return l.edges }

// Verify checks that every forward edge has exactly one backward entry and
// vice versa.
func (l *Links) Verify() error {
	n := 0
	for from, out := range l.forward {
		for to := range out {
			if !l.backward[to].Has(from) {
				return fmt.Errorf("edge %s -> %s has no backlink", from, to)
			}
			n++
		}
	}
	m := 0
	for to, in := range l.backward {
		for from := range in {
			if !l.forward[from].Has(to) {
				return fmt.Errorf("backlink %s <- %s has no forward edge", to, from)
			}
			m++
		}
	}
	if n != m || n != l.edges {
		return fmt.Errorf("edge count mismatch: forward=%d backward=%d counted=%d", n, m, l.edges)
	}
	return nil
}
