package index

import (
	"sort"

	"kaku/domain/core/valueobjects"
)

// Set is an unordered set of PoI identifiers.
type Set map[valueobjects.PoIID]struct{}

// NewSet builds a set from ids
func NewSet(ids ...valueobjects.PoIID) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Set) Add(id valueobjects.PoIID)      { s[id] = struct{}{} }
func (s Set) Remove(id valueobjects.PoIID)   { delete(s, id) }
func (s Set) Len() int                       { return len(s) }
func (s Set) Has(id valueobjects.PoIID) bool { _, ok := s[id]; return ok }

// Clone copies the set
func (s Set) Clone() Set {
	c := make(Set, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// Intersect returns the ids present in both sets. It iterates the smaller one.
func (s Set) Intersect(other Set) Set {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(Set, len(small))
	for id := range small {
		if large.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Sorted returns the ids ordered by their string form.
func (s Set) Sorted() []valueobjects.PoIID {
	out := make([]valueobjects.PoIID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
