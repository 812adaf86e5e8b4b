package index

import (
	"errors"
	"fmt"

	"kaku/domain/core/valueobjects"
)

// ErrParentCycle is returned when attaching a parent would close a loop.
var ErrParentCycle = errors.New("parent relation would form a cycle")

// Forest tracks the parent relation. Unlike Links it must stay acyclic, so
// every attach walks the new parent's ancestor chain.
type Forest struct {
	parent   map[valueobjects.PoIID]valueobjects.PoIID
	children map[valueobjects.PoIID]Set
}

// NewForest creates an empty forest
func NewForest() *Forest {
	return &Forest{parent: make(map[valueobjects.PoIID]valueobjects.PoIID), children: make(map[valueobjects.PoIID]Set)}
}

// CanAttach checks that child -> parent keeps the forest acyclic.
func (f *Forest) CanAttach(child, parent valueobjects.PoIID) error {
	if parent.IsZero() {
		return nil
	}
	if child == parent {
		return ErrParentCycle
	}
	if cur, ok := f.parent[child]; ok && cur != parent {
		return fmt.Errorf("%s already has parent %s", child, cur)
	}
	steps := 0
	for p := parent; !p.IsZero(); p = f.parent[p] {
		if p == child {
			return ErrParentCycle
		}
		if steps++; steps > len(f.parent)+1 {
			return ErrParentCycle
		}
	}
	return nil
}

// Attach records child -> parent. A zero parent makes child a root.
func (f *Forest) Attach(child, parent valueobjects.PoIID) error {
	if err := f.CanAttach(child, parent); err != nil {
		return err
	}
	if parent.IsZero() {
		return nil
	}
	f.parent[child] = parent
	kids, ok := f.children[parent]
	if !ok {
		kids = make(Set)
		f.children[parent] = kids
	}
	kids.Add(child)
	return nil
}

// Detach removes child's parent edge
func (f *Forest) Detach(child valueobjects.PoIID) {
	parent, ok := f.parent[child]
	if !ok {
		return
	}
	delete(f.parent, child)
	if kids := f.children[parent]; kids != nil {
		kids.Remove(child)
		if kids.Len() == 0 {
			delete(f.children, parent)
		}
	}
}

// Parent returns child's parent, or the zero id for a root
func (f *Forest) Parent(child valueobjects.PoIID) valueobjects.PoIID {
	return f.parent[child]
}

// Children returns the direct children of id
func (f *Forest) Children(id valueobjects.PoIID) Set {
	if kids, ok := f.children[id]; ok {
		return kids.Clone()
	}
	return make(Set)
}

// Ancestors returns the chain from id's parent up to its root. The walk is
// bounded by the number of edges, so a corrupted relation fails instead of
// looping.
func (f *Forest) Ancestors(id valueobjects.PoIID) ([]valueobjects.PoIID, error) {
	var chain []valueobjects.PoIID
	for p := f.parent[id]; !p.IsZero(); p = f.parent[p] {
		chain = append(chain, p)
		if len(chain) > len(f.parent) {
			return nil, ErrParentCycle
		}
	}
	return chain, nil
}
