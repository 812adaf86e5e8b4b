package index

import (
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"kaku/domain/core/valueobjects"
	pkgerrors "kaku/pkg/errors"
)

// Taxonomy maps category paths to the PoIs tagged with exactly that path.
// Paths are stored as a label trie so a subtree query is a walk of one branch.
type Taxonomy struct {
	root *taxon
	byID map[valueobjects.PoIID][]valueobjects.CategoryPath
}

type taxon struct {
	path     valueobjects.CategoryPath
	members  Set
	children map[string]*taxon
}

func newTaxon(path valueobjects.CategoryPath) *taxon {
	return &taxon{path: path, members: make(Set), children: make(map[string]*taxon)}
}

// CategoryNode describes one node of the taxonomy tree.
type CategoryNode struct {
	Path   string `json:"path"`
	Direct int    `json:"direct"`
	Total  int    `json:"total"`
}

// NewTaxonomy creates an empty taxonomy
func NewTaxonomy() *Taxonomy {
	return &Taxonomy{root: newTaxon(valueobjects.CategoryPath{}), byID: make(map[valueobjects.PoIID][]valueobjects.CategoryPath)}
}

// Add files id under path. Adding the same pair twice is a no-op and
// reports false.
func (t *Taxonomy) Add(id valueobjects.PoIID, path valueobjects.CategoryPath) bool {
	node := t.root
	var walked []string
	for _, label := range path.Labels() {
		walked = append(walked, label)
		child, ok := node.children[label]
		if !ok {
			p, _ := valueobjects.NewCategoryPath(strings.Join(walked, valueobjects.CategorySeparator))
			child = newTaxon(p)
			node.children[label] = child
		}
		node = child
	}
	if node.members.Has(id) {
		return false
	}
	node.members.Add(id)
	t.byID[id] = append(t.byID[id], path)
	return true
}

// RemovePath unfiles id from a single path.
func (t *Taxonomy) RemovePath(id valueobjects.PoIID, path valueobjects.CategoryPath) {
	paths := t.byID[id]
	for i, p := range paths {
		if p == path {
			paths = append(paths[:i:i], paths[i+1:]...)
			break
		}
	}
	if len(paths) == 0 {
		delete(t.byID, id)
	} else {
		t.byID[id] = paths
	}
	t.unfile(t.root, path.Labels(), id)
}

// Remove unfiles id from every path.
func (t *Taxonomy) Remove(id valueobjects.PoIID) {
	for _, p := range t.byID[id] {
		t.unfile(t.root, p.Labels(), id)
	}
	delete(t.byID, id)
}

// unfile removes id below node and prunes nodes left empty.
func (t *Taxonomy) unfile(node *taxon, labels []string, id valueobjects.PoIID) bool {
	if len(labels) == 0 {
		node.members.Remove(id)
	} else if child, ok := node.children[labels[0]]; ok {
		if t.unfile(child, labels[1:], id) {
			delete(node.children, labels[0])
		}
	}
	return node != t.root && node.members.Len() == 0 && len(node.children) == 0
}

// PathsOf returns the paths id is filed under
func (t *Taxonomy) PathsOf(id valueobjects.PoIID) []valueobjects.CategoryPath {
	return append([]valueobjects.CategoryPath(nil), t.byID[id]...)
}

func (t *Taxonomy) find(path valueobjects.CategoryPath) *taxon {
	node := t.root
	for _, label := range path.Labels() {
		child, ok := node.children[label]
		if !ok {
			return nil
		}
		node = child
	}
	return node
}

// Descendants returns ids filed under path or any path below it.
func (t *Taxonomy) Descendants(path valueobjects.CategoryPath) Set {
	out := make(Set)
	node := t.find(path)
	if node == nil || path.IsZero() {
		return out
	}
	node.walk(func(n *taxon) {
		for id := range n.members {
			out.Add(id)
		}
	})
	return out
}

// EstimateDescendants is an upper bound on len(Descendants(path)) without
// allocating the set. A PoI filed under several paths counts once per path.
func (t *Taxonomy) EstimateDescendants(path valueobjects.CategoryPath) int {
	node := t.find(path)
	if node == nil || path.IsZero() {
		return 0
	}
	n := 0
	node.walk(func(x *taxon) { n += x.members.Len() })
	return n
}

// Glob returns ids filed under any path matching pattern. Patterns use
// doublestar syntax over dot-separated labels: "science.*" matches direct
// children of science, "science.**" the whole subtree, "*.{go,rust}" any
// top-level label followed by go or rust.
func (t *Taxonomy) Glob(pattern string) (Set, error) {
	p := globToSlash(pattern)
	if !doublestar.ValidatePattern(p) {
		return nil, pkgerrors.NewValidationErrorf("invalid category glob %q", pattern)
	}
	out := make(Set)
	t.root.walk(func(n *taxon) {
		if n.members.Len() == 0 {
			return
		}
		if ok, _ := doublestar.Match(p, globToSlash(n.path.String())); ok {
			for id := range n.members {
				out.Add(id)
			}
		}
	})
	return out, nil
}

// GlobMatch reports whether path matches pattern with the semantics of
// Taxonomy.Glob. An invalid pattern matches nothing.
func GlobMatch(pattern string, path valueobjects.CategoryPath) bool {
	ok, err := doublestar.Match(globToSlash(pattern), globToSlash(path.String()))
	return err == nil && ok
}

// Nodes lists the taxonomy below prefix (the whole tree for a zero prefix),
// ordered by path.
func (t *Taxonomy) Nodes(prefix valueobjects.CategoryPath) []CategoryNode {
	start := t.root
	if !prefix.IsZero() {
		start = t.find(prefix)
		if start == nil {
			return nil
		}
	}
	var out []CategoryNode
	start.walk(func(n *taxon) {
		if n == t.root {
			return
		}
		total := make(Set)
		n.walk(func(x *taxon) {
			for id := range x.members {
				total.Add(id)
			}
		})
		out = append(out, CategoryNode{Path: n.path.String(), Direct: n.members.Len(), Total: total.Len()})
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (n *taxon) walk(fn func(*taxon)) {
	fn(n)
	for _, c := range n.children {
		c.walk(fn)
	}
}

func globToSlash(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), valueobjects.CategorySeparator, "/")
}
