package valueobjects

import (
	"regexp"
	"strings"

	pkgerrors "kaku/pkg/errors"
)

const (
	// CategorySeparator joins labels of a category path.
	CategorySeparator = "."
	// MaxCategoryDepth bounds the number of labels in a path.
	MaxCategoryDepth = 16
)

var categoryLabelPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// CategoryPath is a normalised, non-empty sequence of taxonomy labels such
// as "science.physics.quantum". Paths are comparable and usable as map keys.
type CategoryPath struct {
	value string
}

// NewCategoryPath parses and normalises a dot-separated path.
func NewCategoryPath(raw string) (CategoryPath, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return CategoryPath{}, pkgerrors.NewValidationError("category path cannot be empty")
	}

	labels := strings.Split(raw, CategorySeparator)
	if len(labels) > MaxCategoryDepth {
		return CategoryPath{}, pkgerrors.NewValidationErrorf("category path exceeds maximum depth of %d", MaxCategoryDepth)
	}
	for i, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			return CategoryPath{}, pkgerrors.NewValidationErrorf("category path %q has an empty label", raw)
		}
		if !categoryLabelPattern.MatchString(label) {
			return CategoryPath{}, pkgerrors.NewValidationErrorf("category label %q must match [a-z0-9_-]+", label)
		}
		labels[i] = label
	}

	return CategoryPath{value: strings.Join(labels, CategorySeparator)}, nil
}

// NewCategoryPaths parses a list of paths, dropping duplicates while keeping
// first-seen order.
func NewCategoryPaths(raw []string) ([]CategoryPath, error) {
	paths := make([]CategoryPath, 0, len(raw))
	seen := make(map[CategoryPath]struct{}, len(raw))
	for _, r := range raw {
		p, err := NewCategoryPath(r)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}
	return paths, nil
}

func (p CategoryPath) String() string { return p.value }

func (p CategoryPath) IsZero() bool { return p.value == "" }

// Labels returns the path split into its labels
func (p CategoryPath) Labels() []string {
	if p.value == "" {
		return nil
	}
	return strings.Split(p.value, CategorySeparator)
}

// Depth returns the number of labels
func (p CategoryPath) Depth() int {
	if p.value == "" {
		return 0
	}
	return strings.Count(p.value, CategorySeparator) + 1
}

// Parent returns the path without its last label. The root label has no
// parent and returns the zero path.
func (p CategoryPath) Parent() CategoryPath {
	i := strings.LastIndex(p.value, CategorySeparator)
	if i < 0 {
		return CategoryPath{}
	}
	return CategoryPath{value: p.value[:i]}
}

// Contains reports whether other equals p or lies in p's subtree. Prefixes
// are compared label-wise, so "a.b" does not contain "a.bc".
func (p CategoryPath) Contains(other CategoryPath) bool {
	if p.value == "" {
		return false
	}
	if other.value == p.value {
		return true
	}
	return strings.HasPrefix(other.value, p.value+CategorySeparator)
}
