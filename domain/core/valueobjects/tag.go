package valueobjects

import (
	"strings"
	"unicode"
	"unicode/utf8"

	pkgerrors "kaku/pkg/errors"
)

// MaxTagLength bounds a normalised tag, in runes.
const MaxTagLength = 64

// Tag is a case-normalised label. "Quantum Physics" and " quantum  physics"
// normalise to the same tag, "quantum-physics".
type Tag struct {
	value string
}

// NewTag normalises and validates a tag
func NewTag(raw string) (Tag, error) {
	v := strings.Join(strings.FieldsFunc(strings.ToLower(raw), unicode.IsSpace), "-")
	if v == "" {
		return Tag{}, pkgerrors.NewValidationError("tag cannot be empty")
	}
	if utf8.RuneCountInString(v) > MaxTagLength {
		return Tag{}, pkgerrors.NewValidationErrorf("tag %q exceeds maximum length of %d characters", v, MaxTagLength)
	}
	return Tag{value: v}, nil
}

// NewTags normalises a list, dropping duplicates while keeping order.
func NewTags(raw []string) ([]Tag, error) {
	tags := make([]Tag, 0, len(raw))
	seen := make(map[Tag]struct{}, len(raw))
	for _, r := range raw {
		t, err := NewTag(r)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	return tags, nil
}

func (t Tag) String() string { return t.value }

func (t Tag) IsZero() bool { return t.value == "" }
