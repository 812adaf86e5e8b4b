package valueobjects

import (
	"strings"
	"unicode/utf8"

	pkgerrors "kaku/pkg/errors"
)

// MaxContentLength bounds PoI content, in runes.
const MaxContentLength = 20000

// Content is the immutable text body of a PoI.
type Content struct {
	text string
}

// NewContent validates the text. Surrounding whitespace is trimmed; the
// remaining text must be non-empty.
func NewContent(text string) (Content, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Content{}, pkgerrors.NewValidationError("content cannot be empty")
	}
	if !utf8.ValidString(text) {
		return Content{}, pkgerrors.NewValidationError("content must be valid UTF-8")
	}
	if utf8.RuneCountInString(text) > MaxContentLength {
		return Content{}, pkgerrors.NewValidationErrorf("content exceeds maximum length of %d characters", MaxContentLength)
	}
	return Content{text: text}, nil
}

func (c Content) String() string { return c.text }

// IsEmpty checks if content is empty
func (c Content) IsEmpty() bool { return c.text == "" }

// Summary returns a truncated summary of the content
func (c Content) Summary(maxLength int) string {
	if maxLength <= 3 {
		return ""
	}
	if utf8.RuneCountInString(c.text) <= maxLength {
		return c.text
	}
	runes := []rune(c.text)
	return string(runes[:maxLength-3]) + "..."
}
