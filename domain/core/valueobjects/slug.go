package valueobjects

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	pkgerrors "kaku/pkg/errors"
)

// Slugify derives a URL-safe project slug from a display name: accents are
// stripped, letters lower-cased and every other run of characters collapses
// to a single dash. "Café Über Life" becomes "cafe-uber-life".
func Slugify(name string) (string, error) {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		return "", pkgerrors.NewValidationError("name cannot be transliterated")
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}

	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "", pkgerrors.NewValidationErrorf("name %q yields an empty slug", name)
	}
	return slug, nil
}
