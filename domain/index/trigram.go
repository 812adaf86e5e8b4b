package index

import (
	"strings"
	"unicode"

	"kaku/domain/core/valueobjects"
)

// Hit is one text search result.
type Hit struct {
	ID    valueobjects.PoIID
	Score float64
}

// TextIndex is a trigram index over normalised document text.
//
// Similarity is trigram containment: the share of the query's trigrams that
// occur in the document. A query that appears verbatim in a document scores
// 1.0; a query sharing no trigram scores 0. Queries shorter than three runes
// have no trigram and fall back to a substring test.
type TextIndex struct {
	docs     map[valueobjects.PoIID]string
	postings map[string]Set
}

// NewTextIndex creates an empty text index
func NewTextIndex() *TextIndex {
	return &TextIndex{docs: make(map[valueobjects.PoIID]string), postings: make(map[string]Set)}
}

// Index (re)indexes id with text
func (t *TextIndex) Index(id valueobjects.PoIID, text string) {
	t.Remove(id)
	norm := Normalize(text)
	t.docs[id] = norm
	for g := range trigrams(norm) {
		set, ok := t.postings[g]
		if !ok {
			set = make(Set)
			t.postings[g] = set
		}
		set.Add(id)
	}
}

// Remove drops id from the index
func (t *TextIndex) Remove(id valueobjects.PoIID) {
	norm, ok := t.docs[id]
	if !ok {
		return
	}
	for g := range trigrams(norm) {
		if set, ok := t.postings[g]; ok {
			set.Remove(id)
			if set.Len() == 0 {
				delete(t.postings, g)
			}
		}
	}
	delete(t.docs, id)
}

// Has reports whether id is indexed
func (t *TextIndex) Has(id valueobjects.PoIID) bool {
	_, ok := t.docs[id]
	return ok
}

// Search returns the ids scoring at least minSimilarity, unordered. Ids with
// a zero score are never returned.
func (t *TextIndex) Search(query string, minSimilarity float64) []Hit {
	q := Normalize(query)
	if q == "" {
		return nil
	}
	grams := trigrams(q)

	var hits []Hit
	if len(grams) == 0 {
		for id, doc := range t.docs {
			if strings.Contains(doc, q) {
				hits = append(hits, Hit{ID: id, Score: 1})
			}
		}
		return hits
	}

	counts := make(map[valueobjects.PoIID]int)
	for g := range grams {
		for id := range t.postings[g] {
			counts[id]++
		}
	}
	total := float64(len(grams))
	for id, n := range counts {
		score := float64(n) / total
		if score >= minSimilarity {
			hits = append(hits, Hit{ID: id, Score: score})
		}
	}
	return hits
}

// EstimateCandidates counts ids sharing at least one trigram with query,
// bounded above by the number of postings touched.
func (t *TextIndex) EstimateCandidates(query string) int {
	q := Normalize(query)
	grams := trigrams(q)
	if len(grams) == 0 {
		return len(t.docs)
	}
	n := 0
	for g := range grams {
		n += t.postings[g].Len()
	}
	if n > len(t.docs) {
		n = len(t.docs)
	}
	return n
}

// Trigrams returns the number of distinct trigrams indexed
func (t *TextIndex) Trigrams() int { return len(t.postings) }

// Similarity scores text against query with the same measure the index
// uses. It lets callers rank records that were not found through the index.
func Similarity(query, text string) float64 {
	q := Normalize(query)
	if q == "" {
		return 0
	}
	doc := Normalize(text)
	grams := trigrams(q)
	if len(grams) == 0 {
		if strings.Contains(doc, q) {
			return 1
		}
		return 0
	}
	have := trigrams(doc)
	n := 0
	for g := range grams {
		if _, ok := have[g]; ok {
			n++
		}
	}
	return float64(n) / float64(len(grams))
}

// DocumentText is the text indexed for a PoI: its content followed by its
// tags, so a tag can be found by text search too.
func DocumentText(content string, tags []valueobjects.Tag) string {
	if len(tags) == 0 {
		return content
	}
	var b strings.Builder
	b.WriteString(content)
	for _, t := range tags {
		b.WriteByte(' ')
		b.WriteString(t.String())
	}
	return b.String()
}

// Normalize lower-cases text and collapses whitespace runs to one space.
func Normalize(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), unicode.IsSpace), " ")
}

func trigrams(norm string) map[string]struct{} {
	r := []rune(norm)
	if len(r) < 3 {
		return nil
	}
	out := make(map[string]struct{}, len(r)-2)
	for i := 0; i+3 <= len(r); i++ {
		out[string(r[i:i+3])] = struct{}{}
	}
	return out
}
