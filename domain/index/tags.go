package index

import (
	"kaku/domain/core/valueobjects"
)

// Tags is the inverted index from normalised tag to PoI ids.
type Tags struct {
	byTag map[valueobjects.Tag]Set
	byID  map[valueobjects.PoIID][]valueobjects.Tag
}

// NewTags creates an empty tag index
func NewTags() *Tags {
	return &Tags{byTag: make(map[valueobjects.Tag]Set), byID: make(map[valueobjects.PoIID][]valueobjects.Tag)}
}

// Add is idempotent; it reports whether the pair was new.
func (t *Tags) Add(id valueobjects.PoIID, tag valueobjects.Tag) bool {
	set, ok := t.byTag[tag]
	if !ok {
		set = make(Set)
		t.byTag[tag] = set
	}
	if set.Has(id) {
		return false
	}
	set.Add(id)
	t.byID[id] = append(t.byID[id], tag)
	return true
}

// RemoveTag drops a single pair
func (t *Tags) RemoveTag(id valueobjects.PoIID, tag valueobjects.Tag) {
	if set, ok := t.byTag[tag]; ok {
		set.Remove(id)
		if set.Len() == 0 {
			delete(t.byTag, tag)
		}
	}
	tags := t.byID[id]
	for i, x := range tags {
		if x == tag {
			tags = append(tags[:i:i], tags[i+1:]...)
			break
		}
	}
	if len(tags) == 0 {
		delete(t.byID, id)
	} else {
		t.byID[id] = tags
	}
}

// Remove drops every tag of id
func (t *Tags) Remove(id valueobjects.PoIID) {
	for _, tag := range t.byID[id] {
		if set, ok := t.byTag[tag]; ok {
			set.Remove(id)
			if set.Len() == 0 {
				delete(t.byTag, tag)
			}
		}
	}
	delete(t.byID, id)
}

// Lookup returns the ids carrying tag. Unknown tags yield an empty set.
func (t *Tags) Lookup(tag valueobjects.Tag) Set {
	set, ok := t.byTag[tag]
	if !ok {
		return make(Set)
	}
	return set.Clone()
}

// Count returns how many ids carry tag
func (t *Tags) Count(tag valueobjects.Tag) int {
	return t.byTag[tag].Len()
}

// Distinct returns the number of distinct tags
func (t *Tags) Distinct() int {
	return len(t.byTag)
}
