package index

import (
	"time"

	"kaku/domain/core/entities"
	"kaku/domain/core/valueobjects"
)

// Document is what the indices know about a PoI.
type Document struct {
	ID         valueobjects.PoIID
	Variant    entities.Variant
	CreatedAt  time.Time
	Content    string
	Parent     valueobjects.PoIID
	Tags       []valueobjects.Tag
	Categories []valueobjects.CategoryPath
	Links      []valueobjects.PoIID
	Scratched  bool
}

// DocumentFor extracts the indexed view of a PoI
func DocumentFor(p *entities.PoI) Document {
	return Document{
		ID:         p.ID(),
		Variant:    p.Variant(),
		CreatedAt:  p.CreatedAt(),
		Content:    p.Content().String(),
		Parent:     p.ParentID(),
		Tags:       p.Tags(),
		Categories: p.Categories(),
		Links:      p.Links(),
		Scratched:  p.IsScratched(),
	}
}

// Text is the searchable text of the document
func (d Document) Text() string {
	return DocumentText(d.Content, d.Tags)
}

func (d Document) clone() Document {
	d.Tags = append([]valueobjects.Tag(nil), d.Tags...)
	d.Categories = append([]valueobjects.CategoryPath(nil), d.Categories...)
	d.Links = append([]valueobjects.PoIID(nil), d.Links...)
	return d
}
