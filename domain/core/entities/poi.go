package entities

import (
	"time"

	"kaku/domain/core/valueobjects"
	"kaku/domain/events"
	pkgerrors "kaku/pkg/errors"
)

// Variant tags the kind of a PieceOfInformation.
type Variant string

const (
	VariantNote     Variant = "note"
	VariantThought  Variant = "thought"
	VariantQuestion Variant = "question"
)

// ParseVariant validates a variant name
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(s); v {
	case VariantNote, VariantThought, VariantQuestion:
		return v, nil
	}
	return "", pkgerrors.NewValidationErrorf("unknown variation %q", s)
}

// Structured reports whether the variant carries parent, refutation,
// categories, tags and links. Only Notes do not.
func (v Variant) Structured() bool {
	return v == VariantThought || v == VariantQuestion
}

func (v Variant) model() events.Model {
	switch v {
	case VariantNote:
		return events.ModelNote
	case VariantQuestion:
		return events.ModelQuestion
	default:
		return events.ModelThought
	}
}

// PoI is a Piece of Information. It is a tagged variant: the shared record is
// always populated, and the structured fields are only ever set on Thoughts
// and Questions.
type PoI struct {
	id         valueobjects.PoIID
	variant    Variant
	projectID  valueobjects.ProjectID
	scribeID   valueobjects.ScribeID
	content    valueobjects.Content
	media      []string
	citations  []string
	createdAt  time.Time
	importedAt time.Time

	parentID   valueobjects.PoIID
	refutedBy  valueobjects.PoIID
	categories []valueobjects.CategoryPath
	tags       []valueobjects.Tag
	links      []valueobjects.PoIID

	scratchedAt *time.Time
	version     int

	events []events.DomainEvent
}

// NewPoIParams carries everything needed to create a PoI. Structured fields
// must be empty for Notes.
type NewPoIParams struct {
	ID         valueobjects.PoIID
	Variant    Variant
	ProjectID  valueobjects.ProjectID
	ScribeID   valueobjects.ScribeID
	Content    valueobjects.Content
	Media      []string
	Citations  []string
	CreatedAt  time.Time
	ImportedAt time.Time

	ParentID   valueobjects.PoIID
	Categories []valueobjects.CategoryPath
	Tags       []valueobjects.Tag
	Links      []valueobjects.PoIID
}

// NewPoI validates the variant rules and creates an active PoI.
func NewPoI(p NewPoIParams) (*PoI, error) {
	if p.ID.IsZero() {
		return nil, pkgerrors.NewValidationError("poi id is required")
	}
	if p.ProjectID.IsZero() {
		return nil, pkgerrors.NewValidationError("project id is required")
	}
	if p.ScribeID.IsZero() {
		return nil, pkgerrors.NewValidationError("scribe id is required")
	}
	if p.Content.IsEmpty() {
		return nil, pkgerrors.NewValidationError("content cannot be empty")
	}
	if _, err := ParseVariant(string(p.Variant)); err != nil {
		return nil, err
	}
	if p.CreatedAt.IsZero() {
		return nil, pkgerrors.NewValidationError("creation timestamp is required")
	}

	if p.Variant == VariantNote {
		if p.ImportedAt.IsZero() {
			return nil, pkgerrors.NewValidationError("notes require imported_at")
		}
		if !p.ParentID.IsZero() || len(p.Categories) > 0 || len(p.Tags) > 0 || len(p.Links) > 0 {
			return nil, pkgerrors.NewValidationError("notes carry no parent, categories, tags or links")
		}
	}
	if p.ParentID == p.ID {
		return nil, pkgerrors.NewValidationError("a thought cannot be its own parent")
	}

	poi := &PoI{
		id:         p.ID,
		variant:    p.Variant,
		projectID:  p.ProjectID,
		scribeID:   p.ScribeID,
		content:    p.Content,
		media:      uniqueStrings(p.Media),
		citations:  uniqueStrings(p.Citations),
		createdAt:  p.CreatedAt.UTC(),
		importedAt: utc(p.ImportedAt),
		parentID:   p.ParentID,
		version:    1,
	}
	poi.addCategories(p.Categories)
	poi.addTags(p.Tags)
	for _, to := range p.Links {
		if to == p.ID {
			return nil, pkgerrors.NewValidationError("a thought cannot link to itself")
		}
		if !poi.hasLink(to) {
			poi.links = append(poi.links, to)
		}
	}
	poi.version = 1

	poi.addEvent(events.NewModelEvent(p.Variant.model(), events.ActionCreated,
		p.ID.String(), p.ProjectID.String(), poi.createdAt))

	return poi, nil
}

// Getters

func (p *PoI) ID() valueobjects.PoIID            { return p.id }
func (p *PoI) Variant() Variant                  { return p.variant }
func (p *PoI) ProjectID() valueobjects.ProjectID { return p.projectID }
func (p *PoI) ScribeID() valueobjects.ScribeID   { return p.scribeID }
func (p *PoI) Content() valueobjects.Content     { return p.content }
func (p *PoI) CreatedAt() time.Time              { return p.createdAt }
func (p *PoI) ImportedAt() time.Time             { return p.importedAt }
func (p *PoI) ParentID() valueobjects.PoIID      { return p.parentID }
func (p *PoI) RefutedBy() valueobjects.PoIID     { return p.refutedBy }
func (p *PoI) Version() int                      { return p.version }
func (p *PoI) Media() []string                   { return append([]string(nil), p.media...) }
func (p *PoI) Citations() []string               { return append([]string(nil), p.citations...) }
func (p *PoI) Links() []valueobjects.PoIID       { return append([]valueobjects.PoIID(nil), p.links...) }
func (p *PoI) Tags() []valueobjects.Tag          { return append([]valueobjects.Tag(nil), p.tags...) }
func (p *PoI) Categories() []valueobjects.CategoryPath {
	return append([]valueobjects.CategoryPath(nil), p.categories...)
}

// IsScratched reports whether the PoI has been logically deleted
func (p *PoI) IsScratched() bool { return p.scratchedAt != nil }

// ScratchedAt returns when the PoI was scratched, or nil
func (p *PoI) ScratchedAt() *time.Time {
	if p.scratchedAt == nil {
		return nil
	}
	t := *p.scratchedAt
	return &t
}

// IsRefuted reports whether a Thought has refuted this PoI
func (p *PoI) IsRefuted() bool { return !p.refutedBy.IsZero() }

// Business methods

// CanBeRefutedBy checks the refutation rules without mutating. The refuter
// must be an active Thought of the same project.
func (p *PoI) CanBeRefutedBy(refuter *PoI) error {
	if !p.variant.Structured() {
		return pkgerrors.NewInvalidStateError("notes cannot be refuted")
	}
	if refuter.id == p.id {
		return pkgerrors.NewValidationError("a thought cannot refute itself")
	}
	if refuter.variant != VariantThought {
		return pkgerrors.NewInvalidStateError("only a thought can refute")
	}
	if refuter.projectID != p.projectID {
		return pkgerrors.NewInvalidStateError("refuter belongs to a different project")
	}
	if p.IsScratched() {
		return pkgerrors.NewInvalidStateError("cannot refute a scratched " + string(p.variant))
	}
	if refuter.IsScratched() {
		return pkgerrors.NewInvalidStateError("a scratched thought cannot refute")
	}
	if p.IsRefuted() {
		return pkgerrors.NewConflictError(string(p.variant)+" is already refuted").
			WithDetail("refuted_by", p.refutedBy.String())
	}
	return nil
}

// RefuteBy marks the PoI as refuted. Refutation is first-writer-wins and
// never overwritten.
func (p *PoI) RefuteBy(refuter *PoI, at time.Time) error {
	if err := p.CanBeRefutedBy(refuter); err != nil {
		return err
	}
	p.refutedBy = refuter.id
	p.version++
	p.addEvent(events.NewModelEvent(p.variant.model(), events.ActionRefuted,
		p.id.String(), p.projectID.String(), at).WithRelated(refuter.id.String()))
	return nil
}

// CanLinkTo checks the link rules. Both ends must be active structured PoIs
// of the same project.
func (p *PoI) CanLinkTo(target *PoI) error {
	if p.id == target.id {
		return pkgerrors.NewValidationError("a thought cannot link to itself")
	}
	if !p.variant.Structured() || !target.variant.Structured() {
		return pkgerrors.NewInvalidStateError("links connect thoughts and questions only")
	}
	if p.projectID != target.projectID {
		return pkgerrors.NewInvalidStateError("links cannot cross projects")
	}
	if p.IsScratched() || target.IsScratched() {
		return pkgerrors.NewInvalidStateError("cannot link a scratched " + string(p.variant))
	}
	return nil
}

// LinkTo adds an outbound link. Re-linking is a no-op and reports false.
func (p *PoI) LinkTo(target *PoI, at time.Time) (bool, error) {
	if err := p.CanLinkTo(target); err != nil {
		return false, err
	}
	if p.hasLink(target.id) {
		return false, nil
	}
	p.links = append(p.links, target.id)
	p.version++
	p.addEvent(events.NewModelEvent(p.variant.model(), events.ActionLinked,
		p.id.String(), p.projectID.String(), at).WithRelated(target.id.String()))
	return true, nil
}

// addTags appends tags not yet present and returns the ones added.
func (p *PoI) addTags(tags []valueobjects.Tag) []valueobjects.Tag {
	var added []valueobjects.Tag
	for _, t := range tags {
		if t.IsZero() || containsTag(p.tags, t) {
			continue
		}
		p.tags = append(p.tags, t)
		added = append(added, t)
	}
	if len(added) > 0 {
		p.version++
	}
	return added
}

// Tag adds tags to an active structured PoI.
func (p *PoI) Tag(tags []valueobjects.Tag, at time.Time) ([]valueobjects.Tag, error) {
	if err := p.checkAmendable(); err != nil {
		return nil, err
	}
	added := p.addTags(tags)
	if len(added) > 0 {
		p.addEvent(events.NewModelEvent(p.variant.model(), events.ActionTagged,
			p.id.String(), p.projectID.String(), at))
	}
	return added, nil
}

// addCategories appends paths not yet present and returns the ones added.
func (p *PoI) addCategories(paths []valueobjects.CategoryPath) []valueobjects.CategoryPath {
	var added []valueobjects.CategoryPath
	for _, c := range paths {
		if c.IsZero() || containsCategory(p.categories, c) {
			continue
		}
		p.categories = append(p.categories, c)
		added = append(added, c)
	}
	if len(added) > 0 {
		p.version++
	}
	return added
}

// Categorize adds category paths to an active structured PoI.
func (p *PoI) Categorize(paths []valueobjects.CategoryPath, at time.Time) ([]valueobjects.CategoryPath, error) {
	if err := p.checkAmendable(); err != nil {
		return nil, err
	}
	added := p.addCategories(paths)
	if len(added) > 0 {
		p.addEvent(events.NewModelEvent(p.variant.model(), events.ActionCategorized,
			p.id.String(), p.projectID.String(), at))
	}
	return added, nil
}

// Scratch logically deletes the PoI. Scratching twice is a no-op and
// reports false.
func (p *PoI) Scratch(at time.Time) bool {
	if p.IsScratched() {
		return false
	}
	t := at.UTC()
	p.scratchedAt = &t
	p.version++
	p.addEvent(events.NewModelEvent(p.variant.model(), events.ActionScratched,
		p.id.String(), p.projectID.String(), at))
	return true
}

func (p *PoI) checkAmendable() error {
	if !p.variant.Structured() {
		return pkgerrors.NewInvalidStateError("notes carry no tags, categories or links")
	}
	if p.IsScratched() {
		return pkgerrors.NewInvalidStateError("cannot amend a scratched " + string(p.variant))
	}
	return nil
}

func (p *PoI) hasLink(id valueobjects.PoIID) bool {
	for _, l := range p.links {
		if l == id {
			return true
		}
	}
	return false
}

// Event management

func (p *PoI) addEvent(e events.DomainEvent) {
	p.events = append(p.events, e)
}

// GetUncommittedEvents returns events raised since the last commit
func (p *PoI) GetUncommittedEvents() []events.DomainEvent {
	return p.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (p *PoI) MarkEventsAsCommitted() {
	p.events = nil
}

// Clone returns a deep copy without uncommitted events.
func (p *PoI) Clone() *PoI {
	c := *p
	c.media = append([]string(nil), p.media...)
	c.citations = append([]string(nil), p.citations...)
	c.categories = append([]valueobjects.CategoryPath(nil), p.categories...)
	c.tags = append([]valueobjects.Tag(nil), p.tags...)
	c.links = append([]valueobjects.PoIID(nil), p.links...)
	c.scratchedAt = p.ScratchedAt()
	c.events = nil
	return &c
}

func containsTag(tags []valueobjects.Tag, t valueobjects.Tag) bool {
	for _, x := range tags {
		if x == t {
			return true
		}
	}
	return false
}

func containsCategory(paths []valueobjects.CategoryPath, c valueobjects.CategoryPath) bool {
	for _, x := range paths {
		if x == c {
			return true
		}
	}
	return false
}

func utc(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC()
}

func uniqueStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
