package domain

import "time"

// SetKind discriminates the two versioned set families. Segment sets are
// scoped to a document version; chunk sets are scoped to a project.
type SetKind string

const (
	SetKindSegment SetKind = "segment_set"
	SetKindChunk   SetKind = "chunk_set"
)

// IsValidSetKind reports whether k is one of the known set kinds.
func IsValidSetKind(k SetKind) bool {
	return k == SetKindSegment || k == SetKindChunk
}

// ItemType tags the content category of an item.
type ItemType string

const (
	ItemTypeText  ItemType = "text"
	ItemTypeTable ItemType = "table"
	ItemTypeImage ItemType = "image"
	ItemTypeAudio ItemType = "audio"
	ItemTypeCode  ItemType = "code"
	ItemTypeOther ItemType = "other"
)

// IsValidItemType reports whether t is one of the known item types.
func IsValidItemType(t ItemType) bool {
	switch t {
	case ItemTypeText, ItemTypeTable, ItemTypeImage, ItemTypeAudio, ItemTypeCode, ItemTypeOther:
		return true
	}
	return false
}

// Item is one element of a versioned set. IDs are fresh per item, even
// across clones; ParentID records the item it was cloned from and is
// never followed for ownership.
type Item struct {
	ID             string
	SetVersionID   string
	Position       int
	Content        string
	Metadata       map[string]any
	ParentID       string
	Level          int
	Path           []string
	Type           ItemType
	OriginalFormat string
}

// VersionedSet is an immutable, ordered collection of items produced by
// one generation or clone-patch operation.
type VersionedSet struct {
	ID              string
	Kind            SetKind
	ProjectID       string
	SourceID        string // document version id for segment sets, segment set id for chunk sets
	ParentVersionID string
	Params          map[string]any
	ArtifactURI     string
	IsActive        bool
	IsDeleted       bool
	CreatedAt       time.Time
}

// ScopeKey identifies the one stream of sets an active pointer ranges
// over: the document version for segment sets, the project for chunk sets.
func (s *VersionedSet) ScopeKey() string {
	if s.Kind == SetKindSegment {
		return s.SourceID
	}
	return s.ProjectID
}

// ItemPatch is a partial update applied to a single item during a
// clone-patch operation. Nil fields leave the cloned value untouched.
type ItemPatch struct {
	Content        *string
	Metadata       map[string]any
	ParentID       *string
	Level          *int
	Path           []string
	Type           *ItemType
	OriginalFormat *string
}

// IsZero reports whether the patch changes nothing.
func (p ItemPatch) IsZero() bool {
	return p.Content == nil && p.Metadata == nil && p.ParentID == nil &&
		p.Level == nil && p.Path == nil && p.Type == nil && p.OriginalFormat == nil
}

// Apply overlays the patch onto an item in place.
func (p ItemPatch) Apply(item *Item) {
	if p.Content != nil {
		item.Content = *p.Content
	}
	if p.Metadata != nil {
		item.Metadata = p.Metadata
	}
	if p.ParentID != nil {
		item.ParentID = *p.ParentID
	}
	if p.Level != nil {
		item.Level = *p.Level
	}
	if p.Path != nil {
		item.Path = p.Path
	}
	if p.Type != nil {
		item.Type = *p.Type
	}
	if p.OriginalFormat != nil {
		item.OriginalFormat = *p.OriginalFormat
	}
}

// Validate checks the patch against the item type enumeration.
func (p ItemPatch) Validate() error {
	if p.Type != nil && !IsValidItemType(*p.Type) {
		return ErrInvalidItemType
	}
	return nil
}

// CloneItem deep-copies an item for a clone-patch, assigning the fresh id
// and recording lineage back to the source item.
func CloneItem(src *Item, freshID, newSetVersionID string) *Item {
	clone := &Item{
		ID:             freshID,
		SetVersionID:   newSetVersionID,
		Position:       src.Position,
		Content:        src.Content,
		ParentID:       src.ID,
		Level:          src.Level,
		Type:           src.Type,
		OriginalFormat: src.OriginalFormat,
	}
	if src.Metadata != nil {
		clone.Metadata = make(map[string]any, len(src.Metadata))
		for k, v := range src.Metadata {
			clone.Metadata[k] = v
		}
	}
	if src.Path != nil {
		clone.Path = append([]string(nil), src.Path...)
	}
	return clone
}
