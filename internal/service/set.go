package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cloo-solutions/kbman/internal/domain"
	"github.com/cloo-solutions/kbman/internal/pagination"
	"github.com/cloo-solutions/kbman/internal/telemetry"
)

// VersionedSetService owns the shared lifecycle of segment and chunk set
// versions: creation with the atomic active flip, clone-patch lineage,
// soft delete and restore, and object-store snapshots.
type VersionedSetService struct {
	setRepo     VersionedSetRepositoryInterface
	objectStore ObjectStore
	uuidGen     UUIDGenerator

	pageDefault int
	pageMax     int
}

func NewVersionedSetService(setRepo VersionedSetRepositoryInterface, objectStore ObjectStore) *VersionedSetService {
	return &VersionedSetService{
		setRepo:     setRepo,
		objectStore: objectStore,
		uuidGen:     &DefaultUUIDGenerator{},
		pageDefault: pagination.DefaultPageSize,
		pageMax:     pagination.MaxPageSize,
	}
}

// NewVersionedSetServiceWithUUIDGen creates the service with a custom UUID
// generator (for testing)
func NewVersionedSetServiceWithUUIDGen(setRepo VersionedSetRepositoryInterface, objectStore ObjectStore, uuidGen UUIDGenerator) *VersionedSetService {
	s := NewVersionedSetService(setRepo, objectStore)
	s.uuidGen = uuidGen
	return s
}

// ItemInput is one item of a new set version, in input order.
type ItemInput struct {
	Content        string
	Metadata       map[string]any
	ParentID       string
	Level          int
	Path           []string
	Type           domain.ItemType
	OriginalFormat string
}

// CreateSetInput describes one new set version.
type CreateSetInput struct {
	Kind     domain.SetKind
	Project  string
	SourceID string
	ParentID string
	Params   map[string]any
	Items    []ItemInput
}

// CreateSet materializes a new immutable set version with fresh item ids,
// positions assigned by input order, and flips the active pointer for the
// set's scope atomically.
func (s *VersionedSetService) CreateSet(ctx context.Context, input CreateSetInput) (*domain.VersionedSet, error) {
	ctx, span := telemetry.StartSpan(ctx, "VersionedSetService.CreateSet", telemetry.SpanAttributes{
		ProjectID: input.Project,
		Operation: "create",
	})
	defer span.End()

	if !domain.IsValidSetKind(input.Kind) {
		return nil, domain.ErrInvalidSetKind
	}
	if input.Kind == domain.SetKindSegment && input.SourceID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "segment sets require a source document version")
	}

	now := time.Now().UTC()
	set := &domain.VersionedSet{
		ID:              s.uuidGen.NewString(),
		Kind:            input.Kind,
		ProjectID:       input.Project,
		SourceID:        input.SourceID,
		ParentVersionID: input.ParentID,
		Params:          input.Params,
		IsActive:        true,
		CreatedAt:       now,
	}

	items := make([]*domain.Item, 0, len(input.Items))
	for position, in := range input.Items {
		itemType := in.Type
		if itemType == "" {
			itemType = domain.ItemTypeText
		}
		if !domain.IsValidItemType(itemType) {
			return nil, domain.ErrInvalidItemType
		}
		items = append(items, &domain.Item{
			ID:             s.uuidGen.NewString(),
			SetVersionID:   set.ID,
			Position:       position,
			Content:        in.Content,
			Metadata:       in.Metadata,
			ParentID:       in.ParentID,
			Level:          in.Level,
			Path:           in.Path,
			Type:           itemType,
			OriginalFormat: in.OriginalFormat,
		})
	}

	set.ArtifactURI = s.snapshot(ctx, set, items)

	if err := s.setRepo.CreateSetWithItems(ctx, set, items); err != nil {
		span.SetError(err)
		return nil, err
	}
	return set, nil
}

// ClonePatch deep-clones a set version, applies the patch to the one
// matching item, and activates the clone. Every cloned item gets a fresh
// id with parent_id pointing at the item it was cloned from; the new set
// records the source set as its parent version.
func (s *VersionedSetService) ClonePatch(ctx context.Context, projectID, setID, itemID string, patch domain.ItemPatch) (*domain.VersionedSet, error) {
	ctx, span := telemetry.StartSpan(ctx, "VersionedSetService.ClonePatch", telemetry.SpanAttributes{
		ProjectID: projectID,
		SetID:     setID,
		Operation: "clone_patch",
	})
	defer span.End()

	if err := patch.Validate(); err != nil {
		return nil, err
	}

	source, err := s.getVisibleSet(ctx, projectID, setID)
	if err != nil {
		return nil, err
	}

	sourceItems, err := s.setRepo.ListItems(ctx, source.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	clone := &domain.VersionedSet{
		ID:              s.uuidGen.NewString(),
		Kind:            source.Kind,
		ProjectID:       source.ProjectID,
		SourceID:        source.SourceID,
		ParentVersionID: source.ID,
		Params:          source.Params,
		IsActive:        true,
		CreatedAt:       now,
	}

	patched := false
	items := make([]*domain.Item, 0, len(sourceItems))
	for _, src := range sourceItems {
		item := domain.CloneItem(src, s.uuidGen.NewString(), clone.ID)
		if src.ID == itemID {
			patch.Apply(item)
			patched = true
		}
		items = append(items, item)
	}
	if !patched {
		return nil, domain.ErrItemNotFound
	}

	clone.ArtifactURI = s.snapshot(ctx, clone, items)

	if err := s.setRepo.CreateSetWithItems(ctx, clone, items); err != nil {
		span.SetError(err)
		return nil, err
	}
	return clone, nil
}

// GetSet returns a non-deleted set owned by the project.
func (s *VersionedSetService) GetSet(ctx context.Context, projectID, setID string) (*domain.VersionedSet, error) {
	return s.getVisibleSet(ctx, projectID, setID)
}

// GetActive returns the active set for an explicit scope key.
func (s *VersionedSetService) GetActive(ctx context.Context, kind domain.SetKind, scopeKey string) (*domain.VersionedSet, error) {
	set, err := s.setRepo.GetActive(ctx, kind, scopeKey)
	if err != nil {
		if kind == domain.SetKindSegment {
			return nil, domain.ErrNoActiveSegmentSet
		}
		return nil, domain.ErrNoActiveChunkSet
	}
	return set, nil
}

// ListSets pages through a project's sets of one kind, newest first.
func (s *VersionedSetService) ListSets(ctx context.Context, kind domain.SetKind, projectID string, limit int, cursor string) ([]*domain.VersionedSet, string, bool, int, error) {
	page := pagination.Paginate(limit, cursor, s.pageDefault, s.pageMax)

	total, err := s.setRepo.CountByProject(ctx, kind, projectID)
	if err != nil {
		return nil, "", false, 0, err
	}
	sets, err := s.setRepo.ListByProject(ctx, kind, projectID, page.Limit, page.Offset)
	if err != nil {
		return nil, "", false, 0, err
	}

	next := ""
	hasMore := page.Offset+len(sets) < total
	if hasMore {
		next = pagination.EncodeCursor(page.Offset + len(sets))
	}
	return sets, next, hasMore, total, nil
}

// ListItems pages through a set's items in position order.
func (s *VersionedSetService) ListItems(ctx context.Context, projectID, setID string, limit int, cursor string) ([]*domain.Item, string, bool, int, error) {
	if _, err := s.getVisibleSet(ctx, projectID, setID); err != nil {
		return nil, "", false, 0, err
	}

	items, err := s.setRepo.ListItems(ctx, setID)
	if err != nil {
		return nil, "", false, 0, err
	}

	page := pagination.Paginate(limit, cursor, s.pageDefault, s.pageMax)
	result := pagination.Slice(items, page)
	return result.Items, result.NextCursor, result.HasMore, result.Total, nil
}

// Delete soft-deletes a set version. Item rows and artifacts stay intact.
func (s *VersionedSetService) Delete(ctx context.Context, projectID, setID string) error {
	ctx, span := telemetry.StartSpan(ctx, "VersionedSetService.Delete", telemetry.SpanAttributes{
		ProjectID: projectID,
		SetID:     setID,
		Operation: "delete",
	})
	defer span.End()

	if _, err := s.getVisibleSet(ctx, projectID, setID); err != nil {
		return err
	}
	return s.setRepo.SetDeleted(ctx, setID, true)
}

// Restore clears the soft-delete flag.
func (s *VersionedSetService) Restore(ctx context.Context, projectID, setID string) (*domain.VersionedSet, error) {
	set, err := s.setRepo.GetSet(ctx, setID)
	if err != nil {
		return nil, err
	}
	if set.ProjectID != projectID {
		return nil, domain.ErrSetNotFound
	}
	if err := s.setRepo.SetDeleted(ctx, setID, false); err != nil {
		return nil, err
	}
	set.IsDeleted = false
	return set, nil
}

func (s *VersionedSetService) getVisibleSet(ctx context.Context, projectID, setID string) (*domain.VersionedSet, error) {
	set, err := s.setRepo.GetSet(ctx, setID)
	if err != nil {
		return nil, err
	}
	if set.ProjectID != projectID || set.IsDeleted {
		return nil, domain.ErrSetNotFound
	}
	return set, nil
}

// snapshot mirrors the set's items into the object store. Best effort; a
// failed mirror never fails the write.
func (s *VersionedSetService) snapshot(ctx context.Context, set *domain.VersionedSet, items []*domain.Item) string {
	if s.objectStore == nil {
		return ""
	}

	name := "chunks.json"
	if set.Kind == domain.SetKindSegment {
		name = "segments.json"
	}
	key := fmt.Sprintf("projects/%s/sets/%s/%s", set.ProjectID, set.ID, name)

	uri, err := s.objectStore.PutJSON(ctx, key, items)
	if err != nil {
		log.Printf("versioned set: snapshot %s: %v", set.ID, err)
		return ""
	}
	return uri
}
