package service

import (
	"context"
	"strings"

	"github.com/cloo-solutions/kbman/internal/domain"
	"github.com/cloo-solutions/kbman/internal/segmenter"
	"github.com/cloo-solutions/kbman/internal/telemetry"
)

// BlobStore reads raw document payloads out of the object store.
type BlobStore interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
}

// SegmentService generates segment set versions for document versions.
type SegmentService struct {
	sets    *VersionedSetService
	docRepo DocumentRepositoryInterface
	blobs   BlobStore
	engine  *segmenter.Engine
}

func NewSegmentService(sets *VersionedSetService, docRepo DocumentRepositoryInterface, blobs BlobStore) *SegmentService {
	return &SegmentService{
		sets:    sets,
		docRepo: docRepo,
		blobs:   blobs,
		engine:  segmenter.NewEngine(),
	}
}

// SegmentInput drives one segmentation run. Content takes precedence over
// the stored document payload when both are available.
type SegmentInput struct {
	ProjectID         string
	DocumentVersionID string
	Content           string
	Config            segmenter.Config
}

// CreateFromDocumentVersion splits a document version into segments and
// writes them as the new active segment set for that version.
func (s *SegmentService) CreateFromDocumentVersion(ctx context.Context, input SegmentInput) (*domain.VersionedSet, error) {
	ctx, span := telemetry.StartSpan(ctx, "SegmentService.CreateFromDocumentVersion", telemetry.SpanAttributes{
		ProjectID: input.ProjectID,
		Operation: "segment",
	})
	defer span.End()

	version, err := s.docRepo.GetVersion(ctx, input.DocumentVersionID)
	if err != nil {
		return nil, err
	}
	if version.IsDeleted {
		return nil, domain.ErrDocumentVersionNotFound
	}
	doc, err := s.docRepo.GetByID(ctx, version.DocumentID)
	if err != nil {
		return nil, err
	}
	if doc.ProjectID != input.ProjectID || doc.IsDeleted {
		return nil, domain.ErrDocumentNotFound
	}

	raw := []byte(input.Content)
	if len(raw) == 0 {
		raw, err = s.loadPayload(ctx, doc)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
	}

	pieces, err := s.engine.Split(raw, input.Config)
	if err != nil {
		return nil, err
	}

	items := make([]ItemInput, 0, len(pieces))
	for _, p := range pieces {
		items = append(items, ItemInput{
			Content:  p.Content,
			Metadata: p.Metadata,
			Type:     domain.ItemTypeText,
		})
	}

	return s.sets.CreateSet(ctx, CreateSetInput{
		Kind:     domain.SetKindSegment,
		Project:  input.ProjectID,
		SourceID: version.ID,
		Params:   segmentParams(input.Config),
		Items:    items,
	})
}

func (s *SegmentService) loadPayload(ctx context.Context, doc *domain.Document) ([]byte, error) {
	if s.blobs == nil || doc.StorageURI == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "document has no stored payload and no inline content was given")
	}
	return s.blobs.GetBytes(ctx, storageKey(doc.StorageURI))
}

// storageKey strips the s3://bucket/ prefix off a stored URI, leaving the
// object key. Bare keys pass through unchanged.
func storageKey(uri string) string {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return uri
	}
	if _, key, found := strings.Cut(rest, "/"); found {
		return key
	}
	return rest
}

func segmentParams(cfg segmenter.Config) map[string]any {
	params := map[string]any{
		"loader":     string(cfg.Loader),
		"chunker":    string(cfg.Chunker),
		"chunk_size": cfg.ChunkSize,
		"min_chars":  cfg.MinChars,
		"overlap":    cfg.Overlap,
	}
	if cfg.Pattern != "" {
		params["pattern"] = cfg.Pattern
	}
	if cfg.MaxChunks > 0 {
		params["max_chunks"] = cfg.MaxChunks
	}
	return params
}
