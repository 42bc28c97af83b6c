package service

import (
	"context"

	"github.com/cloo-solutions/kbman/internal/domain"
	"github.com/cloo-solutions/kbman/internal/segmenter"
	"github.com/cloo-solutions/kbman/internal/telemetry"
)

// ChunkService derives chunk set versions from segment sets. A chunk set is
// project scoped; activating one deactivates the project's previous chunk
// set regardless of which segment set produced it.
type ChunkService struct {
	sets    *VersionedSetService
	setRepo VersionedSetRepositoryInterface
	engine  *segmenter.Engine
}

func NewChunkService(sets *VersionedSetService, setRepo VersionedSetRepositoryInterface) *ChunkService {
	return &ChunkService{
		sets:    sets,
		setRepo: setRepo,
		engine:  segmenter.NewEngine(),
	}
}

// ChunkInput drives one chunk set build. When SegmentSetID is empty the
// project's active segment sets are not guessed; callers resolve the set
// first. Passthrough skips re-splitting and carries segments over one to
// one.
type ChunkInput struct {
	ProjectID    string
	SegmentSetID string
	Passthrough  bool
	Config       segmenter.Config
}

// BuildFromSegmentSet re-chunks every segment of a segment set into a new
// active chunk set. Each chunk records the segment item it came from.
func (s *ChunkService) BuildFromSegmentSet(ctx context.Context, input ChunkInput) (*domain.VersionedSet, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChunkService.BuildFromSegmentSet", telemetry.SpanAttributes{
		ProjectID: input.ProjectID,
		SetID:     input.SegmentSetID,
		Operation: "chunk",
	})
	defer span.End()

	source, err := s.setRepo.GetSet(ctx, input.SegmentSetID)
	if err != nil {
		return nil, err
	}
	if source.Kind != domain.SetKindSegment || source.ProjectID != input.ProjectID || source.IsDeleted {
		return nil, domain.ErrSetNotFound
	}

	segments, err := s.setRepo.ListItems(ctx, source.ID)
	if err != nil {
		return nil, err
	}

	var items []ItemInput
	for _, seg := range segments {
		if input.Passthrough {
			items = append(items, chunkItem(seg, seg.Content))
			continue
		}
		pieces, err := s.engine.Split([]byte(seg.Content), input.Config)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
		for _, p := range pieces {
			items = append(items, chunkItem(seg, p.Content))
		}
	}

	params := segmentParams(input.Config)
	params["segment_set_id"] = source.ID
	params["passthrough"] = input.Passthrough

	return s.sets.CreateSet(ctx, CreateSetInput{
		Kind:     domain.SetKindChunk,
		Project:  input.ProjectID,
		SourceID: source.ID,
		Params:   params,
		Items:    items,
	})
}

func chunkItem(seg *domain.Item, content string) ItemInput {
	meta := map[string]any{
		"segment_item_id": seg.ID,
	}
	for k, v := range seg.Metadata {
		if _, taken := meta[k]; !taken {
			meta[k] = v
		}
	}
	return ItemInput{
		Content:  content,
		Metadata: meta,
		ParentID: seg.ID,
		Level:    seg.Level + 1,
		Path:     seg.Path,
		Type:     seg.Type,
	}
}
