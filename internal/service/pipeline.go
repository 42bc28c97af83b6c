package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/kbman/internal/domain"
	"github.com/cloo-solutions/kbman/internal/segmenter"
	"github.com/cloo-solutions/kbman/internal/telemetry"
)

// PipelineService chains the ingestion stages: segment the active document
// version, chunk the resulting segment set, and optionally queue an index
// build against the new chunk set. Each stage activates its output before
// the next begins, so a failure partway leaves the earlier stages live.
type PipelineService struct {
	segments *SegmentService
	chunks   *ChunkService
	indexes  *IndexService
	docRepo  DocumentRepositoryInterface
	jobRepo  JobRepositoryInterface
	uuidGen  UUIDGenerator
}

type PipelineServiceDeps struct {
	Segments *SegmentService
	Chunks   *ChunkService
	Indexes  *IndexService
	DocRepo  DocumentRepositoryInterface
	JobRepo  JobRepositoryInterface
	UUIDGen  UUIDGenerator
}

func NewPipelineService(deps PipelineServiceDeps) *PipelineService {
	if deps.UUIDGen == nil {
		deps.UUIDGen = &DefaultUUIDGenerator{}
	}
	return &PipelineService{
		segments: deps.Segments,
		chunks:   deps.Chunks,
		indexes:  deps.Indexes,
		docRepo:  deps.DocRepo,
		jobRepo:  deps.JobRepo,
		uuidGen:  deps.UUIDGen,
	}
}

// PipelineInput drives one ingestion run for a document.
type PipelineInput struct {
	ProjectID         string
	DocumentID        string
	DocumentVersionID string // empty means the active version
	SegmentConfig     segmenter.Config
	ChunkConfig       segmenter.Config
	ChunkPassthrough  bool
	IndexID           string // non-empty queues a build of the new chunk set
}

// PipelineResult reports the artifacts one run produced.
type PipelineResult struct {
	DocumentVersionID string
	SegmentSetID      string
	ChunkSetID        string
	BuildID           string
}

// Run executes the pipeline synchronously.
func (s *PipelineService) Run(ctx context.Context, input PipelineInput) (*PipelineResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "PipelineService.Run", telemetry.SpanAttributes{
		ProjectID: input.ProjectID,
		Operation: "pipeline",
	})
	defer span.End()

	versionID := input.DocumentVersionID
	if versionID == "" {
		version, err := s.docRepo.GetActiveVersion(ctx, input.DocumentID)
		if err != nil {
			return nil, err
		}
		versionID = version.ID
	}

	segmentSet, err := s.segments.CreateFromDocumentVersion(ctx, SegmentInput{
		ProjectID:         input.ProjectID,
		DocumentVersionID: versionID,
		Config:            input.SegmentConfig,
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	chunkSet, err := s.chunks.BuildFromSegmentSet(ctx, ChunkInput{
		ProjectID:    input.ProjectID,
		SegmentSetID: segmentSet.ID,
		Passthrough:  input.ChunkPassthrough,
		Config:       input.ChunkConfig,
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	result := &PipelineResult{
		DocumentVersionID: versionID,
		SegmentSetID:      segmentSet.ID,
		ChunkSetID:        chunkSet.ID,
	}

	if input.IndexID != "" {
		build, err := s.indexes.CreateBuild(ctx, CreateBuildInput{
			ProjectID:         input.ProjectID,
			IndexID:           input.IndexID,
			ChunkSetVersionID: chunkSet.ID,
		})
		if err != nil {
			span.SetError(err)
			return nil, err
		}
		result.BuildID = build.ID
	}
	return result, nil
}

// Enqueue records the pipeline as a background job for the worker pool.
func (s *PipelineService) Enqueue(ctx context.Context, input PipelineInput) (*domain.Job, error) {
	ctx, span := telemetry.StartSpan(ctx, "PipelineService.Enqueue", telemetry.SpanAttributes{
		ProjectID: input.ProjectID,
		Operation: "enqueue_pipeline",
	})
	defer span.End()

	now := time.Now().UTC()
	job := &domain.Job{
		ID:        s.uuidGen.NewString(),
		ProjectID: input.ProjectID,
		Type:      domain.JobTypePipeline,
		Status:    domain.JobStatusQueued,
		Payload:   pipelinePayload(input),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		span.SetError(err)
		return nil, err
	}
	return job, nil
}

// RunFromPayload rehydrates a queued pipeline job and executes it.
func (s *PipelineService) RunFromPayload(ctx context.Context, projectID string, payload map[string]any) (*PipelineResult, error) {
	return s.Run(ctx, pipelineInputFromPayload(projectID, payload))
}

func pipelinePayload(input PipelineInput) map[string]any {
	payload := map[string]any{
		"document_id": input.DocumentID,
	}
	if input.DocumentVersionID != "" {
		payload["document_version_id"] = input.DocumentVersionID
	}
	if input.IndexID != "" {
		payload["index_id"] = input.IndexID
	}
	if input.ChunkPassthrough {
		payload["chunk_passthrough"] = true
	}
	payload["segment_config"] = segmentParams(input.SegmentConfig)
	payload["chunk_config"] = segmentParams(input.ChunkConfig)
	return payload
}

func pipelineInputFromPayload(projectID string, payload map[string]any) PipelineInput {
	input := PipelineInput{
		ProjectID:         projectID,
		DocumentID:        stringValue(payload, "document_id"),
		DocumentVersionID: stringValue(payload, "document_version_id"),
		IndexID:           stringValue(payload, "index_id"),
		SegmentConfig:     configFromParams(payload, "segment_config"),
		ChunkConfig:       configFromParams(payload, "chunk_config"),
	}
	if v, ok := payload["chunk_passthrough"].(bool); ok {
		input.ChunkPassthrough = v
	}
	return input
}

func configFromParams(payload map[string]any, key string) segmenter.Config {
	cfg := segmenter.DefaultConfig()
	raw, ok := payload[key].(map[string]any)
	if !ok {
		return cfg
	}
	if v := stringValue(raw, "loader"); v != "" {
		cfg.Loader = segmenter.LoaderType(v)
	}
	if v := stringValue(raw, "chunker"); v != "" {
		cfg.Chunker = segmenter.ChunkerStrategy(v)
	}
	if v, ok := intValue(raw, "chunk_size"); ok {
		cfg.ChunkSize = v
	}
	if v, ok := intValue(raw, "min_chars"); ok {
		cfg.MinChars = v
	}
	if v, ok := intValue(raw, "overlap"); ok {
		cfg.Overlap = v
	}
	if v, ok := intValue(raw, "max_chunks"); ok {
		cfg.MaxChunks = v
	}
	cfg.Pattern = stringValue(raw, "pattern")
	return cfg
}

func stringValue(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

// intValue tolerates the float64 that JSON round-trips produce.
func intValue(m map[string]any, key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}
