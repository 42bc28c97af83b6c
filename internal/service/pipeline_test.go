package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/kbman/internal/domain"
	"github.com/cloo-solutions/kbman/internal/segmenter"
)

// memSetRepo is an in-memory set repository so the pipeline stages can see
// each other's output within a single test.
type memSetRepo struct {
	sets  map[string]*domain.VersionedSet
	items map[string][]*domain.Item
	order []string
}

func newMemSetRepo() *memSetRepo {
	return &memSetRepo{
		sets:  map[string]*domain.VersionedSet{},
		items: map[string][]*domain.Item{},
	}
}

func (r *memSetRepo) CreateSetWithItems(ctx context.Context, set *domain.VersionedSet, items []*domain.Item) error {
	for _, existing := range r.sets {
		if existing.Kind == set.Kind && existing.ScopeKey() == set.ScopeKey() {
			existing.IsActive = false
		}
	}
	copied := *set
	r.sets[set.ID] = &copied
	r.items[set.ID] = items
	r.order = append(r.order, set.ID)
	return nil
}

func (r *memSetRepo) GetSet(ctx context.Context, id string) (*domain.VersionedSet, error) {
	set, ok := r.sets[id]
	if !ok {
		return nil, domain.ErrSetNotFound
	}
	return set, nil
}

func (r *memSetRepo) GetActive(ctx context.Context, kind domain.SetKind, scopeKey string) (*domain.VersionedSet, error) {
	for _, set := range r.sets {
		if set.Kind == kind && set.ScopeKey() == scopeKey && set.IsActive && !set.IsDeleted {
			return set, nil
		}
	}
	return nil, domain.ErrSetNotFound
}

func (r *memSetRepo) GetLatestActiveByProject(ctx context.Context, kind domain.SetKind, projectID string) (*domain.VersionedSet, error) {
	for i := len(r.order) - 1; i >= 0; i-- {
		set := r.sets[r.order[i]]
		if set.Kind == kind && set.ProjectID == projectID && set.IsActive && !set.IsDeleted {
			return set, nil
		}
	}
	return nil, domain.ErrSetNotFound
}

func (r *memSetRepo) CountActive(ctx context.Context, kind domain.SetKind, scopeKey string) (int, error) {
	count := 0
	for _, set := range r.sets {
		if set.Kind == kind && set.ScopeKey() == scopeKey && set.IsActive && !set.IsDeleted {
			count++
		}
	}
	return count, nil
}

func (r *memSetRepo) ListByProject(ctx context.Context, kind domain.SetKind, projectID string, limit, offset int) ([]*domain.VersionedSet, error) {
	var out []*domain.VersionedSet
	for _, id := range r.order {
		set := r.sets[id]
		if set.Kind == kind && set.ProjectID == projectID && !set.IsDeleted {
			out = append(out, set)
		}
	}
	return out, nil
}

func (r *memSetRepo) CountByProject(ctx context.Context, kind domain.SetKind, projectID string) (int, error) {
	sets, _ := r.ListByProject(ctx, kind, projectID, 0, 0)
	return len(sets), nil
}

func (r *memSetRepo) ListItems(ctx context.Context, setVersionID string) ([]*domain.Item, error) {
	return r.items[setVersionID], nil
}

func (r *memSetRepo) SetDeleted(ctx context.Context, id string, deleted bool) error {
	set, ok := r.sets[id]
	if !ok {
		return domain.ErrSetNotFound
	}
	set.IsDeleted = deleted
	return nil
}

func pipelineFixture(t *testing.T) (*PipelineService, *memSetRepo, *MockDocumentRepository, *MockIndexRepository, *MockJobRepository) {
	t.Helper()

	setRepo := newMemSetRepo()
	docRepo := new(MockDocumentRepository)
	indexRepo := new(MockIndexRepository)
	jobRepo := new(MockJobRepository)

	gen := &fixedUUIDGenerator{}
	sets := NewVersionedSetServiceWithUUIDGen(setRepo, nil, gen)
	blobs := &stubDocObjectStore{payload: []byte("first paragraph\n\nsecond paragraph")}

	svc := NewPipelineService(PipelineServiceDeps{
		Segments: NewSegmentService(sets, docRepo, blobs),
		Chunks:   NewChunkService(sets, setRepo),
		Indexes: NewIndexService(IndexServiceDeps{
			IndexRepo: indexRepo,
			SetRepo:   setRepo,
			UUIDGen:   gen,
		}),
		DocRepo: docRepo,
		JobRepo: jobRepo,
		UUIDGen: gen,
	})
	return svc, setRepo, docRepo, indexRepo, jobRepo
}

func TestPipelineRun_SegmentsChunksAndQueuesBuild(t *testing.T) {
	svc, setRepo, docRepo, indexRepo, _ := pipelineFixture(t)

	docRepo.On("GetActiveVersion", mock.Anything, "doc-1").Return(&domain.DocumentVersion{
		ID: "ver-1", DocumentID: "doc-1", IsActive: true,
	}, nil)
	docRepo.On("GetVersion", mock.Anything, "ver-1").Return(&domain.DocumentVersion{
		ID: "ver-1", DocumentID: "doc-1", IsActive: true,
	}, nil)
	docRepo.On("GetByID", mock.Anything, "doc-1").Return(&domain.Document{
		ID: "doc-1", ProjectID: "proj-1", StorageURI: "s3://kbman/projects/proj-1/documents/doc-1/a.md",
	}, nil)

	indexRepo.On("GetIndex", mock.Anything, "idx-1").Return(&domain.Index{
		ID: "idx-1", ProjectID: "proj-1", Provider: domain.ProviderPgvector,
	}, nil)
	var capturedBuild *domain.IndexBuild
	indexRepo.On("CreateBuild", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			capturedBuild = args.Get(1).(*domain.IndexBuild)
		}).Return(nil)

	result, err := svc.Run(context.Background(), PipelineInput{
		ProjectID:  "proj-1",
		DocumentID: "doc-1",
		IndexID:    "idx-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "ver-1", result.DocumentVersionID)

	segmentSet, err := setRepo.GetSet(context.Background(), result.SegmentSetID)
	require.NoError(t, err)
	assert.Equal(t, domain.SetKindSegment, segmentSet.Kind)
	assert.Equal(t, "ver-1", segmentSet.SourceID)
	assert.True(t, segmentSet.IsActive)

	chunkSet, err := setRepo.GetSet(context.Background(), result.ChunkSetID)
	require.NoError(t, err)
	assert.Equal(t, domain.SetKindChunk, chunkSet.Kind)
	assert.Equal(t, result.SegmentSetID, chunkSet.SourceID)
	assert.True(t, chunkSet.IsActive)

	chunks, err := setRepo.ListItems(context.Background(), chunkSet.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, chunks)

	require.NotNil(t, capturedBuild)
	assert.Equal(t, result.BuildID, capturedBuild.ID)
	assert.Equal(t, result.ChunkSetID, capturedBuild.ChunkSetVersionID)
	assert.Equal(t, domain.BuildStatusQueued, capturedBuild.Status)
	assert.NotEmpty(t, capturedBuild.Params["collection"])
}

func TestPipelineRun_NoIndexSkipsBuild(t *testing.T) {
	svc, _, docRepo, indexRepo, _ := pipelineFixture(t)

	docRepo.On("GetVersion", mock.Anything, "ver-1").Return(&domain.DocumentVersion{
		ID: "ver-1", DocumentID: "doc-1",
	}, nil)
	docRepo.On("GetByID", mock.Anything, "doc-1").Return(&domain.Document{
		ID: "doc-1", ProjectID: "proj-1", StorageURI: "s3://kbman/docs/a.md",
	}, nil)

	result, err := svc.Run(context.Background(), PipelineInput{
		ProjectID:         "proj-1",
		DocumentID:        "doc-1",
		DocumentVersionID: "ver-1",
	})
	require.NoError(t, err)

	assert.Empty(t, result.BuildID)
	indexRepo.AssertNotCalled(t, "CreateBuild", mock.Anything, mock.Anything)
}

func TestPipelineEnqueue_RecordsQueuedJob(t *testing.T) {
	svc, _, _, _, jobRepo := pipelineFixture(t)

	var captured *domain.Job
	jobRepo.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*domain.Job)
		}).Return(nil)

	job, err := svc.Enqueue(context.Background(), PipelineInput{
		ProjectID:        "proj-1",
		DocumentID:       "doc-1",
		IndexID:          "idx-1",
		ChunkPassthrough: true,
	})
	require.NoError(t, err)

	assert.Equal(t, job.ID, captured.ID)
	assert.Equal(t, domain.JobTypePipeline, captured.Type)
	assert.Equal(t, domain.JobStatusQueued, captured.Status)
	assert.Equal(t, "doc-1", captured.Payload["document_id"])
	assert.Equal(t, "idx-1", captured.Payload["index_id"])
	assert.Equal(t, true, captured.Payload["chunk_passthrough"])
}

func TestPipelinePayload_RoundTrip(t *testing.T) {
	input := PipelineInput{
		ProjectID:         "proj-1",
		DocumentID:        "doc-1",
		DocumentVersionID: "ver-1",
		IndexID:           "idx-1",
		ChunkPassthrough:  true,
		SegmentConfig: segmenter.Config{
			Loader:    segmenter.LoaderText,
			Chunker:   segmenter.ChunkerRegex,
			ChunkSize: 900,
			MinChars:  100,
			Overlap:   50,
			MaxChunks: 7,
			Pattern:   `\n#{1,3} `,
		},
		ChunkConfig: segmenter.Config{
			Loader:    segmenter.LoaderText,
			Chunker:   segmenter.ChunkerSentence,
			ChunkSize: 300,
			MinChars:  40,
			Overlap:   0,
		},
	}

	got := pipelineInputFromPayload("proj-1", pipelinePayload(input))

	assert.Equal(t, input.DocumentID, got.DocumentID)
	assert.Equal(t, input.DocumentVersionID, got.DocumentVersionID)
	assert.Equal(t, input.IndexID, got.IndexID)
	assert.Equal(t, input.ChunkPassthrough, got.ChunkPassthrough)
	assert.Equal(t, input.SegmentConfig, got.SegmentConfig)
	assert.Equal(t, input.ChunkConfig, got.ChunkConfig)
}
