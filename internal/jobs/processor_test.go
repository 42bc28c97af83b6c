package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/kbman/internal/domain"
	"github.com/cloo-solutions/kbman/internal/service"
)

// statusUpdate records one UpdateStatus call.
type statusUpdate struct {
	jobID  string
	status domain.JobStatus
	result map[string]any
	errMsg string
}

type stubJobRepo struct {
	service.JobRepositoryInterface
	queued   []*domain.Job
	claimErr error
	updates  []statusUpdate
}

func (s *stubJobRepo) ClaimQueued(ctx context.Context, limit int) ([]*domain.Job, error) {
	if s.claimErr != nil {
		return nil, s.claimErr
	}
	jobs := s.queued
	s.queued = nil
	return jobs, nil
}

func (s *stubJobRepo) UpdateStatus(ctx context.Context, id string, status domain.JobStatus, result map[string]any, errMsg string) error {
	s.updates = append(s.updates, statusUpdate{jobID: id, status: status, result: result, errMsg: errMsg})
	return nil
}

type stubDocRepo struct {
	service.DocumentRepositoryInterface
	version *domain.DocumentVersion
	doc     *domain.Document
}

func (s *stubDocRepo) GetVersion(ctx context.Context, id string) (*domain.DocumentVersion, error) {
	return s.version, nil
}

func (s *stubDocRepo) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	return s.doc, nil
}

type stubSetRepo struct {
	service.VersionedSetRepositoryInterface
	sets  map[string]*domain.VersionedSet
	items map[string][]*domain.Item
}

func newStubSetRepo() *stubSetRepo {
	return &stubSetRepo{
		sets:  map[string]*domain.VersionedSet{},
		items: map[string][]*domain.Item{},
	}
}

func (s *stubSetRepo) CreateSetWithItems(ctx context.Context, set *domain.VersionedSet, items []*domain.Item) error {
	s.sets[set.ID] = set
	s.items[set.ID] = items
	return nil
}

func (s *stubSetRepo) GetSet(ctx context.Context, id string) (*domain.VersionedSet, error) {
	set, ok := s.sets[id]
	if !ok {
		return nil, domain.ErrSetNotFound
	}
	return set, nil
}

func (s *stubSetRepo) ListItems(ctx context.Context, setVersionID string) ([]*domain.Item, error) {
	return s.items[setVersionID], nil
}

type stubBlobs struct{}

func (stubBlobs) GetBytes(ctx context.Context, key string) ([]byte, error) {
	return []byte("stored document body"), nil
}

func pipelineService(jobRepo service.JobRepositoryInterface) *service.PipelineService {
	docRepo := &stubDocRepo{
		version: &domain.DocumentVersion{ID: "ver-1", DocumentID: "doc-1", IsActive: true},
		doc:     &domain.Document{ID: "doc-1", ProjectID: "proj-1", StorageURI: "s3://kbman/docs/a.md"},
	}
	setRepo := newStubSetRepo()
	sets := service.NewVersionedSetService(setRepo, nil)
	return service.NewPipelineService(service.PipelineServiceDeps{
		Segments: service.NewSegmentService(sets, docRepo, stubBlobs{}),
		Chunks:   service.NewChunkService(sets, setRepo),
		DocRepo:  docRepo,
		JobRepo:  jobRepo,
	})
}

func TestProcessJobs_PipelineJobSucceeds(t *testing.T) {
	repo := &stubJobRepo{
		queued: []*domain.Job{{
			ID:        "job-1",
			ProjectID: "proj-1",
			Type:      domain.JobTypePipeline,
			Status:    domain.JobStatusRunning,
			Payload: map[string]any{
				"document_id":         "doc-1",
				"document_version_id": "ver-1",
				"chunk_passthrough":   true,
			},
		}},
	}
	p := NewProcessor(repo, nil, pipelineService(repo))

	require.NoError(t, p.ProcessJobs(context.Background()))

	require.Len(t, repo.updates, 1)
	update := repo.updates[0]
	assert.Equal(t, "job-1", update.jobID)
	assert.Equal(t, domain.JobStatusSucceeded, update.status)
	assert.Equal(t, "ver-1", update.result["document_version_id"])
	assert.NotEmpty(t, update.result["segment_set_id"])
	assert.NotEmpty(t, update.result["chunk_set_id"])
	assert.Empty(t, update.errMsg)
}

func TestProcessJobs_RecordsFailureForUnknownType(t *testing.T) {
	repo := &stubJobRepo{
		queued: []*domain.Job{{
			ID:        "job-1",
			ProjectID: "proj-1",
			Type:      domain.JobType("mystery"),
			Status:    domain.JobStatusRunning,
		}},
	}
	p := NewProcessor(repo, nil, nil)

	require.NoError(t, p.ProcessJobs(context.Background()))

	require.Len(t, repo.updates, 1)
	assert.Equal(t, domain.JobStatusFailed, repo.updates[0].status)
	assert.Contains(t, repo.updates[0].errMsg, "unknown job type")
}

func TestProcessJobs_IndexBuildWithoutBuildIDFails(t *testing.T) {
	repo := &stubJobRepo{
		queued: []*domain.Job{{
			ID:        "job-1",
			ProjectID: "proj-1",
			Type:      domain.JobTypeIndexBuild,
			Status:    domain.JobStatusRunning,
			Payload:   map[string]any{},
		}},
	}
	p := NewProcessor(repo, nil, nil)

	require.NoError(t, p.ProcessJobs(context.Background()))

	require.Len(t, repo.updates, 1)
	assert.Equal(t, domain.JobStatusFailed, repo.updates[0].status)
	assert.Contains(t, repo.updates[0].errMsg, "build_id")
}

func TestProcessJobs_ClaimErrorPropagates(t *testing.T) {
	repo := &stubJobRepo{claimErr: errors.New("connection reset")}
	p := NewProcessor(repo, nil, nil)

	err := p.ProcessJobs(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to claim jobs")
	assert.Empty(t, repo.updates)
}
