package service

import (
	"context"
	"fmt"

	"github.com/stretchr/testify/mock"

	"github.com/cloo-solutions/kbman/internal/domain"
)

// fixedUUIDGenerator returns deterministic ids for assertions.
type fixedUUIDGenerator struct {
	next int
}

func (g *fixedUUIDGenerator) NewString() string {
	g.next++
	return fmt.Sprintf("uuid-%d", g.next)
}

type MockVersionedSetRepository struct {
	mock.Mock
}

func (m *MockVersionedSetRepository) CreateSetWithItems(ctx context.Context, set *domain.VersionedSet, items []*domain.Item) error {
	args := m.Called(ctx, set, items)
	return args.Error(0)
}

func (m *MockVersionedSetRepository) GetSet(ctx context.Context, id string) (*domain.VersionedSet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VersionedSet), args.Error(1)
}

func (m *MockVersionedSetRepository) GetActive(ctx context.Context, kind domain.SetKind, scopeKey string) (*domain.VersionedSet, error) {
	args := m.Called(ctx, kind, scopeKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VersionedSet), args.Error(1)
}

func (m *MockVersionedSetRepository) GetLatestActiveByProject(ctx context.Context, kind domain.SetKind, projectID string) (*domain.VersionedSet, error) {
	args := m.Called(ctx, kind, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VersionedSet), args.Error(1)
}

func (m *MockVersionedSetRepository) CountActive(ctx context.Context, kind domain.SetKind, scopeKey string) (int, error) {
	args := m.Called(ctx, kind, scopeKey)
	return args.Int(0), args.Error(1)
}

func (m *MockVersionedSetRepository) ListByProject(ctx context.Context, kind domain.SetKind, projectID string, limit, offset int) ([]*domain.VersionedSet, error) {
	args := m.Called(ctx, kind, projectID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.VersionedSet), args.Error(1)
}

func (m *MockVersionedSetRepository) CountByProject(ctx context.Context, kind domain.SetKind, projectID string) (int, error) {
	args := m.Called(ctx, kind, projectID)
	return args.Int(0), args.Error(1)
}

func (m *MockVersionedSetRepository) ListItems(ctx context.Context, setVersionID string) ([]*domain.Item, error) {
	args := m.Called(ctx, setVersionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Item), args.Error(1)
}

func (m *MockVersionedSetRepository) SetDeleted(ctx context.Context, id string, deleted bool) error {
	args := m.Called(ctx, id, deleted)
	return args.Error(0)
}

type MockIndexRepository struct {
	mock.Mock
}

func (m *MockIndexRepository) CreateIndex(ctx context.Context, idx *domain.Index) error {
	args := m.Called(ctx, idx)
	return args.Error(0)
}

func (m *MockIndexRepository) GetIndex(ctx context.Context, id string) (*domain.Index, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Index), args.Error(1)
}

func (m *MockIndexRepository) ListIndexes(ctx context.Context, projectID string) ([]*domain.Index, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Index), args.Error(1)
}

func (m *MockIndexRepository) UpdateIndex(ctx context.Context, idx *domain.Index) error {
	args := m.Called(ctx, idx)
	return args.Error(0)
}

func (m *MockIndexRepository) CreateBuild(ctx context.Context, build *domain.IndexBuild) error {
	args := m.Called(ctx, build)
	return args.Error(0)
}

func (m *MockIndexRepository) GetBuild(ctx context.Context, id string) (*domain.IndexBuild, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IndexBuild), args.Error(1)
}

func (m *MockIndexRepository) ListBuilds(ctx context.Context, indexID string) ([]*domain.IndexBuild, error) {
	args := m.Called(ctx, indexID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.IndexBuild), args.Error(1)
}

func (m *MockIndexRepository) UpdateBuild(ctx context.Context, build *domain.IndexBuild) error {
	args := m.Called(ctx, build)
	return args.Error(0)
}

type MockRetrievalRunRepository struct {
	mock.Mock
}

func (m *MockRetrievalRunRepository) Create(ctx context.Context, run *domain.RetrievalRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRetrievalRunRepository) Get(ctx context.Context, id string) (*domain.RetrievalRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RetrievalRun), args.Error(1)
}

func (m *MockRetrievalRunRepository) ListByProject(ctx context.Context, projectID string, limit, offset int) ([]*domain.RetrievalRun, error) {
	args := m.Called(ctx, projectID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RetrievalRun), args.Error(1)
}

func (m *MockRetrievalRunRepository) CountByProject(ctx context.Context, projectID string) (int, error) {
	args := m.Called(ctx, projectID)
	return args.Int(0), args.Error(1)
}

func (m *MockRetrievalRunRepository) SetDeleted(ctx context.Context, id string, deleted bool) error {
	args := m.Called(ctx, id, deleted)
	return args.Error(0)
}

type MockJobRepository struct {
	mock.Mock
}

func (m *MockJobRepository) Create(ctx context.Context, job *domain.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockJobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *MockJobRepository) ListByProject(ctx context.Context, projectID string, limit, offset int) ([]*domain.Job, error) {
	args := m.Called(ctx, projectID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Job), args.Error(1)
}

func (m *MockJobRepository) ClaimQueued(ctx context.Context, limit int) ([]*domain.Job, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Job), args.Error(1)
}

func (m *MockJobRepository) UpdateStatus(ctx context.Context, id string, status domain.JobStatus, result map[string]any, errMsg string) error {
	args := m.Called(ctx, id, status, result, errMsg)
	return args.Error(0)
}

type MockProjectRepository struct {
	mock.Mock
}

func (m *MockProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *MockProjectRepository) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockProjectRepository) List(ctx context.Context, limit, offset int) ([]*domain.Project, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Project), args.Error(1)
}

func (m *MockProjectRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockProjectRepository) Update(ctx context.Context, project *domain.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *MockProjectRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) ListByProject(ctx context.Context, projectID string, limit, offset int) ([]*domain.Document, error) {
	args := m.Called(ctx, projectID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) CountByProject(ctx context.Context, projectID string) (int, error) {
	args := m.Called(ctx, projectID)
	return args.Int(0), args.Error(1)
}

func (m *MockDocumentRepository) SetDeleted(ctx context.Context, id string, deleted bool) error {
	args := m.Called(ctx, id, deleted)
	return args.Error(0)
}

func (m *MockDocumentRepository) CreateVersion(ctx context.Context, version *domain.DocumentVersion) error {
	args := m.Called(ctx, version)
	return args.Error(0)
}

func (m *MockDocumentRepository) GetVersion(ctx context.Context, id string) (*domain.DocumentVersion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DocumentVersion), args.Error(1)
}

func (m *MockDocumentRepository) GetActiveVersion(ctx context.Context, documentID string) (*domain.DocumentVersion, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DocumentVersion), args.Error(1)
}

func (m *MockDocumentRepository) ListVersions(ctx context.Context, documentID string) ([]*domain.DocumentVersion, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.DocumentVersion), args.Error(1)
}

type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) PutJSON(ctx context.Context, key string, value any) (string, error) {
	args := m.Called(ctx, key, value)
	return args.String(0), args.Error(1)
}

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockEmbedder) Dimensions() int {
	args := m.Called()
	return args.Int(0)
}
