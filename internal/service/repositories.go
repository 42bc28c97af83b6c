package service

import (
	"context"

	"github.com/cloo-solutions/kbman/internal/domain"
)

// VersionedSetRepositoryInterface defines the repository interface for
// versioned set persistence
type VersionedSetRepositoryInterface interface {
	CreateSetWithItems(ctx context.Context, set *domain.VersionedSet, items []*domain.Item) error
	GetSet(ctx context.Context, id string) (*domain.VersionedSet, error)
	GetActive(ctx context.Context, kind domain.SetKind, scopeKey string) (*domain.VersionedSet, error)
	GetLatestActiveByProject(ctx context.Context, kind domain.SetKind, projectID string) (*domain.VersionedSet, error)
	CountActive(ctx context.Context, kind domain.SetKind, scopeKey string) (int, error)
	ListByProject(ctx context.Context, kind domain.SetKind, projectID string, limit, offset int) ([]*domain.VersionedSet, error)
	CountByProject(ctx context.Context, kind domain.SetKind, projectID string) (int, error)
	ListItems(ctx context.Context, setVersionID string) ([]*domain.Item, error)
	SetDeleted(ctx context.Context, id string, deleted bool) error
}

// IndexRepositoryInterface defines the repository interface for index and
// build persistence
type IndexRepositoryInterface interface {
	CreateIndex(ctx context.Context, idx *domain.Index) error
	GetIndex(ctx context.Context, id string) (*domain.Index, error)
	ListIndexes(ctx context.Context, projectID string) ([]*domain.Index, error)
	UpdateIndex(ctx context.Context, idx *domain.Index) error
	CreateBuild(ctx context.Context, build *domain.IndexBuild) error
	GetBuild(ctx context.Context, id string) (*domain.IndexBuild, error)
	ListBuilds(ctx context.Context, indexID string) ([]*domain.IndexBuild, error)
	UpdateBuild(ctx context.Context, build *domain.IndexBuild) error
}

// RetrievalRunRepositoryInterface defines the repository interface for
// persisted retrieval runs
type RetrievalRunRepositoryInterface interface {
	Create(ctx context.Context, run *domain.RetrievalRun) error
	Get(ctx context.Context, id string) (*domain.RetrievalRun, error)
	ListByProject(ctx context.Context, projectID string, limit, offset int) ([]*domain.RetrievalRun, error)
	CountByProject(ctx context.Context, projectID string) (int, error)
	SetDeleted(ctx context.Context, id string, deleted bool) error
}

// JobRepositoryInterface defines the repository interface for background jobs
type JobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.Job) error
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	ListByProject(ctx context.Context, projectID string, limit, offset int) ([]*domain.Job, error)
	ClaimQueued(ctx context.Context, limit int) ([]*domain.Job, error)
	UpdateStatus(ctx context.Context, id string, status domain.JobStatus, result map[string]any, errMsg string) error
}

// ProjectRepositoryInterface defines the repository interface for projects
type ProjectRepositoryInterface interface {
	Create(ctx context.Context, project *domain.Project) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Project, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, project *domain.Project) error
	Delete(ctx context.Context, id string) error
}

// DocumentRepositoryInterface defines the repository interface for documents
// and their versions
type DocumentRepositoryInterface interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByProject(ctx context.Context, projectID string, limit, offset int) ([]*domain.Document, error)
	CountByProject(ctx context.Context, projectID string) (int, error)
	SetDeleted(ctx context.Context, id string, deleted bool) error
	CreateVersion(ctx context.Context, version *domain.DocumentVersion) error
	GetVersion(ctx context.Context, id string) (*domain.DocumentVersion, error)
	GetActiveVersion(ctx context.Context, documentID string) (*domain.DocumentVersion, error)
	ListVersions(ctx context.Context, documentID string) ([]*domain.DocumentVersion, error)
}
