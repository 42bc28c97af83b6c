package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloo-solutions/kbman/internal/domain"
	"github.com/cloo-solutions/kbman/internal/telemetry"
	"github.com/cloo-solutions/kbman/internal/vectorindex"
)

const embedBatchSize = 64

// IndexService manages index definitions and runs index builds. A build
// snapshots one immutable chunk set version into a fresh provider
// collection; a succeeded build is the unit retrieval targets.
type IndexService struct {
	indexRepo   IndexRepositoryInterface
	setRepo     VersionedSetRepositoryInterface
	providers   *vectorindex.Registry
	embedder    Embedder
	objectStore ObjectStore
	uuidGen     UUIDGenerator
}

type IndexServiceDeps struct {
	IndexRepo   IndexRepositoryInterface
	SetRepo     VersionedSetRepositoryInterface
	Providers   *vectorindex.Registry
	Embedder    Embedder
	ObjectStore ObjectStore
	UUIDGen     UUIDGenerator
}

func NewIndexService(deps IndexServiceDeps) *IndexService {
	if deps.Providers == nil {
		deps.Providers = vectorindex.NewRegistry()
	}
	if deps.UUIDGen == nil {
		deps.UUIDGen = &DefaultUUIDGenerator{}
	}
	return &IndexService{
		indexRepo:   deps.IndexRepo,
		setRepo:     deps.SetRepo,
		providers:   deps.Providers,
		embedder:    deps.Embedder,
		objectStore: deps.ObjectStore,
		uuidGen:     deps.UUIDGen,
	}
}

// CreateIndexInput defines a new index.
type CreateIndexInput struct {
	ProjectID string
	Name      string
	Provider  domain.IndexProvider
	Config    map[string]any
	Params    map[string]any
}

// CreateIndex registers an index definition. The provider must be known
// and registered; an unregistered provider fails here rather than at
// build time.
func (s *IndexService) CreateIndex(ctx context.Context, input CreateIndexInput) (*domain.Index, error) {
	ctx, span := telemetry.StartSpan(ctx, "IndexService.CreateIndex", telemetry.SpanAttributes{
		ProjectID: input.ProjectID,
		Operation: "create_index",
	})
	defer span.End()

	if strings.TrimSpace(input.Name) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "index name is required")
	}
	if _, err := s.providers.Get(input.Provider); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	idx := &domain.Index{
		ID:        s.uuidGen.NewString(),
		ProjectID: input.ProjectID,
		Name:      strings.TrimSpace(input.Name),
		Provider:  input.Provider,
		Config:    input.Config,
		Params:    input.Params,
		Status:    domain.IndexStatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.indexRepo.CreateIndex(ctx, idx); err != nil {
		span.SetError(err)
		return nil, err
	}
	return idx, nil
}

// GetIndex returns a non-deleted index owned by the project.
func (s *IndexService) GetIndex(ctx context.Context, projectID, indexID string) (*domain.Index, error) {
	return s.getVisibleIndex(ctx, projectID, indexID)
}

// ListIndexes returns a project's indexes, newest first.
func (s *IndexService) ListIndexes(ctx context.Context, projectID string) ([]*domain.Index, error) {
	return s.indexRepo.ListIndexes(ctx, projectID)
}

// DeleteIndex soft-deletes an index. Builds and their collections stay.
func (s *IndexService) DeleteIndex(ctx context.Context, projectID, indexID string) error {
	idx, err := s.getVisibleIndex(ctx, projectID, indexID)
	if err != nil {
		return err
	}
	idx.IsDeleted = true
	idx.UpdatedAt = time.Now().UTC()
	return s.indexRepo.UpdateIndex(ctx, idx)
}

// CreateBuildInput queues a build. An empty ChunkSetVersionID pins the
// project's current active chunk set.
type CreateBuildInput struct {
	ProjectID         string
	IndexID           string
	ChunkSetVersionID string
	Params            map[string]any
}

// CreateBuild pins a chunk set version and queues a build against it. The
// build writes into its own collection so reruns never clobber a build a
// retrieval run may still be targeting.
func (s *IndexService) CreateBuild(ctx context.Context, input CreateBuildInput) (*domain.IndexBuild, error) {
	ctx, span := telemetry.StartSpan(ctx, "IndexService.CreateBuild", telemetry.SpanAttributes{
		ProjectID: input.ProjectID,
		IndexID:   input.IndexID,
		Operation: "create_build",
	})
	defer span.End()

	idx, err := s.getVisibleIndex(ctx, input.ProjectID, input.IndexID)
	if err != nil {
		return nil, err
	}

	chunkSet, err := s.resolveChunkSet(ctx, input.ProjectID, input.ChunkSetVersionID)
	if err != nil {
		return nil, err
	}

	buildID := s.uuidGen.NewString()
	params := make(map[string]any, len(input.Params)+1)
	for k, v := range input.Params {
		params[k] = v
	}
	if _, ok := params["collection"]; !ok {
		params["collection"] = fmt.Sprintf("kb_build_%s", buildID)
	}

	now := time.Now().UTC()
	build := &domain.IndexBuild{
		ID:                buildID,
		IndexID:           idx.ID,
		ProjectID:         input.ProjectID,
		ChunkSetVersionID: chunkSet.ID,
		Params:            params,
		Status:            domain.BuildStatusQueued,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.indexRepo.CreateBuild(ctx, build); err != nil {
		span.SetError(err)
		return nil, err
	}
	return build, nil
}

// GetBuild returns a build owned by the project.
func (s *IndexService) GetBuild(ctx context.Context, projectID, buildID string) (*domain.IndexBuild, error) {
	build, err := s.indexRepo.GetBuild(ctx, buildID)
	if err != nil {
		return nil, err
	}
	if build.ProjectID != projectID || build.IsDeleted {
		return nil, domain.ErrIndexBuildNotFound
	}
	return build, nil
}

// ListBuilds returns an index's builds, newest first.
func (s *IndexService) ListBuilds(ctx context.Context, projectID, indexID string) ([]*domain.IndexBuild, error) {
	if _, err := s.getVisibleIndex(ctx, projectID, indexID); err != nil {
		return nil, err
	}
	return s.indexRepo.ListBuilds(ctx, indexID)
}

// RunBuild executes one queued build to a terminal state. Failures are
// recorded on the build and never retried automatically.
func (s *IndexService) RunBuild(ctx context.Context, buildID string) (*domain.IndexBuild, error) {
	build, err := s.indexRepo.GetBuild(ctx, buildID)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "IndexService.RunBuild", telemetry.SpanAttributes{
		ProjectID: build.ProjectID,
		IndexID:   build.IndexID,
		Operation: "run_build",
	})
	defer span.End()

	if build.Status.IsTerminal() {
		return build, nil
	}
	if build.Status == domain.BuildStatusQueued {
		build.Status = domain.BuildStatusRunning
		build.UpdatedAt = time.Now().UTC()
		if err := s.indexRepo.UpdateBuild(ctx, build); err != nil {
			return nil, err
		}
	}

	if runErr := s.executeBuild(ctx, build); runErr != nil {
		span.SetError(runErr)
		build.Status = domain.BuildStatusFailed
		build.Error = runErr.Error()
		build.UpdatedAt = time.Now().UTC()
		if err := s.indexRepo.UpdateBuild(ctx, build); err != nil {
			return nil, err
		}
		return build, runErr
	}

	build.Status = domain.BuildStatusSucceeded
	build.Error = ""
	build.UpdatedAt = time.Now().UTC()
	if err := s.indexRepo.UpdateBuild(ctx, build); err != nil {
		return nil, err
	}
	return build, nil
}

func (s *IndexService) executeBuild(ctx context.Context, build *domain.IndexBuild) error {
	idx, err := s.indexRepo.GetIndex(ctx, build.IndexID)
	if err != nil {
		return err
	}
	provider, err := s.providers.Get(idx.Provider)
	if err != nil {
		return err
	}
	if s.embedder == nil {
		return domain.NewDomainError(domain.ErrCodeUnsupportedProvider, "embedding provider is not configured")
	}

	items, err := s.setRepo.ListItems(ctx, build.ChunkSetVersionID)
	if err != nil {
		return err
	}

	collection := collectionForBuild(idx, build)
	if err := provider.EnsureCollection(ctx, collection, s.embedder.Dimensions()); err != nil {
		return err
	}

	for start := 0; start < len(items); start += embedBatchSize {
		end := min(start+embedBatchSize, len(items))
		batch := items[start:end]

		texts := make([]string, len(batch))
		for i, item := range batch {
			texts[i] = item.Content
		}
		vectors, err := s.embedder.GenerateEmbeddings(ctx, texts)
		if err != nil {
			return err
		}

		points := make([]vectorindex.Point, len(batch))
		for i, item := range batch {
			points[i] = vectorindex.Point{
				ItemID:  item.ID,
				Vector:  vectors[i],
				Content: item.Content,
				Metadata: map[string]any{
					"item_id":              item.ID,
					"position":             item.Position,
					"chunk_set_version_id": build.ChunkSetVersionID,
				},
			}
		}
		if err := provider.Upsert(ctx, collection, points); err != nil {
			return err
		}
	}

	build.ArtifactURI = s.writeManifest(ctx, idx, build, collection, len(items))

	if idx.Status != domain.IndexStatusReady {
		idx.Status = domain.IndexStatusReady
		idx.UpdatedAt = time.Now().UTC()
		if err := s.indexRepo.UpdateIndex(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}

// writeManifest records what the build indexed. Best effort.
func (s *IndexService) writeManifest(ctx context.Context, idx *domain.Index, build *domain.IndexBuild, collection string, count int) string {
	if s.objectStore == nil {
		return ""
	}
	manifest := map[string]any{
		"build_id":             build.ID,
		"index_id":             idx.ID,
		"provider":             string(idx.Provider),
		"collection":           collection,
		"chunk_set_version_id": build.ChunkSetVersionID,
		"embedding_model":      embeddingModel(idx),
		"point_count":          count,
		"built_at":             time.Now().UTC().Format(time.RFC3339),
	}
	key := fmt.Sprintf("projects/%s/index_builds/%s/manifest.json", build.ProjectID, build.ID)
	uri, err := s.objectStore.PutJSON(ctx, key, manifest)
	if err != nil {
		log.Printf("index build: manifest %s: %v", build.ID, err)
		return ""
	}
	return uri
}

func (s *IndexService) resolveChunkSet(ctx context.Context, projectID, setID string) (*domain.VersionedSet, error) {
	if setID != "" {
		set, err := s.setRepo.GetSet(ctx, setID)
		if err != nil {
			return nil, err
		}
		if set.Kind != domain.SetKindChunk || set.ProjectID != projectID || set.IsDeleted {
			return nil, domain.ErrSetNotFound
		}
		return set, nil
	}
	set, err := s.setRepo.GetLatestActiveByProject(ctx, domain.SetKindChunk, projectID)
	if err != nil {
		return nil, domain.ErrNoActiveChunkSet
	}
	return set, nil
}

func (s *IndexService) getVisibleIndex(ctx context.Context, projectID, indexID string) (*domain.Index, error) {
	idx, err := s.indexRepo.GetIndex(ctx, indexID)
	if err != nil {
		return nil, err
	}
	if idx.ProjectID != projectID || idx.IsDeleted {
		return nil, domain.ErrIndexNotFound
	}
	return idx, nil
}
