package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/cloo-solutions/kbman/internal/domain"
	"github.com/cloo-solutions/kbman/internal/pagination"
	"github.com/cloo-solutions/kbman/internal/rerank"
	"github.com/cloo-solutions/kbman/internal/telemetry"
	"github.com/cloo-solutions/kbman/internal/vectorindex"
)

// ObjectStore mirrors JSON blobs into the configured bucket. Optional.
type ObjectStore interface {
	PutJSON(ctx context.Context, key string, value any) (string, error)
}

// execEnv carries the resolved target and executor dependencies through
// one strategy execution.
type execEnv struct {
	query      string
	target     *resolvedTarget
	bm25       *bm25Cache
	providers  *vectorindex.Registry
	embedder   Embedder
	embedCache EmbeddingCacheInterface
	reranker   rerank.Reranker
	setRepo    VersionedSetRepositoryInterface
}

// RetrievalService validates, executes, paginates, and optionally
// persists retrieval requests.
type RetrievalService struct {
	setRepo     VersionedSetRepositoryInterface
	indexRepo   IndexRepositoryInterface
	runRepo     RetrievalRunRepositoryInterface
	resolver    *targetResolver
	providers   *vectorindex.Registry
	embedder    Embedder
	embedCache  EmbeddingCacheInterface
	reranker    rerank.Reranker
	objectStore ObjectStore
	bm25        *bm25Cache
	uuidGen     UUIDGenerator

	pageDefault int
	pageMax     int
}

// RetrievalServiceDeps bundles the collaborators of a RetrievalService.
type RetrievalServiceDeps struct {
	SetRepo     VersionedSetRepositoryInterface
	IndexRepo   IndexRepositoryInterface
	RunRepo     RetrievalRunRepositoryInterface
	Providers   *vectorindex.Registry
	Embedder    Embedder
	EmbedCache  EmbeddingCacheInterface
	Reranker    rerank.Reranker
	ObjectStore ObjectStore
	UUIDGen     UUIDGenerator
	PageDefault int
	PageMax     int
}

func NewRetrievalService(deps RetrievalServiceDeps) *RetrievalService {
	if deps.Providers == nil {
		deps.Providers = vectorindex.NewRegistry()
	}
	if deps.Reranker == nil {
		deps.Reranker = rerank.NewLocalReranker()
	}
	if deps.UUIDGen == nil {
		deps.UUIDGen = &DefaultUUIDGenerator{}
	}
	if deps.PageDefault <= 0 {
		deps.PageDefault = pagination.DefaultPageSize
	}
	if deps.PageMax <= 0 {
		deps.PageMax = pagination.MaxPageSize
	}
	return &RetrievalService{
		setRepo:     deps.SetRepo,
		indexRepo:   deps.IndexRepo,
		runRepo:     deps.RunRepo,
		resolver:    newTargetResolver(deps.SetRepo, deps.IndexRepo),
		providers:   deps.Providers,
		embedder:    deps.Embedder,
		embedCache:  deps.EmbedCache,
		reranker:    deps.Reranker,
		objectStore: deps.ObjectStore,
		bm25:        newBM25Cache(0),
		uuidGen:     deps.UUIDGen,
		pageDefault: deps.PageDefault,
		pageMax:     deps.PageMax,
	}
}

// RetrieveInput is one retrieval request.
type RetrieveInput struct {
	ProjectID string
	Query     string
	Target    domain.RetrievalTarget
	TargetID  string
	Strategy  json.RawMessage
	Persist   bool
	Limit     int
	Cursor    string
}

// RetrieveOutput is the paginated result of one retrieval. Total counts
// the full candidate set before slicing.
type RetrieveOutput struct {
	Items      []Hit
	NextCursor string
	HasMore    bool
	Strategy   StrategyKind
	Target     domain.RetrievalTarget
	TargetID   string
	Total      int
	RunID      string
}

// Retrieve runs one retrieval end to end: parse and validate the
// strategy, resolve the target, execute, paginate, optionally persist.
func (s *RetrievalService) Retrieve(ctx context.Context, input RetrieveInput) (*RetrieveOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Retrieve", telemetry.SpanAttributes{
		ProjectID: input.ProjectID,
		Operation: "retrieve",
	})
	defer span.End()

	strategy, err := ParseStrategy(input.Strategy)
	if err != nil {
		return nil, err
	}

	if err := validateStrategyTarget(strategy, input.Target, input.TargetID); err != nil {
		return nil, err
	}

	target, err := s.resolver.resolve(ctx, input.ProjectID, input.Target, input.TargetID)
	if err != nil {
		return nil, err
	}

	env := &execEnv{
		query:      input.Query,
		target:     target,
		bm25:       s.bm25,
		providers:  s.providers,
		embedder:   s.embedder,
		embedCache: s.embedCache,
		reranker:   s.reranker,
		setRepo:    s.setRepo,
	}

	hits, err := strategy.execute(ctx, env)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	page := pagination.Paginate(input.Limit, input.Cursor, s.pageDefault, s.pageMax)
	result := pagination.Slice(hits, page)

	out := &RetrieveOutput{
		Items:      result.Items,
		NextCursor: result.NextCursor,
		HasMore:    result.HasMore,
		Strategy:   strategy.Kind(),
		Target:     input.Target,
		TargetID:   input.TargetID,
		Total:      result.Total,
	}

	if input.Persist {
		runID, err := s.persistRun(ctx, input, out)
		if err != nil {
			return nil, err
		}
		out.RunID = runID
	}

	return out, nil
}

// validateStrategyTarget enforces strategy/target compatibility before any
// resolution work. Vector and dual_storage never fall back to another
// target; rerank inherits its base's constraint.
func validateStrategyTarget(strategy Strategy, target domain.RetrievalTarget, targetID string) error {
	if !domain.IsValidTarget(target) {
		return domain.ErrInvalidTarget
	}

	switch st := strategy.(type) {
	case VectorStrategy, DualStorageStrategy:
		if target != domain.TargetIndexBuild {
			return domain.NewDomainError(domain.ErrCodeValidation,
				fmt.Sprintf("%s strategy requires target=index_build", strategy.Kind()))
		}
		if targetID == "" {
			return domain.ErrMissingTargetID
		}
	case RerankStrategy:
		return validateStrategyTarget(st.Base, target, targetID)
	default:
		if target == domain.TargetIndexBuild {
			return domain.NewDomainError(domain.ErrCodeValidation,
				fmt.Sprintf("%s strategy requires a chunk_set or segment_set target", strategy.Kind()))
		}
	}
	return nil
}

func (s *RetrievalService) persistRun(ctx context.Context, input RetrieveInput, out *RetrieveOutput) (string, error) {
	runID := s.uuidGen.NewString()

	var params map[string]any
	_ = json.Unmarshal(input.Strategy, &params)

	results := map[string]any{
		"items":       out.Items,
		"total":       out.Total,
		"next_cursor": out.NextCursor,
	}

	run := &domain.RetrievalRun{
		ID:         runID,
		ProjectID:  input.ProjectID,
		Strategy:   string(out.Strategy),
		Query:      input.Query,
		TargetType: input.Target,
		TargetID:   input.TargetID,
		Params:     params,
		Results:    results,
		CreatedAt:  time.Now().UTC(),
	}

	if s.objectStore != nil {
		key := fmt.Sprintf("projects/%s/retrieval_runs/%s/result.json", input.ProjectID, runID)
		uri, err := s.objectStore.PutJSON(ctx, key, results)
		if err != nil {
			// The run record is still written; the mirror is best effort.
			log.Printf("retrieval: mirror run %s: %v", runID, err)
		} else {
			run.ArtifactURI = uri
		}
	}

	if err := s.runRepo.Create(ctx, run); err != nil {
		return "", err
	}
	return runID, nil
}

// GetRun fetches a persisted retrieval run.
func (s *RetrievalService) GetRun(ctx context.Context, projectID, runID string) (*domain.RetrievalRun, error) {
	run, err := s.runRepo.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.ProjectID != projectID || run.IsDeleted {
		return nil, domain.ErrRetrievalRunNotFound
	}
	return run, nil
}

// ListRuns pages through a project's persisted runs.
func (s *RetrievalService) ListRuns(ctx context.Context, projectID string, limit int, cursor string) ([]*domain.RetrievalRun, string, bool, int, error) {
	page := pagination.Paginate(limit, cursor, s.pageDefault, s.pageMax)

	total, err := s.runRepo.CountByProject(ctx, projectID)
	if err != nil {
		return nil, "", false, 0, err
	}
	runs, err := s.runRepo.ListByProject(ctx, projectID, page.Limit, page.Offset)
	if err != nil {
		return nil, "", false, 0, err
	}

	next := ""
	hasMore := page.Offset+len(runs) < total
	if hasMore {
		next = pagination.EncodeCursor(page.Offset + len(runs))
	}
	return runs, next, hasMore, total, nil
}

// DeleteRun soft-deletes a persisted run.
func (s *RetrievalService) DeleteRun(ctx context.Context, projectID, runID string) error {
	if _, err := s.GetRun(ctx, projectID, runID); err != nil {
		return err
	}
	return s.runRepo.SetDeleted(ctx, runID, true)
}
