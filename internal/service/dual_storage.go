package service

import (
	"context"

	"github.com/cloo-solutions/kbman/internal/domain"
)

func (s DualStorageStrategy) execute(ctx context.Context, env *execEnv) ([]Hit, error) {
	if env.target.build == nil {
		return nil, domain.ErrInvalidTarget
	}

	// The provider must expose a secondary keyed store even though
	// hydration reads the chunk rows; the capability gate is what
	// distinguishes dual-storage-capable backends.
	if _, err := env.providers.Secondary(env.target.index.Provider); err != nil {
		return nil, err
	}
	provider, err := env.providers.Get(env.target.index.Provider)
	if err != nil {
		return nil, err
	}

	vector, err := env.embedQuery(ctx, env.target.index)
	if err != nil {
		return nil, err
	}

	collection := collectionForBuild(env.target.index, env.target.build)
	recalled, err := provider.Search(ctx, collection, vector, s.VectorSearch.K)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "vector recall failed", err)
	}
	if len(recalled) == 0 {
		return nil, nil
	}

	// Hydrate full rows from the chunk store keyed by hit item id, then
	// fuse in vector-score order. Hits without a backing row are dropped.
	items, err := env.setRepo.ListItems(ctx, env.target.build.ChunkSetVersionID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	hits := make([]Hit, 0, len(recalled))
	for _, recall := range recalled {
		item, ok := byID[recall.ItemID]
		if !ok {
			continue
		}
		hit := hitFromItem(item, scorePtr(float64(recall.Score)))
		hit.Metadata["score"] = float64(recall.Score)
		hit.Metadata["chunk_set_version_id"] = env.target.build.ChunkSetVersionID
		hits = append(hits, hit)
	}
	return hits, nil
}
