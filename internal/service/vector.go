package service

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/kbman/internal/domain"
)

// Embedder generates query and document embeddings.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// EmbeddingCacheInterface is the read-through cache for query embeddings.
type EmbeddingCacheInterface interface {
	GetOrLoad(ctx context.Context, model, query string, loader func() ([]float32, error)) ([]float32, error)
}

const defaultEmbeddingModel = "text-embedding-ada-002"

// embeddingModel reads the model name recorded in the index config.
func embeddingModel(index *domain.Index) string {
	if index != nil {
		if model, ok := index.Config["embedding_model"].(string); ok && model != "" {
			return model
		}
	}
	return defaultEmbeddingModel
}

// collectionForBuild names the provider collection a build wrote to. The
// build coordinator records it in the build params at creation time.
func collectionForBuild(index *domain.Index, build *domain.IndexBuild) string {
	if build != nil {
		if collection, ok := build.Params["collection"].(string); ok && collection != "" {
			return collection
		}
	}
	if index != nil {
		if collection, ok := index.Config["collection_name"].(string); ok && collection != "" {
			return collection
		}
	}
	return fmt.Sprintf("kb_build_%s", build.ID)
}

func (env *execEnv) embedQuery(ctx context.Context, index *domain.Index) ([]float32, error) {
	if env.embedder == nil {
		return nil, domain.NewDomainError(domain.ErrCodeUnsupportedProvider, "embedding provider is not configured")
	}

	load := func() ([]float32, error) {
		return env.embedder.GenerateEmbedding(ctx, env.query)
	}
	if env.embedCache == nil {
		return load()
	}
	return env.embedCache.GetOrLoad(ctx, embeddingModel(index), env.query, load)
}

func (s VectorStrategy) execute(ctx context.Context, env *execEnv) ([]Hit, error) {
	if env.target.build == nil {
		return nil, domain.ErrInvalidTarget
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
	raw, err := provider.Search(ctx, collection, vector, s.K)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "vector search failed", err)
	}

	hits := make([]Hit, 0, len(raw))
	for _, h := range raw {
		metadata := make(map[string]any, len(h.Metadata)+2)
		for k, v := range h.Metadata {
			metadata[k] = v
		}
		metadata["item_id"] = h.ItemID
		metadata["chunk_set_version_id"] = env.target.build.ChunkSetVersionID
		hits = append(hits, Hit{
			ItemID:   h.ItemID,
			Content:  h.Content,
			Score:    scorePtr(float64(h.Score)),
			Metadata: metadata,
		})
	}
	return hits, nil
}
