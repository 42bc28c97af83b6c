package service

import (
	"context"

	"github.com/cloo-solutions/kbman/internal/domain"
	"github.com/cloo-solutions/kbman/internal/rerank"
)

func (s RerankStrategy) execute(ctx context.Context, env *execEnv) ([]Hit, error) {
	baseHits, err := s.Base.execute(ctx, env)
	if err != nil {
		return nil, err
	}
	if len(baseHits) == 0 {
		return nil, nil
	}

	reranker := env.reranker
	if reranker == nil {
		return nil, domain.NewDomainError(domain.ErrCodeUnsupportedProvider, "reranker is not configured")
	}

	candidates := make([]rerank.Candidate, 0, len(baseHits))
	byKey := make(map[string]Hit, len(baseHits))
	for i, hit := range baseHits {
		key := hit.ItemID
		if key == "" {
			key = hit.Content
		}
		candidates = append(candidates, rerank.Candidate{ID: key, Content: hit.Content, Score: scoreOrZero(hit.Score)})
		if _, ok := byKey[key]; !ok {
			byKey[key] = baseHits[i]
		}
	}

	scored, err := reranker.Rerank(ctx, env.query, candidates)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "rerank failed", err)
	}

	topN := s.TopN
	hits := make([]Hit, 0, topN)
	for _, result := range scored {
		hit, ok := byKey[result.ID]
		if !ok {
			continue
		}
		hit.Score = scorePtr(result.Score)
		if hit.Metadata != nil {
			hit.Metadata["score"] = result.Score
			hit.Metadata["rerank_model"] = reranker.ModelName()
		}
		hits = append(hits, hit)
		if len(hits) >= topN {
			break
		}
	}
	return hits, nil
}

func scoreOrZero(score *float64) float64 {
	if score == nil {
		return 0
	}
	return *score
}
