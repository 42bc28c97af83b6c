package service

import (
	"context"
	"sort"
	"sync"

	"github.com/cloo-solutions/kbman/internal/domain"
)

func (s EnsembleStrategy) execute(ctx context.Context, env *execEnv) ([]Hit, error) {
	if len(s.Sources) == 0 {
		return nil, domain.ErrNoEnsembleSources
	}

	weights := s.Weights
	if len(weights) == 0 {
		weights = make([]float64, len(s.Sources))
		for i := range weights {
			weights[i] = 1.0 / float64(len(s.Sources))
		}
	}

	// Sub-strategies fan out concurrently; all of them join before the
	// merge. A source with invalid params fails the whole ensemble, a
	// source with zero candidates contributes nothing.
	results := make([][]Hit, len(s.Sources))
	errs := make([]error, len(s.Sources))
	var wg sync.WaitGroup
	for i, src := range s.Sources {
		wg.Add(1)
		go func(i int, src Strategy) {
			defer wg.Done()
			results[i], errs[i] = src.execute(ctx, env)
		}(i, src)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return mergeWeighted(results, weights), nil
}

type mergedHit struct {
	hit   Hit
	score float64
	order int
}

// mergeWeighted deduplicates on item identity and combines scores via
// weighted sum. Unscored hits (regex) contribute their full weight.
// An item seen by one source keeps that source's weighted score.
func mergeWeighted(results [][]Hit, weights []float64) []Hit {
	merged := make(map[string]*mergedHit)
	order := 0

	for i, hits := range results {
		weight := weights[i]
		for _, hit := range hits {
			key := hit.ItemID
			if key == "" {
				key = hit.Content
			}
			contribution := weight
			if hit.Score != nil {
				contribution = weight * *hit.Score
			}
			if existing, ok := merged[key]; ok {
				existing.score += contribution
			} else {
				merged[key] = &mergedHit{hit: hit, score: contribution, order: order}
				order++
			}
		}
	}

	out := make([]*mergedHit, 0, len(merged))
	for _, m := range merged {
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].order < out[j].order
	})

	hits := make([]Hit, 0, len(out))
	for _, m := range out {
		hit := m.hit
		hit.Score = scorePtr(m.score)
		if hit.Metadata != nil {
			hit.Metadata["score"] = m.score
		}
		hits = append(hits, hit)
	}
	return hits
}
