package rerank

import (
	"context"
	"sort"
	"strings"
	"unicode"
)

// LocalReranker is a deterministic token-overlap scorer used when no
// cross-encoder service is configured. Scores are the fraction of distinct
// query tokens present in the candidate.
type LocalReranker struct{}

func NewLocalReranker() *LocalReranker {
	return &LocalReranker{}
}

func (LocalReranker) ModelName() string {
	return "token-overlap"
}

func (LocalReranker) Rerank(ctx context.Context, query string, candidates []Candidate) ([]Result, error) {
	queryTokens := tokenSet(query)

	results := make([]Result, 0, len(candidates))
	for _, cand := range candidates {
		results = append(results, Result{
			ID:    cand.ID,
			Score: overlapScore(queryTokens, tokenSet(cand.Content)),
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results, nil
}

func overlapScore(query, doc map[string]struct{}) float64 {
	if len(query) == 0 {
		return 0
	}
	matched := 0
	for token := range query {
		if _, ok := doc[token]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(query))
}

func tokenSet(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

var _ Reranker = (*LocalReranker)(nil)
