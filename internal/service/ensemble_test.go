package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/kbman/internal/domain"
)

func TestEnsembleExecute_NoSources(t *testing.T) {
	env := setEnv("q", textItems("alpha"))

	_, err := EnsembleStrategy{}.execute(context.Background(), env)
	assert.ErrorIs(t, err, domain.ErrNoEnsembleSources)
}

func TestEnsembleExecute_DefaultBlendOverlapWins(t *testing.T) {
	// "alpha beta" is found by bm25, regex (query as pattern), and fuzzy;
	// it must outrank items only one source sees.
	env := setEnv("alpha beta", textItems(
		"alpha beta",
		"alpha something unrelated entirely",
		"no terms in common at all",
	))

	parsed, err := ParseStrategy([]byte(`{"type":"ensemble"}`))
	require.NoError(t, err)

	hits, err := parsed.(EnsembleStrategy).execute(context.Background(), env)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "a", hits[0].ItemID)
}

func TestEnsembleExecute_SourceErrorPropagates(t *testing.T) {
	env := setEnv("q", textItems("alpha"))

	strategy := EnsembleStrategy{
		Sources: []Strategy{
			BM25Strategy{K: 5},
			RegexStrategy{Pattern: "[unclosed"},
		},
	}
	_, err := strategy.execute(context.Background(), env)
	require.Error(t, err)

	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrCodeInvalidParams, derr.Code)
}

func TestMergeWeighted_DeduplicatesAndSums(t *testing.T) {
	results := [][]Hit{
		{
			{ItemID: "x", Content: "x", Score: scorePtr(2.0)},
			{ItemID: "y", Content: "y", Score: scorePtr(1.0)},
		},
		{
			{ItemID: "x", Content: "x", Score: scorePtr(4.0)},
		},
	}

	merged := mergeWeighted(results, []float64{0.5, 0.5})
	require.Len(t, merged, 2)

	assert.Equal(t, "x", merged[0].ItemID)
	require.NotNil(t, merged[0].Score)
	assert.InDelta(t, 3.0, *merged[0].Score, 1e-9) // 0.5*2 + 0.5*4
	assert.InDelta(t, 0.5, *merged[1].Score, 1e-9)
}

func TestMergeWeighted_UnscoredContributesFullWeight(t *testing.T) {
	results := [][]Hit{
		{{ItemID: "r", Content: "r", Score: nil}},
	}

	merged := mergeWeighted(results, []float64{0.3})
	require.Len(t, merged, 1)
	require.NotNil(t, merged[0].Score)
	assert.InDelta(t, 0.3, *merged[0].Score, 1e-9)
}

func TestMergeWeighted_TiesKeepFirstSeenOrder(t *testing.T) {
	results := [][]Hit{
		{
			{ItemID: "first", Content: "first", Score: scorePtr(1.0)},
			{ItemID: "second", Content: "second", Score: scorePtr(1.0)},
		},
	}

	merged := mergeWeighted(results, []float64{1.0})
	require.Len(t, merged, 2)
	assert.Equal(t, "first", merged[0].ItemID)
	assert.Equal(t, "second", merged[1].ItemID)
}

func TestMergeWeighted_FallsBackToContentKey(t *testing.T) {
	results := [][]Hit{
		{{Content: "same text", Score: scorePtr(1.0)}},
		{{Content: "same text", Score: scorePtr(1.0)}},
	}

	merged := mergeWeighted(results, []float64{0.5, 0.5})
	require.Len(t, merged, 1)
	assert.InDelta(t, 1.0, *merged[0].Score, 1e-9)
}
