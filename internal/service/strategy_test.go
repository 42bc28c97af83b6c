package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/kbman/internal/domain"
)

func TestParseStrategy_VectorDefaults(t *testing.T) {
	s, err := ParseStrategy(json.RawMessage(`{"type":"vector"}`))
	require.NoError(t, err)

	v, ok := s.(VectorStrategy)
	require.True(t, ok)
	assert.Equal(t, 10, v.K)
	assert.Equal(t, "similarity", v.SearchType)
	assert.Nil(t, v.ScoreThreshold)
}

func TestParseStrategy_VectorExplicitParams(t *testing.T) {
	s, err := ParseStrategy(json.RawMessage(`{"type":"vector","k":3,"search_type":"mmr","score_threshold":0.5}`))
	require.NoError(t, err)

	v := s.(VectorStrategy)
	assert.Equal(t, 3, v.K)
	assert.Equal(t, "mmr", v.SearchType)
	require.NotNil(t, v.ScoreThreshold)
	assert.InDelta(t, 0.5, *v.ScoreThreshold, 1e-9)
}

func TestParseStrategy_BM25Defaults(t *testing.T) {
	s, err := ParseStrategy(json.RawMessage(`{"type":"bm25"}`))
	require.NoError(t, err)
	assert.Equal(t, BM25Strategy{K: 10}, s)
}

func TestParseStrategy_RegexRequiresPattern(t *testing.T) {
	_, err := ParseStrategy(json.RawMessage(`{"type":"regex"}`))
	assert.ErrorIs(t, err, domain.ErrMissingRegexPattern)
}

func TestParseStrategy_RegexRejectsInvalidPattern(t *testing.T) {
	_, err := ParseStrategy(json.RawMessage(`{"type":"regex","pattern":"[unclosed"}`))
	require.Error(t, err)

	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrCodeInvalidParams, derr.Code)
}

func TestParseStrategy_FuzzyDefaultsAndBounds(t *testing.T) {
	s, err := ParseStrategy(json.RawMessage(`{"type":"fuzzy"}`))
	require.NoError(t, err)
	assert.Equal(t, FuzzyStrategy{Threshold: 80}, s)

	_, err = ParseStrategy(json.RawMessage(`{"type":"fuzzy","threshold":101}`))
	assert.ErrorIs(t, err, domain.ErrInvalidFuzzyThreshold)

	_, err = ParseStrategy(json.RawMessage(`{"type":"fuzzy","threshold":-1}`))
	assert.ErrorIs(t, err, domain.ErrInvalidFuzzyThreshold)
}

func TestParseStrategy_EnsembleDefaultSources(t *testing.T) {
	s, err := ParseStrategy(json.RawMessage(`{"type":"ensemble"}`))
	require.NoError(t, err)

	e, ok := s.(EnsembleStrategy)
	require.True(t, ok)
	require.Len(t, e.Sources, 3)
	assert.Equal(t, BM25Strategy{K: 8}, e.Sources[0])

	re, ok := e.Sources[1].(RegexStrategy)
	require.True(t, ok)
	assert.True(t, re.patternFromQuery)

	assert.Equal(t, FuzzyStrategy{Threshold: 75}, e.Sources[2])
	assert.Empty(t, e.Weights)
}

func TestParseStrategy_EnsembleWeightMismatch(t *testing.T) {
	raw := json.RawMessage(`{"type":"ensemble","sources":[{"type":"bm25"}],"weights":[0.5,0.5]}`)
	_, err := ParseStrategy(raw)
	assert.ErrorIs(t, err, domain.ErrWeightSourceMismatch)
}

func TestParseStrategy_EnsembleRejectsIndexedSource(t *testing.T) {
	raw := json.RawMessage(`{"type":"ensemble","sources":[{"type":"vector"}]}`)
	_, err := ParseStrategy(raw)
	require.Error(t, err)

	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrCodeInvalidParams, derr.Code)
}

func TestParseStrategy_EnsembleSourcePatternErrorPropagates(t *testing.T) {
	raw := json.RawMessage(`{"type":"ensemble","sources":[{"type":"regex"}]}`)
	_, err := ParseStrategy(raw)
	assert.ErrorIs(t, err, domain.ErrMissingRegexPattern)
}

func TestParseStrategy_RerankDefaults(t *testing.T) {
	s, err := ParseStrategy(json.RawMessage(`{"type":"rerank"}`))
	require.NoError(t, err)

	r, ok := s.(RerankStrategy)
	require.True(t, ok)
	assert.Equal(t, "BAAI/bge-reranker-base", r.ModelName)
	assert.Equal(t, 5, r.TopN)
	assert.Equal(t, "cpu", r.Device)
	assert.Equal(t, BM25Strategy{K: 20}, r.Base)
}

func TestParseStrategy_RerankWidensDefaultBM25Base(t *testing.T) {
	s, err := ParseStrategy(json.RawMessage(`{"type":"rerank","base":{"type":"bm25"}}`))
	require.NoError(t, err)
	assert.Equal(t, BM25Strategy{K: 20}, s.(RerankStrategy).Base)

	s, err = ParseStrategy(json.RawMessage(`{"type":"rerank","base":{"type":"bm25","k":10}}`))
	require.NoError(t, err)
	assert.Equal(t, BM25Strategy{K: 10}, s.(RerankStrategy).Base)
}

func TestParseStrategy_RerankRejectsCompositeBase(t *testing.T) {
	raw := json.RawMessage(`{"type":"rerank","base":{"type":"ensemble"}}`)
	_, err := ParseStrategy(raw)
	require.Error(t, err)

	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrCodeInvalidParams, derr.Code)
}

func TestParseStrategy_DualStorageDefaults(t *testing.T) {
	s, err := ParseStrategy(json.RawMessage(`{"type":"dual_storage"}`))
	require.NoError(t, err)

	d, ok := s.(DualStorageStrategy)
	require.True(t, ok)
	assert.Equal(t, 10, d.VectorSearch.K)
	assert.Equal(t, "item_id", d.IDKey)
}

func TestParseStrategy_DualStorageNestedVectorSearch(t *testing.T) {
	raw := json.RawMessage(`{"type":"dual_storage","vector_search":{"k":7},"id_key":"doc_id"}`)
	s, err := ParseStrategy(raw)
	require.NoError(t, err)

	d := s.(DualStorageStrategy)
	assert.Equal(t, 7, d.VectorSearch.K)
	assert.Equal(t, "doc_id", d.IDKey)
}

func TestParseStrategy_UnknownType(t *testing.T) {
	_, err := ParseStrategy(json.RawMessage(`{"type":"semantic"}`))
	require.Error(t, err)

	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrCodeInvalidParams, derr.Code)
	assert.Contains(t, derr.Message, "semantic")
}

func TestParseStrategy_EmptyAndMalformed(t *testing.T) {
	_, err := ParseStrategy(nil)
	require.Error(t, err)

	_, err = ParseStrategy(json.RawMessage(`{not json`))
	require.Error(t, err)
}
