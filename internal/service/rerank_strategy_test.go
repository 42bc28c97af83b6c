package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/kbman/internal/domain"
	"github.com/cloo-solutions/kbman/internal/rerank"
)

func TestRerankExecute_ReordersAndTruncates(t *testing.T) {
	env := setEnv("garbage collector pause times", textItems(
		"the garbage collector trades pause times for throughput",
		"garbage day is tuesday",
		"pause the video",
		"unrelated text about cooking",
	))
	env.reranker = rerank.NewLocalReranker()

	strategy := RerankStrategy{
		Base:      BM25Strategy{K: 20},
		ModelName: "local",
		TopN:      2,
	}
	hits, err := strategy.execute(context.Background(), env)
	require.NoError(t, err)

	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ItemID)
	require.NotNil(t, hits[0].Score)
	assert.GreaterOrEqual(t, *hits[0].Score, *hits[1].Score)
	assert.Equal(t, env.reranker.ModelName(), hits[0].Metadata["rerank_model"])
}

func TestRerankExecute_EmptyBaseShortCircuits(t *testing.T) {
	env := setEnv("zzz qqq xxx", textItems("nothing in common"))
	// A nil reranker would error, but an empty base result never reaches it.
	env.reranker = nil

	hits, err := RerankStrategy{Base: BM25Strategy{K: 20}, TopN: 5}.execute(context.Background(), env)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRerankExecute_MissingReranker(t *testing.T) {
	env := setEnv("alpha", textItems("alpha content"))
	env.reranker = nil

	_, err := RerankStrategy{Base: BM25Strategy{K: 20}, TopN: 5}.execute(context.Background(), env)
	require.Error(t, err)

	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrCodeUnsupportedProvider, derr.Code)
}
