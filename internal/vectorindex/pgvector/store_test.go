//go:build integration

package pgvector

import (
	"context"
	"testing"

	"github.com/cloo-solutions/kbman/internal/testutil"
	"github.com/cloo-solutions/kbman/internal/vectorindex"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unitVector returns a 1536-dim vector with weight concentrated on one axis.
func unitVector(axis int) []float32 {
	v := make([]float32, DefaultDimensions)
	v[axis] = 1
	return v
}

func TestStore_UpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../../migrations")
	defer pool.Close()

	store := NewStore(pool)
	collection := "kb_build_" + uuid.NewString()
	require.NoError(t, store.EnsureCollection(ctx, collection, DefaultDimensions))

	near := uuid.NewString()
	far := uuid.NewString()
	points := []vectorindex.Point{
		{ItemID: near, Vector: unitVector(0), Content: "near", Metadata: map[string]any{"position": 0}},
		{ItemID: far, Vector: unitVector(1), Content: "far", Metadata: map[string]any{"position": 1}},
	}
	require.NoError(t, store.Upsert(ctx, collection, points))

	hits, err := store.Search(ctx, collection, unitVector(0), 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, near, hits[0].ItemID)
	assert.Equal(t, "near", hits[0].Content)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestStore_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../../migrations")
	defer pool.Close()

	store := NewStore(pool)
	collection := "kb_build_" + uuid.NewString()

	id := uuid.NewString()
	require.NoError(t, store.Upsert(ctx, collection, []vectorindex.Point{
		{ItemID: id, Vector: unitVector(0), Content: "v1"},
	}))
	require.NoError(t, store.Upsert(ctx, collection, []vectorindex.Point{
		{ItemID: id, Vector: unitVector(1), Content: "v2"},
	}))

	hits, err := store.Search(ctx, collection, unitVector(1), 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "v2", hits[0].Content)
}

func TestStore_CollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../../migrations")
	defer pool.Close()

	store := NewStore(pool)
	collectionA := "kb_build_" + uuid.NewString()
	collectionB := "kb_build_" + uuid.NewString()

	require.NoError(t, store.Upsert(ctx, collectionA, []vectorindex.Point{
		{ItemID: uuid.NewString(), Vector: unitVector(0), Content: "a"},
	}))
	require.NoError(t, store.Upsert(ctx, collectionB, []vectorindex.Point{
		{ItemID: uuid.NewString(), Vector: unitVector(0), Content: "b"},
	}))

	hits, err := store.Search(ctx, collectionA, unitVector(0), 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].Content)

	require.NoError(t, store.DropCollection(ctx, collectionA))
	hits, err = store.Search(ctx, collectionA, unitVector(0), 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestStore_EnsureCollection_RejectsWrongDims(t *testing.T) {
	store := NewStore(nil)
	err := store.EnsureCollection(context.Background(), "kb_build_x", 768)
	assert.Error(t, err)
}
