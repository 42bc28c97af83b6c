//go:build integration

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloo-solutions/kbman/internal/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisCache(ctx context.Context, t *testing.T, ttl time.Duration) (*EmbeddingCache, func()) {
	t.Helper()
	rc := testutil.NewRedisContainer(ctx, t)
	cache := NewEmbeddingCacheWithClient(redis.NewClient(&redis.Options{Addr: rc.Addr()}), ttl)
	require.NoError(t, cache.Ping(ctx))
	return cache, func() {
		cache.Close()
		rc.Terminate(ctx)
	}
}

func TestEmbeddingCache_LoadsOncePerQuery(t *testing.T) {
	ctx := context.Background()
	cache, cleanup := redisCache(ctx, t, time.Minute)
	defer cleanup()

	calls := 0
	loader := func() ([]float32, error) {
		calls++
		return []float32{0.1, 0.2, 0.3}, nil
	}

	first, err := cache.GetOrLoad(ctx, "text-embedding-ada-002", "refund policy", loader)
	require.NoError(t, err)
	second, err := cache.GetOrLoad(ctx, "text-embedding-ada-002", "refund policy", loader)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestEmbeddingCache_KeysByModelAndQuery(t *testing.T) {
	ctx := context.Background()
	cache, cleanup := redisCache(ctx, t, time.Minute)
	defer cleanup()

	calls := 0
	loader := func() ([]float32, error) {
		calls++
		return []float32{float32(calls)}, nil
	}

	_, err := cache.GetOrLoad(ctx, "model-a", "query", loader)
	require.NoError(t, err)
	_, err = cache.GetOrLoad(ctx, "model-b", "query", loader)
	require.NoError(t, err)
	_, err = cache.GetOrLoad(ctx, "model-a", "other query", loader)
	require.NoError(t, err)

	assert.Equal(t, 3, calls)
}

func TestEmbeddingCache_LoaderErrorIsNotCached(t *testing.T) {
	ctx := context.Background()
	cache, cleanup := redisCache(ctx, t, time.Minute)
	defer cleanup()

	boom := errors.New("embedding api down")
	_, err := cache.GetOrLoad(ctx, "m", "q", func() ([]float32, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	got, err := cache.GetOrLoad(ctx, "m", "q", func() ([]float32, error) { return []float32{1}, nil })
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, got)
}

func TestEmbeddingCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	cache, cleanup := redisCache(ctx, t, time.Minute)
	defer cleanup()

	calls := 0
	loader := func() ([]float32, error) {
		calls++
		return []float32{1}, nil
	}

	_, err := cache.GetOrLoad(ctx, "m", "q", loader)
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx, "m", "q"))
	_, err = cache.GetOrLoad(ctx, "m", "q", loader)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}
