package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultEmbeddingTTL bounds how long a cached query embedding stays valid.
const DefaultEmbeddingTTL = 24 * time.Hour

// EmbeddingCache is a redis read-through cache for query embeddings.
// Repeated retrievals with the same query skip the embedding API call.
// A nil *EmbeddingCache is valid and always loads.
type EmbeddingCache struct {
	rdb *redis.Client
	ttl time.Duration
}

type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func NewEmbeddingCache(cfg Config) *EmbeddingCache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultEmbeddingTTL
	}
	return &EmbeddingCache{
		rdb: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		ttl: ttl,
	}
}

// NewEmbeddingCacheWithClient wraps an existing client, used by tests.
func NewEmbeddingCacheWithClient(rdb *redis.Client, ttl time.Duration) *EmbeddingCache {
	if ttl <= 0 {
		ttl = DefaultEmbeddingTTL
	}
	return &EmbeddingCache{rdb: rdb, ttl: ttl}
}

func (c *EmbeddingCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

func (c *EmbeddingCache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}

// GetOrLoad returns the cached embedding for (model, query), calling loader
// and caching the result on a miss. Cache write failures are logged and do
// not affect the returned embedding.
func (c *EmbeddingCache) GetOrLoad(ctx context.Context, model, query string, loader func() ([]float32, error)) ([]float32, error) {
	if c == nil {
		return loader()
	}

	key := embeddingKey(model, query)

	val, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var embedding []float32
		if jsonErr := json.Unmarshal(val, &embedding); jsonErr == nil {
			return embedding, nil
		}
		// Unreadable entry, fall through and overwrite it.
	} else if err != redis.Nil {
		log.Printf("embedding cache: get %s: %v", key, err)
	}

	embedding, err := loader()
	if err != nil {
		return nil, err
	}

	bytes, err := json.Marshal(embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding: %w", err)
	}
	if err := c.rdb.Set(ctx, key, bytes, c.ttl).Err(); err != nil {
		log.Printf("embedding cache: set %s: %v", key, err)
	}

	return embedding, nil
}

// Invalidate drops the cached embedding for (model, query).
func (c *EmbeddingCache) Invalidate(ctx context.Context, model, query string) error {
	if c == nil {
		return nil
	}
	return c.rdb.Del(ctx, embeddingKey(model, query)).Err()
}

func embeddingKey(model, query string) string {
	sum := sha256.Sum256([]byte(query))
	return fmt.Sprintf("emb:%s:%s", model, hex.EncodeToString(sum[:]))
}
