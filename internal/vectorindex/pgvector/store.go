package pgvector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloo-solutions/kbman/internal/vectorindex"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// DefaultDimensions matches the vector column width in the migration.
const DefaultDimensions = 1536

// Store implements vectorindex.Provider on top of the vector_points table.
// It keeps vectors only; hydration goes back to the chunk rows, so there
// is no secondary keyed store here.
type Store struct {
	pool *pgxpool.Pool
	dims int
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, dims: DefaultDimensions}
}

// EnsureCollection validates the requested width against the column. The
// table itself is created by migrations.
func (s *Store) EnsureCollection(ctx context.Context, collection string, dims int) error {
	if dims != s.dims {
		return fmt.Errorf("pgvector store holds %d-dimensional vectors, got %d", s.dims, dims)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, collection string, points []vectorindex.Point) error {
	for _, p := range points {
		metadata, err := json.Marshal(p.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal point metadata: %w", err)
		}
		_, err = s.pool.Exec(ctx,
			`INSERT INTO vector_points (collection, item_id, embedding, content, metadata)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (collection, item_id)
			 DO UPDATE SET embedding = EXCLUDED.embedding, content = EXCLUDED.content, metadata = EXCLUDED.metadata`,
			collection, p.ItemID, pgvector.NewVector(p.Vector), p.Content, metadata,
		)
		if err != nil {
			return fmt.Errorf("pgvector upsert failed: %w", err)
		}
	}
	return nil
}

func (s *Store) Search(ctx context.Context, collection string, vector []float32, k int) ([]vectorindex.Hit, error) {
	if k <= 0 {
		k = 10
	}
	vec := pgvector.NewVector(vector)

	rows, err := s.pool.Query(ctx,
		`SELECT item_id, content, metadata, 1 - (embedding <=> $2) AS score
		 FROM vector_points
		 WHERE collection = $1
		 ORDER BY embedding <=> $2
		 LIMIT $3`,
		collection, vec, k,
	)
	if err != nil {
		return nil, fmt.Errorf("pgvector search failed: %w", err)
	}
	defer rows.Close()

	var hits []vectorindex.Hit
	for rows.Next() {
		var hit vectorindex.Hit
		var metadata []byte
		var score float64
		if err := rows.Scan(&hit.ItemID, &hit.Content, &metadata, &score); err != nil {
			return nil, err
		}
		hit.Score = float32(score)
		if len(metadata) > 0 {
			_ = json.Unmarshal(metadata, &hit.Metadata)
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func (s *Store) DropCollection(ctx context.Context, collection string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM vector_points WHERE collection = $1`, collection)
	return err
}

var _ vectorindex.Provider = (*Store)(nil)
