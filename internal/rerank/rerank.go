package rerank

import "context"

// Candidate is one document candidate for cross-encoder scoring.
type Candidate struct {
	// ID is the item id, used to map scores back to items.
	ID string
	// Content is the text scored against the query.
	Content string
	// Score is the base retrieval score, carried for logging.
	Score float64
}

// Result is one scored candidate.
type Result struct {
	ID    string
	Score float64
}

// Reranker scores candidates against a query with a cross-encoder.
// Results come back sorted by score descending.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []Candidate) ([]Result, error)
	ModelName() string
}
