package vectorindex

import (
	"context"

	"github.com/cloo-solutions/kbman/internal/domain"
)

// Point is one embedded item to index.
type Point struct {
	ItemID   string
	Vector   []float32
	Content  string
	Metadata map[string]any
}

// Hit is one search or lookup result.
type Hit struct {
	ItemID   string
	Score    float32
	Content  string
	Metadata map[string]any
}

// Provider indexes embedded items under named collections and searches
// them by vector. One collection corresponds to one index build.
type Provider interface {
	EnsureCollection(ctx context.Context, collection string, dims int) error
	Upsert(ctx context.Context, collection string, points []Point) error
	Search(ctx context.Context, collection string, vector []float32, k int) ([]Hit, error)
	DropCollection(ctx context.Context, collection string) error
}

// SecondaryStore is implemented by providers whose index also keeps full
// item payloads retrievable by id. Dual-storage retrieval requires it.
type SecondaryStore interface {
	Lookup(ctx context.Context, collection string, itemIDs []string) (map[string]Hit, error)
}

// Registry holds the configured providers keyed by name.
type Registry struct {
	providers map[domain.IndexProvider]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[domain.IndexProvider]Provider)}
}

func (r *Registry) Register(name domain.IndexProvider, p Provider) {
	r.providers[name] = p
}

// Get returns the provider registered under name.
func (r *Registry) Get(name domain.IndexProvider) (Provider, error) {
	if !domain.IsValidProvider(name) {
		return nil, domain.ErrInvalidProvider
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, domain.ErrProviderNotImplemented
	}
	return p, nil
}

// Secondary returns the provider's keyed store when it has one.
func (r *Registry) Secondary(name domain.IndexProvider) (SecondaryStore, error) {
	p, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	s, ok := p.(SecondaryStore)
	if !ok {
		return nil, domain.ErrNoSecondaryStore
	}
	return s, nil
}
