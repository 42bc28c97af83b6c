package vectorindex

import (
	"context"
	"testing"

	"github.com/cloo-solutions/kbman/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct{}

func (fakeProvider) EnsureCollection(ctx context.Context, collection string, dims int) error {
	return nil
}
func (fakeProvider) Upsert(ctx context.Context, collection string, points []Point) error { return nil }
func (fakeProvider) Search(ctx context.Context, collection string, vector []float32, k int) ([]Hit, error) {
	return nil, nil
}
func (fakeProvider) DropCollection(ctx context.Context, collection string) error { return nil }

type fakeSecondaryProvider struct{ fakeProvider }

func (fakeSecondaryProvider) Lookup(ctx context.Context, collection string, itemIDs []string) (map[string]Hit, error) {
	return map[string]Hit{}, nil
}

func TestRegistry_Get(t *testing.T) {
	registry := NewRegistry()
	registry.Register(domain.ProviderPgvector, fakeProvider{})

	p, err := registry.Get(domain.ProviderPgvector)
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestRegistry_Get_UnknownProvider(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Get("faiss")
	assert.ErrorIs(t, err, domain.ErrInvalidProvider)
}

func TestRegistry_Get_NotConfigured(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Get(domain.ProviderQdrant)
	assert.ErrorIs(t, err, domain.ErrProviderNotImplemented)
}

func TestRegistry_Secondary(t *testing.T) {
	registry := NewRegistry()
	registry.Register(domain.ProviderQdrant, fakeSecondaryProvider{})
	registry.Register(domain.ProviderPgvector, fakeProvider{})

	s, err := registry.Secondary(domain.ProviderQdrant)
	require.NoError(t, err)
	assert.NotNil(t, s)

	_, err = registry.Secondary(domain.ProviderPgvector)
	assert.ErrorIs(t, err, domain.ErrNoSecondaryStore)
}
