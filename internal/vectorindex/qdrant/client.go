package qdrant

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/cloo-solutions/kbman/internal/vectorindex"
	"github.com/qdrant/go-client/qdrant"
)

// Config holds Qdrant connection configuration.
type Config struct {
	// URL is the Qdrant server address (e.g., "https://example.qdrant.io:6334").
	URL string

	// APIKey is optional API key for authentication.
	APIKey string
}

// Client implements vectorindex.Provider backed by Qdrant. Point payloads
// keep the full item content, so the client also acts as a secondary
// keyed store.
type Client struct {
	client *qdrant.Client
}

// New creates a new Qdrant client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}

	parsedURL := cfg.URL
	if !strings.HasPrefix(parsedURL, "http://") && !strings.HasPrefix(parsedURL, "https://") {
		parsedURL = "https://" + parsedURL
	}

	u, err := url.Parse(parsedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse qdrant url: %w", err)
	}

	host := u.Hostname()
	port := 6334
	if u.Port() != "" {
		p, err := strconv.Atoi(u.Port())
		if err != nil {
			return nil, fmt.Errorf("invalid port: %w", err)
		}
		port = p
	}

	useTLS := u.Scheme == "https"

	qdrantClient, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &Client{client: qdrantClient}, nil
}

// EnsureCollection creates the collection if it does not exist yet.
func (c *Client) EnsureCollection(ctx context.Context, collection string, dims int) error {
	exists, err := c.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("qdrant collection check failed: %w", err)
	}
	if exists {
		return nil
	}

	err = c.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dims),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant create collection failed: %w", err)
	}
	return nil
}

// Upsert writes points with their full payload into the collection.
func (c *Client) Upsert(ctx context.Context, collection string, points []vectorindex.Point) error {
	if len(points) == 0 {
		return nil
	}

	qdrantPoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		payload := map[string]any{"content": p.Content}
		for k, v := range p.Metadata {
			if k == "content" {
				continue
			}
			payload[k] = v
		}
		qdrantPoints = append(qdrantPoints, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(p.ItemID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	wait := true
	_, err := c.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         qdrantPoints,
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

// Search implements vectorindex.Provider.
func (c *Client) Search(ctx context.Context, collection string, vector []float32, k int) ([]vectorindex.Hit, error) {
	limit := uint64(k)
	points, err := c.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}

	hits := make([]vectorindex.Hit, 0, len(points))
	for _, point := range points {
		hit := vectorindex.Hit{Score: point.Score}
		if point.Id != nil {
			if uuid := point.Id.GetUuid(); uuid != "" {
				hit.ItemID = uuid
			} else if num := point.Id.GetNum(); num != 0 {
				hit.ItemID = fmt.Sprintf("%d", num)
			}
		}
		hit.Content, hit.Metadata = splitPayload(point.Payload)
		hits = append(hits, hit)
	}
	return hits, nil
}

// Lookup implements vectorindex.SecondaryStore using point payloads.
func (c *Client) Lookup(ctx context.Context, collection string, itemIDs []string) (map[string]vectorindex.Hit, error) {
	if len(itemIDs) == 0 {
		return map[string]vectorindex.Hit{}, nil
	}

	ids := make([]*qdrant.PointId, 0, len(itemIDs))
	for _, id := range itemIDs {
		ids = append(ids, qdrant.NewIDUUID(id))
	}

	points, err := c.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: collection,
		Ids:            ids,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant lookup failed: %w", err)
	}

	out := make(map[string]vectorindex.Hit, len(points))
	for _, point := range points {
		var id string
		if point.Id != nil {
			id = point.Id.GetUuid()
		}
		if id == "" {
			continue
		}
		hit := vectorindex.Hit{ItemID: id}
		hit.Content, hit.Metadata = splitPayload(point.Payload)
		out[id] = hit
	}
	return out, nil
}

// DropCollection removes the collection and its points.
func (c *Client) DropCollection(ctx context.Context, collection string) error {
	if err := c.client.DeleteCollection(ctx, collection); err != nil {
		return fmt.Errorf("qdrant delete collection failed: %w", err)
	}
	return nil
}

// Close implements vectorindex.Provider.
func (c *Client) Close() error {
	return c.client.Close()
}

func splitPayload(payload map[string]*qdrant.Value) (string, map[string]any) {
	if payload == nil {
		return "", nil
	}
	var content string
	metadata := make(map[string]any)
	for k, v := range payload {
		if k == "content" {
			content = v.GetStringValue()
			continue
		}
		metadata[k] = extractValue(v)
	}
	return content, metadata
}

// extractValue extracts a Go value from a Qdrant Value.
func extractValue(v *qdrant.Value) any {
	if v == nil {
		return nil
	}

	switch val := v.Kind.(type) {
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	default:
		return nil
	}
}

// Compile-time checks for the provider surfaces.
var (
	_ vectorindex.Provider       = (*Client)(nil)
	_ vectorindex.SecondaryStore = (*Client)(nil)
)
