package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"
)

const defaultTimeout = 30 * time.Second

// HTTPClient calls an external cross-encoder service speaking the common
// /rerank JSON contract: {model, query, documents: [...]} in,
// {results: [{index, relevance_score}]} out.
type HTTPClient struct {
	baseURL string
	model   string
	httpc   *http.Client
}

func NewHTTPClient(baseURL, model string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		model:   model,
		httpc:   &http.Client{Timeout: defaultTimeout},
	}
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

func (c *HTTPClient) ModelName() string {
	return c.model
}

func (c *HTTPClient) Rerank(ctx context.Context, query string, candidates []Candidate) ([]Result, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	docs := make([]string, len(candidates))
	for i, cand := range candidates {
		docs[i] = cand.Content
	}

	body, err := json.Marshal(rerankRequest{Model: c.model, Query: query, Documents: docs})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank service returned status %d", resp.StatusCode)
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode rerank response: %w", err)
	}

	results := make([]Result, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if r.Index < 0 || r.Index >= len(candidates) {
			return nil, fmt.Errorf("rerank response index %d out of range", r.Index)
		}
		results = append(results, Result{ID: candidates[r.Index].ID, Score: r.RelevanceScore})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results, nil
}

var _ Reranker = (*HTTPClient)(nil)
