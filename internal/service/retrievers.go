package service

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/cloo-solutions/kbman/internal/domain"
)

// Hit is one retrieval result before pagination. Score is nil for
// unscored strategies (regex).
type Hit struct {
	ItemID   string         `json:"item_id"`
	Content  string         `json:"page_content"`
	Score    *float64       `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

func scorePtr(v float64) *float64 { return &v }

func hitFromItem(item *domain.Item, score *float64) Hit {
	metadata := make(map[string]any, len(item.Metadata)+3)
	for k, v := range item.Metadata {
		metadata[k] = v
	}
	metadata["item_id"] = item.ID
	metadata["position"] = item.Position
	metadata["set_version_id"] = item.SetVersionID
	return Hit{ItemID: item.ID, Content: item.Content, Score: score, Metadata: metadata}
}

func (s BM25Strategy) execute(ctx context.Context, env *execEnv) ([]Hit, error) {
	if env.target.set == nil {
		return nil, domain.ErrInvalidTarget
	}
	index := env.bm25.forSet(env.target.set.ID, env.target.items)
	return index.search(env.query, s.K), nil
}

func (s RegexStrategy) execute(ctx context.Context, env *execEnv) ([]Hit, error) {
	if env.target.set == nil {
		return nil, domain.ErrInvalidTarget
	}

	pattern := s.Pattern
	fromQuery := s.patternFromQuery
	if fromQuery {
		pattern = env.query
	}
	if pattern == "" {
		return nil, domain.ErrMissingRegexPattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		if fromQuery {
			// The default ensemble source treats a non-regex query as
			// matching nothing rather than failing the whole ensemble.
			return nil, nil
		}
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInvalidParams, "regex pattern does not compile", err)
	}

	// Matches are unscored and keep their original position order.
	var hits []Hit
	for _, item := range env.target.items {
		if re.MatchString(item.Content) {
			hits = append(hits, hitFromItem(item, nil))
		}
	}
	return hits, nil
}

func (s FuzzyStrategy) execute(ctx context.Context, env *execEnv) ([]Hit, error) {
	if env.target.set == nil {
		return nil, domain.ErrInvalidTarget
	}

	metric := metrics.NewLevenshtein()
	metric.CaseSensitive = false

	var hits []Hit
	for _, item := range env.target.items {
		score := strutil.Similarity(env.query, item.Content, metric) * 100
		if score >= float64(s.Threshold) {
			hits = append(hits, hitFromItem(item, scorePtr(score)))
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return *hits[i].Score > *hits[j].Score })
	return hits, nil
}

// bm25Cache holds one Okapi BM25 index per set version. Set versions are
// immutable, so entries never need invalidation; eviction is size-bound.
type bm25Cache struct {
	mu      sync.Mutex
	entries map[string]*bm25Index
	max     int
}

func newBM25Cache(max int) *bm25Cache {
	if max <= 0 {
		max = 64
	}
	return &bm25Cache{entries: make(map[string]*bm25Index), max: max}
}

func (c *bm25Cache) forSet(setVersionID string, items []*domain.Item) *bm25Index {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index, ok := c.entries[setVersionID]; ok {
		return index
	}
	if len(c.entries) >= c.max {
		for k := range c.entries {
			delete(c.entries, k)
			break
		}
	}
	index := newBM25Index(items)
	c.entries[setVersionID] = index
	return index
}

const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// bm25Index is an in-memory Okapi BM25 index over one item set.
type bm25Index struct {
	items     []*domain.Item
	docTokens []map[string]int
	docLens   []int
	avgDocLen float64
	docFreq   map[string]int
}

func newBM25Index(items []*domain.Item) *bm25Index {
	index := &bm25Index{
		items:     items,
		docTokens: make([]map[string]int, len(items)),
		docLens:   make([]int, len(items)),
		docFreq:   make(map[string]int),
	}

	totalLen := 0
	for i, item := range items {
		tokens := tokenize(item.Content)
		counts := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			counts[tok]++
		}
		index.docTokens[i] = counts
		index.docLens[i] = len(tokens)
		totalLen += len(tokens)
		for tok := range counts {
			index.docFreq[tok]++
		}
	}
	if len(items) > 0 {
		index.avgDocLen = float64(totalLen) / float64(len(items))
	}
	return index
}

func (b *bm25Index) search(query string, k int) []Hit {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 || len(b.items) == 0 {
		return nil
	}

	n := float64(len(b.items))
	var hits []Hit
	for i, item := range b.items {
		var score float64
		for _, tok := range queryTokens {
			tf := float64(b.docTokens[i][tok])
			if tf == 0 {
				continue
			}
			df := float64(b.docFreq[tok])
			idf := math.Log(1 + (n-df+0.5)/(df+0.5))
			norm := tf * (bm25K1 + 1) / (tf + bm25K1*(1-bm25B+bm25B*float64(b.docLens[i])/b.avgDocLen))
			score += idf * norm
		}
		if score > 0 {
			hits = append(hits, hitFromItem(item, scorePtr(score)))
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return *hits[i].Score > *hits[j].Score })
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}
