package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/cloo-solutions/kbman/internal/domain"
)

// StrategyKind discriminates the retrieval strategy union.
type StrategyKind string

const (
	StrategyVector      StrategyKind = "vector"
	StrategyBM25        StrategyKind = "bm25"
	StrategyRegex       StrategyKind = "regex"
	StrategyFuzzy       StrategyKind = "fuzzy"
	StrategyEnsemble    StrategyKind = "ensemble"
	StrategyRerank      StrategyKind = "rerank"
	StrategyDualStorage StrategyKind = "dual_storage"
)

const (
	defaultVectorK          = 10
	defaultBM25K            = 10
	defaultFuzzyThreshold   = 80
	defaultEnsembleBM25K    = 8
	defaultEnsembleFuzzy    = 75
	defaultRerankBaseK      = 20
	defaultRerankTopN       = 5
	defaultRerankModel      = "BAAI/bge-reranker-base"
	defaultRerankDevice     = "cpu"
	defaultDualStorageIDKey = "item_id"
)

// Strategy is one variant of the retrieval strategy union. Each variant
// knows how to execute itself against a resolved target.
type Strategy interface {
	Kind() StrategyKind
	execute(ctx context.Context, env *execEnv) ([]Hit, error)
}

// VectorStrategy performs nearest-neighbor search against an index build.
// SearchType and ScoreThreshold are accepted for forward compatibility but
// do not alter results.
type VectorStrategy struct {
	K              int      `json:"k"`
	SearchType     string   `json:"search_type"`
	ScoreThreshold *float64 `json:"score_threshold"`
}

func (VectorStrategy) Kind() StrategyKind { return StrategyVector }

// BM25Strategy scores items with Okapi BM25 and keeps the top K.
type BM25Strategy struct {
	K int `json:"k"`
}

func (BM25Strategy) Kind() StrategyKind { return StrategyBM25 }

// RegexStrategy keeps items whose content matches Pattern, unscored, in
// position order. When patternFromQuery is set (ensemble default) the
// query text is used as the pattern at execution time.
type RegexStrategy struct {
	Pattern string `json:"pattern"`

	patternFromQuery bool
}

func (RegexStrategy) Kind() StrategyKind { return StrategyRegex }

// FuzzyStrategy keeps items whose similarity to the query reaches the
// threshold on a 0-100 scale, ordered descending.
type FuzzyStrategy struct {
	Threshold int `json:"threshold"`
}

func (FuzzyStrategy) Kind() StrategyKind { return StrategyFuzzy }

// EnsembleStrategy fans out over atomic sources and merges by weighted sum.
type EnsembleStrategy struct {
	Sources []Strategy
	Weights []float64
}

func (EnsembleStrategy) Kind() StrategyKind { return StrategyEnsemble }

// RerankStrategy runs a base strategy and reorders its candidates with a
// cross-encoder, truncating to TopN. ModelName and Device are
// configuration passed through to the reranker.
type RerankStrategy struct {
	Base      Strategy
	ModelName string
	TopN      int
	Device    string
}

func (RerankStrategy) Kind() StrategyKind { return StrategyRerank }

// DualStorageStrategy recalls from the vector index and hydrates full rows
// from the chunk store by hit item id. IDKey is accepted for forward
// compatibility; hydration always keys on item identity.
type DualStorageStrategy struct {
	VectorSearch VectorStrategy
	IDKey        string
}

func (DualStorageStrategy) Kind() StrategyKind { return StrategyDualStorage }

// ParseStrategy decodes a strategy spec discriminated by its "type" field.
func ParseStrategy(raw json.RawMessage) (Strategy, error) {
	if len(raw) == 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "strategy is required")
	}

	var head struct {
		Type StrategyKind `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "strategy is not valid JSON", err)
	}

	switch head.Type {
	case StrategyVector:
		s := VectorStrategy{K: defaultVectorK, SearchType: "similarity"}
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, invalidStrategyParams(err)
		}
		if s.K <= 0 {
			s.K = defaultVectorK
		}
		return s, nil

	case StrategyBM25:
		s := BM25Strategy{K: defaultBM25K}
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, invalidStrategyParams(err)
		}
		if s.K <= 0 {
			s.K = defaultBM25K
		}
		return s, nil

	case StrategyRegex:
		var s RegexStrategy
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, invalidStrategyParams(err)
		}
		if s.Pattern == "" {
			return nil, domain.ErrMissingRegexPattern
		}
		if _, err := regexp.Compile(s.Pattern); err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInvalidParams, "regex pattern does not compile", err)
		}
		return s, nil

	case StrategyFuzzy:
		s := FuzzyStrategy{Threshold: defaultFuzzyThreshold}
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, invalidStrategyParams(err)
		}
		if s.Threshold < 0 || s.Threshold > 100 {
			return nil, domain.ErrInvalidFuzzyThreshold
		}
		return s, nil

	case StrategyEnsemble:
		return parseEnsemble(raw)

	case StrategyRerank:
		return parseRerank(raw)

	case StrategyDualStorage:
		var wire struct {
			VectorSearch json.RawMessage `json:"vector_search"`
			IDKey        string          `json:"id_key"`
		}
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, invalidStrategyParams(err)
		}
		s := DualStorageStrategy{
			VectorSearch: VectorStrategy{K: defaultVectorK, SearchType: "similarity"},
			IDKey:        wire.IDKey,
		}
		if s.IDKey == "" {
			s.IDKey = defaultDualStorageIDKey
		}
		if len(wire.VectorSearch) > 0 {
			if err := json.Unmarshal(wire.VectorSearch, &s.VectorSearch); err != nil {
				return nil, invalidStrategyParams(err)
			}
			if s.VectorSearch.K <= 0 {
				s.VectorSearch.K = defaultVectorK
			}
		}
		return s, nil

	default:
		return nil, domain.NewDomainError(domain.ErrCodeInvalidParams,
			fmt.Sprintf("unsupported retrieval strategy %q", head.Type))
	}
}

func parseEnsemble(raw json.RawMessage) (Strategy, error) {
	var wire struct {
		Sources []json.RawMessage `json:"sources"`
		Weights []float64         `json:"weights"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, invalidStrategyParams(err)
	}

	s := EnsembleStrategy{Weights: wire.Weights}

	if len(wire.Sources) == 0 {
		// Default blend: bm25, regex over the query text, fuzzy.
		s.Sources = []Strategy{
			BM25Strategy{K: defaultEnsembleBM25K},
			RegexStrategy{patternFromQuery: true},
			FuzzyStrategy{Threshold: defaultEnsembleFuzzy},
		}
	} else {
		for _, srcRaw := range wire.Sources {
			src, err := parseEnsembleSource(srcRaw)
			if err != nil {
				return nil, err
			}
			s.Sources = append(s.Sources, src)
		}
	}

	if len(s.Weights) > 0 && len(s.Weights) != len(s.Sources) {
		return nil, domain.ErrWeightSourceMismatch
	}
	return s, nil
}

// parseEnsembleSource accepts the atomic unindexed strategies. Explicit
// sub-parameter violations propagate instead of dropping the source.
func parseEnsembleSource(raw json.RawMessage) (Strategy, error) {
	var head struct {
		Type StrategyKind `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, invalidStrategyParams(err)
	}

	switch head.Type {
	case StrategyBM25:
		s := BM25Strategy{K: defaultEnsembleBM25K}
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, invalidStrategyParams(err)
		}
		if s.K <= 0 {
			s.K = defaultEnsembleBM25K
		}
		return s, nil
	case StrategyRegex:
		var s RegexStrategy
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, invalidStrategyParams(err)
		}
		if s.Pattern == "" {
			return nil, domain.ErrMissingRegexPattern
		}
		if _, err := regexp.Compile(s.Pattern); err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInvalidParams, "regex pattern does not compile", err)
		}
		return s, nil
	case StrategyFuzzy:
		s := FuzzyStrategy{Threshold: defaultEnsembleFuzzy}
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, invalidStrategyParams(err)
		}
		if s.Threshold < 0 || s.Threshold > 100 {
			return nil, domain.ErrInvalidFuzzyThreshold
		}
		return s, nil
	default:
		return nil, domain.NewDomainError(domain.ErrCodeInvalidParams,
			fmt.Sprintf("ensemble source %q is not an atomic unindexed strategy", head.Type))
	}
}

func parseRerank(raw json.RawMessage) (Strategy, error) {
	var wire struct {
		Base      json.RawMessage `json:"base"`
		ModelName string          `json:"model_name"`
		TopN      int             `json:"top_n"`
		Device    string          `json:"device"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, invalidStrategyParams(err)
	}

	s := RerankStrategy{
		ModelName: wire.ModelName,
		TopN:      wire.TopN,
		Device:    wire.Device,
	}
	if s.ModelName == "" {
		s.ModelName = defaultRerankModel
	}
	if s.TopN <= 0 {
		s.TopN = defaultRerankTopN
	}
	if s.Device == "" {
		s.Device = defaultRerankDevice
	}

	if len(wire.Base) == 0 {
		s.Base = BM25Strategy{K: defaultRerankBaseK}
		return s, nil
	}

	base, err := ParseStrategy(wire.Base)
	if err != nil {
		return nil, err
	}
	switch base.Kind() {
	case StrategyVector, StrategyBM25, StrategyRegex, StrategyFuzzy:
		if bm25, ok := base.(BM25Strategy); ok && bm25.K == defaultBM25K {
			// Wider default pool for the rerank base.
			var probe struct {
				K *int `json:"k"`
			}
			if json.Unmarshal(wire.Base, &probe) == nil && probe.K == nil {
				bm25.K = defaultRerankBaseK
				base = bm25
			}
		}
		s.Base = base
		return s, nil
	default:
		return nil, domain.NewDomainError(domain.ErrCodeInvalidParams,
			fmt.Sprintf("rerank base %q must be an atomic strategy", base.Kind()))
	}
}

func invalidStrategyParams(err error) error {
	return domain.NewDomainErrorWithCause(domain.ErrCodeInvalidParams, "invalid strategy parameters", err)
}
