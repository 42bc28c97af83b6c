package segmenter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cloo-solutions/kbman/internal/domain"
)

// LoaderType identifies how raw document payloads are turned into text.
type LoaderType string

const (
	LoaderText LoaderType = "text"
)

// ChunkerStrategy identifies how loaded text is split into pieces.
type ChunkerStrategy string

const (
	ChunkerRecursive ChunkerStrategy = "recursive"
	ChunkerToken     ChunkerStrategy = "token"
	ChunkerSentence  ChunkerStrategy = "sentence"
	ChunkerRegex     ChunkerStrategy = "regex"
)

// Config controls one segmentation pass.
type Config struct {
	Loader    LoaderType
	Chunker   ChunkerStrategy
	ChunkSize int
	MinChars  int
	Overlap   int
	MaxChunks int
	// Pattern is the split pattern for the regex chunker.
	Pattern string
}

// DefaultConfig provides sane defaults for segmentation.
func DefaultConfig() Config {
	return Config{
		Loader:    LoaderText,
		Chunker:   ChunkerRecursive,
		ChunkSize: 1200,
		MinChars:  400,
		Overlap:   200,
		MaxChunks: 0,
	}
}

// Piece is one produced fragment with its byte-order position.
type Piece struct {
	Position int
	Content  string
	Metadata map[string]any
}

// Engine splits document text into ordered pieces.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Split loads and chunks raw content according to cfg. Unknown loader or
// chunker names are rejected with the allowed values listed.
func (e *Engine) Split(raw []byte, cfg Config) ([]Piece, error) {
	if cfg.Loader == "" {
		cfg.Loader = LoaderText
	}
	if cfg.Chunker == "" {
		cfg.Chunker = ChunkerRecursive
	}
	if cfg.ChunkSize <= 0 {
		def := DefaultConfig()
		cfg.ChunkSize = def.ChunkSize
		cfg.MinChars = def.MinChars
		cfg.Overlap = def.Overlap
	}

	text, err := load(raw, cfg.Loader)
	if err != nil {
		return nil, err
	}

	var parts []string
	switch cfg.Chunker {
	case ChunkerRecursive:
		parts = splitRecursive(text, cfg)
	case ChunkerToken:
		parts = splitTokens(text, cfg)
	case ChunkerSentence:
		parts = splitSentences(text, cfg)
	case ChunkerRegex:
		parts, err = splitRegex(text, cfg)
		if err != nil {
			return nil, err
		}
	default:
		return nil, domain.NewDomainError(domain.ErrCodeValidation,
			fmt.Sprintf("unknown chunker %q, allowed: recursive, token, sentence, regex", cfg.Chunker))
	}

	pieces := make([]Piece, 0, len(parts))
	for i, part := range parts {
		pieces = append(pieces, Piece{
			Position: i,
			Content:  part,
			Metadata: map[string]any{"chunker": string(cfg.Chunker)},
		})
	}
	return pieces, nil
}

func load(raw []byte, loader LoaderType) (string, error) {
	switch loader {
	case LoaderText:
		return strings.TrimSpace(string(raw)), nil
	default:
		return "", domain.NewDomainError(domain.ErrCodeValidation,
			fmt.Sprintf("unknown loader %q, allowed: text", loader))
	}
}

func splitRegex(text string, cfg Config) ([]string, error) {
	if strings.TrimSpace(cfg.Pattern) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "regex chunker requires a pattern")
	}
	re, err := regexp.Compile(cfg.Pattern)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid regex pattern", err)
	}
	var parts []string
	for _, part := range re.Split(text, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		parts = append(parts, part)
		if cfg.MaxChunks > 0 && len(parts) >= cfg.MaxChunks {
			break
		}
	}
	return parts, nil
}
