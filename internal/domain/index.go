package domain

import "time"

// IndexProvider identifies a vector index backend.
type IndexProvider string

const (
	// ProviderQdrant is the managed vector database backend. It also
	// exposes a secondary keyed store (point payloads retrievable by id),
	// which dual-storage retrieval depends on.
	ProviderQdrant IndexProvider = "qdrant"
	// ProviderPgvector stores vectors in Postgres alongside the metadata
	// rows. No secondary keyed store.
	ProviderPgvector IndexProvider = "pgvector"
)

// IsValidProvider reports whether p is a known provider.
func IsValidProvider(p IndexProvider) bool {
	return p == ProviderQdrant || p == ProviderPgvector
}

// IndexStatus tracks index lifecycle.
type IndexStatus string

const (
	IndexStatusCreated IndexStatus = "created"
	IndexStatusReady   IndexStatus = "ready"
)

// Index is a named vector index definition for a project.
type Index struct {
	ID        string
	ProjectID string
	Name      string
	Provider  IndexProvider
	Config    map[string]any
	Params    map[string]any
	Status    IndexStatus
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BuildStatus is the index build state machine. Succeeded and failed are
// terminal; a failed build is never retried automatically.
type BuildStatus string

const (
	BuildStatusQueued    BuildStatus = "queued"
	BuildStatusRunning   BuildStatus = "running"
	BuildStatusSucceeded BuildStatus = "succeeded"
	BuildStatusFailed    BuildStatus = "failed"
)

// IsTerminal reports whether the status permits no further transitions.
func (s BuildStatus) IsTerminal() bool {
	return s == BuildStatusSucceeded || s == BuildStatusFailed
}

// IndexBuild materializes an index from one immutable chunk set version.
// The build references its source chunk set but does not own it.
type IndexBuild struct {
	ID                string
	IndexID           string
	ProjectID         string
	ChunkSetVersionID string
	Params            map[string]any
	ArtifactURI       string
	Status            BuildStatus
	Error             string
	IsDeleted         bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
