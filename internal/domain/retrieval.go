package domain

import "time"

// RetrievalTarget names the content source family a retrieval runs over.
type RetrievalTarget string

const (
	TargetChunkSet   RetrievalTarget = "chunk_set"
	TargetSegmentSet RetrievalTarget = "segment_set"
	TargetIndexBuild RetrievalTarget = "index_build"
)

// IsValidTarget reports whether t is a known retrieval target.
func IsValidTarget(t RetrievalTarget) bool {
	return t == TargetChunkSet || t == TargetSegmentSet || t == TargetIndexBuild
}

// RetrievalRun is an optional persisted record of one query execution.
// Results holds the page returned to the triggering request; ArtifactURI
// points at the full result blob in the object store when configured.
type RetrievalRun struct {
	ID          string
	ProjectID   string
	Strategy    string
	Query       string
	TargetType  RetrievalTarget
	TargetID    string
	Params      map[string]any
	Results     map[string]any
	ArtifactURI string
	IsDeleted   bool
	CreatedAt   time.Time
}
