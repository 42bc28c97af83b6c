package domain

import "time"

// JobType names a background task family.
type JobType string

const (
	JobTypeIndexBuild JobType = "index_build"
	JobTypePipeline   JobType = "pipeline"
)

// JobStatus tracks background job execution.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Job is a long-running operation executed out of request scope.
type Job struct {
	ID        string
	ProjectID string
	Type      JobType
	Status    JobStatus
	Payload   map[string]any
	Result    map[string]any
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
