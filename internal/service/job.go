package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/kbman/internal/domain"
	"github.com/cloo-solutions/kbman/internal/pagination"
)

// JobService exposes background jobs to the API: enqueueing build jobs and
// inspecting job state. Execution lives in the jobs package.
type JobService struct {
	repo    JobRepositoryInterface
	uuidGen UUIDGenerator

	pageDefault int
	pageMax     int
}

func NewJobService(repo JobRepositoryInterface) *JobService {
	return &JobService{
		repo:        repo,
		uuidGen:     &DefaultUUIDGenerator{},
		pageDefault: pagination.DefaultPageSize,
		pageMax:     pagination.MaxPageSize,
	}
}

// NewJobServiceWithUUIDGen creates the service with a custom UUID
// generator (for testing)
func NewJobServiceWithUUIDGen(repo JobRepositoryInterface, uuidGen UUIDGenerator) *JobService {
	s := NewJobService(repo)
	s.uuidGen = uuidGen
	return s
}

// EnqueueBuild queues a background execution of an already created build.
func (s *JobService) EnqueueBuild(ctx context.Context, projectID, buildID string) (*domain.Job, error) {
	now := time.Now().UTC()
	job := &domain.Job{
		ID:        s.uuidGen.NewString(),
		ProjectID: projectID,
		Type:      domain.JobTypeIndexBuild,
		Status:    domain.JobStatusQueued,
		Payload:   map[string]any{"build_id": buildID},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *JobService) Get(ctx context.Context, projectID, jobID string) (*domain.Job, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ProjectID != projectID {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

func (s *JobService) List(ctx context.Context, projectID string, limit int, cursor string) ([]*domain.Job, string, bool, error) {
	page := pagination.Paginate(limit, cursor, s.pageDefault, s.pageMax)

	jobs, err := s.repo.ListByProject(ctx, projectID, page.Limit+1, page.Offset)
	if err != nil {
		return nil, "", false, err
	}

	hasMore := len(jobs) > page.Limit
	if hasMore {
		jobs = jobs[:page.Limit]
	}
	next := ""
	if hasMore {
		next = pagination.EncodeCursor(page.Offset + len(jobs))
	}
	return jobs, next, hasMore, nil
}
