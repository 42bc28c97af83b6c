package service

import (
	"context"
	"strings"
	"time"

	"github.com/cloo-solutions/kbman/internal/domain"
	"github.com/cloo-solutions/kbman/internal/pagination"
	"github.com/cloo-solutions/kbman/internal/telemetry"
)

// ProjectService manages project lifecycle.
type ProjectService struct {
	repo    ProjectRepositoryInterface
	uuidGen UUIDGenerator

	pageDefault int
	pageMax     int
}

func NewProjectService(repo ProjectRepositoryInterface) *ProjectService {
	return &ProjectService{
		repo:        repo,
		uuidGen:     &DefaultUUIDGenerator{},
		pageDefault: pagination.DefaultPageSize,
		pageMax:     pagination.MaxPageSize,
	}
}

// NewProjectServiceWithUUIDGen creates the service with a custom UUID
// generator (for testing)
func NewProjectServiceWithUUIDGen(repo ProjectRepositoryInterface, uuidGen UUIDGenerator) *ProjectService {
	s := NewProjectService(repo)
	s.uuidGen = uuidGen
	return s
}

type CreateProjectInput struct {
	Name        string
	Description string
	Settings    map[string]any
}

func (s *ProjectService) Create(ctx context.Context, input CreateProjectInput) (*domain.Project, error) {
	ctx, span := telemetry.StartSpan(ctx, "ProjectService.Create", telemetry.SpanAttributes{
		Operation: "create",
	})
	defer span.End()

	now := time.Now().UTC()
	project := &domain.Project{
		ID:          s.uuidGen.NewString(),
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Settings:    input.Settings,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := domain.ValidateProject(project); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, project); err != nil {
		span.SetError(err)
		return nil, err
	}
	return project, nil
}

func (s *ProjectService) Get(ctx context.Context, id string) (*domain.Project, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ProjectService) List(ctx context.Context, limit int, cursor string) ([]*domain.Project, string, bool, int, error) {
	page := pagination.Paginate(limit, cursor, s.pageDefault, s.pageMax)

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, "", false, 0, err
	}
	projects, err := s.repo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, "", false, 0, err
	}

	next := ""
	hasMore := page.Offset+len(projects) < total
	if hasMore {
		next = pagination.EncodeCursor(page.Offset + len(projects))
	}
	return projects, next, hasMore, total, nil
}

type UpdateProjectInput struct {
	Name        *string
	Description *string
	Settings    map[string]any
}

func (s *ProjectService) Update(ctx context.Context, id string, input UpdateProjectInput) (*domain.Project, error) {
	ctx, span := telemetry.StartSpan(ctx, "ProjectService.Update", telemetry.SpanAttributes{
		ProjectID: id,
		Operation: "update",
	})
	defer span.End()

	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		project.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		project.Description = *input.Description
	}
	if input.Settings != nil {
		project.Settings = input.Settings
	}
	if err := domain.ValidateProject(project); err != nil {
		return nil, err
	}
	project.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, project); err != nil {
		span.SetError(err)
		return nil, err
	}
	return project, nil
}

func (s *ProjectService) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "ProjectService.Delete", telemetry.SpanAttributes{
		ProjectID: id,
		Operation: "delete",
	})
	defer span.End()

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
