package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/kbman/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProjectRepository struct {
	db dbtx
}

func NewProjectRepository(pool *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{db: pool}
}

func NewProjectRepositoryWithTx(tx pgx.Tx) *ProjectRepository {
	return &ProjectRepository{db: tx}
}

func (r *ProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO projects (id, name, description, settings, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		project.ID, project.Name, project.Description, encodeJSON(project.Settings),
		project.CreatedAt, project.UpdatedAt,
	)
	return err
}

func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	var project domain.Project
	var settings []byte
	err := r.db.QueryRow(ctx,
		`SELECT id, name, description, settings, created_at, updated_at
		 FROM projects WHERE id = $1`,
		id,
	).Scan(&project.ID, &project.Name, &project.Description, &settings, &project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, err
	}
	project.Settings = decodeJSONMap(settings)
	return &project, nil
}

func (r *ProjectRepository) List(ctx context.Context, limit, offset int) ([]*domain.Project, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, description, settings, created_at, updated_at
		 FROM projects
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*domain.Project
	for rows.Next() {
		var project domain.Project
		var settings []byte
		if err := rows.Scan(&project.ID, &project.Name, &project.Description, &settings,
			&project.CreatedAt, &project.UpdatedAt); err != nil {
			return nil, err
		}
		project.Settings = decodeJSONMap(settings)
		projects = append(projects, &project)
	}
	return projects, rows.Err()
}

func (r *ProjectRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM projects`).Scan(&count)
	return count, err
}

func (r *ProjectRepository) Update(ctx context.Context, project *domain.Project) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE projects SET name = $2, description = $3, settings = $4, updated_at = $5 WHERE id = $1`,
		project.ID, project.Name, project.Description, encodeJSON(project.Settings), time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}
