package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/kbman/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// JobRepository persists background jobs. Claiming uses FOR UPDATE SKIP
// LOCKED so multiple workers never pick up the same job.
type JobRepository struct {
	db dbtx
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{db: pool}
}

func NewJobRepositoryWithTx(tx pgx.Tx) *JobRepository {
	return &JobRepository{db: tx}
}

func (r *JobRepository) Create(ctx context.Context, job *domain.Job) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO jobs (id, project_id, type, status, payload, result, error, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		job.ID, job.ProjectID, job.Type, job.Status, encodeJSON(job.Payload), encodeJSON(job.Result),
		nullableString(job.Error), job.CreatedAt, job.UpdatedAt,
	)
	return err
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	var job domain.Job
	var payload, result []byte
	var errMsg pgtype.Text
	err := r.db.QueryRow(ctx,
		`SELECT id, project_id, type, status, payload, result, error, created_at, updated_at
		 FROM jobs WHERE id = $1`,
		id,
	).Scan(&job.ID, &job.ProjectID, &job.Type, &job.Status, &payload, &result, &errMsg, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, err
	}
	job.Payload = decodeJSONMap(payload)
	job.Result = decodeJSONMap(result)
	if errMsg.Valid {
		job.Error = errMsg.String
	}
	return &job, nil
}

func (r *JobRepository) ListByProject(ctx context.Context, projectID string, limit, offset int) ([]*domain.Job, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, project_id, type, status, payload, result, error, created_at, updated_at
		 FROM jobs
		 WHERE project_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		projectID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobs(rows)
}

// ClaimQueued atomically marks up to limit queued jobs as running and
// returns them in creation order.
func (r *JobRepository) ClaimQueued(ctx context.Context, limit int) ([]*domain.Job, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM jobs
			 WHERE status = $1
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE jobs
		 SET status = $3,
		     error = NULL,
		     updated_at = NOW()
		 FROM cte
		 WHERE jobs.id = cte.id
		 RETURNING jobs.id, jobs.project_id, jobs.type, jobs.status, jobs.payload,
		           jobs.result, jobs.error, jobs.created_at, jobs.updated_at`,
		domain.JobStatusQueued, limit, domain.JobStatusRunning,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (r *JobRepository) UpdateStatus(ctx context.Context, id string, status domain.JobStatus, result map[string]any, errMsg string) error {
	var errPtr *string
	if errMsg != "" {
		errPtr = &errMsg
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE jobs SET status = $1, result = $2, error = $3, updated_at = $4 WHERE id = $5`,
		status, encodeJSON(result), errPtr, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func scanJobs(rows pgx.Rows) ([]*domain.Job, error) {
	var jobs []*domain.Job
	for rows.Next() {
		var job domain.Job
		var payload, result []byte
		var errMsg pgtype.Text
		if err := rows.Scan(&job.ID, &job.ProjectID, &job.Type, &job.Status, &payload, &result,
			&errMsg, &job.CreatedAt, &job.UpdatedAt); err != nil {
			return nil, err
		}
		job.Payload = decodeJSONMap(payload)
		job.Result = decodeJSONMap(result)
		if errMsg.Valid {
			job.Error = errMsg.String
		}
		jobs = append(jobs, &job)
	}
	return jobs, rows.Err()
}
