package repository

import (
	"context"
	"errors"

	"github.com/cloo-solutions/kbman/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RetrievalRunRepository persists executed retrieval runs for replay and audit.
type RetrievalRunRepository struct {
	db dbtx
}

func NewRetrievalRunRepository(pool *pgxpool.Pool) *RetrievalRunRepository {
	return &RetrievalRunRepository{db: pool}
}

func NewRetrievalRunRepositoryWithTx(tx pgx.Tx) *RetrievalRunRepository {
	return &RetrievalRunRepository{db: tx}
}

func (r *RetrievalRunRepository) Create(ctx context.Context, run *domain.RetrievalRun) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO retrieval_runs (id, project_id, strategy, query, target_type, target_id, params, results, artifact_uri, is_deleted, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		run.ID, run.ProjectID, run.Strategy, run.Query, run.TargetType, nullableString(run.TargetID),
		encodeJSON(run.Params), encodeJSON(run.Results), nullableString(run.ArtifactURI),
		run.IsDeleted, run.CreatedAt,
	)
	return err
}

func (r *RetrievalRunRepository) Get(ctx context.Context, id string) (*domain.RetrievalRun, error) {
	var run domain.RetrievalRun
	var params, results []byte
	var targetID, artifactURI pgtype.Text
	err := r.db.QueryRow(ctx,
		`SELECT id, project_id, strategy, query, target_type, target_id, params, results, artifact_uri, is_deleted, created_at
		 FROM retrieval_runs WHERE id = $1`,
		id,
	).Scan(&run.ID, &run.ProjectID, &run.Strategy, &run.Query, &run.TargetType, &targetID,
		&params, &results, &artifactURI, &run.IsDeleted, &run.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRetrievalRunNotFound
		}
		return nil, err
	}
	run.Params = decodeJSONMap(params)
	run.Results = decodeJSONMap(results)
	if targetID.Valid {
		run.TargetID = targetID.String
	}
	if artifactURI.Valid {
		run.ArtifactURI = artifactURI.String
	}
	return &run, nil
}

func (r *RetrievalRunRepository) ListByProject(ctx context.Context, projectID string, limit, offset int) ([]*domain.RetrievalRun, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, project_id, strategy, query, target_type, target_id, params, results, artifact_uri, is_deleted, created_at
		 FROM retrieval_runs
		 WHERE project_id = $1 AND is_deleted = false
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		projectID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.RetrievalRun
	for rows.Next() {
		var run domain.RetrievalRun
		var params, results []byte
		var targetID, artifactURI pgtype.Text
		if err := rows.Scan(&run.ID, &run.ProjectID, &run.Strategy, &run.Query, &run.TargetType, &targetID,
			&params, &results, &artifactURI, &run.IsDeleted, &run.CreatedAt); err != nil {
			return nil, err
		}
		run.Params = decodeJSONMap(params)
		run.Results = decodeJSONMap(results)
		if targetID.Valid {
			run.TargetID = targetID.String
		}
		if artifactURI.Valid {
			run.ArtifactURI = artifactURI.String
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

func (r *RetrievalRunRepository) CountByProject(ctx context.Context, projectID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM retrieval_runs WHERE project_id = $1 AND is_deleted = false`,
		projectID,
	).Scan(&count)
	return count, err
}

func (r *RetrievalRunRepository) SetDeleted(ctx context.Context, id string, deleted bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE retrieval_runs SET is_deleted = $2 WHERE id = $1`,
		id, deleted,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRetrievalRunNotFound
	}
	return nil
}
