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

// IndexRepository persists index definitions and their builds.
type IndexRepository struct {
	db dbtx
}

func NewIndexRepository(pool *pgxpool.Pool) *IndexRepository {
	return &IndexRepository{db: pool}
}

func NewIndexRepositoryWithTx(tx pgx.Tx) *IndexRepository {
	return &IndexRepository{db: tx}
}

func (r *IndexRepository) CreateIndex(ctx context.Context, idx *domain.Index) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO indexes (id, project_id, name, provider, config, params, status, is_deleted, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		idx.ID, idx.ProjectID, idx.Name, idx.Provider, encodeJSON(idx.Config), encodeJSON(idx.Params),
		idx.Status, idx.IsDeleted, idx.CreatedAt, idx.UpdatedAt,
	)
	return err
}

func (r *IndexRepository) GetIndex(ctx context.Context, id string) (*domain.Index, error) {
	var idx domain.Index
	var config, params []byte
	err := r.db.QueryRow(ctx,
		`SELECT id, project_id, name, provider, config, params, status, is_deleted, created_at, updated_at
		 FROM indexes WHERE id = $1`,
		id,
	).Scan(&idx.ID, &idx.ProjectID, &idx.Name, &idx.Provider, &config, &params, &idx.Status, &idx.IsDeleted, &idx.CreatedAt, &idx.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrIndexNotFound
		}
		return nil, err
	}
	idx.Config = decodeJSONMap(config)
	idx.Params = decodeJSONMap(params)
	return &idx, nil
}

func (r *IndexRepository) ListIndexes(ctx context.Context, projectID string) ([]*domain.Index, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, project_id, name, provider, config, params, status, is_deleted, created_at, updated_at
		 FROM indexes
		 WHERE project_id = $1 AND is_deleted = false
		 ORDER BY created_at DESC`,
		projectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []*domain.Index
	for rows.Next() {
		var idx domain.Index
		var config, params []byte
		if err := rows.Scan(&idx.ID, &idx.ProjectID, &idx.Name, &idx.Provider, &config, &params,
			&idx.Status, &idx.IsDeleted, &idx.CreatedAt, &idx.UpdatedAt); err != nil {
			return nil, err
		}
		idx.Config = decodeJSONMap(config)
		idx.Params = decodeJSONMap(params)
		indexes = append(indexes, &idx)
	}
	return indexes, rows.Err()
}

// UpdateIndex persists status and config changes after a build.
func (r *IndexRepository) UpdateIndex(ctx context.Context, idx *domain.Index) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE indexes SET status = $2, config = $3, updated_at = $4 WHERE id = $1`,
		idx.ID, idx.Status, encodeJSON(idx.Config), time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrIndexNotFound
	}
	return nil
}

func (r *IndexRepository) CreateBuild(ctx context.Context, build *domain.IndexBuild) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO index_builds (id, index_id, project_id, chunk_set_version_id, params, artifact_uri, status, error, is_deleted, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		build.ID, build.IndexID, build.ProjectID, build.ChunkSetVersionID, encodeJSON(build.Params),
		nullableString(build.ArtifactURI), build.Status, nullableString(build.Error), build.IsDeleted,
		build.CreatedAt, build.UpdatedAt,
	)
	return err
}

func (r *IndexRepository) GetBuild(ctx context.Context, id string) (*domain.IndexBuild, error) {
	var build domain.IndexBuild
	var params []byte
	var artifactURI, errMsg pgtype.Text
	err := r.db.QueryRow(ctx,
		`SELECT id, index_id, project_id, chunk_set_version_id, params, artifact_uri, status, error, is_deleted, created_at, updated_at
		 FROM index_builds WHERE id = $1`,
		id,
	).Scan(&build.ID, &build.IndexID, &build.ProjectID, &build.ChunkSetVersionID, &params,
		&artifactURI, &build.Status, &errMsg, &build.IsDeleted, &build.CreatedAt, &build.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrIndexBuildNotFound
		}
		return nil, err
	}
	build.Params = decodeJSONMap(params)
	if artifactURI.Valid {
		build.ArtifactURI = artifactURI.String
	}
	if errMsg.Valid {
		build.Error = errMsg.String
	}
	return &build, nil
}

func (r *IndexRepository) ListBuilds(ctx context.Context, indexID string) ([]*domain.IndexBuild, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, index_id, project_id, chunk_set_version_id, params, artifact_uri, status, error, is_deleted, created_at, updated_at
		 FROM index_builds
		 WHERE index_id = $1 AND is_deleted = false
		 ORDER BY created_at DESC`,
		indexID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var builds []*domain.IndexBuild
	for rows.Next() {
		var build domain.IndexBuild
		var params []byte
		var artifactURI, errMsg pgtype.Text
		if err := rows.Scan(&build.ID, &build.IndexID, &build.ProjectID, &build.ChunkSetVersionID, &params,
			&artifactURI, &build.Status, &errMsg, &build.IsDeleted, &build.CreatedAt, &build.UpdatedAt); err != nil {
			return nil, err
		}
		build.Params = decodeJSONMap(params)
		if artifactURI.Valid {
			build.ArtifactURI = artifactURI.String
		}
		if errMsg.Valid {
			build.Error = errMsg.String
		}
		builds = append(builds, &build)
	}
	return builds, rows.Err()
}

// UpdateBuild persists a status transition and its side fields.
func (r *IndexRepository) UpdateBuild(ctx context.Context, build *domain.IndexBuild) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE index_builds SET status = $2, artifact_uri = $3, error = $4, updated_at = $5 WHERE id = $1`,
		build.ID, build.Status, nullableString(build.ArtifactURI), nullableString(build.Error), time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrIndexBuildNotFound
	}
	return nil
}
