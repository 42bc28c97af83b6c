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

// DocumentRepository persists documents and their parsed versions.
type DocumentRepository struct {
	pool *pgxpool.Pool
	db   dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{pool: pool, db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (id, project_id, filename, mime, storage_uri, metadata, is_deleted, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		doc.ID, doc.ProjectID, doc.Filename, doc.Mime, nullableString(doc.StorageURI),
		encodeJSON(doc.Metadata), doc.IsDeleted, doc.CreatedAt, doc.UpdatedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	var doc domain.Document
	var metadata []byte
	var storageURI pgtype.Text
	err := r.db.QueryRow(ctx,
		`SELECT id, project_id, filename, mime, storage_uri, metadata, is_deleted, created_at, updated_at
		 FROM documents WHERE id = $1`,
		id,
	).Scan(&doc.ID, &doc.ProjectID, &doc.Filename, &doc.Mime, &storageURI, &metadata,
		&doc.IsDeleted, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	doc.Metadata = decodeJSONMap(metadata)
	if storageURI.Valid {
		doc.StorageURI = storageURI.String
	}
	return &doc, nil
}

func (r *DocumentRepository) ListByProject(ctx context.Context, projectID string, limit, offset int) ([]*domain.Document, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, project_id, filename, mime, storage_uri, metadata, is_deleted, created_at, updated_at
		 FROM documents
		 WHERE project_id = $1 AND is_deleted = false
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		projectID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		var doc domain.Document
		var metadata []byte
		var storageURI pgtype.Text
		if err := rows.Scan(&doc.ID, &doc.ProjectID, &doc.Filename, &doc.Mime, &storageURI, &metadata,
			&doc.IsDeleted, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, err
		}
		doc.Metadata = decodeJSONMap(metadata)
		if storageURI.Valid {
			doc.StorageURI = storageURI.String
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

func (r *DocumentRepository) CountByProject(ctx context.Context, projectID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM documents WHERE project_id = $1 AND is_deleted = false`,
		projectID,
	).Scan(&count)
	return count, err
}

func (r *DocumentRepository) SetDeleted(ctx context.Context, id string, deleted bool) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET is_deleted = $2, updated_at = $3 WHERE id = $1`,
		id, deleted, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// CreateVersion inserts a document version and makes it the active one.
// The previous active version for the document is deactivated in the same
// transaction.
func (r *DocumentRepository) CreateVersion(ctx context.Context, version *domain.DocumentVersion) error {
	if r.pool == nil {
		return r.createVersion(ctx, r.db, version)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := r.createVersion(ctx, tx, version); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *DocumentRepository) createVersion(ctx context.Context, db dbtx, version *domain.DocumentVersion) error {
	if version.IsActive {
		_, err := db.Exec(ctx,
			`UPDATE document_versions SET is_active = false WHERE document_id = $1 AND is_active = true`,
			version.DocumentID,
		)
		if err != nil {
			return err
		}
	}
	_, err := db.Exec(ctx,
		`INSERT INTO document_versions (id, document_id, content_hash, params, is_active, is_deleted, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		version.ID, version.DocumentID, version.ContentHash, encodeJSON(version.Params),
		version.IsActive, version.IsDeleted, version.CreatedAt,
	)
	return err
}

func (r *DocumentRepository) GetVersion(ctx context.Context, id string) (*domain.DocumentVersion, error) {
	var version domain.DocumentVersion
	var params []byte
	err := r.db.QueryRow(ctx,
		`SELECT id, document_id, content_hash, params, is_active, is_deleted, created_at
		 FROM document_versions WHERE id = $1`,
		id,
	).Scan(&version.ID, &version.DocumentID, &version.ContentHash, &params,
		&version.IsActive, &version.IsDeleted, &version.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentVersionNotFound
		}
		return nil, err
	}
	version.Params = decodeJSONMap(params)
	return &version, nil
}

func (r *DocumentRepository) GetActiveVersion(ctx context.Context, documentID string) (*domain.DocumentVersion, error) {
	var version domain.DocumentVersion
	var params []byte
	err := r.db.QueryRow(ctx,
		`SELECT id, document_id, content_hash, params, is_active, is_deleted, created_at
		 FROM document_versions
		 WHERE document_id = $1 AND is_active = true AND is_deleted = false`,
		documentID,
	).Scan(&version.ID, &version.DocumentID, &version.ContentHash, &params,
		&version.IsActive, &version.IsDeleted, &version.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentVersionNotFound
		}
		return nil, err
	}
	version.Params = decodeJSONMap(params)
	return &version, nil
}

func (r *DocumentRepository) ListVersions(ctx context.Context, documentID string) ([]*domain.DocumentVersion, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, content_hash, params, is_active, is_deleted, created_at
		 FROM document_versions
		 WHERE document_id = $1 AND is_deleted = false
		 ORDER BY created_at DESC`,
		documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []*domain.DocumentVersion
	for rows.Next() {
		var version domain.DocumentVersion
		var params []byte
		if err := rows.Scan(&version.ID, &version.DocumentID, &version.ContentHash, &params,
			&version.IsActive, &version.IsDeleted, &version.CreatedAt); err != nil {
			return nil, err
		}
		version.Params = decodeJSONMap(params)
		versions = append(versions, &version)
	}
	return versions, rows.Err()
}
