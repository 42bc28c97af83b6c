package repository

import (
	"context"
	"errors"

	"github.com/cloo-solutions/kbman/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// VersionedSetRepository persists segment and chunk set versions together
// with their owned item rows.
type VersionedSetRepository struct {
	pool *pgxpool.Pool
	db   dbtx
}

func NewVersionedSetRepository(pool *pgxpool.Pool) *VersionedSetRepository {
	return &VersionedSetRepository{pool: pool, db: pool}
}

func NewVersionedSetRepositoryWithTx(tx pgx.Tx) *VersionedSetRepository {
	return &VersionedSetRepository{db: tx}
}

const setColumns = `id, kind, project_id, source_id, parent_version_id, scope_key, params, artifact_uri, is_active, is_deleted, created_at`

// CreateSetWithItems inserts the set and its items and flips the active
// pointer for the set's scope inside one transaction. Exactly one set per
// scope is active when the transaction commits; there is no window where
// two are.
func (r *VersionedSetRepository) CreateSetWithItems(ctx context.Context, set *domain.VersionedSet, items []*domain.Item) error {
	if r.pool == nil {
		return r.createSetWithItems(ctx, r.db, set, items)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := r.createSetWithItems(ctx, tx, set, items); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (r *VersionedSetRepository) createSetWithItems(ctx context.Context, db dbtx, set *domain.VersionedSet, items []*domain.Item) error {
	if set.IsActive {
		_, err := db.Exec(ctx,
			`UPDATE versioned_sets SET is_active = false WHERE kind = $1 AND scope_key = $2 AND is_active = true`,
			set.Kind, set.ScopeKey(),
		)
		if err != nil {
			return err
		}
	}

	_, err := db.Exec(ctx,
		`INSERT INTO versioned_sets (`+setColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		set.ID, set.Kind, set.ProjectID, nullableString(set.SourceID), nullableString(set.ParentVersionID),
		set.ScopeKey(), encodeJSON(set.Params), nullableString(set.ArtifactURI), set.IsActive, set.IsDeleted, set.CreatedAt,
	)
	if err != nil {
		return err
	}

	for _, item := range items {
		_, err := db.Exec(ctx,
			`INSERT INTO set_items (id, set_version_id, position, content, metadata, parent_id, level, path, type, original_format)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			item.ID, set.ID, item.Position, item.Content, encodeJSON(item.Metadata),
			nullableString(item.ParentID), item.Level, encodeJSONList(item.Path), item.Type, item.OriginalFormat,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetSet fetches a set by id, including soft-deleted rows; callers decide
// whether deleted sets are visible.
func (r *VersionedSetRepository) GetSet(ctx context.Context, id string) (*domain.VersionedSet, error) {
	row := r.db.QueryRow(ctx, `SELECT `+setColumns+` FROM versioned_sets WHERE id = $1`, id)
	set, err := scanSet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSetNotFound
		}
		return nil, err
	}
	return set, nil
}

// GetActive returns the active, non-deleted set for a scope, or
// domain.ErrSetNotFound when the scope has none.
func (r *VersionedSetRepository) GetActive(ctx context.Context, kind domain.SetKind, scopeKey string) (*domain.VersionedSet, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+setColumns+` FROM versioned_sets
		 WHERE kind = $1 AND scope_key = $2 AND is_active = true AND is_deleted = false
		 ORDER BY created_at DESC
		 LIMIT 1`,
		kind, scopeKey,
	)
	set, err := scanSet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSetNotFound
		}
		return nil, err
	}
	return set, nil
}

// CountActive returns the number of active sets in a scope. Used by
// invariants tests; the schema allows counting but the flip keeps it <= 1.
func (r *VersionedSetRepository) CountActive(ctx context.Context, kind domain.SetKind, scopeKey string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM versioned_sets WHERE kind = $1 AND scope_key = $2 AND is_active = true`,
		kind, scopeKey,
	).Scan(&count)
	return count, err
}

// GetLatestActiveByProject returns the most recently created active set of
// a kind anywhere in the project. Implicit target resolution uses it when
// no scope is given.
func (r *VersionedSetRepository) GetLatestActiveByProject(ctx context.Context, kind domain.SetKind, projectID string) (*domain.VersionedSet, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+setColumns+` FROM versioned_sets
		 WHERE kind = $1 AND project_id = $2 AND is_active = true AND is_deleted = false
		 ORDER BY created_at DESC
		 LIMIT 1`,
		kind, projectID,
	)
	set, err := scanSet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSetNotFound
		}
		return nil, err
	}
	return set, nil
}

// ListByProject returns non-deleted sets of a kind, newest first.
func (r *VersionedSetRepository) ListByProject(ctx context.Context, kind domain.SetKind, projectID string, limit, offset int) ([]*domain.VersionedSet, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+setColumns+` FROM versioned_sets
		 WHERE kind = $1 AND project_id = $2 AND is_deleted = false
		 ORDER BY created_at DESC
		 LIMIT $3 OFFSET $4`,
		kind, projectID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sets []*domain.VersionedSet
	for rows.Next() {
		set, err := scanSet(rows)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, rows.Err()
}

// CountByProject returns the number of non-deleted sets of a kind.
func (r *VersionedSetRepository) CountByProject(ctx context.Context, kind domain.SetKind, projectID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM versioned_sets WHERE kind = $1 AND project_id = $2 AND is_deleted = false`,
		kind, projectID,
	).Scan(&count)
	return count, err
}

// ListItems returns the items of a set in position order.
func (r *VersionedSetRepository) ListItems(ctx context.Context, setID string) ([]*domain.Item, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, set_version_id, position, content, metadata, parent_id, level, path, type, original_format
		 FROM set_items
		 WHERE set_version_id = $1
		 ORDER BY position ASC`,
		setID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.Item
	for rows.Next() {
		var item domain.Item
		var metadata, path []byte
		var parentID pgtype.Text
		if err := rows.Scan(&item.ID, &item.SetVersionID, &item.Position, &item.Content, &metadata,
			&parentID, &item.Level, &path, &item.Type, &item.OriginalFormat); err != nil {
			return nil, err
		}
		item.Metadata = decodeJSONMap(metadata)
		item.Path = decodeJSONList(path)
		if parentID.Valid {
			item.ParentID = parentID.String
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

// SetDeleted toggles the soft-delete flag. Items read through the flag;
// their rows are never touched.
func (r *VersionedSetRepository) SetDeleted(ctx context.Context, id string, deleted bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE versioned_sets SET is_deleted = $2 WHERE id = $1`, id, deleted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSetNotFound
	}
	return nil
}

type pgxScanner interface {
	Scan(dest ...any) error
}

func scanSet(row pgxScanner) (*domain.VersionedSet, error) {
	var set domain.VersionedSet
	var sourceID, parentVersionID, artifactURI pgtype.Text
	var scopeKey string
	var params []byte
	err := row.Scan(&set.ID, &set.Kind, &set.ProjectID, &sourceID, &parentVersionID, &scopeKey,
		&params, &artifactURI, &set.IsActive, &set.IsDeleted, &set.CreatedAt)
	if err != nil {
		return nil, err
	}
	if sourceID.Valid {
		set.SourceID = sourceID.String
	}
	if parentVersionID.Valid {
		set.ParentVersionID = parentVersionID.String
	}
	if artifactURI.Valid {
		set.ArtifactURI = artifactURI.String
	}
	set.Params = decodeJSONMap(params)
	return &set, nil
}
