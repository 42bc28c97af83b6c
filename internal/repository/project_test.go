//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/cloo-solutions/kbman/internal/domain"
	"github.com/cloo-solutions/kbman/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewProjectRepository(pool)

	project := &domain.Project{
		ID:          uuid.NewString(),
		Name:        "Docs KB",
		Description: "internal documentation",
		Settings:    map[string]any{"default_provider": "pgvector"},
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
		UpdatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.Create(ctx, project))

	retrieved, err := repo.GetByID(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, project.Name, retrieved.Name)
	assert.Equal(t, project.Description, retrieved.Description)
	assert.Equal(t, "pgvector", retrieved.Settings["default_provider"])
}

func TestProjectRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewProjectRepository(pool)
	_, err := repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestProjectRepository_Update(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewProjectRepository(pool)
	project := setupProject(ctx, t, pool)

	project.Name = "Renamed"
	project.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.Update(ctx, project))

	retrieved, err := repo.GetByID(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", retrieved.Name)
}

func TestProjectRepository_ListAndCount(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewProjectRepository(pool)
	for i := 0; i < 3; i++ {
		setupProject(ctx, t, pool)
	}

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	page, err := repo.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := repo.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestProjectRepository_Delete(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewProjectRepository(pool)
	project := setupProject(ctx, t, pool)

	require.NoError(t, repo.Delete(ctx, project.ID))
	_, err := repo.GetByID(ctx, project.ID)
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}
