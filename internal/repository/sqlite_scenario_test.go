package repository

import (
	"context"
	"testing"

	"github.com/alexanderramin/planloom/internal/domain"
	"github.com/alexanderramin/planloom/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarioRepo_CreateAndGet(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteScenarioRepo(db)
	ctx := context.Background()

	base := testutil.NewTestScenario("Plan")
	require.NoError(t, repo.Create(ctx, base))
	branch := testutil.NewTestScenario("Hiring freeze", testutil.WithParent(base.ID))
	require.NoError(t, repo.Create(ctx, branch))

	got, err := repo.GetByID(ctx, branch.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hiring freeze", got.Name)
	assert.Equal(t, base.ID, got.ParentID())
	assert.NotNil(t, got.BranchPoint)
	assert.Equal(t, domain.ScenarioBranch, got.Type)

	root, err := repo.GetBaseline(ctx)
	require.NoError(t, err)
	assert.Equal(t, base.ID, root.ID)
	assert.True(t, root.IsBaseline())
}

func TestScenarioRepo_NotFound(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteScenarioRepo(db)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.GetBaseline(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestScenarioRepo_ListFiltersInactive(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteScenarioRepo(db)
	ctx := context.Background()

	base := testutil.NewTestScenario("Plan")
	require.NoError(t, repo.Create(ctx, base))
	a := testutil.NewTestScenario("A", testutil.WithParent(base.ID))
	b := testutil.NewTestScenario("B", testutil.WithParent(base.ID))
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))
	require.NoError(t, repo.UpdateStatus(ctx, b.ID, domain.ScenarioArchived))

	active, err := repo.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	all, err := repo.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	children, err := repo.ListChildren(ctx, base.ID)
	require.NoError(t, err)
	assert.Len(t, children, 2)
}

func TestScenarioRepo_UpdateStatusMissing(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteScenarioRepo(db)

	err := repo.UpdateStatus(context.Background(), "missing", domain.ScenarioMerged)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
