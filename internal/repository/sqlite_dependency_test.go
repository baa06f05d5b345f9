package repository

import (
	"context"
	"testing"

	"github.com/alexanderramin/planloom/internal/domain"
	"github.com/alexanderramin/planloom/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func depTestSetup(t *testing.T) (*SQLiteDependencyRepo, *domain.Scenario, *domain.Scenario) {
	t.Helper()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	scenarios := NewSQLiteScenarioRepo(db)

	base := testutil.NewTestScenario("Plan")
	require.NoError(t, scenarios.Create(ctx, base))
	branch := testutil.NewTestScenario("What-if", testutil.WithParent(base.ID))
	require.NoError(t, scenarios.Create(ctx, branch))
	return NewSQLiteDependencyRepo(db), base, branch
}

func TestDependencyRepo_CreateAndList(t *testing.T) {
	repo, base, branch := depTestSetup(t)
	ctx := context.Background()

	d1 := testutil.NewTestDependency(base.ID, "p1", "a", "b", domain.FinishToStart, 0)
	d2 := testutil.NewTestDependency(branch.ID, "p1", "b", "c", domain.StartToStart, -2)
	require.NoError(t, repo.Create(ctx, d1))
	require.NoError(t, repo.Create(ctx, d2))

	baseOnly, err := repo.ListByScenarios(ctx, []string{base.ID})
	require.NoError(t, err)
	require.Len(t, baseOnly, 1)
	assert.Equal(t, "a", baseOnly[0].PredecessorID)

	both, err := repo.ListByScenarios(ctx, []string{base.ID, branch.ID})
	require.NoError(t, err)
	require.Len(t, both, 2)
	assert.Equal(t, -2, both[1].LagDays)
	assert.Equal(t, domain.StartToStart, both[1].Type)

	none, err := repo.ListByScenarios(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDependencyRepo_DuplicateEdgeRejected(t *testing.T) {
	repo, base, _ := depTestSetup(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testutil.NewTestDependency(base.ID, "p1", "a", "b", domain.FinishToStart, 0)))
	err := repo.Create(ctx, testutil.NewTestDependency(base.ID, "p1", "a", "b", domain.StartToStart, 1))
	assert.Error(t, err)
}

func TestDependencyRepo_UpdateAndDelete(t *testing.T) {
	repo, base, _ := depTestSetup(t)
	ctx := context.Background()

	d := testutil.NewTestDependency(base.ID, "p1", "a", "b", domain.FinishToStart, 0)
	require.NoError(t, repo.Create(ctx, d))

	d.Type = domain.FinishToFinish
	d.LagDays = 3
	require.NoError(t, repo.Update(ctx, d))

	got, err := repo.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FinishToFinish, got.Type)
	assert.Equal(t, 3, got.LagDays)

	require.NoError(t, repo.Delete(ctx, d.ID))
	_, err = repo.GetByID(ctx, d.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
