package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/planloom/internal/app"
	"github.com/alexanderramin/planloom/internal/domain"
)

func TestDependencyService_RejectsCycle(t *testing.T) {
	e := setupServices(t)
	e.baseline(t)
	p := e.project(t, "", "Apollo")
	a := e.phase(t, "", p.ID, "A", "2024-01-01", "2024-01-05")
	b := e.phase(t, "", p.ID, "B", "2024-01-06", "2024-01-10")
	c := e.phase(t, "", p.ID, "C", "2024-01-06", "2024-01-12")

	e.dep(t, "", a.ID, b.ID, domain.FinishToStart)
	e.dep(t, "", a.ID, c.ID, domain.FinishToStart)

	_, err := e.deps.Create(context.Background(), app.DependencyInput{
		PredecessorPhaseTimelineID: b.ID,
		SuccessorPhaseTimelineID:   a.ID,
		DependencyType:             string(domain.StartToStart),
	}, "alice")
	require.Error(t, err)
	var pe *domain.PlanError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, domain.CodeCyclicDependency, pe.Code)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, pe.EntityIDs)

	deps, err := e.deps.List(context.Background(), "", p.ID)
	require.NoError(t, err)
	assert.Len(t, deps, 2, "rejected edge is not stored")
}

func TestDependencyService_RejectsCycleInDescendant(t *testing.T) {
	e := setupServices(t)
	ctx := context.Background()
	base := e.baseline(t)
	p := e.project(t, "", "Apollo")
	a := e.phase(t, "", p.ID, "A", "2024-01-01", "2024-01-05")
	b := e.phase(t, "", p.ID, "B", "2024-01-06", "2024-01-10")
	c := e.phase(t, "", p.ID, "C", "2024-01-11", "2024-01-15")

	br := e.branch(t, base.ID, "Reorder")
	e.dep(t, br.ID, b.ID, a.ID, domain.FinishToStart)
	sub := e.branch(t, br.ID, "Reorder further")
	e.dep(t, sub.ID, c.ID, b.ID, domain.FinishToStart)

	tests := []struct {
		name       string
		pred, succ string
	}{
		{"child owns the reverse edge", a.ID, b.ID},
		{"grandchild closes the loop", b.ID, c.ID},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.deps.Create(ctx, app.DependencyInput{
				PredecessorPhaseTimelineID: tc.pred,
				SuccessorPhaseTimelineID:   tc.succ,
			}, "alice")
			assert.True(t, domain.HasCode(err, domain.CodeCyclicDependency), "got %v", err)
		})
	}

	deps, err := e.deps.List(ctx, "", p.ID)
	require.NoError(t, err)
	assert.Empty(t, deps, "rejected edges are not stored")

	calc, err := e.cascade.Calculate(ctx, app.CascadeCalculateRequest{ScenarioID: sub.ID, PhaseTimelineID: c.ID, NewEndDate: "2024-01-16"})
	require.NoError(t, err, "descendant schedules stay acyclic")
	assert.NotEmpty(t, calc.Changes)

	t.Run("descendant without an endpoint is not affected", func(t *testing.T) {
		require.NoError(t, e.phases.Remove(ctx, sub.ID, b.ID, "alice"))
		_, err := e.deps.Create(ctx, app.DependencyInput{PredecessorPhaseTimelineID: b.ID, SuccessorPhaseTimelineID: c.ID}, "alice")
		assert.NoError(t, err)
	})
}

func TestDependencyService_UpdateWithDescendants(t *testing.T) {
	e := setupServices(t)
	ctx := context.Background()
	base := e.baseline(t)
	p := e.project(t, "", "Apollo")
	a := e.phase(t, "", p.ID, "A", "2024-01-01", "2024-01-05")
	b := e.phase(t, "", p.ID, "B", "2024-01-06", "2024-01-10")
	edge := e.dep(t, "", a.ID, b.ID, domain.FinishToStart)
	e.branch(t, base.ID, "Inherits")

	updated, err := e.deps.Update(ctx, edge.ID, app.DependencyInput{DependencyType: "SS", LagDays: 1}, "alice")
	require.NoError(t, err, "the edge does not collide with its inherited copy")
	assert.Equal(t, domain.StartToStart, updated.Type)
}

func TestDependencyService_Create_Validation(t *testing.T) {
	e := setupServices(t)
	ctx := context.Background()
	e.baseline(t)
	p := e.project(t, "", "Apollo")
	q := e.project(t, "", "Gemini")
	a := e.phase(t, "", p.ID, "A", "2024-01-01", "2024-01-05")
	b := e.phase(t, "", p.ID, "B", "2024-01-06", "2024-01-10")
	other := e.phase(t, "", q.ID, "A", "2024-01-01", "2024-01-05")
	e.dep(t, "", a.ID, b.ID, domain.FinishToStart)

	tests := []struct {
		name string
		in   app.DependencyInput
	}{
		{"self reference", app.DependencyInput{PredecessorPhaseTimelineID: a.ID, SuccessorPhaseTimelineID: a.ID}},
		{"unknown type", app.DependencyInput{PredecessorPhaseTimelineID: b.ID, SuccessorPhaseTimelineID: a.ID, DependencyType: "XX"}},
		{"missing endpoint", app.DependencyInput{PredecessorPhaseTimelineID: a.ID, SuccessorPhaseTimelineID: "ghost"}},
		{"cross project", app.DependencyInput{PredecessorPhaseTimelineID: a.ID, SuccessorPhaseTimelineID: other.ID}},
		{"wrong project", app.DependencyInput{ProjectID: q.ID, PredecessorPhaseTimelineID: a.ID, SuccessorPhaseTimelineID: b.ID}},
		{"duplicate edge", app.DependencyInput{PredecessorPhaseTimelineID: a.ID, SuccessorPhaseTimelineID: b.ID, DependencyType: "SS"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.deps.Create(ctx, tc.in, "alice")
			assert.True(t, domain.HasCode(err, domain.CodeValidation), "got %v", err)
		})
	}
}

func TestDependencyService_OwnedByScenario(t *testing.T) {
	e := setupServices(t)
	ctx := context.Background()
	base := e.baseline(t)
	p := e.project(t, "", "Apollo")
	a := e.phase(t, "", p.ID, "A", "2024-01-01", "2024-01-05")
	b := e.phase(t, "", p.ID, "B", "2024-01-06", "2024-01-10")
	c := e.phase(t, "", p.ID, "C", "2024-01-11", "2024-01-15")
	inherited := e.dep(t, "", a.ID, b.ID, domain.FinishToStart)
	assert.Equal(t, base.ID, inherited.ScenarioID)

	br := e.branch(t, base.ID, "B")
	own := e.dep(t, br.ID, b.ID, c.ID, domain.FinishToStart)

	visible, err := e.deps.List(ctx, br.ID, p.ID)
	require.NoError(t, err)
	assert.Len(t, visible, 2, "branch sees its own and inherited edges")

	baseDeps, err := e.deps.List(ctx, "", p.ID)
	require.NoError(t, err)
	require.Len(t, baseDeps, 1)
	assert.Equal(t, inherited.ID, baseDeps[0].ID)

	_, err = e.deps.Update(ctx, inherited.ID, app.DependencyInput{ScenarioID: br.ID, LagDays: 2}, "alice")
	assert.True(t, domain.HasCode(err, domain.CodeValidation), "descendants cannot edit inherited edges")
	err = e.deps.Delete(ctx, br.ID, inherited.ID, "alice")
	assert.True(t, domain.HasCode(err, domain.CodeValidation))

	updated, err := e.deps.Update(ctx, own.ID, app.DependencyInput{ScenarioID: br.ID, DependencyType: "SS", LagDays: 3}, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StartToStart, updated.Type)
	assert.Equal(t, 3, updated.LagDays)

	t.Run("edges disappear with their endpoints", func(t *testing.T) {
		require.NoError(t, e.phases.Remove(ctx, br.ID, c.ID, "alice"))
		visible, err := e.deps.List(ctx, br.ID, p.ID)
		require.NoError(t, err)
		require.Len(t, visible, 1)
		assert.Equal(t, inherited.ID, visible[0].ID)
	})

	require.NoError(t, e.deps.Delete(ctx, br.ID, own.ID, "alice"))
	err = e.deps.Delete(ctx, br.ID, own.ID, "alice")
	assert.True(t, domain.HasCode(err, domain.CodeNotFound))
}
