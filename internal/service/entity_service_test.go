package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/planloom/internal/app"
	"github.com/alexanderramin/planloom/internal/domain"
	"github.com/alexanderramin/planloom/internal/testutil"
)

func TestProjectService_BaselineCRUD(t *testing.T) {
	e := setupServices(t)
	ctx := context.Background()
	e.baseline(t)

	p := testutil.NewTestProject("  Apollo  ")
	p.ID = ""
	require.NoError(t, e.projects.Create(ctx, "", &p, "alice"))
	assert.NotEmpty(t, p.ID, "UUID should be generated")
	assert.Equal(t, "Apollo", p.Name)

	p.Description = "moon"
	require.NoError(t, e.projects.Update(ctx, "", &p, "alice"))
	got, err := e.projects.Get(ctx, "", p.ID)
	require.NoError(t, err)
	assert.Equal(t, "moon", got.Description)

	dup := p
	err = e.projects.Create(ctx, "", &dup, "alice")
	assert.True(t, domain.HasCode(err, domain.CodeValidation))

	require.NoError(t, e.projects.Remove(ctx, "", p.ID, "alice"))
	_, err = e.projects.Get(ctx, "", p.ID)
	assert.True(t, domain.HasCode(err, domain.CodeNotFound))

	err = e.projects.Remove(ctx, "", p.ID, "alice")
	assert.True(t, domain.HasCode(err, domain.CodeNotFound))
}

func TestProjectService_Create_Validation(t *testing.T) {
	e := setupServices(t)
	e.baseline(t)

	tests := []struct {
		name string
		p    domain.Project
	}{
		{"empty name", domain.Project{Name: " "}},
		{"bad status", domain.Project{Name: "x", Status: "sleeping"}},
		{"target before start", domain.Project{Name: "x", StartDate: testutil.DatePtr("2024-02-01"), TargetDate: testutil.DatePtr("2024-01-01")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.p
			err := e.projects.Create(context.Background(), "", &p, "alice")
			assert.True(t, domain.HasCode(err, domain.CodeValidation), "got %v", err)
		})
	}
}

func TestCopyOnWrite_BranchEditsStayIsolated(t *testing.T) {
	e := setupServices(t)
	ctx := context.Background()
	base := e.baseline(t)
	p := e.project(t, "", "Apollo")
	u := e.person(t, "Ada")
	a := e.assign(t, "", p.ID, u.ID, 50)

	br := e.branch(t, base.ID, "What if")
	e.setAllocation(t, br.ID, a.ID, 70)

	assert.Equal(t, 70, e.allocation(t, br.ID, a.ID))
	assert.Equal(t, 50, e.allocation(t, "", a.ID), "baseline never sees branch edits")

	deltas, err := e.repos.Assignments.ListDeltas(ctx, br.ID)
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, domain.ChangeModified, deltas[0].ChangeType)
	require.NotNil(t, deltas[0].BaseEntityID)
	assert.Equal(t, a.ID, *deltas[0].BaseEntityID)

	e.setAllocation(t, br.ID, a.ID, 75)
	deltas, err = e.repos.Assignments.ListDeltas(ctx, br.ID)
	require.NoError(t, err)
	require.Len(t, deltas, 1, "a second edit updates the delta in place")
	assert.Equal(t, 75, deltas[0].Payload.Allocation)

	t.Run("branch additions", func(t *testing.T) {
		q := e.project(t, br.ID, "Gemini")
		_, err := e.projects.Get(ctx, "", q.ID)
		assert.True(t, domain.HasCode(err, domain.CodeNotFound))
		list, err := e.projects.List(ctx, br.ID)
		require.NoError(t, err)
		assert.Len(t, list, 2)

		require.NoError(t, e.projects.Remove(ctx, br.ID, q.ID, "alice"))
		pd, err := e.repos.Projects.ListDeltas(ctx, br.ID)
		require.NoError(t, err)
		assert.Empty(t, pd, "removing an added entity drops its delta")
	})

	t.Run("branch removal of inherited entity", func(t *testing.T) {
		require.NoError(t, e.assignments.Remove(ctx, br.ID, a.ID, "alice"))
		_, err := e.assignments.Get(ctx, br.ID, a.ID)
		assert.True(t, domain.HasCode(err, domain.CodeNotFound))
		assert.Equal(t, 50, e.allocation(t, "", a.ID))

		d, err := e.repos.Assignments.GetDelta(ctx, br.ID, a.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ChangeRemoved, d.ChangeType)
	})

	t.Run("grandchild inherits through the chain", func(t *testing.T) {
		gc := e.branch(t, br.ID, "Deeper")
		_, err := e.assignments.Get(ctx, gc.ID, a.ID)
		assert.True(t, domain.HasCode(err, domain.CodeNotFound), "parent's removal is inherited")
		list, err := e.projects.List(ctx, gc.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, p.ID, list[0].ID)
	})
}

func TestProjectService_Remove_CascadesToOwnedEntities(t *testing.T) {
	e := setupServices(t)
	ctx := context.Background()
	base := e.baseline(t)
	p := e.project(t, "", "Apollo")
	u := e.person(t, "Ada")
	design := e.phase(t, "", p.ID, "Design", "2024-01-01", "2024-01-14")
	a := e.assign(t, "", p.ID, u.ID, 50)

	br := e.branch(t, base.ID, "Cancel")
	require.NoError(t, e.projects.Remove(ctx, br.ID, p.ID, "alice"))

	phases, err := e.phases.ListByProject(ctx, br.ID, p.ID)
	require.NoError(t, err)
	assert.Empty(t, phases)
	_, err = e.assignments.Get(ctx, br.ID, a.ID)
	assert.True(t, domain.HasCode(err, domain.CodeNotFound))

	phases, err = e.phases.ListByProject(ctx, "", p.ID)
	require.NoError(t, err)
	require.Len(t, phases, 1)
	assert.Equal(t, design.ID, phases[0].ID)
}

func TestPhaseTimelineService(t *testing.T) {
	e := setupServices(t)
	ctx := context.Background()
	e.baseline(t)
	p := e.project(t, "", "Apollo")

	design := e.phase(t, "", p.ID, "Design", "2024-01-01", "2024-01-14")
	e.phase(t, "", p.ID, "Build", "2024-01-15", "2024-02-15")

	catalog, err := e.phases.Catalog(ctx)
	require.NoError(t, err)
	require.Len(t, catalog, 2)
	assert.Equal(t, "Design", catalog[0].Name)

	t.Run("one timeline per phase and project", func(t *testing.T) {
		_, err := e.phases.Create(ctx, "", app.PhaseTimelineInput{ProjectID: p.ID, Phase: "Design", StartDate: "2024-03-01", EndDate: "2024-03-02"}, "alice")
		assert.True(t, domain.HasCode(err, domain.CodeValidation))
	})

	t.Run("unknown project", func(t *testing.T) {
		_, err := e.phases.Create(ctx, "", app.PhaseTimelineInput{ProjectID: "ghost", Phase: "QA", StartDate: "2024-03-01", EndDate: "2024-03-02"}, "alice")
		assert.True(t, domain.HasCode(err, domain.CodeNotFound))
	})

	t.Run("start after end", func(t *testing.T) {
		_, err := e.phases.Create(ctx, "", app.PhaseTimelineInput{ProjectID: p.ID, Phase: "QA", StartDate: "2024-03-05", EndDate: "2024-03-01"}, "alice")
		assert.True(t, domain.HasCode(err, domain.CodeValidation))
	})

	t.Run("update dates", func(t *testing.T) {
		pt, err := e.phases.Update(ctx, "", design.ID, app.PhaseTimelineInput{EndDate: "2024-01-16"}, "alice")
		require.NoError(t, err)
		assert.Equal(t, "2024-01-16", domain.FormatDate(pt.EndDate))
		start, end := e.dates(t, "", design.ID)
		assert.Equal(t, "2024-01-01", start)
		assert.Equal(t, "2024-01-16", end)
	})
}

func TestAssignmentService_Validation(t *testing.T) {
	e := setupServices(t)
	ctx := context.Background()
	e.baseline(t)
	p := e.project(t, "", "Apollo")
	u := e.person(t, "Ada")

	over := testutil.NewTestAssignment(p.ID, u.ID, 120)
	err := e.assignments.Create(ctx, "", &over, "alice")
	assert.True(t, domain.HasCode(err, domain.CodeValidation))

	ghost := testutil.NewTestAssignment(p.ID, "nobody", 20)
	err = e.assignments.Create(ctx, "", &ghost, "alice")
	assert.True(t, domain.HasCode(err, domain.CodeNotFound))

	a := e.assign(t, "", p.ID, u.ID, 20)
	list, err := e.assignments.List(ctx, "", p.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)

	none, err := e.assignments.List(ctx, "", "other")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPersonService(t *testing.T) {
	e := setupServices(t)
	ctx := context.Background()

	err := e.people.Create(ctx, &domain.Person{Name: ""})
	assert.True(t, domain.HasCode(err, domain.CodeValidation))

	p := &domain.Person{Name: "Grace", Role: "lead"}
	require.NoError(t, e.people.Create(ctx, p))
	got, err := e.people.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grace", got.Name)

	_, err = e.people.GetByID(ctx, "missing")
	assert.True(t, domain.HasCode(err, domain.CodeNotFound))
}

func TestWrites_EmitAuditEntries(t *testing.T) {
	e := setupServices(t)
	base := e.baseline(t)
	p := e.project(t, "", "Apollo")
	u := e.person(t, "Ada")
	a := e.assign(t, "", p.ID, u.ID, 50)
	br := e.branch(t, base.ID, "B")
	e.setAllocation(t, br.ID, a.ID, 70)

	entries := e.sink.ByEntityType(domain.EntityAssignment)
	require.Len(t, entries, 2)
	update := entries[1]
	assert.Equal(t, "update", update.Action)
	assert.Equal(t, br.ID, update.ScenarioID)
	assert.Equal(t, "alice", update.Actor)
	assert.Contains(t, string(update.OldValue), `"allocation":50`)
	assert.Contains(t, string(update.NewValue), `"allocation":70`)
}
