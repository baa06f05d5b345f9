package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/planloom/internal/app"
	"github.com/alexanderramin/planloom/internal/db"
	"github.com/alexanderramin/planloom/internal/domain"
	"github.com/alexanderramin/planloom/internal/repository"
	"github.com/alexanderramin/planloom/internal/testutil"
)

// env wires every service against one in-memory database.
type env struct {
	db    *sql.DB
	repos *repository.Repos
	uow   db.UnitOfWork
	sink  *testutil.RecordingSink

	scenarios   ScenarioService
	people      PersonService
	projects    ProjectService
	phases      PhaseTimelineService
	assignments AssignmentService
	deps        DependencyService
	cascade     CascadeService
	merge       MergeService
}

func setupServices(t *testing.T, opts ...Option) *env {
	t.Helper()
	database := testutil.NewTestDB(t)
	repos := repository.NewRepos(database)
	uow := testutil.NewTestUoW(database)
	sink := &testutil.RecordingSink{}
	opts = append([]Option{WithAudit(sink)}, opts...)
	return &env{
		db:          database,
		repos:       repos,
		uow:         uow,
		sink:        sink,
		scenarios:   NewScenarioService(repos, uow, opts...),
		people:      NewPersonService(repos, uow, opts...),
		projects:    NewProjectService(repos, uow, opts...),
		phases:      NewPhaseTimelineService(repos, uow, opts...),
		assignments: NewAssignmentService(repos, uow, opts...),
		deps:        NewDependencyService(repos, uow, opts...),
		cascade:     NewCascadeService(repos, uow, opts...),
		merge:       NewMergeService(repos, uow, opts...),
	}
}

func (e *env) baseline(t *testing.T) *domain.Scenario {
	t.Helper()
	sc, err := e.scenarios.CreateBaseline(context.Background(), "Plan of record", "alice")
	require.NoError(t, err)
	return sc
}

func (e *env) branch(t *testing.T, parentID, name string) *domain.Scenario {
	t.Helper()
	sc, err := e.scenarios.CreateBranch(context.Background(), parentID, name, domain.ScenarioBranch, "alice")
	require.NoError(t, err)
	return sc
}

func (e *env) project(t *testing.T, scenarioID, name string) domain.Project {
	t.Helper()
	p := testutil.NewTestProject(name)
	require.NoError(t, e.projects.Create(context.Background(), scenarioID, &p, "alice"))
	return p
}

func (e *env) phase(t *testing.T, scenarioID, projectID, name, start, end string) *domain.PhaseTimeline {
	t.Helper()
	pt, err := e.phases.Create(context.Background(), scenarioID, app.PhaseTimelineInput{
		ProjectID: projectID,
		Phase:     name,
		StartDate: start,
		EndDate:   end,
	}, "alice")
	require.NoError(t, err)
	return pt
}

func (e *env) person(t *testing.T, name string) *domain.Person {
	t.Helper()
	p := testutil.NewTestPerson(name)
	require.NoError(t, e.people.Create(context.Background(), p))
	return p
}

func (e *env) assign(t *testing.T, scenarioID, projectID, personID string, allocation int) domain.Assignment {
	t.Helper()
	a := testutil.NewTestAssignment(projectID, personID, allocation)
	require.NoError(t, e.assignments.Create(context.Background(), scenarioID, &a, "alice"))
	return a
}

func (e *env) setAllocation(t *testing.T, scenarioID, id string, allocation int) {
	t.Helper()
	ctx := context.Background()
	a, err := e.assignments.Get(ctx, scenarioID, id)
	require.NoError(t, err)
	a.Allocation = allocation
	require.NoError(t, e.assignments.Update(ctx, scenarioID, a, "alice"))
}

func (e *env) allocation(t *testing.T, scenarioID, id string) int {
	t.Helper()
	a, err := e.assignments.Get(context.Background(), scenarioID, id)
	require.NoError(t, err)
	return a.Allocation
}

func (e *env) dep(t *testing.T, scenarioID, pred, succ string, typ domain.DependencyType) *domain.Dependency {
	t.Helper()
	d, err := e.deps.Create(context.Background(), app.DependencyInput{
		ScenarioID:                 scenarioID,
		PredecessorPhaseTimelineID: pred,
		SuccessorPhaseTimelineID:   succ,
		DependencyType:             string(typ),
	}, "alice")
	require.NoError(t, err)
	return d
}

func (e *env) dates(t *testing.T, scenarioID, id string) (string, string) {
	t.Helper()
	pt, err := e.phases.Get(context.Background(), scenarioID, id)
	require.NoError(t, err)
	return domain.FormatDate(pt.StartDate), domain.FormatDate(pt.EndDate)
}
