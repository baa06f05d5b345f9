package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/planloom/internal/cli/formatter"
	"github.com/alexanderramin/planloom/internal/domain"
	"github.com/alexanderramin/planloom/internal/repository"
	"github.com/alexanderramin/planloom/internal/testutil"
)

func init() {
	formatter.SetColor(false)
}

// testApp wires a full App backed by an in-memory DB for CLI integration tests.
func testApp(t *testing.T) *App {
	t.Helper()
	database := testutil.NewTestDB(t)
	return NewApp(repository.NewRepos(database), testutil.NewTestUoW(database), "tester")
}

// executeCmd runs a fresh root command and captures its output.
func executeCmd(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(app)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func mustRun(t *testing.T, app *App, args ...string) string {
	t.Helper()
	out, err := executeCmd(t, app, args...)
	require.NoError(t, err, "planloom %v\n%s", args, out)
	return out
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

// seedPlan creates a baseline with Apollo (Design feeding Build) and Ada.
func seedPlan(t *testing.T, app *App) {
	t.Helper()
	mustRun(t, app, "scenario", "baseline")
	mustRun(t, app, "person", "add", "--name", "Ada", "--role", "engineer")
	mustRun(t, app, "project", "add", "--name", "Apollo")
	mustRun(t, app, "phase", "add", "--project", "Apollo", "--phase", "Design", "--start", "2024-01-01", "--end", "2024-01-14")
	mustRun(t, app, "phase", "add", "--project", "Apollo", "--phase", "Build", "--start", "2024-01-15", "--end", "2024-02-15")
	mustRun(t, app, "dep", "add", "--project", "Apollo", "--from", "Design", "--to", "Build")
}

func TestScenarioCommands(t *testing.T) {
	app := testApp(t)
	out := mustRun(t, app, "scenario", "baseline", "--name", "Plan")
	assert.Contains(t, out, "Created baseline")

	br := decode[domain.Scenario](t, mustRun(t, app, "--json", "scenario", "branch", "--name", "Hire"))
	assert.Equal(t, domain.ScenarioBranch, br.Type)
	mustRun(t, app, "scenario", "branch", "--parent", "Hire", "--name", "Try", "--type", "sandbox")

	out = mustRun(t, app, "scenario", "list")
	assert.Contains(t, out, "Plan")
	assert.Contains(t, out, "└─ Hire")
	assert.Contains(t, out, "   └─ Try")
	assert.Contains(t, out, "sandbox")

	out = mustRun(t, app, "scenario", "show", "Try")
	assert.Contains(t, out, "Try ← Hire ← Plan")

	_, err := executeCmd(t, app, "scenario", "archive", "Hire")
	assert.True(t, domain.HasCode(err, domain.CodeValidation), "active child blocks archive")
	mustRun(t, app, "scenario", "archive", "Try")
	out = mustRun(t, app, "scenario", "list")
	assert.NotContains(t, out, "Try")
	out = mustRun(t, app, "scenario", "list", "--all")
	assert.Contains(t, out, "archived")
}

func TestCascadeCommands_PreviewThenApply(t *testing.T) {
	app := testApp(t)
	seedPlan(t, app)

	out := mustRun(t, app, "cascade", "preview", "--project", "Apollo", "--phase", "Design", "--end", "2024-01-20")
	assert.Contains(t, out, "Build")
	assert.Contains(t, out, "2024-01-21 → 2024-02-21")
	assert.Contains(t, out, "+6d")

	phases := decode[[]domain.PhaseTimeline](t, mustRun(t, app, "--json", "phase", "list", "--project", "Apollo"))
	for _, pt := range phases {
		assert.NotEqual(t, "2024-02-21", domain.FormatDate(pt.EndDate), "preview never writes")
	}

	out = mustRun(t, app, "cascade", "apply", "--project", "Apollo", "--phase", "Design", "--end", "2024-01-20")
	assert.Contains(t, out, "Applied 2 phase change(s)")

	out = mustRun(t, app, "phase", "list", "--project", "Apollo")
	assert.Contains(t, out, "2024-01-21 → 2024-02-21")
}

func TestDependencyCommands(t *testing.T) {
	app := testApp(t)
	seedPlan(t, app)

	_, err := executeCmd(t, app, "dep", "add", "--project", "Apollo", "--from", "Build", "--to", "Design")
	assert.True(t, domain.HasCode(err, domain.CodeCyclicDependency))

	_, err = executeCmd(t, app, "dep", "add", "--project", "Apollo", "--from", "Build", "--to", "Design", "--type", "XY")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be one of FF|FS|SF|SS")

	deps := decode[[]domain.Dependency](t, mustRun(t, app, "--json", "dep", "list"))
	require.Len(t, deps, 1)
	d := decode[domain.Dependency](t, mustRun(t, app, "--json", "dep", "update", deps[0].ID[:8], "--lag", "2"))
	assert.Equal(t, 2, d.LagDays)
	assert.Equal(t, domain.FinishToStart, d.Type, "type kept when not given")

	out := mustRun(t, app, "dep", "list", "--project", "Apollo")
	assert.Contains(t, out, "Design → Build")
	assert.Contains(t, out, "+2d")

	mustRun(t, app, "dep", "remove", d.ID)
	assert.Contains(t, mustRun(t, app, "dep", "list"), "No dependencies found")
}

func TestMergeCommands_ConflictRoundTrip(t *testing.T) {
	app := testApp(t)
	seedPlan(t, app)
	a := decode[domain.Assignment](t, mustRun(t, app, "--json", "assign", "add", "--project", "Apollo", "--person", "Ada", "--allocation", "50"))
	mustRun(t, app, "scenario", "branch", "--name", "Hire")
	mustRun(t, app, "--scenario", "Hire", "assign", "update", a.ID, "--allocation", "70")
	mustRun(t, app, "assign", "update", a.ID, "--allocation", "60")

	out := mustRun(t, app, "merge", "preview", "--from", "Hire")
	assert.Contains(t, out, "Preview")
	assert.Contains(t, out, "assignment")

	out = mustRun(t, app, "merge", "run", "--from", "Hire")
	assert.Contains(t, out, "Blocked")

	conflicts := decode[[]domain.MergeConflict](t, mustRun(t, app, "--json", "merge", "conflicts", "--from", "Hire"))
	require.Len(t, conflicts, 1)
	assert.Equal(t, a.ID, conflicts[0].EntityID)

	out = mustRun(t, app, "merge", "resolve", conflicts[0].ID, "--use", "source")
	assert.Contains(t, out, "use_source")

	out = mustRun(t, app, "merge", "run", "--from", "Hire")
	assert.Contains(t, out, "Merged")
	assert.Contains(t, mustRun(t, app, "assign", "list"), "70%")

	_, err := executeCmd(t, app, "--scenario", "Hire", "assign", "update", a.ID, "--allocation", "10")
	assert.True(t, domain.HasCode(err, domain.CodeValidation), "merged scenario is read-only")
}

func TestMergeCommands_PerEntityResolution(t *testing.T) {
	app := testApp(t)
	seedPlan(t, app)
	a := decode[domain.Assignment](t, mustRun(t, app, "--json", "assign", "add", "--project", "Apollo", "--person", "Ada", "--allocation", "50"))
	mustRun(t, app, "scenario", "branch", "--name", "Hire")
	mustRun(t, app, "--scenario", "Hire", "assign", "update", a.ID, "--allocation", "70")
	mustRun(t, app, "assign", "update", a.ID, "--allocation", "60")

	out := mustRun(t, app, "merge", "run", "--from", "Hire", "--use", a.ID+"=base")
	assert.Contains(t, out, "Merged")
	assert.Contains(t, mustRun(t, app, "assign", "list"), "50%")
}

func TestCommandErrors(t *testing.T) {
	app := testApp(t)
	seedPlan(t, app)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown scenario", []string{"--scenario", "nope", "project", "list"}, `scenario not found: "nope"`},
		{"bad date", []string{"phase", "add", "--project", "Apollo", "--phase", "QA", "--start", "tomorrow", "--end", "2024-03-01"}, "expected YYYY-MM-DD"},
		{"unknown phase", []string{"cascade", "preview", "--phase", "Launch", "--end", "2024-03-01"}, `phase not found: "Launch"`},
		{"baseline merge", []string{"merge", "run"}, "--from"},
		{"cascade flags", []string{"cascade", "preview"}, "--phase and --end are required"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := executeCmd(t, app, tc.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
