package cascade

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/alexanderramin/planloom/internal/depgraph"
	"github.com/alexanderramin/planloom/internal/domain"
	"github.com/alexanderramin/planloom/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func phase(id, start, end string) domain.PhaseTimeline {
	return domain.PhaseTimeline{ID: id, ProjectID: "p1", PhaseID: id, StartDate: testutil.Date(start), EndDate: testutil.Date(end)}
}

func edge(pred, succ string, typ domain.DependencyType, lag int) domain.Dependency {
	return domain.Dependency{ID: pred + "->" + succ, ProjectID: "p1", PredecessorID: pred, SuccessorID: succ, Type: typ, LagDays: lag}
}

func build(t *testing.T, phases []domain.PhaseTimeline, deps ...domain.Dependency) *depgraph.Graph {
	t.Helper()
	ids := make([]string, len(phases))
	for i, p := range phases {
		ids[i] = p.ID
	}
	g, err := depgraph.Build(ids, deps)
	require.NoError(t, err)
	return g
}

func byID(changes []Change) map[string]Change {
	m := make(map[string]Change)
	for _, c := range changes {
		m[c.PhaseTimelineID] = c
	}
	return m
}

func TestCalculate_DesignBuildFinishToStart(t *testing.T) {
	phases := []domain.PhaseTimeline{
		phase("design", "2024-01-01", "2024-01-14"),
		phase("build", "2024-01-15", "2024-02-15"),
	}
	g := build(t, phases, edge("design", "build", domain.FinishToStart, 0))

	changes, err := Calculate(g, phases, "design", testutil.Date("2024-01-01"), testutil.Date("2024-01-20"), Options{})
	require.NoError(t, err)
	require.Len(t, changes, 2)

	assert.Equal(t, "design", changes[0].PhaseTimelineID)
	assert.Equal(t, "2024-01-20", changes[0].ProposedEnd.Format(domain.DateLayout))

	build := changes[1]
	assert.Equal(t, "build", build.PhaseTimelineID)
	assert.Equal(t, "2024-01-21", build.ProposedStart.Format(domain.DateLayout))
	assert.Equal(t, "2024-02-21", build.ProposedEnd.Format(domain.DateLayout))
	assert.Equal(t, 31, domain.DaysBetween(build.ProposedStart, build.ProposedEnd))
	assert.Equal(t, 6, build.Shift())
}

func TestCalculate_AlreadyAppliedIsEmpty(t *testing.T) {
	phases := []domain.PhaseTimeline{
		phase("design", "2024-01-01", "2024-01-20"),
		phase("build", "2024-01-21", "2024-02-21"),
	}
	g := build(t, phases, edge("design", "build", domain.FinishToStart, 0))

	changes, err := Calculate(g, phases, "design", testutil.Date("2024-01-01"), testutil.Date("2024-01-20"), Options{})
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestCalculate_DependencyTypes(t *testing.T) {
	// Predecessor moves from 01-01..01-10 to 01-05..01-12; each successor
	// lasts 4 days.
	tests := []struct {
		typ       domain.DependencyType
		lag       int
		wantStart string
		wantEnd   string
	}{
		{domain.FinishToStart, 0, "2024-01-13", "2024-01-17"},
		{domain.FinishToStart, 2, "2024-01-15", "2024-01-19"},
		{domain.StartToStart, 0, "2024-01-05", "2024-01-09"},
		{domain.StartToStart, 3, "2024-01-08", "2024-01-12"},
		{domain.FinishToFinish, 0, "2024-01-08", "2024-01-12"},
		{domain.StartToFinish, 1, "2024-01-02", "2024-01-06"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_lag%d", tt.typ, tt.lag), func(t *testing.T) {
			phases := []domain.PhaseTimeline{
				phase("p", "2024-01-01", "2024-01-10"),
				phase("s", "2024-01-20", "2024-01-24"),
			}
			g := build(t, phases, edge("p", "s", tt.typ, tt.lag))

			changes, err := Calculate(g, phases, "p", testutil.Date("2024-01-05"), testutil.Date("2024-01-12"), Options{})
			require.NoError(t, err)
			s, ok := byID(changes)["s"]
			require.True(t, ok)
			assert.Equal(t, tt.wantStart, s.ProposedStart.Format(domain.DateLayout))
			assert.Equal(t, tt.wantEnd, s.ProposedEnd.Format(domain.DateLayout))
		})
	}
}

func TestCalculate_NegativeLagOverlapAllowed(t *testing.T) {
	phases := []domain.PhaseTimeline{
		phase("p", "2024-01-01", "2024-01-10"),
		phase("s", "2024-01-11", "2024-01-20"),
	}
	g := build(t, phases, edge("p", "s", domain.FinishToStart, -8))

	changes, err := Calculate(g, phases, "p", testutil.Date("2024-01-01"), testutil.Date("2024-01-15"), Options{})
	require.NoError(t, err)
	s := byID(changes)["s"]
	assert.Equal(t, "2024-01-08", s.ProposedStart.Format(domain.DateLayout), "starts before the predecessor finishes")
	assert.True(t, s.ProposedStart.Before(testutil.Date("2024-01-15")))
}

func TestCalculate_ZeroWidthPhasesPropagate(t *testing.T) {
	phases := []domain.PhaseTimeline{
		phase("gate", "2024-03-01", "2024-03-01"),
		phase("launch", "2024-03-02", "2024-03-02"),
	}
	g := build(t, phases, edge("gate", "launch", domain.FinishToStart, 0))

	changes, err := Calculate(g, phases, "gate", testutil.Date("2024-03-05"), testutil.Date("2024-03-05"), Options{})
	require.NoError(t, err)
	l := byID(changes)["launch"]
	assert.Equal(t, "2024-03-06", l.ProposedStart.Format(domain.DateLayout))
	assert.Equal(t, "2024-03-06", l.ProposedEnd.Format(domain.DateLayout))
}

func TestCalculate_MultiplePredecessorsLatestWins(t *testing.T) {
	phases := []domain.PhaseTimeline{
		phase("a", "2024-01-01", "2024-01-10"),
		phase("b", "2024-01-01", "2024-01-20"),
		phase("c", "2024-01-21", "2024-01-25"),
	}
	g := build(t, phases,
		edge("a", "c", domain.FinishToStart, 0),
		edge("b", "c", domain.StartToStart, 5),
	)

	// a moves to end 02-01 so its FS candidate (02-02) beats b's SS candidate (01-06).
	changes, err := Calculate(g, phases, "a", testutil.Date("2024-01-01"), testutil.Date("2024-02-01"), Options{})
	require.NoError(t, err)
	c := byID(changes)["c"]
	assert.Equal(t, "2024-02-02", c.ProposedStart.Format(domain.DateLayout))

	// a shrinks: b's unchanged candidate still constrains c, so c keeps the latest one.
	changes, err = Calculate(g, phases, "a", testutil.Date("2024-01-01"), testutil.Date("2024-01-02"), Options{})
	require.NoError(t, err)
	c = byID(changes)["c"]
	assert.Equal(t, "2024-01-06", c.ProposedStart.Format(domain.DateLayout))
	assert.False(t, c.ProposedStart.Before(testutil.Date("2024-01-03")), "never earlier than the FS candidate")
}

func TestCalculate_PushOnlyNeverPullsEarlier(t *testing.T) {
	phases := []domain.PhaseTimeline{
		phase("p", "2024-01-01", "2024-01-10"),
		phase("s", "2024-01-11", "2024-01-20"),
	}
	g := build(t, phases, edge("p", "s", domain.FinishToStart, 0))

	changes, err := Calculate(g, phases, "p", testutil.Date("2024-01-01"), testutil.Date("2024-01-05"), Options{PushOnly: true})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "p", changes[0].PhaseTimelineID)

	changes, err = Calculate(g, phases, "p", testutil.Date("2024-01-01"), testutil.Date("2024-01-05"), Options{})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-06", byID(changes)["s"].ProposedStart.Format(domain.DateLayout))
}

func TestCalculate_Validation(t *testing.T) {
	phases := []domain.PhaseTimeline{phase("p", "2024-01-01", "2024-01-10")}
	g := build(t, phases)

	_, err := Calculate(g, phases, "p", testutil.Date("2024-02-01"), testutil.Date("2024-01-01"), Options{})
	assert.True(t, domain.HasCode(err, domain.CodeValidation))

	_, err = Calculate(g, phases, "missing", testutil.Date("2024-01-01"), testutil.Date("2024-01-02"), Options{})
	assert.True(t, domain.HasCode(err, domain.CodeNotFound))
}

func TestCalculate_DoesNotTouchUnrelatedPhases(t *testing.T) {
	phases := []domain.PhaseTimeline{
		phase("a", "2024-01-01", "2024-01-10"),
		phase("b", "2024-01-11", "2024-01-20"),
		phase("x", "2024-01-01", "2024-01-05"),
		phase("y", "2024-01-06", "2024-01-09"),
	}
	g := build(t, phases,
		edge("a", "b", domain.FinishToStart, 0),
		edge("x", "y", domain.FinishToStart, 0),
	)

	changes, err := Calculate(g, phases, "a", testutil.Date("2024-01-03"), testutil.Date("2024-01-12"), Options{})
	require.NoError(t, err)
	got := byID(changes)
	assert.Contains(t, got, "a")
	assert.Contains(t, got, "b")
	assert.NotContains(t, got, "x")
	assert.NotContains(t, got, "y")
	assert.Equal(t, "2024-01-10", phases[0].EndDate.Format(domain.DateLayout), "input is not mutated")
}

// Random layered DAGs: every non-seed phase keeps its duration and every FS
// edge with non-negative lag is satisfied afterwards.
func TestCalculate_PropertiesOnRandomGraphs(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	origin := testutil.Date("2024-01-01")

	for iter := 0; iter < 50; iter++ {
		n := 3 + rng.Intn(8)
		phases := make([]domain.PhaseTimeline, n)
		for i := range phases {
			start := domain.AddDays(origin, rng.Intn(60))
			phases[i] = domain.PhaseTimeline{
				ID:        fmt.Sprintf("p%02d", i),
				StartDate: start,
				EndDate:   domain.AddDays(start, rng.Intn(15)),
			}
		}
		var deps []domain.Dependency
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if rng.Intn(3) == 0 {
					deps = append(deps, edge(phases[i].ID, phases[j].ID, domain.FinishToStart, rng.Intn(4)))
				}
			}
		}
		g := build(t, phases, deps...)

		seed := phases[0]
		newEnd := domain.AddDays(seed.EndDate, 1+rng.Intn(20))
		changes, err := Calculate(g, phases, seed.ID, seed.StartDate, newEnd, Options{PushOnly: true})
		require.NoError(t, err)

		final := make(map[string]span)
		for _, p := range phases {
			final[p.ID] = span{p.StartDate, p.EndDate}
		}
		for _, c := range changes {
			final[c.PhaseTimelineID] = span{c.ProposedStart, c.ProposedEnd}
		}

		for _, p := range phases[1:] {
			assert.Equal(t, p.DurationDays(), domain.DaysBetween(final[p.ID].start, final[p.ID].end), "duration of %s", p.ID)
		}
		for _, d := range deps {
			if !g.Has(d.PredecessorID) {
				continue
			}
			reach := append(g.Reachable(seed.ID), seed.ID)
			if !contains(reach, d.SuccessorID) {
				continue
			}
			pred, succ := final[d.PredecessorID], final[d.SuccessorID]
			assert.False(t, succ.start.Before(domain.AddDays(pred.end, d.LagDays)),
				"edge %s violated: %s before %s+%d", d.ID, succ.start, pred.end, d.LagDays)
		}

		// Re-running against the result is a no-op.
		next := make([]domain.PhaseTimeline, len(phases))
		for i, p := range phases {
			p.StartDate, p.EndDate = final[p.ID].start, final[p.ID].end
			next[i] = p
		}
		again, err := Calculate(g, next, seed.ID, seed.StartDate, newEnd, Options{PushOnly: true})
		require.NoError(t, err)
		assert.Empty(t, again)
	}
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
