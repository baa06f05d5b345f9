package overlay

import (
	"testing"

	"github.com/alexanderramin/planloom/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assignment(id string, alloc int) domain.Assignment {
	return domain.Assignment{ID: id, ProjectID: "p1", PersonID: "u1", Allocation: alloc}
}

func modified(scenario string, a domain.Assignment) domain.Delta[domain.Assignment] {
	id := a.ID
	return domain.Delta[domain.Assignment]{ScenarioID: scenario, EntityID: id, ChangeType: domain.ChangeModified, BaseEntityID: &id, Payload: a}
}

func added(scenario string, a domain.Assignment) domain.Delta[domain.Assignment] {
	return domain.Delta[domain.Assignment]{ScenarioID: scenario, EntityID: a.ID, ChangeType: domain.ChangeAdded, Payload: a}
}

func removed(scenario, id string) domain.Delta[domain.Assignment] {
	return domain.Delta[domain.Assignment]{ScenarioID: scenario, EntityID: id, ChangeType: domain.ChangeRemoved, BaseEntityID: &id}
}

func allocations(items []domain.Assignment) map[string]int {
	m := make(map[string]int)
	for _, a := range items {
		m[a.ID] = a.Allocation
	}
	return m
}

func TestResolve_NoLayersReturnsBase(t *testing.T) {
	base := []domain.Assignment{assignment("x", 50), assignment("y", 20)}
	out := Resolve(base)
	assert.Equal(t, base, out)
}

func TestResolve_AppliesEachChangeType(t *testing.T) {
	base := []domain.Assignment{assignment("x", 50), assignment("y", 20)}
	layer := []domain.Delta[domain.Assignment]{
		modified("s1", assignment("x", 70)),
		removed("s1", "y"),
		added("s1", assignment("z", 10)),
	}

	out := Resolve(base, layer)
	require.Len(t, out, 2)
	assert.Equal(t, "x", out[0].ID, "base order is kept")
	assert.Equal(t, "z", out[1].ID, "added rows are appended")
	assert.Equal(t, map[string]int{"x": 70, "z": 10}, allocations(out))
}

func TestResolve_SpecificLayerWins(t *testing.T) {
	base := []domain.Assignment{assignment("x", 50)}
	parent := []domain.Delta[domain.Assignment]{modified("s1", assignment("x", 60))}
	child := []domain.Delta[domain.Assignment]{modified("s2", assignment("x", 80))}

	assert.Equal(t, 80, Resolve(base, parent, child)[0].Allocation)
	assert.Equal(t, 60, Resolve(base, child, parent)[0].Allocation)
}

func TestResolve_ChildCanRemoveParentAddition(t *testing.T) {
	parent := []domain.Delta[domain.Assignment]{added("s1", assignment("z", 10))}
	child := []domain.Delta[domain.Assignment]{removed("s2", "z")}

	assert.Empty(t, Resolve(nil, parent, child))
}

func TestResolve_OrphanModifiedIgnored(t *testing.T) {
	parent := []domain.Delta[domain.Assignment]{removed("s1", "x")}
	child := []domain.Delta[domain.Assignment]{modified("s2", assignment("x", 90))}

	assert.Empty(t, Resolve([]domain.Assignment{assignment("x", 50)}, parent, child))
}

func TestResolveDiverged_KeepsOwnEditOfRemovedRow(t *testing.T) {
	parent := []domain.Delta[domain.Assignment]{removed("s1", "x")}
	child := []domain.Delta[domain.Assignment]{modified("s2", assignment("x", 90))}
	base := []domain.Assignment{assignment("x", 50), assignment("y", 20)}

	out := ResolveDiverged(base, 1, parent, child)
	assert.Equal(t, map[string]int{"x": 90, "y": 20}, allocations(out))
	assert.Len(t, out, 2)

	assert.Equal(t, map[string]int{"y": 20}, allocations(ResolveDiverged(base, 2, parent, child)), "shared layers drop orphans")

	branchRemoved := []domain.Delta[domain.Assignment]{removed("s3", "x")}
	assert.Equal(t, map[string]int{"y": 20}, allocations(ResolveDiverged(base, 1, nil, branchRemoved, child)), "removed on the diverged side")

	gone := []domain.Assignment{assignment("y", 20)}
	assert.Equal(t, map[string]int{"x": 90, "y": 20}, allocations(ResolveDiverged(gone, 1, nil, child)), "base row deleted outright")
}

func TestResolve_DoesNotMutateInputs(t *testing.T) {
	base := []domain.Assignment{assignment("x", 50)}
	layer := []domain.Delta[domain.Assignment]{modified("s1", assignment("x", 70))}

	_ = Resolve(base, layer)
	assert.Equal(t, 50, base[0].Allocation)
	assert.Equal(t, 70, layer[0].Payload.Allocation)
}

func TestVisibleDependencies_FiltersAndOverrides(t *testing.T) {
	phases := []domain.PhaseTimeline{
		{ID: "a", ProjectID: "p1"}, {ID: "b", ProjectID: "p1"}, {ID: "c", ProjectID: "p2"},
	}
	deps := []domain.Dependency{
		{ID: "child", ScenarioID: "s1", ProjectID: "p1", PredecessorID: "a", SuccessorID: "b", Type: domain.StartToStart},
		{ID: "root", ScenarioID: "base", ProjectID: "p1", PredecessorID: "a", SuccessorID: "b", Type: domain.FinishToStart},
		{ID: "dangling", ScenarioID: "base", ProjectID: "p1", PredecessorID: "a", SuccessorID: "gone"},
		{ID: "cross", ScenarioID: "base", ProjectID: "p1", PredecessorID: "b", SuccessorID: "c"},
		{ID: "foreign", ScenarioID: "other", ProjectID: "p1", PredecessorID: "b", SuccessorID: "a"},
	}

	out := VisibleDependencies([]string{"base", "s1"}, deps, "p1", phases)
	require.Len(t, out, 1)
	assert.Equal(t, "child", out[0].ID)
}
