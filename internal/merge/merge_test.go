package merge

import (
	"encoding/json"
	"testing"

	"github.com/alexanderramin/planloom/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func asg(id string, alloc int) domain.Assignment {
	return domain.Assignment{ID: id, ProjectID: "p1", PersonID: "u1", Role: "dev", Allocation: alloc}
}

func classes(outcomes []Outcome[domain.Assignment]) map[string]Class {
	m := make(map[string]Class)
	for _, o := range outcomes {
		m[o.EntityID] = o.Class
	}
	return m
}

func TestDiff_Classification(t *testing.T) {
	base := []domain.Assignment{asg("same", 50), asg("src", 50), asg("tgt", 50), asg("conv", 50), asg("both", 50), asg("gone", 50)}
	source := []domain.Assignment{asg("same", 50), asg("src", 70), asg("tgt", 50), asg("conv", 80), asg("both", 70), asg("new", 10)}
	target := []domain.Assignment{asg("same", 50), asg("src", 50), asg("tgt", 40), asg("conv", 80), asg("both", 60), asg("gone", 50)}

	out := Diff(base, source, target)
	assert.Equal(t, map[string]Class{
		"same": Unchanged,
		"src":  SourceOnly,
		"tgt":  TargetOnly,
		"conv": Converged,
		"both": Conflict,
		"gone": SourceOnly,
		"new":  SourceOnly,
	}, classes(out))

	ids := make([]string, len(out))
	for i, o := range out {
		ids[i] = o.EntityID
	}
	assert.IsIncreasing(t, ids, "outcomes are sorted by id")
}

func TestDiff_RemoveVersusModifyConflicts(t *testing.T) {
	base := []domain.Assignment{asg("x", 50)}
	target := []domain.Assignment{asg("x", 60)}

	out := Diff(base, nil, target)
	require.Len(t, out, 1)
	assert.Equal(t, Conflict, out[0].Class)
	assert.Nil(t, out[0].Source)
}

func TestDiff_BothRemovedConverges(t *testing.T) {
	out := Diff([]domain.Assignment{asg("x", 50)}, nil, nil)
	require.Len(t, out, 1)
	assert.Equal(t, Converged, out[0].Class)
	assert.False(t, out[0].NeedsWrite())
}

func TestDiff_InputOrderIrrelevant(t *testing.T) {
	base := []domain.Assignment{asg("a", 1), asg("b", 2)}
	source := []domain.Assignment{asg("b", 3), asg("a", 1)}
	target := []domain.Assignment{asg("a", 1), asg("b", 2)}

	assert.Equal(t, Diff(base, source, target), Diff([]domain.Assignment{base[1], base[0]}, []domain.Assignment{source[1], source[0]}, target))
}

func TestNewConflict_CapturesAllSides(t *testing.T) {
	out := Diff([]domain.Assignment{asg("x", 50)}, []domain.Assignment{asg("x", 70)}, []domain.Assignment{asg("x", 60)})
	require.Len(t, out, 1)

	c, err := NewConflict(out[0], domain.EntityAssignment, "src", "tgt")
	require.NoError(t, err)
	assert.Equal(t, domain.ConflictAssignment, c.ConflictType)
	assert.Equal(t, domain.ResolutionPending, c.Resolution.Kind)

	var base, source, target struct {
		Allocation int `json:"allocation"`
	}
	require.NoError(t, json.Unmarshal(c.BaseData, &base))
	require.NoError(t, json.Unmarshal(c.SourceData, &source))
	require.NoError(t, json.Unmarshal(c.TargetData, &target))
	assert.Equal(t, 50, base.Allocation)
	assert.Equal(t, 70, source.Allocation)
	assert.Equal(t, 60, target.Allocation)
}

func TestPlan_PendingConflictsBlock(t *testing.T) {
	out := Diff(
		[]domain.Assignment{asg("x", 50), asg("y", 50)},
		[]domain.Assignment{asg("x", 70), asg("y", 55)},
		[]domain.Assignment{asg("x", 60), asg("y", 50)},
	)

	writes, pending, err := Plan(out, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, pending)
	require.Len(t, writes, 1)
	assert.Equal(t, 55, writes[0].Value.Allocation)
}

func TestPlan_Resolutions(t *testing.T) {
	out := Diff([]domain.Assignment{asg("x", 50)}, []domain.Assignment{asg("x", 70)}, []domain.Assignment{asg("x", 60)})

	writes, pending, err := Plan(out, map[string]domain.Resolution{"x": {Kind: domain.ResolutionUseSource}})
	require.NoError(t, err)
	assert.Empty(t, pending)
	require.Len(t, writes, 1)
	assert.Equal(t, 70, writes[0].Value.Allocation)
	assert.Equal(t, 60, writes[0].Before.Allocation)

	writes, pending, err = Plan(out, map[string]domain.Resolution{"x": {Kind: domain.ResolutionUseTarget}})
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Empty(t, writes)

	manual := domain.Resolution{Kind: domain.ResolutionManual, Data: json.RawMessage(`{"id":"other","project_id":"p1","person_id":"u1","allocation":65}`)}
	writes, _, err = Plan(out, map[string]domain.Resolution{"x": manual})
	require.NoError(t, err)
	require.Len(t, writes, 1)
	assert.Equal(t, 65, writes[0].Value.Allocation)
	assert.Equal(t, "x", writes[0].Value.ID, "manual data cannot retarget the entity")

	remove := domain.Resolution{Kind: domain.ResolutionManual, Data: json.RawMessage(`null`)}
	writes, _, err = Plan(out, map[string]domain.Resolution{"x": remove})
	require.NoError(t, err)
	require.Len(t, writes, 1)
	assert.Nil(t, writes[0].Value)
}

func TestDecodeManual_RejectsGarbage(t *testing.T) {
	_, err := DecodeManual[domain.Assignment]("x", json.RawMessage(`{"allocation":"lots"}`))
	assert.True(t, domain.HasCode(err, domain.CodeValidation))

	_, err = DecodeManual[domain.Assignment]("x", nil)
	assert.True(t, domain.HasCode(err, domain.CodeValidation))
}

func TestAttempt_Transitions(t *testing.T) {
	a := NewAttempt()
	require.NoError(t, a.Advance(ConflictCollection))
	require.NoError(t, a.Advance(Committing))
	require.NoError(t, a.Advance(Merged))
	assert.True(t, a.Terminal())
	assert.Equal(t, []State{Diffing, ConflictCollection, Committing, Merged}, a.Trail())

	b := NewAttempt()
	assert.Error(t, b.Advance(Merged))
	require.NoError(t, b.Advance(ConflictCollection))
	require.NoError(t, b.Advance(Blocked))
	assert.True(t, b.Terminal())
}
