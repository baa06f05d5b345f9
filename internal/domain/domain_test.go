package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanError_MatchesByCode(t *testing.T) {
	err := fmt.Errorf("applying cascade: %w", CyclicDependency([]string{"c", "a", "b"}))

	assert.True(t, errors.Is(err, &PlanError{Code: CodeCyclicDependency}))
	assert.False(t, errors.Is(err, &PlanError{Code: CodeCycleDetected}))
	assert.True(t, HasCode(err, CodeCyclicDependency))
	assert.Equal(t, CodeCyclicDependency, CodeOf(err))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))

	var pe *PlanError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, []string{"a", "b", "c"}, pe.EntityIDs, "cycle members sorted")
	assert.Equal(t, "CYCLIC_DEPENDENCY: dependency graph contains a cycle [a, b, c]", pe.Error())
}

func TestIsConcurrentOperation(t *testing.T) {
	assert.True(t, IsConcurrentOperation(ConcurrentMerge("s1")))
	assert.True(t, IsConcurrentOperation(ConcurrentCascade("s1")))
	assert.False(t, IsConcurrentOperation(Validation("nope")))
}

func TestPersistence(t *testing.T) {
	assert.NoError(t, Persistence("merge", nil))

	inner := Validation("end before start", "p1")
	assert.Same(t, inner, Persistence("merge", inner), "plan errors keep their code")

	disk := errors.New("disk I/O error")
	err := Persistence("merge", disk)
	assert.True(t, HasCode(err, CodePersistenceFailure))
	assert.ErrorIs(t, err, disk)
	assert.Contains(t, err.Error(), "merge failed: disk I/O error")
}

func TestDates(t *testing.T) {
	d, err := ParseDate("2024-02-28")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", FormatDate(AddDays(d, 2)), "leap day counted")
	assert.Equal(t, -3, DaysBetween(d, AddDays(d, -3)))
	assert.Equal(t, "-", FormatDate(time.Time{}))

	_, err = ParseDate("28/02/2024")
	assert.True(t, HasCode(err, CodeValidation))
}

func TestResolution_Validate(t *testing.T) {
	tests := []struct {
		name string
		res  Resolution
		ok   bool
	}{
		{"pending", Resolution{Kind: ResolutionPending}, true},
		{"use source", Resolution{Kind: ResolutionUseSource}, true},
		{"manual", Resolution{Kind: ResolutionManual, Data: json.RawMessage(`{"id":"x"}`)}, true},
		{"manual removal", Resolution{Kind: ResolutionManual, Data: json.RawMessage(`null`)}, true},
		{"manual without data", Resolution{Kind: ResolutionManual}, false},
		{"manual garbage", Resolution{Kind: ResolutionManual, Data: json.RawMessage(`{x`)}, false},
		{"unknown kind", Resolution{Kind: "use_both"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.res.Validate()
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, HasCode(err, CodeValidation))
		})
	}
	assert.False(t, Resolution{Kind: ResolutionPending}.IsResolved())
	assert.True(t, Resolution{Kind: ResolutionUseTarget}.IsResolved())
}

func TestMergeConflict_SameSides(t *testing.T) {
	c := MergeConflict{
		BaseData:   json.RawMessage(`{"a":1,"b":2}`),
		SourceData: json.RawMessage(`{"a":2}`),
	}
	reordered := MergeConflict{
		BaseData:   json.RawMessage(`{"b":2, "a":1}`),
		SourceData: json.RawMessage(`{"a":2}`),
		TargetData: json.RawMessage(`null`),
	}
	assert.True(t, c.SameSides(reordered), "key order and absent-vs-null do not matter")

	changed := reordered
	changed.SourceData = json.RawMessage(`{"a":3}`)
	assert.False(t, c.SameSides(changed))
}
