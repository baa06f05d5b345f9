package overlay

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexanderramin/planloom/internal/domain"
)

// MaxChainDepth bounds ancestor walks. Creation never produces chains this
// deep; hitting the bound means the stored parent pointers loop.
const MaxChainDepth = 512

// ScenarioGetter is the read surface Chain needs.
type ScenarioGetter interface {
	GetByID(ctx context.Context, id string) (*domain.Scenario, error)
}

// Chain returns the scenarios from the baseline down to id, inclusive.
func Chain(ctx context.Context, scenarios ScenarioGetter, id string) ([]*domain.Scenario, error) {
	visited := make(map[string]bool)
	var path []string
	var reversed []*domain.Scenario

	cur := id
	for {
		if visited[cur] || len(path) >= MaxChainDepth {
			return nil, domain.CycleDetected(append(path, cur))
		}
		visited[cur] = true
		path = append(path, cur)

		s, err := scenarios.GetByID(ctx, cur)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ScenarioNotFound(cur)
			}
			return nil, fmt.Errorf("loading scenario %s: %w", cur, err)
		}
		reversed = append(reversed, s)
		if s.ParentScenarioID == nil {
			break
		}
		cur = *s.ParentScenarioID
	}

	out := make([]*domain.Scenario, len(reversed))
	for i, s := range reversed {
		out[len(reversed)-1-i] = s
	}
	return out, nil
}

// ChainIDs is Chain reduced to ids.
func ChainIDs(chain []*domain.Scenario) []string {
	ids := make([]string, len(chain))
	for i, s := range chain {
		ids[i] = s.ID
	}
	return ids
}

// CommonAncestor returns the deepest scenario id present in both root-first
// chains, or "" when they share nothing.
func CommonAncestor(a, b []string) string {
	var last string
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			break
		}
		last = a[i]
	}
	if last != "" {
		return last
	}
	// Chains normally share a root prefix; fall back to a set scan for
	// stores that hold several independent trees.
	inB := make(map[string]bool, len(b))
	for _, id := range b {
		inB[id] = true
	}
	for i := len(a) - 1; i >= 0; i-- {
		if inB[a[i]] {
			return a[i]
		}
	}
	return ""
}
