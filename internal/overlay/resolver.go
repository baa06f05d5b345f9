package overlay

import (
	"context"
	"fmt"
	"sort"

	"github.com/alexanderramin/planloom/internal/domain"
	"github.com/alexanderramin/planloom/internal/repository"
)

// Resolver computes effective views against one set of repositories,
// usually bound to the current transaction.
type Resolver struct {
	repos *repository.Repos
	cache *ChainCache
}

// NewResolver creates a Resolver. cache may be nil.
func NewResolver(repos *repository.Repos, cache *ChainCache) *Resolver {
	return &Resolver{repos: repos, cache: cache}
}

// ChainIDs returns the root-first ancestor chain of scenarioID.
func (r *Resolver) ChainIDs(ctx context.Context, scenarioID string) ([]string, error) {
	return r.cache.ChainIDs(ctx, r.repos.Scenarios, scenarioID)
}

// Effective resolves one entity kind along a root-first chain. The first
// chain element is the baseline, whose rows live in the base table.
func Effective[T domain.Entity[T]](ctx context.Context, store repository.EntityStore[T], chain []string) ([]T, error) {
	return EffectiveDiverged(ctx, store, chain, len(chain))
}

// EffectiveDiverged resolves chain with ResolveDiverged; the first shared
// scenarios of chain are the ones both merge sides have in common.
func EffectiveDiverged[T domain.Entity[T]](ctx context.Context, store repository.EntityStore[T], chain []string, shared int) ([]T, error) {
	base, err := store.ListBase(ctx)
	if err != nil {
		return nil, err
	}
	layers := make([][]domain.Delta[T], 0, len(chain))
	for _, id := range chain {
		deltas, err := store.ListDeltas(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("loading deltas for scenario %s: %w", id, err)
		}
		layers = append(layers, deltas)
	}
	return ResolveDiverged(base, shared, layers...), nil
}

func (r *Resolver) Projects(ctx context.Context, scenarioID string) ([]domain.Project, error) {
	chain, err := r.ChainIDs(ctx, scenarioID)
	if err != nil {
		return nil, err
	}
	return Effective(ctx, r.repos.Projects, chain)
}

func (r *Resolver) PhaseTimelines(ctx context.Context, scenarioID string) ([]domain.PhaseTimeline, error) {
	chain, err := r.ChainIDs(ctx, scenarioID)
	if err != nil {
		return nil, err
	}
	return Effective(ctx, r.repos.PhaseTimelines, chain)
}

func (r *Resolver) Assignments(ctx context.Context, scenarioID string) ([]domain.Assignment, error) {
	chain, err := r.ChainIDs(ctx, scenarioID)
	if err != nil {
		return nil, err
	}
	return Effective(ctx, r.repos.Assignments, chain)
}

// ProjectPhases returns the effective phase timelines of one project.
func (r *Resolver) ProjectPhases(ctx context.Context, scenarioID, projectID string) ([]domain.PhaseTimeline, error) {
	all, err := r.PhaseTimelines(ctx, scenarioID)
	if err != nil {
		return nil, err
	}
	var out []domain.PhaseTimeline
	for _, pt := range all {
		if pt.ProjectID == projectID {
			out = append(out, pt)
		}
	}
	return out, nil
}

// Dependencies returns the dependencies visible from scenarioID: those
// owned by any scenario on its chain whose endpoints both exist in phases.
// Pass projectID "" for every project.
func (r *Resolver) Dependencies(ctx context.Context, scenarioID, projectID string, phases []domain.PhaseTimeline) ([]domain.Dependency, error) {
	chain, err := r.ChainIDs(ctx, scenarioID)
	if err != nil {
		return nil, err
	}
	deps, err := r.repos.Dependencies.ListByScenarios(ctx, chain)
	if err != nil {
		return nil, err
	}
	return VisibleDependencies(chain, deps, projectID, phases), nil
}

// VisibleDependencies filters deps to edges whose endpoints exist in phases
// and belong to projectID (when non-empty). When two chain scenarios own the
// same ordered pair, the more specific owner wins. Output is ordered by
// owner depth then input order.
func VisibleDependencies(chain []string, deps []domain.Dependency, projectID string, phases []domain.PhaseTimeline) []domain.Dependency {
	depth := make(map[string]int, len(chain))
	for i, id := range chain {
		depth[id] = i
	}
	present := make(map[string]string, len(phases))
	for _, pt := range phases {
		present[pt.ID] = pt.ProjectID
	}

	ordered := make([]domain.Dependency, 0, len(deps))
	for _, d := range deps {
		if _, ok := depth[d.ScenarioID]; ok {
			ordered = append(ordered, d)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return depth[ordered[i].ScenarioID] < depth[ordered[j].ScenarioID]
	})

	type pair struct{ pred, succ string }
	byPair := make(map[pair]int)
	var out []domain.Dependency
	for _, d := range ordered {
		if projectID != "" && d.ProjectID != projectID {
			continue
		}
		pp, okP := present[d.PredecessorID]
		sp, okS := present[d.SuccessorID]
		if !okP || !okS || pp != sp {
			continue
		}
		k := pair{d.PredecessorID, d.SuccessorID}
		if i, seen := byPair[k]; seen {
			out[i] = d
			continue
		}
		byPair[k] = len(out)
		out = append(out, d)
	}
	return out
}
