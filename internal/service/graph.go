package service

import (
	"context"

	"github.com/alexanderramin/planloom/internal/depgraph"
	"github.com/alexanderramin/planloom/internal/domain"
	"github.com/alexanderramin/planloom/internal/overlay"
	"github.com/alexanderramin/planloom/internal/repository"
)

// projectSchedule is one project's effective phases and the dependencies
// visible between them, as seen from one scenario.
type projectSchedule struct {
	chain  []string
	phases []domain.PhaseTimeline
	deps   []domain.Dependency
}

func loadProjectSchedule(ctx context.Context, res *overlay.Resolver, r *repository.Repos, scenarioID, projectID string) (*projectSchedule, error) {
	chain, err := res.ChainIDs(ctx, scenarioID)
	if err != nil {
		return nil, err
	}
	phases, err := res.ProjectPhases(ctx, scenarioID, projectID)
	if err != nil {
		return nil, err
	}
	all, err := r.Dependencies.ListByScenarios(ctx, chain)
	if err != nil {
		return nil, err
	}
	return &projectSchedule{
		chain:  chain,
		phases: phases,
		deps:   overlay.VisibleDependencies(chain, all, projectID, phases),
	}, nil
}

func (p *projectSchedule) phaseIDs() []string {
	return phaseIDs(p.phases)
}

func (p *projectSchedule) graph() (*depgraph.Graph, error) {
	return depgraph.Build(p.phaseIDs(), p.deps)
}

func phaseIDs(phases []domain.PhaseTimeline) []string {
	ids := make([]string, len(phases))
	for i, pt := range phases {
		ids[i] = pt.ID
	}
	return ids
}

// checkDescendants rejects cand if it closes a cycle in any active scenario
// below ownerID. Each descendant sees cand next to its own and inherited
// edges; an existing edge with cand's id is replaced by it.
func checkDescendants(ctx context.Context, res *overlay.Resolver, r *repository.Repos, ownerID string, cand domain.Dependency) error {
	children, err := r.Scenarios.ListChildren(ctx, ownerID)
	if err != nil {
		return err
	}
	for _, child := range children {
		if child.IsActive() {
			chain, err := res.ChainIDs(ctx, child.ID)
			if err != nil {
				return err
			}
			phases, err := res.ProjectPhases(ctx, child.ID, cand.ProjectID)
			if err != nil {
				return err
			}
			all, err := r.Dependencies.ListByScenarios(ctx, chain)
			if err != nil {
				return err
			}
			edges := make([]domain.Dependency, 0, len(all)+1)
			for _, d := range all {
				if d.ID != cand.ID {
					edges = append(edges, d)
				}
			}
			edges = append(edges, cand)
			if _, err := depgraph.Build(phaseIDs(phases), overlay.VisibleDependencies(chain, edges, cand.ProjectID, phases)); err != nil {
				return err
			}
		}
		if err := checkDescendants(ctx, res, r, child.ID, cand); err != nil {
			return err
		}
	}
	return nil
}
