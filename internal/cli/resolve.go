package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexanderramin/planloom/internal/domain"
)

// matchID resolves input against items by exact ID, then by name
// (case-insensitive), then by unique ID prefix.
func matchID[T any](kind, input string, items []T, id, name func(T) string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("%s ID is required", kind)
	}
	for _, it := range items {
		if id(it) == input {
			return input, nil
		}
	}
	if name != nil {
		var named []string
		for _, it := range items {
			if strings.EqualFold(name(it), input) {
				named = append(named, id(it))
			}
		}
		if len(named) == 1 {
			return named[0], nil
		}
		if len(named) > 1 {
			return "", fmt.Errorf("%s name %q is ambiguous (%d matches)", kind, input, len(named))
		}
	}

	var matches []string
	for _, it := range items {
		if strings.HasPrefix(id(it), input) {
			matches = append(matches, id(it))
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%s not found: %q", kind, input)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%s ID prefix %q is ambiguous (%d matches)", kind, input, len(matches))
	}
}

// resolveScenarioID maps the --scenario value onto a scenario ID. An empty
// input stays empty and means the baseline.
func resolveScenarioID(ctx context.Context, app *App, input string) (string, error) {
	if input == "" {
		return "", nil
	}
	all, err := app.Scenarios.List(ctx, true)
	if err != nil {
		return "", err
	}
	return matchID("scenario", input, all,
		func(s *domain.Scenario) string { return s.ID },
		func(s *domain.Scenario) string { return s.Name })
}

func resolveProjectID(ctx context.Context, app *App, scenarioID, input string) (string, error) {
	projects, err := app.Projects.List(ctx, scenarioID)
	if err != nil {
		return "", err
	}
	return matchID("project", input, projects,
		func(p domain.Project) string { return p.ID },
		func(p domain.Project) string { return p.Name })
}

func resolvePersonID(ctx context.Context, app *App, input string) (string, error) {
	people, err := app.People.List(ctx)
	if err != nil {
		return "", err
	}
	return matchID("person", input, people,
		func(p *domain.Person) string { return p.ID },
		func(p *domain.Person) string { return p.Name })
}

// phaseIndex is the effective phase timelines of a scenario with their
// catalog names, keyed for lookups by the phase commands.
type phaseIndex struct {
	phases []domain.PhaseTimeline
	names  map[string]string // catalog phase id -> name
}

func loadPhaseIndex(ctx context.Context, app *App, scenarioID, projectID string) (*phaseIndex, error) {
	catalog, err := app.Phases.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	idx := &phaseIndex{names: make(map[string]string, len(catalog))}
	for _, ph := range catalog {
		idx.names[ph.ID] = ph.Name
	}

	projectIDs := []string{projectID}
	if projectID == "" {
		projects, err := app.Projects.List(ctx, scenarioID)
		if err != nil {
			return nil, err
		}
		projectIDs = projectIDs[:0]
		for _, p := range projects {
			projectIDs = append(projectIDs, p.ID)
		}
	}
	for _, pid := range projectIDs {
		list, err := app.Phases.ListByProject(ctx, scenarioID, pid)
		if err != nil {
			return nil, err
		}
		idx.phases = append(idx.phases, list...)
	}
	return idx, nil
}

// labels maps phase timeline ids to their catalog names.
func (idx *phaseIndex) labels() map[string]string {
	out := make(map[string]string, len(idx.phases))
	for _, pt := range idx.phases {
		out[pt.ID] = idx.names[pt.PhaseID]
	}
	return out
}

// resolve accepts a timeline ID, a unique prefix or a phase name. Names
// are only unique within one project.
func (idx *phaseIndex) resolve(input string) (string, error) {
	return matchID("phase", input, idx.phases,
		func(pt domain.PhaseTimeline) string { return pt.ID },
		func(pt domain.PhaseTimeline) string { return idx.names[pt.PhaseID] })
}
