package formatter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alexanderramin/planloom/internal/domain"
)

// FormatScenarioTree renders scenarios as the branch tree rooted at the
// baseline. Scenarios whose parent is not in the list are shown as roots.
func FormatScenarioTree(scenarios []*domain.Scenario) string {
	if len(scenarios) == 0 {
		return Dim("No scenarios.") + "\n"
	}
	present := make(map[string]bool, len(scenarios))
	for _, s := range scenarios {
		present[s.ID] = true
	}
	children := make(map[string][]*domain.Scenario)
	var roots []*domain.Scenario
	for _, s := range scenarios {
		if p := s.ParentID(); p != "" && present[p] {
			children[p] = append(children[p], s)
		} else {
			roots = append(roots, s)
		}
	}
	byCreated := func(list []*domain.Scenario) {
		sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	}
	byCreated(roots)

	var items []TreeItem
	var walk func(s *domain.Scenario, level int, last bool, open []bool)
	walk = func(s *domain.Scenario, level int, last bool, open []bool) {
		items = append(items, TreeItem{
			Title:  scenarioTitle(s),
			Level:  level,
			IsLast: last,
			Open:   open,
			Detail: ScenarioStatusPill(s.Status),
		})
		kids := children[s.ID]
		byCreated(kids)
		next := open
		if level > 0 {
			next = append(append([]bool(nil), open...), !last)
		}
		for i, k := range kids {
			walk(k, level+1, i == len(kids)-1, next)
		}
	}
	for _, r := range roots {
		walk(r, 0, true, nil)
	}
	return RenderTree(items)
}

func scenarioTitle(s *domain.Scenario) string {
	title := Bold(s.Name) + " " + TruncID(s.ID)
	if s.Type != domain.ScenarioBranch {
		title += " " + StyleBlue.Render(string(s.Type))
	}
	return title
}

// FormatScenario renders one scenario with its ancestor chain, nearest
// first.
func FormatScenario(s *domain.Scenario, chain []*domain.Scenario) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", Bold(s.Name), ScenarioStatusPill(s.Status))
	fmt.Fprintf(&b, "%s %s\n", Dim("id:        "), s.ID)
	fmt.Fprintf(&b, "%s %s\n", Dim("type:      "), s.Type)
	fmt.Fprintf(&b, "%s %s\n", Dim("created by:"), s.CreatedBy)
	if s.BranchPoint != nil {
		fmt.Fprintf(&b, "%s %s\n", Dim("branched:  "), s.BranchPoint.Format("2006-01-02 15:04"))
	}
	if len(chain) > 1 {
		names := make([]string, len(chain))
		for i, c := range chain {
			names[i] = c.Name
		}
		fmt.Fprintf(&b, "%s %s\n", Dim("lineage:   "), strings.Join(names, Dim(" ← ")))
	}
	return b.String()
}
