package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/planloom/internal/domain"
)

func FormatProjectList(projects []domain.Project) string {
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, []string{
			TruncID(p.ID),
			Bold(p.Name),
			projectStatus(p.Status),
			DateOrDash(p.StartDate),
			DateOrDash(p.TargetDate),
		})
	}
	return RenderTable([]string{"ID", "PROJECT", "STATUS", "START", "TARGET"}, rows)
}

func projectStatus(s domain.ProjectStatus) string {
	switch s {
	case domain.ProjectActive:
		return StyleGreen.Render("● active")
	case domain.ProjectPaused:
		return StyleYellow.Render("○ paused")
	case domain.ProjectDone:
		return StyleDim.Render("✔ done")
	default:
		return StyleDim.Render(string(s))
	}
}

// FormatPhaseList renders a project's phase timelines. names maps catalog
// phase ids to their display names.
func FormatPhaseList(phases []domain.PhaseTimeline, names map[string]string) string {
	rows := make([][]string, 0, len(phases))
	for _, pt := range phases {
		rows = append(rows, []string{
			TruncID(pt.ID),
			Bold(phaseName(names, pt.PhaseID)),
			DateRange(pt.StartDate, pt.EndDate),
		})
	}
	return RenderTable([]string{"ID", "PHASE", "DATES"}, rows)
}

func phaseName(names map[string]string, id string) string {
	if n, ok := names[id]; ok {
		return n
	}
	return id
}

// FormatAssignmentList renders assignments; people maps person ids to names.
func FormatAssignmentList(assignments []domain.Assignment, people map[string]string) string {
	rows := make([][]string, 0, len(assignments))
	for _, a := range assignments {
		who := people[a.PersonID]
		if who == "" {
			who = a.PersonID
		}
		rows = append(rows, []string{
			TruncID(a.ID),
			Bold(who),
			a.Role,
			Allocation(a.Allocation),
			TruncID(a.ProjectID),
		})
	}
	return RenderTable([]string{"ID", "PERSON", "ROLE", "ALLOCATION", "PROJECT"}, rows)
}

func FormatPersonList(people []*domain.Person) string {
	rows := make([][]string, 0, len(people))
	for _, p := range people {
		rows = append(rows, []string{TruncID(p.ID), Bold(p.Name), p.Role})
	}
	return RenderTable([]string{"ID", "NAME", "ROLE"}, rows)
}

// FormatDependencyList renders edges; labels maps phase timeline ids to a
// readable name. Edges owned by an ancestor of scenarioID are marked as
// inherited.
func FormatDependencyList(deps []domain.Dependency, labels map[string]string, scenarioID string) string {
	rows := make([][]string, 0, len(deps))
	for _, d := range deps {
		owner := Dim("own")
		if d.ScenarioID != scenarioID {
			owner = StyleBlue.Render("inherited")
		}
		rows = append(rows, []string{
			TruncID(d.ID),
			fmt.Sprintf("%s %s %s", phaseName(labels, d.PredecessorID), Dim("→"), phaseName(labels, d.SuccessorID)),
			string(d.Type),
			lag(d.LagDays),
			owner,
		})
	}
	return RenderTable([]string{"ID", "EDGE", "TYPE", "LAG", "OWNER"}, rows)
}

func lag(days int) string {
	if days == 0 {
		return Dim("0d")
	}
	return fmt.Sprintf("%+dd", days)
}

// Created renders the one-line confirmation printed after a write.
func Created(kind, name, id string) string {
	return fmt.Sprintf("%s %s %s %s", StyleGreen.Render("✔"), "Created "+kind, Bold(name), TruncID(id))
}

func Updated(kind, name, id string) string {
	return fmt.Sprintf("%s %s %s %s", StyleGreen.Render("✔"), "Updated "+kind, Bold(name), TruncID(id))
}

func Removed(kind, id string) string {
	return fmt.Sprintf("%s %s %s", StyleRed.Render("✖"), "Removed "+kind, TruncID(id))
}

// Empty renders the placeholder for an empty listing.
func Empty(what string) string {
	return Dim("No " + strings.TrimSpace(what) + " found.")
}
