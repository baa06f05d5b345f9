package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/planloom/internal/app"
	"github.com/alexanderramin/planloom/internal/domain"
)

func FormatMergeResult(res *app.MergeResult) string {
	var b strings.Builder
	b.WriteString(mergeHeadline(res))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s → %s %s %s\n",
		Dim("source/target:"), TruncID(res.SourceScenarioID), TruncID(res.TargetScenarioID),
		Dim("ancestor:"), TruncID(res.AncestorScenarioID))
	if len(res.States) > 0 {
		fmt.Fprintf(&b, "%s %s\n", Dim("states:"), strings.Join(res.States, Dim(" → ")))
	}
	if line := classCounts(res.Classes); line != "" {
		fmt.Fprintf(&b, "%s %s\n", Dim("compared:"), line)
	}

	if len(res.Changes) > 0 {
		rows := make([][]string, 0, len(res.Changes))
		for _, c := range res.Changes {
			via := ""
			if c.FromConflict {
				via = StyleBlue.Render("resolution")
			}
			rows = append(rows, []string{string(c.EntityType), TruncID(c.EntityID), ChangeBadge(c.ChangeType), via})
		}
		b.WriteString("\n")
		b.WriteString(RenderTable([]string{"ENTITY", "ID", "CHANGE", "VIA"}, rows))
	}
	if res.DependenciesAdded > 0 {
		fmt.Fprintf(&b, "%s\n", Dim(fmt.Sprintf("%d dependency edge(s) adopted", res.DependenciesAdded)))
	}
	if len(res.Conflicts) > 0 {
		b.WriteString("\n")
		b.WriteString(FormatConflictTable(res.Conflicts))
	}
	return b.String()
}

var classOrder = []string{"source_only", "conflict", "target_only", "converged", "unchanged"}

// classCounts renders the non-zero class counts, changes first.
func classCounts(classes map[string]int) string {
	parts := make([]string, 0, len(classOrder))
	for _, c := range classOrder {
		if n := classes[c]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, strings.ReplaceAll(c, "_", "-")))
		}
	}
	return strings.Join(parts, ", ")
}

func mergeHeadline(res *app.MergeResult) string {
	switch res.Status {
	case app.MergeStatusMerged:
		return StyleGreen.Render("✔ Merged") + Dim(fmt.Sprintf(" %d change(s)", len(res.Changes)))
	case app.MergeStatusConflictsPending:
		return StyleRed.Render("✖ Blocked") + Dim(fmt.Sprintf(" %d conflict(s) need a resolution", len(res.Pending())))
	default:
		return StyleYellow.Render("● Preview") + Dim(fmt.Sprintf(" %d change(s), %d conflict(s)", len(res.Changes), len(res.Conflicts)))
	}
}

func FormatConflictTable(conflicts []domain.MergeConflict) string {
	rows := make([][]string, 0, len(conflicts))
	for _, c := range conflicts {
		rows = append(rows, []string{
			TruncID(c.ID),
			string(c.ConflictType),
			TruncID(c.EntityID),
			side(c.SourceData),
			side(c.TargetData),
			ResolutionBadge(c.Resolution.Kind),
		})
	}
	return RenderTable([]string{"CONFLICT", "TYPE", "ENTITY", "SOURCE", "TARGET", "RESOLUTION"}, rows)
}

// side summarises one version of a conflicting entity.
func side(data []byte) string {
	if len(data) == 0 || string(data) == "null" {
		return StyleRed.Render("(absent)")
	}
	s := string(data)
	if len(s) > 40 {
		s = s[:37] + "..."
	}
	return Dim(s)
}
