package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/planloom/internal/app"
)

// FormatCascadePreview renders the proposed date changes of a cascade.
func FormatCascadePreview(resp *app.CascadeCalculateResponse, labels map[string]string) string {
	if len(resp.Changes) == 0 {
		return Dim("Nothing moves.") + "\n"
	}
	rows := make([][]string, 0, len(resp.Changes))
	for _, c := range resp.Changes {
		rows = append(rows, []string{
			Bold(phaseName(labels, c.PhaseTimelineID)),
			Dim(c.CurrentStart + " → " + c.CurrentEnd),
			c.NewStartDate + " → " + c.NewEndDate,
			Shift(c.ShiftDays),
		})
	}
	var b strings.Builder
	b.WriteString(Header("Cascade preview"))
	b.WriteString("\n")
	b.WriteString(RenderTable([]string{"PHASE", "CURRENT", "PROPOSED", "SHIFT"}, rows))
	fmt.Fprintf(&b, "%s\n", Dim(fmt.Sprintf("%d phase(s) would change. Run `cascade apply` with the same flags to commit.", len(resp.Changes))))
	return b.String()
}

func FormatCascadeApplied(resp *app.CascadeApplyResponse) string {
	if resp.Applied == 0 {
		return Dim("Already up to date; nothing written.")
	}
	msg := fmt.Sprintf("Applied %d phase change(s)", resp.Applied)
	if resp.Deltas > 0 {
		msg += fmt.Sprintf(" (%d as branch deltas)", resp.Deltas)
	}
	return StyleGreen.Render("✔") + " " + msg
}
