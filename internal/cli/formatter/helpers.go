package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/alexanderramin/planloom/internal/domain"
)

// RenderBox wraps content in a rounded-border box with an optional title.
func RenderBox(title string, content string) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDim).
		PaddingLeft(2).
		PaddingRight(2)

	if title != "" {
		return boxStyle.Render(StyleHeader.Render(strings.ToUpper(title)) + "\n\n" + content)
	}
	return boxStyle.Render(content)
}

// TruncID returns the first 8 characters of an ID, dimmed.
func TruncID(id string) string {
	if id == "" {
		return StyleDim.Render("--")
	}
	if len(id) > 8 {
		id = id[:8]
	}
	return StyleDim.Render(id)
}

// DateOrDash formats an optional calendar date.
func DateOrDash(t *time.Time) string {
	if t == nil {
		return StyleDim.Render("--")
	}
	return domain.FormatDate(*t)
}

// DateRange renders "start → end (Nd)" for an inclusive range.
func DateRange(start, end time.Time) string {
	days := domain.DaysBetween(start, end) + 1
	return fmt.Sprintf("%s → %s %s", domain.FormatDate(start), domain.FormatDate(end), Dim(fmt.Sprintf("(%dd)", days)))
}

// Shift renders a signed day delta, red when the date slips.
func Shift(days int) string {
	switch {
	case days > 0:
		return StyleRed.Render(fmt.Sprintf("+%dd", days))
	case days < 0:
		return StyleGreen.Render(fmt.Sprintf("%dd", days))
	default:
		return Dim("0d")
	}
}

// Allocation renders a percentage with a ten-cell bar.
func Allocation(pct int) string {
	filled := min(max(pct, 0), 100) / 10
	bar := StyleGreen.Render(strings.Repeat("█", filled)) + Dim(strings.Repeat("░", 10-filled))
	return fmt.Sprintf("%s %3d%%", bar, pct)
}
