package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/alexanderramin/planloom/internal/domain"
)

// Gruvbox-inspired palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// SetColor switches styled output on or off for the whole process. Output
// written to pipes and files should be plain.
func SetColor(enabled bool) {
	if enabled {
		lipgloss.SetColorProfile(termenv.TrueColor)
		return
	}
	lipgloss.SetColorProfile(termenv.Ascii)
}

// ScenarioStatusPill renders a scenario status with its indicator.
func ScenarioStatusPill(status domain.ScenarioStatus) string {
	switch status {
	case domain.ScenarioActive:
		return StyleGreen.Render("● active")
	case domain.ScenarioMerged:
		return StylePurple.Render("⇢ merged")
	case domain.ScenarioArchived:
		return StyleDim.Render("✖ archived")
	default:
		return StyleDim.Render(string(status))
	}
}

// ChangeBadge renders added/modified/removed the way a diff would.
func ChangeBadge(c domain.ChangeType) string {
	switch c {
	case domain.ChangeAdded:
		return StyleGreen.Render("+ added")
	case domain.ChangeModified:
		return StyleYellow.Render("~ modified")
	case domain.ChangeRemoved:
		return StyleRed.Render("- removed")
	default:
		return StyleDim.Render(string(c))
	}
}

func ResolutionBadge(k domain.ResolutionKind) string {
	switch k {
	case domain.ResolutionPending, "":
		return StyleRed.Render("○ pending")
	case domain.ResolutionManual:
		return StyleBlue.Render("✎ manual")
	default:
		return StyleGreen.Render("✔ " + string(k))
	}
}

// Header renders a section header with an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", len(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

func Dim(text string) string {
	return StyleDim.Render(text)
}

func Bold(text string) string {
	return StyleBold.Render(text)
}
