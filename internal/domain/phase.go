package domain

import (
	"strings"
	"time"
)

// Phase is an entry of the global phase catalog ("Design", "Build", ...).
type Phase struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

// PhaseTimeline schedules one catalog phase for one project. Both dates are
// inclusive calendar days.
type PhaseTimeline struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	PhaseID   string    `json:"phase_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

func (p PhaseTimeline) EntityKey() string { return p.ID }

func (p PhaseTimeline) SameContent(o PhaseTimeline) bool {
	return p.ID == o.ID &&
		p.ProjectID == o.ProjectID &&
		p.PhaseID == o.PhaseID &&
		Day(p.StartDate).Equal(Day(o.StartDate)) &&
		Day(p.EndDate).Equal(Day(o.EndDate))
}

// DurationDays is end minus start; zero-width phases have duration 0.
func (p PhaseTimeline) DurationDays() int {
	return DaysBetween(p.StartDate, p.EndDate)
}

func (p PhaseTimeline) Validate() error {
	if strings.TrimSpace(p.ProjectID) == "" {
		return Validation("phase timeline requires a project")
	}
	if strings.TrimSpace(p.PhaseID) == "" {
		return Validation("phase timeline requires a phase")
	}
	return ValidateDateRange(p.StartDate, p.EndDate, p.ID)
}

// ValidateDateRange rejects zero dates and start after end.
func ValidateDateRange(start, end time.Time, ids ...string) error {
	if start.IsZero() || end.IsZero() {
		return Validation("start and end dates are required", ids...)
	}
	if Day(start).After(Day(end)) {
		return Validation("start date "+FormatDate(start)+" is after end date "+FormatDate(end), ids...)
	}
	return nil
}
