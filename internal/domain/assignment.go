package domain

import (
	"strings"
	"time"
)

type Assignment struct {
	ID         string     `json:"id"`
	ProjectID  string     `json:"project_id"`
	PersonID   string     `json:"person_id"`
	Role       string     `json:"role"`
	Allocation int        `json:"allocation"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	Notes      string     `json:"notes,omitempty"`
}

func (a Assignment) EntityKey() string { return a.ID }

func (a Assignment) SameContent(o Assignment) bool {
	return a.ID == o.ID &&
		a.ProjectID == o.ProjectID &&
		a.PersonID == o.PersonID &&
		a.Role == o.Role &&
		a.Allocation == o.Allocation &&
		sameDatePtr(a.StartDate, o.StartDate) &&
		sameDatePtr(a.EndDate, o.EndDate) &&
		a.Notes == o.Notes
}

func (a Assignment) Validate() error {
	if strings.TrimSpace(a.ProjectID) == "" || strings.TrimSpace(a.PersonID) == "" {
		return Validation("assignment requires a project and a person", a.ID)
	}
	if a.Allocation < 0 || a.Allocation > 100 {
		return Validation("allocation must be between 0 and 100", a.ID)
	}
	if a.StartDate != nil && a.EndDate != nil {
		return ValidateDateRange(*a.StartDate, *a.EndDate, a.ID)
	}
	return nil
}
