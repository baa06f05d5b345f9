package domain

import (
	"strings"
	"time"
)

type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Status      ProjectStatus `json:"status"`
	StartDate   *time.Time    `json:"start_date,omitempty"`
	TargetDate  *time.Time    `json:"target_date,omitempty"`
	Description string        `json:"description,omitempty"`
}

func (p Project) EntityKey() string { return p.ID }

func (p Project) SameContent(o Project) bool {
	return p.ID == o.ID &&
		p.Name == o.Name &&
		p.Status == o.Status &&
		sameDatePtr(p.StartDate, o.StartDate) &&
		sameDatePtr(p.TargetDate, o.TargetDate) &&
		p.Description == o.Description
}

func (p Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return Validation("project name is required")
	}
	if !ValidProjectStatuses[p.Status] {
		return Validation("invalid project status " + string(p.Status))
	}
	if p.StartDate != nil && p.TargetDate != nil && p.TargetDate.Before(*p.StartDate) {
		return Validation("project target date before start date", p.ID)
	}
	return nil
}

func sameDatePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return Day(*a).Equal(Day(*b))
}
