package domain

import "time"

// Scenario is one node of the planning tree. The baseline has no parent.
type Scenario struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	ParentScenarioID *string        `json:"parent_scenario_id,omitempty"`
	BranchPoint      *time.Time     `json:"branch_point,omitempty"`
	Status           ScenarioStatus `json:"status"`
	Type             ScenarioType   `json:"scenario_type"`
	CreatedBy        string         `json:"created_by"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func (s *Scenario) IsBaseline() bool {
	return s.ParentScenarioID == nil
}

func (s *Scenario) IsActive() bool {
	return s.Status == ScenarioActive
}

// ParentID returns the parent id or "" for the baseline.
func (s *Scenario) ParentID() string {
	if s.ParentScenarioID == nil {
		return ""
	}
	return *s.ParentScenarioID
}
