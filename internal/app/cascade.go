package app

// CascadeCalculateRequest asks for the blast radius of moving one phase.
// Dates are YYYY-MM-DD. NewStartDate defaults to the phase's current start.
type CascadeCalculateRequest struct {
	ScenarioID      string  `json:"scenario_id"`
	PhaseTimelineID string  `json:"phase_timeline_id"`
	NewStartDate    *string `json:"new_start_date,omitempty"`
	NewEndDate      string  `json:"new_end_date"`
}

// CascadeChange is one phase's proposed or committed dates. The current
// dates are filled in by previews and ignored by apply.
type CascadeChange struct {
	PhaseTimelineID string `json:"phase_timeline_id"`
	NewStartDate    string `json:"new_start_date"`
	NewEndDate      string `json:"new_end_date"`
	CurrentStart    string `json:"current_start_date,omitempty"`
	CurrentEnd      string `json:"current_end_date,omitempty"`
	ShiftDays       int    `json:"shift_days,omitempty"`
}

type CascadeCalculateResponse struct {
	ScenarioID string          `json:"scenario_id"`
	ProjectID  string          `json:"project_id"`
	Changes    []CascadeChange `json:"changes"`
}

type CascadeApplyRequest struct {
	ScenarioID string          `json:"scenario_id"`
	Changes    []CascadeChange `json:"changes"`
	Actor      string          `json:"actor,omitempty"`
}

type CascadeApplyResponse struct {
	ScenarioID string `json:"scenario_id"`
	Applied    int    `json:"applied"`
	// Deltas counts changes written as scenario delta rows rather than
	// in-place updates.
	Deltas int `json:"deltas"`
}
