package app

// DependencyInput carries the fields accepted by dependency create and
// update. Update only honours DependencyType and LagDays.
type DependencyInput struct {
	ScenarioID                 string `json:"scenario_id"`
	ProjectID                  string `json:"project_id"`
	PredecessorPhaseTimelineID string `json:"predecessor_phase_timeline_id"`
	SuccessorPhaseTimelineID   string `json:"successor_phase_timeline_id"`
	DependencyType             string `json:"dependency_type"`
	LagDays                    int    `json:"lag_days"`
}

// PhaseTimelineInput creates or updates a phase of a project. Phase is
// looked up in the catalog by name and created when missing.
type PhaseTimelineInput struct {
	ProjectID string `json:"project_id"`
	Phase     string `json:"phase"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}
