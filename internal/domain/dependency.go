package domain

import "time"

// Dependency is a directed edge between two phase timelines of one project.
// It is owned by the scenario it was created in and visible to descendants.
type Dependency struct {
	ID            string         `json:"id"`
	ScenarioID    string         `json:"scenario_id"`
	ProjectID     string         `json:"project_id"`
	PredecessorID string         `json:"predecessor_phase_timeline_id"`
	SuccessorID   string         `json:"successor_phase_timeline_id"`
	Type          DependencyType `json:"dependency_type"`
	LagDays       int            `json:"lag_days"`
	CreatedAt     time.Time      `json:"-"`
}

// Validate checks the edge in isolation. Endpoint existence, project
// membership and acyclicity need the graph and are checked by the service.
func (d Dependency) Validate() error {
	if d.PredecessorID == "" || d.SuccessorID == "" {
		return Validation("dependency requires predecessor and successor")
	}
	if d.PredecessorID == d.SuccessorID {
		return Validation("a phase cannot depend on itself", d.PredecessorID)
	}
	if !ValidDependencyTypes[d.Type] {
		return Validation("invalid dependency type " + string(d.Type))
	}
	return nil
}

// SameEdge reports whether two dependencies connect the same ordered pair.
func (d Dependency) SameEdge(o Dependency) bool {
	return d.PredecessorID == o.PredecessorID && d.SuccessorID == o.SuccessorID
}
