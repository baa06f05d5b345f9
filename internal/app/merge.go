package app

import (
	"encoding/json"

	"github.com/alexanderramin/planloom/internal/domain"
)

type MergeStatus string

const (
	MergeStatusMerged           MergeStatus = "merged"
	MergeStatusConflictsPending MergeStatus = "conflicts_pending"
	MergeStatusPreview          MergeStatus = "preview"
)

// ConflictResolution is a caller's decision for one conflicting entity.
// Resolution is one of use_source, use_target, use_base or manual;
// ResolvedData is required for manual.
type ConflictResolution struct {
	Resolution   string          `json:"resolution"`
	ResolvedData json.RawMessage `json:"resolved_data,omitempty"`
}

// ScenarioMergeRequest merges Source into Target. TargetScenarioID defaults
// to the source's parent. ResolveConflicts resolves every conflict without
// an explicit entry in ConflictResolutions with use_source.
type ScenarioMergeRequest struct {
	SourceScenarioID    string                        `json:"source_scenario_id"`
	TargetScenarioID    string                        `json:"target_scenario_id,omitempty"`
	ResolveConflicts    bool                          `json:"resolve_conflicts,omitempty"`
	ConflictResolutions map[string]ConflictResolution `json:"conflict_resolutions,omitempty"`
	Actor               string                        `json:"actor,omitempty"`
}

// MergeChange is one entity the merge writes (or would write) to the target.
type MergeChange struct {
	EntityType   domain.EntityType `json:"entity_type"`
	EntityID     string            `json:"entity_id"`
	ChangeType   domain.ChangeType `json:"change_type"`
	FromConflict bool              `json:"from_conflict,omitempty"`
}

type MergeResult struct {
	Status             MergeStatus            `json:"status"`
	SourceScenarioID   string                 `json:"source_scenario_id"`
	TargetScenarioID   string                 `json:"target_scenario_id"`
	AncestorScenarioID string                 `json:"ancestor_scenario_id"`
	Changes            []MergeChange          `json:"changes"`
	Conflicts          []domain.MergeConflict `json:"conflicts"`
	DependenciesAdded  int                    `json:"dependencies_added"`
	States             []string               `json:"states"`
	// Classes counts the compared entities by three-way class
	// (unchanged, source_only, target_only, converged, conflict).
	Classes map[string]int `json:"classes"`
}

// Pending returns the conflicts still waiting for a resolution.
func (r *MergeResult) Pending() []domain.MergeConflict {
	var out []domain.MergeConflict
	for _, c := range r.Conflicts {
		if !c.Resolution.IsResolved() {
			out = append(out, c)
		}
	}
	return out
}
