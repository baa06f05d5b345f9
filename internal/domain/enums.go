package domain

type ScenarioStatus string

const (
	ScenarioActive   ScenarioStatus = "active"
	ScenarioArchived ScenarioStatus = "archived"
	ScenarioMerged   ScenarioStatus = "merged"
)

type ScenarioType string

const (
	ScenarioBaseline ScenarioType = "baseline"
	ScenarioBranch   ScenarioType = "branch"
	ScenarioSandbox  ScenarioType = "sandbox"
)

// ValidScenarioTypes is the set of types accepted when branching.
// Baselines are created through a dedicated path and are not listed here.
var ValidScenarioTypes = map[ScenarioType]bool{
	ScenarioBranch:  true,
	ScenarioSandbox: true,
}

type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
)

type ProjectStatus string

const (
	ProjectActive   ProjectStatus = "active"
	ProjectPaused   ProjectStatus = "paused"
	ProjectDone     ProjectStatus = "done"
	ProjectArchived ProjectStatus = "archived"
)

// ValidProjectStatuses is the canonical set of accepted project status strings.
var ValidProjectStatuses = map[ProjectStatus]bool{
	ProjectActive: true, ProjectPaused: true, ProjectDone: true, ProjectArchived: true,
}

type DependencyType string

const (
	FinishToStart  DependencyType = "FS"
	StartToStart   DependencyType = "SS"
	FinishToFinish DependencyType = "FF"
	StartToFinish  DependencyType = "SF"
)

// ValidDependencyTypes is the canonical set of accepted dependency types.
var ValidDependencyTypes = map[DependencyType]bool{
	FinishToStart: true, StartToStart: true, FinishToFinish: true, StartToFinish: true,
}

// EntityType names an overlaid entity kind. The string values double as
// snapshot bucket names and audit entity types.
type EntityType string

const (
	EntityProject       EntityType = "project"
	EntityPhaseTimeline EntityType = "phase_timeline"
	EntityAssignment    EntityType = "assignment"
	EntityDependency    EntityType = "dependency"
	EntityScenario      EntityType = "scenario"
)

// OverlaidEntityTypes lists the entity kinds that carry scenario deltas, in
// the order writes must be applied (parents before children).
var OverlaidEntityTypes = []EntityType{EntityProject, EntityPhaseTimeline, EntityAssignment}

type ConflictType string

const (
	ConflictAssignment     ConflictType = "assignment"
	ConflictPhaseTimeline  ConflictType = "phase_timeline"
	ConflictProjectDetails ConflictType = "project_details"
)

// ConflictTypeFor maps an overlaid entity type to its merge conflict type.
func ConflictTypeFor(t EntityType) ConflictType {
	switch t {
	case EntityAssignment:
		return ConflictAssignment
	case EntityPhaseTimeline:
		return ConflictPhaseTimeline
	default:
		return ConflictProjectDetails
	}
}

type ResolutionKind string

const (
	ResolutionPending   ResolutionKind = "pending"
	ResolutionUseSource ResolutionKind = "use_source"
	ResolutionUseTarget ResolutionKind = "use_target"
	ResolutionManual    ResolutionKind = "manual"
)

// ParseResolutionKind accepts the stored kinds plus the request-level
// "use_base" spelling, which callers translate into a manual resolution.
func ParseResolutionKind(s string) (ResolutionKind, bool) {
	switch ResolutionKind(s) {
	case ResolutionPending, ResolutionUseSource, ResolutionUseTarget, ResolutionManual:
		return ResolutionKind(s), true
	}
	return "", false
}
