package testutil

import (
	"time"

	"github.com/alexanderramin/planloom/internal/domain"
	"github.com/google/uuid"
)

// Date parses a YYYY-MM-DD literal and panics on malformed input.
func Date(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func DatePtr(s string) *time.Time {
	t := Date(s)
	return &t
}

// Scenario options
type ScenarioOption func(*domain.Scenario)

func WithParent(id string) ScenarioOption {
	return func(s *domain.Scenario) {
		s.ParentScenarioID = &id
		s.Type = domain.ScenarioBranch
		now := time.Now().UTC()
		s.BranchPoint = &now
	}
}

func WithScenarioStatus(st domain.ScenarioStatus) ScenarioOption {
	return func(s *domain.Scenario) {
		s.Status = st
	}
}

func WithScenarioType(t domain.ScenarioType) ScenarioOption {
	return func(s *domain.Scenario) {
		s.Type = t
	}
}

// NewTestScenario builds a baseline unless WithParent is given.
func NewTestScenario(name string, opts ...ScenarioOption) *domain.Scenario {
	now := time.Now().UTC()
	s := &domain.Scenario{
		ID:        uuid.New().String(),
		Name:      name,
		Status:    domain.ScenarioActive,
		Type:      domain.ScenarioBaseline,
		CreatedBy: "test",
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Project options
type ProjectOption func(*domain.Project)

func WithTargetDate(d time.Time) ProjectOption {
	return func(p *domain.Project) {
		p.TargetDate = &d
	}
}

func WithStartDate(d time.Time) ProjectOption {
	return func(p *domain.Project) {
		p.StartDate = &d
	}
}

func WithProjectStatus(s domain.ProjectStatus) ProjectOption {
	return func(p *domain.Project) {
		p.Status = s
	}
}

func NewTestProject(name string, opts ...ProjectOption) domain.Project {
	p := domain.Project{
		ID:     uuid.New().String(),
		Name:   name,
		Status: domain.ProjectActive,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func NewTestPhase(name string, order int) *domain.Phase {
	return &domain.Phase{ID: uuid.New().String(), Name: name, SortOrder: order}
}

func NewTestPhaseTimeline(projectID, phaseID, start, end string) domain.PhaseTimeline {
	return domain.PhaseTimeline{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		PhaseID:   phaseID,
		StartDate: Date(start),
		EndDate:   Date(end),
	}
}

func NewTestPerson(name string) *domain.Person {
	return &domain.Person{ID: uuid.New().String(), Name: name, Role: "engineer", CreatedAt: time.Now().UTC()}
}

// Assignment options
type AssignmentOption func(*domain.Assignment)

func WithRole(role string) AssignmentOption {
	return func(a *domain.Assignment) {
		a.Role = role
	}
}

func WithAssignmentDates(start, end string) AssignmentOption {
	return func(a *domain.Assignment) {
		a.StartDate = DatePtr(start)
		a.EndDate = DatePtr(end)
	}
}

func NewTestAssignment(projectID, personID string, allocation int, opts ...AssignmentOption) domain.Assignment {
	a := domain.Assignment{
		ID:         uuid.New().String(),
		ProjectID:  projectID,
		PersonID:   personID,
		Role:       "developer",
		Allocation: allocation,
	}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

func NewTestDependency(scenarioID, projectID, predID, succID string, typ domain.DependencyType, lag int) *domain.Dependency {
	return &domain.Dependency{
		ID:            uuid.New().String(),
		ScenarioID:    scenarioID,
		ProjectID:     projectID,
		PredecessorID: predID,
		SuccessorID:   succID,
		Type:          typ,
		LagDays:       lag,
		CreatedAt:     time.Now().UTC(),
	}
}
