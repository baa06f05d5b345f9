package service

import (
	"context"

	"github.com/alexanderramin/planloom/internal/app"
	"github.com/alexanderramin/planloom/internal/domain"
)

// Every scenarioID parameter accepts "" for the baseline.

type ScenarioService interface {
	CreateBaseline(ctx context.Context, name, createdBy string) (*domain.Scenario, error)
	CreateBranch(ctx context.Context, parentID, name string, typ domain.ScenarioType, createdBy string) (*domain.Scenario, error)
	Get(ctx context.Context, id string) (*domain.Scenario, error)
	List(ctx context.Context, includeInactive bool) ([]*domain.Scenario, error)
	// Ancestors returns the chain of id, nearest first, ending at the baseline.
	Ancestors(ctx context.Context, id string) ([]*domain.Scenario, error)
	Archive(ctx context.Context, id, actor string) error
}

type PersonService interface {
	Create(ctx context.Context, p *domain.Person) error
	GetByID(ctx context.Context, id string) (*domain.Person, error)
	List(ctx context.Context) ([]*domain.Person, error)
}

type ProjectService interface {
	Create(ctx context.Context, scenarioID string, p *domain.Project, actor string) error
	Get(ctx context.Context, scenarioID, id string) (*domain.Project, error)
	List(ctx context.Context, scenarioID string) ([]domain.Project, error)
	Update(ctx context.Context, scenarioID string, p *domain.Project, actor string) error
	// Remove also removes the project's phases and assignments from the
	// scenario's view.
	Remove(ctx context.Context, scenarioID, id, actor string) error
}

type PhaseTimelineService interface {
	Create(ctx context.Context, scenarioID string, in app.PhaseTimelineInput, actor string) (*domain.PhaseTimeline, error)
	Get(ctx context.Context, scenarioID, id string) (*domain.PhaseTimeline, error)
	ListByProject(ctx context.Context, scenarioID, projectID string) ([]domain.PhaseTimeline, error)
	// Update changes dates only; use the cascade service to move dependents.
	Update(ctx context.Context, scenarioID, id string, in app.PhaseTimelineInput, actor string) (*domain.PhaseTimeline, error)
	Remove(ctx context.Context, scenarioID, id, actor string) error
	Catalog(ctx context.Context) ([]*domain.Phase, error)
}

type AssignmentService interface {
	Create(ctx context.Context, scenarioID string, a *domain.Assignment, actor string) error
	Get(ctx context.Context, scenarioID, id string) (*domain.Assignment, error)
	// List returns every effective assignment, or one project's when
	// projectID is set.
	List(ctx context.Context, scenarioID, projectID string) ([]domain.Assignment, error)
	Update(ctx context.Context, scenarioID string, a *domain.Assignment, actor string) error
	Remove(ctx context.Context, scenarioID, id, actor string) error
}

type DependencyService interface {
	Create(ctx context.Context, in app.DependencyInput, actor string) (*domain.Dependency, error)
	Update(ctx context.Context, id string, in app.DependencyInput, actor string) (*domain.Dependency, error)
	Delete(ctx context.Context, scenarioID, id, actor string) error
	// List returns the dependencies visible from the scenario.
	List(ctx context.Context, scenarioID, projectID string) ([]domain.Dependency, error)
}

type CascadeService interface {
	app.CascadeCalculateUseCase
	app.CascadeApplyUseCase
}

type MergeService interface {
	app.MergeUseCase
	app.ResolveConflictUseCase
	ListConflicts(ctx context.Context, sourceID, targetID string) ([]*domain.MergeConflict, error)
}
