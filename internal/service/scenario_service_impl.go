package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alexanderramin/planloom/internal/audit"
	"github.com/alexanderramin/planloom/internal/db"
	"github.com/alexanderramin/planloom/internal/domain"
	"github.com/alexanderramin/planloom/internal/overlay"
	"github.com/alexanderramin/planloom/internal/repository"
)

type scenarioService struct {
	core
}

func NewScenarioService(repos *repository.Repos, uow db.UnitOfWork, opts ...Option) ScenarioService {
	return &scenarioService{core: newCore(repos, uow, opts)}
}

func (s *scenarioService) CreateBaseline(ctx context.Context, name, createdBy string) (sc *domain.Scenario, err error) {
	startedAt := time.Now()
	defer func() { s.observe(ctx, "scenario-create-baseline", startedAt, nil, err) }()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Validation("scenario name is required")
	}
	now := s.now()
	sc = &domain.Scenario{
		ID:        uuid.New().String(),
		Name:      name,
		Status:    domain.ScenarioActive,
		Type:      domain.ScenarioBaseline,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.inTx(ctx, "creating baseline", func(ctx context.Context, r *repository.Repos) error {
		if existing, err := r.Scenarios.GetBaseline(ctx); err == nil {
			return domain.Validation("a baseline already exists", existing.ID)
		} else if !isNotFound(err) {
			return err
		}
		return r.Scenarios.Create(ctx, sc)
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, []audit.Entry{s.entry(domain.EntityScenario, sc.ID, sc.ID, "create", createdBy, nil, sc)})
	return sc, nil
}

// CreateBranch records the parent's effective view at branch time. That
// snapshot is the three-way merge base for the new scenario.
func (s *scenarioService) CreateBranch(ctx context.Context, parentID, name string, typ domain.ScenarioType, createdBy string) (sc *domain.Scenario, err error) {
	startedAt := time.Now()
	fields := map[string]any{"parent_id": parentID}
	defer func() { s.observe(ctx, "scenario-create-branch", startedAt, fields, err) }()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Validation("scenario name is required")
	}
	if typ == "" {
		typ = domain.ScenarioBranch
	}
	if !domain.ValidScenarioTypes[typ] {
		return nil, domain.Validation("invalid scenario type " + string(typ))
	}

	err = s.inTx(ctx, "creating branch", func(ctx context.Context, r *repository.Repos) error {
		parent, err := loadScenario(ctx, r, parentID)
		if err != nil {
			return err
		}
		if !parent.IsActive() {
			return domain.Validation("cannot branch from a "+string(parent.Status)+" scenario", parent.ID)
		}

		now := s.now()
		pid := parent.ID
		sc = &domain.Scenario{
			ID:               uuid.New().String(),
			Name:             name,
			ParentScenarioID: &pid,
			BranchPoint:      &now,
			Status:           domain.ScenarioActive,
			Type:             typ,
			CreatedBy:        createdBy,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := r.Scenarios.Create(ctx, sc); err != nil {
			return err
		}
		return s.snapshot(ctx, r, parent.ID, sc.ID, now)
	})
	if err != nil {
		return nil, err
	}
	fields["scenario_id"] = sc.ID
	s.emit(ctx, []audit.Entry{s.entry(domain.EntityScenario, sc.ID, sc.ID, "branch", createdBy, nil, sc)})
	return sc, nil
}

func (s *scenarioService) snapshot(ctx context.Context, r *repository.Repos, parentID, scenarioID string, at time.Time) error {
	res := s.resolver(r)
	projects, err := res.Projects(ctx, parentID)
	if err != nil {
		return err
	}
	phases, err := res.PhaseTimelines(ctx, parentID)
	if err != nil {
		return err
	}
	assignments, err := res.Assignments(ctx, parentID)
	if err != nil {
		return err
	}
	payloads := []struct {
		entityType domain.EntityType
		value      any
	}{
		{domain.EntityProject, nonNil(projects)},
		{domain.EntityPhaseTimeline, nonNil(phases)},
		{domain.EntityAssignment, nonNil(assignments)},
	}
	for _, p := range payloads {
		b, err := json.Marshal(p.value)
		if err != nil {
			return fmt.Errorf("encoding %s snapshot: %w", p.entityType, err)
		}
		if err := r.Snapshots.Save(ctx, scenarioID, p.entityType, b, at); err != nil {
			return err
		}
	}
	return nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func (s *scenarioService) Get(ctx context.Context, id string) (*domain.Scenario, error) {
	return loadScenario(ctx, s.repos, id)
}

func (s *scenarioService) List(ctx context.Context, includeInactive bool) ([]*domain.Scenario, error) {
	return s.repos.Scenarios.List(ctx, includeInactive)
}

func (s *scenarioService) Ancestors(ctx context.Context, id string) ([]*domain.Scenario, error) {
	if id == "" {
		b, err := loadScenario(ctx, s.repos, "")
		if err != nil {
			return nil, err
		}
		id = b.ID
	}
	chain, err := overlay.Chain(ctx, s.repos.Scenarios, id)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Scenario, len(chain))
	for i, sc := range chain {
		out[len(chain)-1-i] = sc
	}
	return out, nil
}

// Archive destroys the scenario's own delta rows and dependencies. The
// baseline and scenarios with active children cannot be archived.
func (s *scenarioService) Archive(ctx context.Context, id, actor string) (err error) {
	startedAt := time.Now()
	defer func() { s.observe(ctx, "scenario-archive", startedAt, map[string]any{"scenario_id": id}, err) }()

	var before *domain.Scenario
	err = s.inTx(ctx, "archiving scenario", func(ctx context.Context, r *repository.Repos) error {
		sc, err := loadActiveScenario(ctx, r, id)
		if err != nil {
			return err
		}
		if sc.IsBaseline() {
			return domain.Validation("the baseline cannot be archived", sc.ID)
		}
		children, err := r.Scenarios.ListChildren(ctx, sc.ID)
		if err != nil {
			return err
		}
		var active []string
		for _, c := range children {
			if c.IsActive() {
				active = append(active, c.ID)
			}
		}
		if len(active) > 0 {
			return domain.Validation("scenario has active child scenarios", active...)
		}
		before = sc

		if err := r.Projects.DeleteScenarioDeltas(ctx, sc.ID); err != nil {
			return err
		}
		if err := r.PhaseTimelines.DeleteScenarioDeltas(ctx, sc.ID); err != nil {
			return err
		}
		if err := r.Assignments.DeleteScenarioDeltas(ctx, sc.ID); err != nil {
			return err
		}
		if err := r.Dependencies.DeleteByScenario(ctx, sc.ID); err != nil {
			return err
		}
		return r.Scenarios.UpdateStatus(ctx, sc.ID, domain.ScenarioArchived)
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(id)
	after := *before
	after.Status = domain.ScenarioArchived
	s.emit(ctx, []audit.Entry{s.entry(domain.EntityScenario, id, id, "archive", actor, before, after)})
	return nil
}
