package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/alexanderramin/planloom/internal/app"
	"github.com/alexanderramin/planloom/internal/audit"
	"github.com/alexanderramin/planloom/internal/db"
	"github.com/alexanderramin/planloom/internal/depgraph"
	"github.com/alexanderramin/planloom/internal/domain"
	"github.com/alexanderramin/planloom/internal/repository"
)

type dependencyService struct {
	core
}

func NewDependencyService(repos *repository.Repos, uow db.UnitOfWork, opts ...Option) DependencyService {
	return &dependencyService{core: newCore(repos, uow, opts)}
}

// Create adds an edge owned by in.ScenarioID. Both endpoints must be
// effective phases of the same project and the edge must keep the
// project's graph acyclic, in that scenario and in every active scenario
// branched below it.
func (s *dependencyService) Create(ctx context.Context, in app.DependencyInput, actor string) (d *domain.Dependency, err error) {
	startedAt := time.Now()
	fields := map[string]any{"scenario_id": in.ScenarioID}
	defer func() { s.observe(ctx, "dependency-create", startedAt, fields, err) }()

	typ := domain.DependencyType(in.DependencyType)
	if typ == "" {
		typ = domain.FinishToStart
	}
	d = &domain.Dependency{
		ID:            uuid.New().String(),
		ProjectID:     in.ProjectID,
		PredecessorID: in.PredecessorPhaseTimelineID,
		SuccessorID:   in.SuccessorPhaseTimelineID,
		Type:          typ,
		LagDays:       in.LagDays,
		CreatedAt:     s.now(),
	}
	if err = d.Validate(); err != nil {
		return nil, err
	}

	var entries []audit.Entry
	err = s.inTx(ctx, "creating dependency", func(ctx context.Context, r *repository.Repos) error {
		sc, err := loadActiveScenario(ctx, r, in.ScenarioID)
		if err != nil {
			return err
		}
		d.ScenarioID = sc.ID
		res := s.resolver(r)

		all, err := res.PhaseTimelines(ctx, sc.ID)
		if err != nil {
			return err
		}
		var pred, succ *domain.PhaseTimeline
		for i := range all {
			switch all[i].ID {
			case d.PredecessorID:
				pred = &all[i]
			case d.SuccessorID:
				succ = &all[i]
			}
		}
		if pred == nil {
			return domain.Validation("predecessor phase does not exist in scenario", d.PredecessorID)
		}
		if succ == nil {
			return domain.Validation("successor phase does not exist in scenario", d.SuccessorID)
		}
		if pred.ProjectID != succ.ProjectID {
			return domain.Validation("predecessor and successor belong to different projects", d.PredecessorID, d.SuccessorID)
		}
		if d.ProjectID == "" {
			d.ProjectID = pred.ProjectID
		} else if d.ProjectID != pred.ProjectID {
			return domain.Validation("phases do not belong to project "+d.ProjectID, d.PredecessorID, d.SuccessorID)
		}
		fields["project_id"] = d.ProjectID

		sched, err := loadProjectSchedule(ctx, res, r, sc.ID, d.ProjectID)
		if err != nil {
			return err
		}
		for _, existing := range sched.deps {
			if existing.SameEdge(*d) {
				return domain.Validation("dependency already exists", existing.ID)
			}
		}
		if err := depgraph.CheckCandidate(sched.phaseIDs(), sched.deps, *d); err != nil {
			return err
		}
		if err := checkDescendants(ctx, res, r, sc.ID, *d); err != nil {
			return err
		}
		if err := r.Dependencies.Create(ctx, d); err != nil {
			return err
		}
		entries = append(entries, s.entry(domain.EntityDependency, d.ID, sc.ID, "create", actor, nil, d))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, entries)
	return d, nil
}

// Update changes type and lag of a dependency owned by in.ScenarioID.
func (s *dependencyService) Update(ctx context.Context, id string, in app.DependencyInput, actor string) (d *domain.Dependency, err error) {
	startedAt := time.Now()
	defer func() { s.observe(ctx, "dependency-update", startedAt, map[string]any{"dependency_id": id}, err) }()

	var entries []audit.Entry
	err = s.inTx(ctx, "updating dependency", func(ctx context.Context, r *repository.Repos) error {
		sc, before, err := s.owned(ctx, r, in.ScenarioID, id)
		if err != nil {
			return err
		}
		after := *before
		if in.DependencyType != "" {
			after.Type = domain.DependencyType(in.DependencyType)
		}
		after.LagDays = in.LagDays
		if err := after.Validate(); err != nil {
			return err
		}
		d = &after
		if after.Type == before.Type && after.LagDays == before.LagDays {
			return nil
		}

		res := s.resolver(r)
		sched, err := loadProjectSchedule(ctx, res, r, sc.ID, after.ProjectID)
		if err != nil {
			return err
		}
		others := make([]domain.Dependency, 0, len(sched.deps))
		for _, dep := range sched.deps {
			if dep.ID != id {
				others = append(others, dep)
			}
		}
		if err := depgraph.CheckCandidate(sched.phaseIDs(), others, after); err != nil {
			return err
		}
		if err := checkDescendants(ctx, res, r, sc.ID, after); err != nil {
			return err
		}
		if err := r.Dependencies.Update(ctx, &after); err != nil {
			return notFoundAs(err, "dependency", id)
		}
		entries = append(entries, s.entry(domain.EntityDependency, id, sc.ID, "update", actor, before, after))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, entries)
	return d, nil
}

func (s *dependencyService) Delete(ctx context.Context, scenarioID, id, actor string) (err error) {
	startedAt := time.Now()
	defer func() { s.observe(ctx, "dependency-delete", startedAt, map[string]any{"dependency_id": id}, err) }()

	var entries []audit.Entry
	err = s.inTx(ctx, "deleting dependency", func(ctx context.Context, r *repository.Repos) error {
		sc, before, err := s.owned(ctx, r, scenarioID, id)
		if err != nil {
			return err
		}
		if err := r.Dependencies.Delete(ctx, id); err != nil {
			return notFoundAs(err, "dependency", id)
		}
		entries = append(entries, s.entry(domain.EntityDependency, id, sc.ID, "delete", actor, before, nil))
		return nil
	})
	if err != nil {
		return err
	}
	s.emit(ctx, entries)
	return nil
}

// owned loads dependency id and checks scenarioID owns it. Descendants see
// inherited edges but cannot change them.
func (s *dependencyService) owned(ctx context.Context, r *repository.Repos, scenarioID, id string) (*domain.Scenario, *domain.Dependency, error) {
	sc, err := loadActiveScenario(ctx, r, scenarioID)
	if err != nil {
		return nil, nil, err
	}
	d, err := r.Dependencies.GetByID(ctx, id)
	if err != nil {
		return nil, nil, notFoundAs(err, "dependency", id)
	}
	if d.ScenarioID != sc.ID {
		return nil, nil, domain.Validation("dependency is owned by scenario "+d.ScenarioID, id)
	}
	return sc, d, nil
}

func (s *dependencyService) List(ctx context.Context, scenarioID, projectID string) ([]domain.Dependency, error) {
	sc, err := loadScenario(ctx, s.repos, scenarioID)
	if err != nil {
		return nil, err
	}
	res := s.resolver(s.repos)
	phases, err := res.PhaseTimelines(ctx, sc.ID)
	if err != nil {
		return nil, err
	}
	return res.Dependencies(ctx, sc.ID, projectID, phases)
}
