package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alexanderramin/planloom/internal/audit"
	"github.com/alexanderramin/planloom/internal/db"
	"github.com/alexanderramin/planloom/internal/domain"
	"github.com/alexanderramin/planloom/internal/overlay"
	"github.com/alexanderramin/planloom/internal/repository"
)

type projectService struct {
	core
}

func NewProjectService(repos *repository.Repos, uow db.UnitOfWork, opts ...Option) ProjectService {
	return &projectService{core: newCore(repos, uow, opts)}
}

func (s *projectService) Create(ctx context.Context, scenarioID string, p *domain.Project, actor string) (err error) {
	startedAt := time.Now()
	defer func() { s.observe(ctx, "project-create", startedAt, map[string]any{"scenario_id": scenarioID}, err) }()

	p.Name = strings.TrimSpace(p.Name)
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = domain.ProjectActive
	}
	if err = p.Validate(); err != nil {
		return err
	}

	var entries []audit.Entry
	err = s.inTx(ctx, "creating project", func(ctx context.Context, r *repository.Repos) error {
		sc, err := loadActiveScenario(ctx, r, scenarioID)
		if err != nil {
			return err
		}
		v, err := loadView(ctx, s.resolver(r), r, sc, projectKind)
		if err != nil {
			return err
		}
		if _, exists := v.get(p.ID); exists {
			return domain.Validation("project already exists", p.ID)
		}
		if _, err := v.upsert(ctx, *p); err != nil {
			return err
		}
		entries = append(entries, s.entry(domain.EntityProject, p.ID, sc.ID, "create", actor, nil, p))
		return nil
	})
	if err != nil {
		return err
	}
	s.emit(ctx, entries)
	return nil
}

func (s *projectService) Get(ctx context.Context, scenarioID, id string) (*domain.Project, error) {
	items, err := s.List(ctx, scenarioID)
	if err != nil {
		return nil, err
	}
	for _, p := range items {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, domain.NotFound("project", id)
}

func (s *projectService) List(ctx context.Context, scenarioID string) ([]domain.Project, error) {
	sc, err := loadScenario(ctx, s.repos, scenarioID)
	if err != nil {
		return nil, err
	}
	return s.resolver(s.repos).Projects(ctx, sc.ID)
}

func (s *projectService) Update(ctx context.Context, scenarioID string, p *domain.Project, actor string) (err error) {
	startedAt := time.Now()
	defer func() { s.observe(ctx, "project-update", startedAt, map[string]any{"scenario_id": scenarioID}, err) }()

	p.Name = strings.TrimSpace(p.Name)
	if err = p.Validate(); err != nil {
		return err
	}
	var entries []audit.Entry
	err = s.inTx(ctx, "updating project", func(ctx context.Context, r *repository.Repos) error {
		sc, err := loadActiveScenario(ctx, r, scenarioID)
		if err != nil {
			return err
		}
		v, err := loadView(ctx, s.resolver(r), r, sc, projectKind)
		if err != nil {
			return err
		}
		before, err := v.mustGet(p.ID)
		if err != nil {
			return err
		}
		if before.SameContent(*p) {
			return nil
		}
		if _, err := v.upsert(ctx, *p); err != nil {
			return err
		}
		entries = append(entries, s.entry(domain.EntityProject, p.ID, sc.ID, "update", actor, before, p))
		return nil
	})
	if err != nil {
		return err
	}
	s.emit(ctx, entries)
	return nil
}

func (s *projectService) Remove(ctx context.Context, scenarioID, id, actor string) (err error) {
	startedAt := time.Now()
	fields := map[string]any{"scenario_id": scenarioID, "project_id": id}
	defer func() { s.observe(ctx, "project-remove", startedAt, fields, err) }()

	var entries []audit.Entry
	err = s.inTx(ctx, "removing project", func(ctx context.Context, r *repository.Repos) error {
		sc, err := loadActiveScenario(ctx, r, scenarioID)
		if err != nil {
			return err
		}
		res := s.resolver(r)
		projects, err := loadView(ctx, res, r, sc, projectKind)
		if err != nil {
			return err
		}
		before, err := projects.mustGet(id)
		if err != nil {
			return err
		}

		phases, err := removeOwned(ctx, &s.core, res, r, sc, phaseTimelineKind, id, func(pt domain.PhaseTimeline) string { return pt.ProjectID }, actor, &entries)
		if err != nil {
			return err
		}
		assignments, err := removeOwned(ctx, &s.core, res, r, sc, assignmentKind, id, func(a domain.Assignment) string { return a.ProjectID }, actor, &entries)
		if err != nil {
			return err
		}
		fields["children_removed"] = phases + assignments

		if err := projects.remove(ctx, id); err != nil {
			return err
		}
		entries = append(entries, s.entry(domain.EntityProject, id, sc.ID, "remove", actor, before, nil))
		return nil
	})
	if err != nil {
		return err
	}
	s.emit(ctx, entries)
	return nil
}

// removeOwned removes every entity of k whose owner is projectID from the
// scenario's view.
func removeOwned[T domain.Entity[T]](ctx context.Context, c *core, res *overlay.Resolver, r *repository.Repos, sc *domain.Scenario, k kind[T], projectID string, owner func(T) string, actor string, entries *[]audit.Entry) (int, error) {
	v, err := loadView(ctx, res, r, sc, k)
	if err != nil {
		return 0, err
	}
	var doomed []T
	for _, e := range v.items {
		if owner(e) == projectID {
			doomed = append(doomed, e)
		}
	}
	for _, e := range doomed {
		if err := v.remove(ctx, e.EntityKey()); err != nil {
			return 0, err
		}
		*entries = append(*entries, c.entry(k.entityType, e.EntityKey(), sc.ID, "remove", actor, e, nil))
	}
	return len(doomed), nil
}
