package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alexanderramin/planloom/internal/audit"
	"github.com/alexanderramin/planloom/internal/db"
	"github.com/alexanderramin/planloom/internal/domain"
	"github.com/alexanderramin/planloom/internal/repository"
)

type assignmentService struct {
	core
}

func NewAssignmentService(repos *repository.Repos, uow db.UnitOfWork, opts ...Option) AssignmentService {
	return &assignmentService{core: newCore(repos, uow, opts)}
}

func (s *assignmentService) Create(ctx context.Context, scenarioID string, a *domain.Assignment, actor string) (err error) {
	startedAt := time.Now()
	defer func() { s.observe(ctx, "assignment-create", startedAt, map[string]any{"scenario_id": scenarioID}, err) }()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.Role = strings.TrimSpace(a.Role)
	if err = a.Validate(); err != nil {
		return err
	}
	var entries []audit.Entry
	err = s.inTx(ctx, "creating assignment", func(ctx context.Context, r *repository.Repos) error {
		sc, err := loadActiveScenario(ctx, r, scenarioID)
		if err != nil {
			return err
		}
		v, err := s.writableView(ctx, r, sc, a)
		if err != nil {
			return err
		}
		if _, exists := v.get(a.ID); exists {
			return domain.Validation("assignment already exists", a.ID)
		}
		if _, err := v.upsert(ctx, *a); err != nil {
			return err
		}
		entries = append(entries, s.entry(domain.EntityAssignment, a.ID, sc.ID, "create", actor, nil, a))
		return nil
	})
	if err != nil {
		return err
	}
	s.emit(ctx, entries)
	return nil
}

// writableView checks a's project and person exist for sc and returns the
// assignment view to write into.
func (s *assignmentService) writableView(ctx context.Context, r *repository.Repos, sc *domain.Scenario, a *domain.Assignment) (*view[domain.Assignment], error) {
	res := s.resolver(r)
	projects, err := loadView(ctx, res, r, sc, projectKind)
	if err != nil {
		return nil, err
	}
	if _, err := projects.mustGet(a.ProjectID); err != nil {
		return nil, err
	}
	if _, err := r.People.GetByID(ctx, a.PersonID); err != nil {
		return nil, notFoundAs(err, "person", a.PersonID)
	}
	return loadView(ctx, res, r, sc, assignmentKind)
}

func (s *assignmentService) Get(ctx context.Context, scenarioID, id string) (*domain.Assignment, error) {
	items, err := s.List(ctx, scenarioID, "")
	if err != nil {
		return nil, err
	}
	for _, a := range items {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, domain.NotFound("assignment", id)
}

func (s *assignmentService) List(ctx context.Context, scenarioID, projectID string) ([]domain.Assignment, error) {
	sc, err := loadScenario(ctx, s.repos, scenarioID)
	if err != nil {
		return nil, err
	}
	all, err := s.resolver(s.repos).Assignments(ctx, sc.ID)
	if err != nil || projectID == "" {
		return all, err
	}
	var out []domain.Assignment
	for _, a := range all {
		if a.ProjectID == projectID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *assignmentService) Update(ctx context.Context, scenarioID string, a *domain.Assignment, actor string) (err error) {
	startedAt := time.Now()
	defer func() { s.observe(ctx, "assignment-update", startedAt, map[string]any{"scenario_id": scenarioID}, err) }()

	a.Role = strings.TrimSpace(a.Role)
	if err = a.Validate(); err != nil {
		return err
	}
	var entries []audit.Entry
	err = s.inTx(ctx, "updating assignment", func(ctx context.Context, r *repository.Repos) error {
		sc, err := loadActiveScenario(ctx, r, scenarioID)
		if err != nil {
			return err
		}
		v, err := s.writableView(ctx, r, sc, a)
		if err != nil {
			return err
		}
		before, err := v.mustGet(a.ID)
		if err != nil {
			return err
		}
		if before.SameContent(*a) {
			return nil
		}
		if _, err := v.upsert(ctx, *a); err != nil {
			return err
		}
		entries = append(entries, s.entry(domain.EntityAssignment, a.ID, sc.ID, "update", actor, before, a))
		return nil
	})
	if err != nil {
		return err
	}
	s.emit(ctx, entries)
	return nil
}

func (s *assignmentService) Remove(ctx context.Context, scenarioID, id, actor string) (err error) {
	startedAt := time.Now()
	defer func() { s.observe(ctx, "assignment-remove", startedAt, map[string]any{"scenario_id": scenarioID}, err) }()

	var entries []audit.Entry
	err = s.inTx(ctx, "removing assignment", func(ctx context.Context, r *repository.Repos) error {
		sc, err := loadActiveScenario(ctx, r, scenarioID)
		if err != nil {
			return err
		}
		v, err := loadView(ctx, s.resolver(r), r, sc, assignmentKind)
		if err != nil {
			return err
		}
		before, err := v.mustGet(id)
		if err != nil {
			return err
		}
		if err := v.remove(ctx, id); err != nil {
			return err
		}
		entries = append(entries, s.entry(domain.EntityAssignment, id, sc.ID, "remove", actor, before, nil))
		return nil
	})
	if err != nil {
		return err
	}
	s.emit(ctx, entries)
	return nil
}
