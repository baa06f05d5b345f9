package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alexanderramin/planloom/internal/app"
	"github.com/alexanderramin/planloom/internal/audit"
	"github.com/alexanderramin/planloom/internal/db"
	"github.com/alexanderramin/planloom/internal/domain"
	"github.com/alexanderramin/planloom/internal/repository"
)

type phaseTimelineService struct {
	core
}

func NewPhaseTimelineService(repos *repository.Repos, uow db.UnitOfWork, opts ...Option) PhaseTimelineService {
	return &phaseTimelineService{core: newCore(repos, uow, opts)}
}

func (s *phaseTimelineService) Create(ctx context.Context, scenarioID string, in app.PhaseTimelineInput, actor string) (pt *domain.PhaseTimeline, err error) {
	startedAt := time.Now()
	defer func() { s.observe(ctx, "phase-create", startedAt, map[string]any{"scenario_id": scenarioID}, err) }()

	name := strings.TrimSpace(in.Phase)
	if name == "" {
		return nil, domain.Validation("phase name is required")
	}
	start, err := domain.ParseDate(in.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := domain.ParseDate(in.EndDate)
	if err != nil {
		return nil, err
	}

	var entries []audit.Entry
	err = s.inTx(ctx, "creating phase timeline", func(ctx context.Context, r *repository.Repos) error {
		sc, err := loadActiveScenario(ctx, r, scenarioID)
		if err != nil {
			return err
		}
		res := s.resolver(r)
		projects, err := loadView(ctx, res, r, sc, projectKind)
		if err != nil {
			return err
		}
		if _, err := projects.mustGet(in.ProjectID); err != nil {
			return err
		}
		phase, err := ensurePhase(ctx, r, name)
		if err != nil {
			return err
		}

		v, err := loadView(ctx, res, r, sc, phaseTimelineKind)
		if err != nil {
			return err
		}
		for _, existing := range v.items {
			if existing.ProjectID == in.ProjectID && existing.PhaseID == phase.ID {
				return domain.Validation("project already schedules phase "+phase.Name, existing.ID)
			}
		}
		pt = &domain.PhaseTimeline{
			ID:        uuid.New().String(),
			ProjectID: in.ProjectID,
			PhaseID:   phase.ID,
			StartDate: start,
			EndDate:   end,
		}
		if err := pt.Validate(); err != nil {
			return err
		}
		if _, err := v.upsert(ctx, *pt); err != nil {
			return err
		}
		entries = append(entries, s.entry(domain.EntityPhaseTimeline, pt.ID, sc.ID, "create", actor, nil, pt))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, entries)
	return pt, nil
}

// ensurePhase finds a catalog phase by name, appending it when missing.
func ensurePhase(ctx context.Context, r *repository.Repos, name string) (*domain.Phase, error) {
	phase, err := r.Phases.GetByName(ctx, name)
	if err == nil {
		return phase, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	order, err := r.Phases.NextSortOrder(ctx)
	if err != nil {
		return nil, err
	}
	phase = &domain.Phase{ID: uuid.New().String(), Name: name, SortOrder: order}
	if err := r.Phases.Create(ctx, phase); err != nil {
		return nil, err
	}
	return phase, nil
}

func (s *phaseTimelineService) Get(ctx context.Context, scenarioID, id string) (*domain.PhaseTimeline, error) {
	sc, err := loadScenario(ctx, s.repos, scenarioID)
	if err != nil {
		return nil, err
	}
	items, err := s.resolver(s.repos).PhaseTimelines(ctx, sc.ID)
	if err != nil {
		return nil, err
	}
	for _, pt := range items {
		if pt.ID == id {
			return &pt, nil
		}
	}
	return nil, domain.NotFound("phase timeline", id)
}

func (s *phaseTimelineService) ListByProject(ctx context.Context, scenarioID, projectID string) ([]domain.PhaseTimeline, error) {
	sc, err := loadScenario(ctx, s.repos, scenarioID)
	if err != nil {
		return nil, err
	}
	if projectID == "" {
		return s.resolver(s.repos).PhaseTimelines(ctx, sc.ID)
	}
	return s.resolver(s.repos).ProjectPhases(ctx, sc.ID, projectID)
}

func (s *phaseTimelineService) Update(ctx context.Context, scenarioID, id string, in app.PhaseTimelineInput, actor string) (pt *domain.PhaseTimeline, err error) {
	startedAt := time.Now()
	defer func() { s.observe(ctx, "phase-update", startedAt, map[string]any{"scenario_id": scenarioID}, err) }()

	var entries []audit.Entry
	err = s.inTx(ctx, "updating phase timeline", func(ctx context.Context, r *repository.Repos) error {
		sc, err := loadActiveScenario(ctx, r, scenarioID)
		if err != nil {
			return err
		}
		v, err := loadView(ctx, s.resolver(r), r, sc, phaseTimelineKind)
		if err != nil {
			return err
		}
		before, err := v.mustGet(id)
		if err != nil {
			return err
		}
		after := before
		if in.StartDate != "" {
			if after.StartDate, err = domain.ParseDate(in.StartDate); err != nil {
				return err
			}
		}
		if in.EndDate != "" {
			if after.EndDate, err = domain.ParseDate(in.EndDate); err != nil {
				return err
			}
		}
		if err := after.Validate(); err != nil {
			return err
		}
		pt = &after
		if before.SameContent(after) {
			return nil
		}
		if _, err := v.upsert(ctx, after); err != nil {
			return err
		}
		entries = append(entries, s.entry(domain.EntityPhaseTimeline, id, sc.ID, "update", actor, before, after))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, entries)
	return pt, nil
}

func (s *phaseTimelineService) Remove(ctx context.Context, scenarioID, id, actor string) (err error) {
	startedAt := time.Now()
	defer func() { s.observe(ctx, "phase-remove", startedAt, map[string]any{"scenario_id": scenarioID}, err) }()

	var entries []audit.Entry
	err = s.inTx(ctx, "removing phase timeline", func(ctx context.Context, r *repository.Repos) error {
		sc, err := loadActiveScenario(ctx, r, scenarioID)
		if err != nil {
			return err
		}
		v, err := loadView(ctx, s.resolver(r), r, sc, phaseTimelineKind)
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
		entries = append(entries, s.entry(domain.EntityPhaseTimeline, id, sc.ID, "remove", actor, before, nil))
		return nil
	})
	if err != nil {
		return err
	}
	s.emit(ctx, entries)
	return nil
}

func (s *phaseTimelineService) Catalog(ctx context.Context) ([]*domain.Phase, error) {
	return s.repos.Phases.List(ctx)
}
