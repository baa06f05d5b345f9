package service

import (
	"context"
	"sort"
	"time"

	"github.com/alexanderramin/planloom/internal/app"
	"github.com/alexanderramin/planloom/internal/audit"
	"github.com/alexanderramin/planloom/internal/cascade"
	"github.com/alexanderramin/planloom/internal/db"
	"github.com/alexanderramin/planloom/internal/domain"
	"github.com/alexanderramin/planloom/internal/repository"
)

type cascadeService struct {
	core
}

func NewCascadeService(repos *repository.Repos, uow db.UnitOfWork, opts ...Option) CascadeService {
	return &cascadeService{core: newCore(repos, uow, opts)}
}

// Calculate previews a date change. Nothing is written; the transaction
// only pins a consistent read of the scenario.
func (s *cascadeService) Calculate(ctx context.Context, req app.CascadeCalculateRequest) (resp *app.CascadeCalculateResponse, err error) {
	startedAt := time.Now()
	fields := map[string]any{"scenario_id": req.ScenarioID, "phase_timeline_id": req.PhaseTimelineID}
	defer func() { s.observe(ctx, "cascade-calculate", startedAt, fields, err) }()

	if req.PhaseTimelineID == "" {
		return nil, domain.Validation("phase_timeline_id is required")
	}
	newEnd, err := domain.ParseDate(req.NewEndDate)
	if err != nil {
		return nil, err
	}
	var newStart *time.Time
	if req.NewStartDate != nil && *req.NewStartDate != "" {
		t, err := domain.ParseDate(*req.NewStartDate)
		if err != nil {
			return nil, err
		}
		newStart = &t
	}

	err = s.inTx(ctx, "calculating cascade", func(ctx context.Context, r *repository.Repos) error {
		sc, err := loadScenario(ctx, r, req.ScenarioID)
		if err != nil {
			return err
		}
		res := s.resolver(r)
		all, err := res.PhaseTimelines(ctx, sc.ID)
		if err != nil {
			return err
		}
		var changed *domain.PhaseTimeline
		for i := range all {
			if all[i].ID == req.PhaseTimelineID {
				changed = &all[i]
				break
			}
		}
		if changed == nil {
			return domain.NotFound("phase timeline", req.PhaseTimelineID)
		}
		start := changed.StartDate
		if newStart != nil {
			start = *newStart
		}
		if err := domain.ValidateDateRange(start, newEnd, changed.ID); err != nil {
			return err
		}

		sched, err := loadProjectSchedule(ctx, res, r, sc.ID, changed.ProjectID)
		if err != nil {
			return err
		}
		g, err := sched.graph()
		if err != nil {
			return err
		}
		changes, err := cascade.Calculate(g, sched.phases, changed.ID, start, newEnd, cascade.Options{PushOnly: s.pushOnly})
		if err != nil {
			return err
		}
		resp = &app.CascadeCalculateResponse{
			ScenarioID: sc.ID,
			ProjectID:  changed.ProjectID,
			Changes:    toCascadeChanges(changes),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	fields["changes"] = len(resp.Changes)
	return resp, nil
}

func toCascadeChanges(changes []cascade.Change) []app.CascadeChange {
	out := make([]app.CascadeChange, 0, len(changes))
	for _, c := range changes {
		out = append(out, app.CascadeChange{
			PhaseTimelineID: c.PhaseTimelineID,
			NewStartDate:    domain.FormatDate(c.ProposedStart),
			NewEndDate:      domain.FormatDate(c.ProposedEnd),
			CurrentStart:    domain.FormatDate(c.CurrentStart),
			CurrentEnd:      domain.FormatDate(c.CurrentEnd),
			ShiftDays:       c.Shift(),
		})
	}
	return out
}

type parsedChange struct {
	id         string
	start, end time.Time
}

// Apply commits a batch of phase dates atomically under the scenario's
// cascade lock. Any malformed or unknown entry rejects the whole batch with
// PARTIAL_FAILURE before anything is written. Entries equal to the current
// effective dates are skipped.
func (s *cascadeService) Apply(ctx context.Context, req app.CascadeApplyRequest) (resp *app.CascadeApplyResponse, err error) {
	startedAt := time.Now()
	fields := map[string]any{"scenario_id": req.ScenarioID, "requested": len(req.Changes)}
	defer func() { s.observe(ctx, "cascade-apply", startedAt, fields, err) }()

	parsed, failed, reasons := parseCascadeBatch(req.Changes)
	if len(failed) > 0 {
		return nil, domain.PartialFailure(failed, reasons)
	}

	sc, err := loadScenario(ctx, s.repos, req.ScenarioID)
	if err != nil {
		return nil, err
	}
	resp = &app.CascadeApplyResponse{ScenarioID: sc.ID}
	if len(parsed) == 0 {
		return resp, nil
	}

	var entries []audit.Entry
	err = s.withScenarioLocks(ctx, opCascade, []string{sc.ID}, func() error {
		return s.inTx(ctx, "applying cascade", func(ctx context.Context, r *repository.Repos) error {
			active, err := loadActiveScenario(ctx, r, sc.ID)
			if err != nil {
				return err
			}
			res := s.resolver(r)
			v, err := loadView(ctx, res, r, active, phaseTimelineKind)
			if err != nil {
				return err
			}

			var unknown []string
			for _, c := range parsed {
				if _, ok := v.get(c.id); !ok {
					unknown = append(unknown, c.id)
				}
			}
			if len(unknown) > 0 {
				return domain.PartialFailure(unknown, []string{"phase timeline not found in scenario"})
			}

			if err := s.checkAcyclic(ctx, r, active, v, parsed); err != nil {
				return err
			}

			for _, c := range parsed {
				before, _ := v.get(c.id)
				after := before
				after.StartDate, after.EndDate = c.start, c.end
				if before.SameContent(after) {
					continue
				}
				ct, err := v.upsert(ctx, after)
				if err != nil {
					return err
				}
				resp.Applied++
				if ct != "" && !active.IsBaseline() {
					resp.Deltas++
				}
				entries = append(entries, s.entry(domain.EntityPhaseTimeline, c.id, active.ID, "cascade", req.Actor, before, after))
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	fields["applied"] = resp.Applied
	if s.metrics != nil {
		s.metrics.CascadeChanges.Observe(float64(resp.Applied))
	}
	s.emit(ctx, entries)
	return resp, nil
}

// parseCascadeBatch validates every entry up front and reports all failing
// ids at once.
func parseCascadeBatch(changes []app.CascadeChange) ([]parsedChange, []string, []string) {
	var (
		parsed  []parsedChange
		failed  []string
		reasons []string
	)
	seen := make(map[string]bool, len(changes))
	for _, c := range changes {
		if c.PhaseTimelineID == "" {
			failed = append(failed, "")
			reasons = append(reasons, "missing phase_timeline_id")
			continue
		}
		if seen[c.PhaseTimelineID] {
			failed = append(failed, c.PhaseTimelineID)
			reasons = append(reasons, c.PhaseTimelineID+": listed twice")
			continue
		}
		seen[c.PhaseTimelineID] = true
		start, err := domain.ParseDate(c.NewStartDate)
		if err != nil {
			failed = append(failed, c.PhaseTimelineID)
			reasons = append(reasons, c.PhaseTimelineID+": "+err.Error())
			continue
		}
		end, err := domain.ParseDate(c.NewEndDate)
		if err != nil {
			failed = append(failed, c.PhaseTimelineID)
			reasons = append(reasons, c.PhaseTimelineID+": "+err.Error())
			continue
		}
		if err := domain.ValidateDateRange(start, end, c.PhaseTimelineID); err != nil {
			failed = append(failed, c.PhaseTimelineID)
			reasons = append(reasons, c.PhaseTimelineID+": start after end")
			continue
		}
		parsed = append(parsed, parsedChange{id: c.PhaseTimelineID, start: start, end: end})
	}
	return parsed, failed, reasons
}

// checkAcyclic re-validates the graph of every project the batch touches.
func (s *cascadeService) checkAcyclic(ctx context.Context, r *repository.Repos, sc *domain.Scenario, v *view[domain.PhaseTimeline], batch []parsedChange) error {
	projects := make(map[string]bool)
	for _, c := range batch {
		pt, _ := v.get(c.id)
		projects[pt.ProjectID] = true
	}
	ids := make([]string, 0, len(projects))
	for id := range projects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	res := s.resolver(r)
	for _, projectID := range ids {
		sched, err := loadProjectSchedule(ctx, res, r, sc.ID, projectID)
		if err != nil {
			return err
		}
		if _, err := sched.graph(); err != nil {
			return err
		}
	}
	return nil
}
