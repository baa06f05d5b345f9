package service

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/alexanderramin/planloom/internal/app"
	"github.com/alexanderramin/planloom/internal/audit"
	"github.com/alexanderramin/planloom/internal/db"
	"github.com/alexanderramin/planloom/internal/depgraph"
	"github.com/alexanderramin/planloom/internal/domain"
	"github.com/alexanderramin/planloom/internal/merge"
	"github.com/alexanderramin/planloom/internal/overlay"
	"github.com/alexanderramin/planloom/internal/repository"
)

type mergeService struct {
	core
}

func NewMergeService(repos *repository.Repos, uow db.UnitOfWork, opts ...Option) MergeService {
	return &mergeService{core: newCore(repos, uow, opts)}
}

// mergePlan is everything one merge attempt decided before writing.
type mergePlan struct {
	source      *domain.Scenario
	target      *domain.Scenario
	ancestor    string
	projects    *kindMerge[domain.Project]
	phases      *kindMerge[domain.PhaseTimeline]
	assignments *kindMerge[domain.Assignment]
	conflicts   []domain.MergeConflict
	adopted     []domain.Dependency
	attempt     *merge.Attempt
}

func (p *mergePlan) pending() bool {
	for _, c := range p.conflicts {
		if !c.Resolution.IsResolved() {
			return true
		}
	}
	return false
}

func (p *mergePlan) result(status app.MergeStatus) *app.MergeResult {
	conflicted := make(map[string]bool, len(p.conflicts))
	for _, c := range p.conflicts {
		conflicted[c.EntityID] = true
	}
	changes := p.projects.changes(conflicted)
	changes = append(changes, p.phases.changes(conflicted)...)
	changes = append(changes, p.assignments.changes(conflicted)...)

	trail := p.attempt.Trail()
	states := make([]string, len(trail))
	for i, st := range trail {
		states[i] = string(st)
	}
	classes := make(map[string]int)
	for _, counts := range []map[merge.Class]int{
		merge.Summary(p.projects.outcomes),
		merge.Summary(p.phases.outcomes),
		merge.Summary(p.assignments.outcomes),
	} {
		for class, n := range counts {
			classes[string(class)] += n
		}
	}
	conflicts := p.conflicts
	if conflicts == nil {
		conflicts = []domain.MergeConflict{}
	}
	return &app.MergeResult{
		Status:             status,
		SourceScenarioID:   p.source.ID,
		TargetScenarioID:   p.target.ID,
		AncestorScenarioID: p.ancestor,
		Changes:            changes,
		Conflicts:          conflicts,
		DependenciesAdded:  len(p.adopted),
		States:             states,
		Classes:            classes,
	}
}

// Preview classifies the merge without writing anything. Stored and
// requested resolutions are applied to the returned conflicts.
func (s *mergeService) Preview(ctx context.Context, req app.ScenarioMergeRequest) (result *app.MergeResult, err error) {
	startedAt := time.Now()
	fields := map[string]any{"source_scenario_id": req.SourceScenarioID}
	defer func() { s.observe(ctx, "merge-preview", startedAt, fields, err) }()

	source, targetID, err := s.mergePair(ctx, req)
	if err != nil {
		return nil, err
	}
	fields["target_scenario_id"] = targetID

	var plan *mergePlan
	err = s.inTx(ctx, "previewing merge", func(ctx context.Context, r *repository.Repos) error {
		p, err := s.prepare(ctx, r, source.ID, targetID, req)
		if err != nil {
			return err
		}
		plan = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	result = plan.result(app.MergeStatusPreview)
	fields["conflicts"] = len(result.Conflicts)
	return result, nil
}

// Merge runs one attempt under both scenarios' locks. Pending conflicts are
// stored and returned with status conflicts_pending and no entity writes.
// Otherwise every change lands on the target in one transaction and the
// source is marked merged.
func (s *mergeService) Merge(ctx context.Context, req app.ScenarioMergeRequest) (result *app.MergeResult, err error) {
	startedAt := time.Now()
	fields := map[string]any{"source_scenario_id": req.SourceScenarioID}
	defer func() { s.observe(ctx, "merge", startedAt, fields, err) }()

	source, targetID, err := s.mergePair(ctx, req)
	if err != nil {
		return nil, err
	}
	fields["target_scenario_id"] = targetID

	var (
		plan    *mergePlan
		entries []audit.Entry
	)
	err = s.withScenarioLocks(ctx, opMerge, []string{targetID, source.ID}, func() error {
		return s.inTx(ctx, "merging scenarios", func(ctx context.Context, r *repository.Repos) error {
			p, err := s.prepare(ctx, r, source.ID, targetID, req)
			if err != nil {
				return err
			}
			plan = p
			if p.pending() {
				if err := p.attempt.Advance(merge.Blocked); err != nil {
					return err
				}
				return s.saveConflicts(ctx, r, p)
			}
			if err := p.attempt.Advance(merge.Committing); err != nil {
				return err
			}
			if entries, err = s.commit(ctx, r, p, req.Actor); err != nil {
				return err
			}
			return p.attempt.Advance(merge.Merged)
		})
	})
	if err != nil {
		return nil, err
	}
	if !plan.attempt.Terminal() {
		return nil, domain.Persistence("merging scenarios", fmt.Errorf("merge attempt stopped in state %s", plan.attempt.State()))
	}

	if s.metrics != nil {
		for _, c := range plan.conflicts {
			s.metrics.MergeConflicts.WithLabelValues(string(c.ConflictType)).Inc()
		}
	}
	status := app.MergeStatusMerged
	if plan.attempt.State() == merge.Blocked {
		status = app.MergeStatusConflictsPending
	}
	result = plan.result(status)
	fields["status"] = string(status)
	fields["conflicts"] = len(result.Conflicts)
	fields["changes"] = len(result.Changes)
	s.emit(ctx, entries)
	return result, nil
}

// mergePair resolves the source and target ids outside any transaction so
// the locks can be taken first.
func (s *mergeService) mergePair(ctx context.Context, req app.ScenarioMergeRequest) (*domain.Scenario, string, error) {
	if req.SourceScenarioID == "" {
		return nil, "", domain.Validation("source_scenario_id is required")
	}
	source, err := loadScenario(ctx, s.repos, req.SourceScenarioID)
	if err != nil {
		return nil, "", err
	}
	targetID, err := mergeTargetID(source, req.TargetScenarioID)
	if err != nil {
		return nil, "", err
	}
	return source, targetID, nil
}

func mergeTargetID(source *domain.Scenario, requested string) (string, error) {
	if source.IsBaseline() {
		return "", domain.Validation("the baseline cannot be merged into another scenario", source.ID)
	}
	target := requested
	if target == "" {
		target = source.ParentID()
	}
	if target == source.ID {
		return "", domain.Validation("cannot merge a scenario into itself", source.ID)
	}
	return target, nil
}

func (s *mergeService) prepare(ctx context.Context, r *repository.Repos, sourceID, targetID string, req app.ScenarioMergeRequest) (*mergePlan, error) {
	source, err := loadActiveScenario(ctx, r, sourceID)
	if err != nil {
		return nil, err
	}
	target, err := loadActiveScenario(ctx, r, targetID)
	if err != nil {
		return nil, err
	}
	res := s.resolver(r)
	srcChain, err := res.ChainIDs(ctx, source.ID)
	if err != nil {
		return nil, err
	}
	tgtChain, err := res.ChainIDs(ctx, target.ID)
	if err != nil {
		return nil, err
	}
	ancestor := overlay.CommonAncestor(srcChain, tgtChain)
	if ancestor == "" {
		return nil, domain.AncestorNotFound(source.ID, target.ID)
	}
	ancChain, err := res.ChainIDs(ctx, ancestor)
	if err != nil {
		return nil, err
	}
	ch := mergeChains{
		source:        srcChain,
		target:        tgtChain,
		ancestor:      ancChain,
		snapshotOwner: snapshotOwner(srcChain, tgtChain, ancestor),
	}

	p := &mergePlan{source: source, target: target, ancestor: ancestor, attempt: merge.NewAttempt()}
	if p.projects, err = diffKind(ctx, r, projectKind, ch); err != nil {
		return nil, err
	}
	if p.phases, err = diffKind(ctx, r, phaseTimelineKind, ch); err != nil {
		return nil, err
	}
	if p.assignments, err = diffKind(ctx, r, assignmentKind, ch); err != nil {
		return nil, err
	}
	if err := p.attempt.Advance(merge.ConflictCollection); err != nil {
		return nil, err
	}

	if err := s.collectConflicts(ctx, r, p, req); err != nil {
		return nil, err
	}
	byType := make(map[domain.EntityType]map[string]domain.Resolution)
	for _, c := range p.conflicts {
		if !c.Resolution.IsResolved() {
			continue
		}
		if byType[c.EntityType] == nil {
			byType[c.EntityType] = make(map[string]domain.Resolution)
		}
		byType[c.EntityType][c.EntityID] = c.Resolution
	}
	if err := p.projects.plan(byType[domain.EntityProject]); err != nil {
		return nil, err
	}
	if err := p.phases.plan(byType[domain.EntityPhaseTimeline]); err != nil {
		return nil, err
	}
	if err := p.assignments.plan(byType[domain.EntityAssignment]); err != nil {
		return nil, err
	}
	if err := s.planDependencies(ctx, r, p, ch); err != nil {
		return nil, err
	}
	return p, nil
}

// snapshotOwner picks the child of the ancestor on the source side, or on
// the target side when the source is the ancestor itself. Its branch
// snapshot is the ancestor as both sides last agreed on it.
func snapshotOwner(src, tgt []string, ancestor string) string {
	if i := slices.Index(src, ancestor); i >= 0 && i+1 < len(src) {
		return src[i+1]
	}
	if i := slices.Index(tgt, ancestor); i >= 0 && i+1 < len(tgt) {
		return tgt[i+1]
	}
	return ""
}

type conflictKey struct {
	conflictType domain.ConflictType
	entityID     string
}

// collectConflicts builds the conflict set, keeping stored ids and any
// stored resolution whose three sides are unchanged, then layers the
// request's resolutions on top.
func (s *mergeService) collectConflicts(ctx context.Context, r *repository.Repos, p *mergePlan, req app.ScenarioMergeRequest) error {
	for _, conflicts := range []func(string, string) ([]domain.MergeConflict, error){
		p.projects.conflicts, p.phases.conflicts, p.assignments.conflicts,
	} {
		found, err := conflicts(p.source.ID, p.target.ID)
		if err != nil {
			return err
		}
		p.conflicts = append(p.conflicts, found...)
	}

	stored, err := r.Conflicts.ListByPair(ctx, p.source.ID, p.target.ID)
	if err != nil {
		return err
	}
	byKey := make(map[conflictKey]*domain.MergeConflict, len(stored))
	for _, c := range stored {
		byKey[conflictKey{c.ConflictType, c.EntityID}] = c
	}

	now := s.now()
	for i := range p.conflicts {
		c := &p.conflicts[i]
		old, ok := byKey[conflictKey{c.ConflictType, c.EntityID}]
		if !ok {
			c.ID = uuid.NewString()
			c.CreatedAt = now
		} else {
			c.ID, c.CreatedAt = old.ID, old.CreatedAt
			if old.Resolution.IsResolved() && old.SameSides(*c) {
				c.Resolution, c.ResolvedBy, c.ResolvedAt = old.Resolution, old.ResolvedBy, old.ResolvedAt
			}
		}

		if cr, ok := req.ConflictResolutions[c.EntityID]; ok {
			res, err := requestResolution(*c, cr)
			if err != nil {
				return err
			}
			setResolution(c, res, req.Actor, now)
		} else if req.ResolveConflicts && !c.Resolution.IsResolved() {
			setResolution(c, domain.Resolution{Kind: domain.ResolutionUseSource}, req.Actor, now)
		}
	}
	return nil
}

func setResolution(c *domain.MergeConflict, res domain.Resolution, actor string, at time.Time) {
	c.Resolution = res
	if !res.IsResolved() {
		c.ResolvedBy, c.ResolvedAt = "", nil
		return
	}
	c.ResolvedBy, c.ResolvedAt = actor, &at
}

// requestResolution turns a caller's decision into a stored resolution.
// use_base becomes manual with the base data, or a removal when the entity
// did not exist at the base.
func requestResolution(c domain.MergeConflict, cr app.ConflictResolution) (domain.Resolution, error) {
	if cr.Resolution == "use_base" {
		data := c.BaseData
		if len(data) == 0 {
			data = json.RawMessage("null")
		}
		return domain.Resolution{Kind: domain.ResolutionManual, Data: data}, nil
	}
	kind, ok := domain.ParseResolutionKind(cr.Resolution)
	if !ok {
		return domain.Resolution{}, domain.Validation("unknown resolution "+cr.Resolution, c.EntityID)
	}
	res := domain.Resolution{Kind: kind}
	if kind == domain.ResolutionManual {
		res.Data = cr.ResolvedData
	}
	if err := res.Validate(); err != nil {
		return domain.Resolution{}, err
	}
	if kind == domain.ResolutionManual {
		if err := checkManual(c.EntityType, c.EntityID, res.Data); err != nil {
			return domain.Resolution{}, err
		}
	}
	return res, nil
}

func checkManual(t domain.EntityType, entityID string, data json.RawMessage) error {
	var err error
	switch t {
	case domain.EntityProject:
		_, err = merge.DecodeManual[domain.Project](entityID, data)
	case domain.EntityPhaseTimeline:
		_, err = merge.DecodeManual[domain.PhaseTimeline](entityID, data)
	case domain.EntityAssignment:
		_, err = merge.DecodeManual[domain.Assignment](entityID, data)
	default:
		err = domain.Validation("conflicts on "+string(t)+" cannot be resolved manually", entityID)
	}
	return err
}

// planDependencies adopts every edge the source sees that the merged target
// would not, as long as both endpoints survive the merge in one project.
// The target graph must stay acyclic with the adopted edges.
func (s *mergeService) planDependencies(ctx context.Context, r *repository.Repos, p *mergePlan, ch mergeChains) error {
	srcPhases, err := overlay.Effective(ctx, r.PhaseTimelines, ch.source)
	if err != nil {
		return err
	}
	srcAll, err := r.Dependencies.ListByScenarios(ctx, ch.source)
	if err != nil {
		return err
	}
	tgtAll, err := r.Dependencies.ListByScenarios(ctx, ch.target)
	if err != nil {
		return err
	}
	after := p.phases.after()
	srcVisible := overlay.VisibleDependencies(ch.source, srcAll, "", srcPhases)
	tgtVisible := overlay.VisibleDependencies(ch.target, tgtAll, "", after)

	projectOf := make(map[string]string, len(after))
	for _, pt := range after {
		projectOf[pt.ID] = pt.ProjectID
	}
	hasEdge := func(set []domain.Dependency, d domain.Dependency) bool {
		for _, e := range set {
			if e.SameEdge(d) {
				return true
			}
		}
		return false
	}

	touched := make(map[string]bool)
	for _, d := range srcVisible {
		if hasEdge(tgtVisible, d) || hasEdge(p.adopted, d) {
			continue
		}
		pp, okP := projectOf[d.PredecessorID]
		sp, okS := projectOf[d.SuccessorID]
		if !okP || !okS || pp != sp {
			continue
		}
		nd := d
		nd.ID = uuid.NewString()
		nd.ScenarioID = p.target.ID
		nd.ProjectID = pp
		nd.CreatedAt = s.now()
		p.adopted = append(p.adopted, nd)
		touched[pp] = true
	}
	if len(touched) == 0 {
		return nil
	}

	byProject := make(map[string][]string)
	for _, pt := range after {
		byProject[pt.ProjectID] = append(byProject[pt.ProjectID], pt.ID)
	}
	projects := make([]string, 0, len(touched))
	for id := range touched {
		projects = append(projects, id)
	}
	sort.Strings(projects)
	all := append(append([]domain.Dependency(nil), tgtVisible...), p.adopted...)
	for _, id := range projects {
		if _, err := depgraph.Build(byProject[id], all); err != nil {
			return err
		}
	}
	return nil
}

// commit writes the plan into the target. Parents are upserted before
// children and removed after them.
func (s *mergeService) commit(ctx context.Context, r *repository.Repos, p *mergePlan, actor string) ([]audit.Entry, error) {
	var entries []audit.Entry
	res := s.resolver(r)
	projects, err := p.projects.open(ctx, &s.core, res, r, p.target, actor, &entries)
	if err != nil {
		return nil, err
	}
	phases, err := p.phases.open(ctx, &s.core, res, r, p.target, actor, &entries)
	if err != nil {
		return nil, err
	}
	assignments, err := p.assignments.open(ctx, &s.core, res, r, p.target, actor, &entries)
	if err != nil {
		return nil, err
	}
	for _, step := range []func(context.Context) error{
		projects.upserts, phases.upserts, assignments.upserts,
		assignments.removals, phases.removals, projects.removals,
	} {
		if err := step(ctx); err != nil {
			return nil, err
		}
	}

	for i := range p.adopted {
		d := &p.adopted[i]
		if err := r.Dependencies.Create(ctx, d); err != nil {
			return nil, err
		}
		entries = append(entries, s.entry(domain.EntityDependency, d.ID, p.target.ID, "merge", actor, nil, d))
	}

	if err := s.saveConflicts(ctx, r, p); err != nil {
		return nil, err
	}
	for _, c := range p.conflicts {
		entries = append(entries, s.entry(c.EntityType, c.EntityID, p.target.ID, "merge_resolution", actor, c.TargetData, c.Resolution))
	}

	if err := r.Scenarios.UpdateStatus(ctx, p.source.ID, domain.ScenarioMerged); err != nil {
		return nil, err
	}
	entries = append(entries, s.entry(domain.EntityScenario, p.source.ID, p.source.ID, "merged", actor,
		map[string]string{"status": string(domain.ScenarioActive)},
		map[string]string{"status": string(domain.ScenarioMerged), "target_scenario_id": p.target.ID},
	))
	return entries, nil
}

// saveConflicts stores the current conflict set and drops rows from earlier
// attempts that no longer conflict.
func (s *mergeService) saveConflicts(ctx context.Context, r *repository.Repos, p *mergePlan) error {
	keep := make(map[string]bool, len(p.conflicts))
	for i := range p.conflicts {
		if err := r.Conflicts.Save(ctx, &p.conflicts[i]); err != nil {
			return err
		}
		keep[p.conflicts[i].ID] = true
	}
	return r.Conflicts.DeleteStale(ctx, p.source.ID, p.target.ID, keep)
}

// ResolveConflict records a decision on a stored conflict ahead of the next
// merge attempt.
func (s *mergeService) ResolveConflict(ctx context.Context, conflictID string, cr app.ConflictResolution, actor string) (c *domain.MergeConflict, err error) {
	startedAt := time.Now()
	defer func() {
		s.observe(ctx, "merge-resolve", startedAt, map[string]any{"conflict_id": conflictID}, err)
	}()

	var entries []audit.Entry
	err = s.inTx(ctx, "resolving merge conflict", func(ctx context.Context, r *repository.Repos) error {
		cur, err := r.Conflicts.GetByID(ctx, conflictID)
		if err != nil {
			return notFoundAs(err, "merge conflict", conflictID)
		}
		src, err := loadScenario(ctx, r, cur.SourceScenarioID)
		if err != nil {
			return err
		}
		if src.Status == domain.ScenarioMerged {
			return domain.Validation("merge already committed", src.ID)
		}
		res, err := requestResolution(*cur, cr)
		if err != nil {
			return err
		}
		if !res.IsResolved() {
			return domain.Validation("resolution must be use_source, use_target, use_base or manual", conflictID)
		}
		if err := r.Conflicts.Resolve(ctx, cur.ID, res, actor, s.now()); err != nil {
			return notFoundAs(err, "merge conflict", conflictID)
		}
		if c, err = r.Conflicts.GetByID(ctx, cur.ID); err != nil {
			return err
		}
		entries = append(entries, s.entry(cur.EntityType, cur.EntityID, cur.TargetScenarioID, "resolve_conflict", actor, cur.Resolution, res))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, entries)
	return c, nil
}

// ListConflicts returns the stored conflicts for merging sourceID into
// targetID, which defaults to the source's parent.
func (s *mergeService) ListConflicts(ctx context.Context, sourceID, targetID string) ([]*domain.MergeConflict, error) {
	source, err := loadScenario(ctx, s.repos, sourceID)
	if err != nil {
		return nil, err
	}
	if targetID == "" {
		if targetID, err = mergeTargetID(source, ""); err != nil {
			return nil, err
		}
	}
	return s.repos.Conflicts.ListByPair(ctx, source.ID, targetID)
}
