package service

import (
	"context"

	"github.com/alexanderramin/planloom/internal/domain"
	"github.com/alexanderramin/planloom/internal/overlay"
	"github.com/alexanderramin/planloom/internal/repository"
)

// kind binds an overlaid entity type to its store.
type kind[T domain.Entity[T]] struct {
	entityType domain.EntityType
	label      string
	store      func(*repository.Repos) repository.EntityStore[T]
}

var (
	projectKind = kind[domain.Project]{
		entityType: domain.EntityProject,
		label:      "project",
		store:      func(r *repository.Repos) repository.EntityStore[domain.Project] { return r.Projects },
	}
	phaseTimelineKind = kind[domain.PhaseTimeline]{
		entityType: domain.EntityPhaseTimeline,
		label:      "phase timeline",
		store:      func(r *repository.Repos) repository.EntityStore[domain.PhaseTimeline] { return r.PhaseTimelines },
	}
	assignmentKind = kind[domain.Assignment]{
		entityType: domain.EntityAssignment,
		label:      "assignment",
		store:      func(r *repository.Repos) repository.EntityStore[domain.Assignment] { return r.Assignments },
	}
)

// view is one scenario's effective set of an entity kind, plus which ids
// its parent sees. Writes go through the copy-on-write writer and keep the
// in-memory set current.
type view[T domain.Entity[T]] struct {
	scenario  *domain.Scenario
	kind      kind[T]
	writer    overlay.Writer[T]
	items     []T
	index     map[string]T
	inherited map[string]bool
}

func loadView[T domain.Entity[T]](ctx context.Context, res *overlay.Resolver, r *repository.Repos, s *domain.Scenario, k kind[T]) (*view[T], error) {
	chain, err := res.ChainIDs(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	store := k.store(r)
	items, err := overlay.Effective(ctx, store, chain)
	if err != nil {
		return nil, err
	}
	v := &view[T]{
		scenario:  s,
		kind:      k,
		writer:    overlay.NewWriter(store),
		items:     items,
		index:     overlay.Index(items),
		inherited: make(map[string]bool),
	}
	parent := items
	if !s.IsBaseline() {
		if parent, err = overlay.Effective(ctx, store, chain[:len(chain)-1]); err != nil {
			return nil, err
		}
	}
	for _, e := range parent {
		v.inherited[e.EntityKey()] = true
	}
	return v, nil
}

func (v *view[T]) get(id string) (T, bool) {
	e, ok := v.index[id]
	return e, ok
}

// mustGet returns a coded NOT_FOUND for ids outside the view.
func (v *view[T]) mustGet(id string) (T, error) {
	e, ok := v.index[id]
	if !ok {
		return e, domain.NotFound(v.kind.label, id)
	}
	return e, nil
}

func (v *view[T]) upsert(ctx context.Context, e T) (domain.ChangeType, error) {
	id := e.EntityKey()
	ct, err := v.writer.Upsert(ctx, v.scenario, v.inherited[id], e)
	if err != nil {
		return "", err
	}
	if _, ok := v.index[id]; !ok {
		v.items = append(v.items, e)
	} else {
		for i := range v.items {
			if v.items[i].EntityKey() == id {
				v.items[i] = e
				break
			}
		}
	}
	v.index[id] = e
	if v.scenario.IsBaseline() {
		v.inherited[id] = true
	}
	return ct, nil
}

func (v *view[T]) remove(ctx context.Context, id string) error {
	if err := v.writer.Remove(ctx, v.scenario, v.inherited[id], id); err != nil {
		return notFoundAs(err, v.kind.label, id)
	}
	delete(v.index, id)
	if v.scenario.IsBaseline() {
		delete(v.inherited, id)
	}
	for i := range v.items {
		if v.items[i].EntityKey() == id {
			v.items = append(v.items[:i], v.items[i+1:]...)
			break
		}
	}
	return nil
}
