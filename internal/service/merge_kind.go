package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alexanderramin/planloom/internal/app"
	"github.com/alexanderramin/planloom/internal/audit"
	"github.com/alexanderramin/planloom/internal/domain"
	"github.com/alexanderramin/planloom/internal/merge"
	"github.com/alexanderramin/planloom/internal/overlay"
	"github.com/alexanderramin/planloom/internal/repository"
)

// mergeChains are the root-first chains of one merge attempt.
type mergeChains struct {
	source, target, ancestor []string
	// snapshotOwner is the scenario whose branch snapshot is the merge
	// base, or "" to use the ancestor's live view.
	snapshotOwner string
}

// kindMerge is the three-way state of one entity kind.
type kindMerge[T domain.Entity[T]] struct {
	kind     kind[T]
	target   []T
	outcomes []merge.Outcome[T]
	writes   []merge.Write[T]
}

func diffKind[T domain.Entity[T]](ctx context.Context, r *repository.Repos, k kind[T], ch mergeChains) (*kindMerge[T], error) {
	store := k.store(r)
	base, err := mergeBase(ctx, r, k, ch)
	if err != nil {
		return nil, err
	}
	// The source keeps its own edits of rows the target side removed, so
	// they meet the removal as a conflict instead of vanishing.
	source, err := overlay.EffectiveDiverged(ctx, store, ch.source, len(ch.ancestor))
	if err != nil {
		return nil, err
	}
	target, err := overlay.Effective(ctx, store, ch.target)
	if err != nil {
		return nil, err
	}
	return &kindMerge[T]{kind: k, target: target, outcomes: merge.Diff(base, source, target)}, nil
}

func mergeBase[T domain.Entity[T]](ctx context.Context, r *repository.Repos, k kind[T], ch mergeChains) ([]T, error) {
	if ch.snapshotOwner != "" {
		payload, err := r.Snapshots.Get(ctx, ch.snapshotOwner, k.entityType)
		switch {
		case err == nil:
			var items []T
			if err := json.Unmarshal(payload, &items); err != nil {
				return nil, fmt.Errorf("decoding %s snapshot of %s: %w", k.entityType, ch.snapshotOwner, err)
			}
			return items, nil
		case !isNotFound(err):
			return nil, err
		}
	}
	return overlay.Effective(ctx, k.store(r), ch.ancestor)
}

func (m *kindMerge[T]) conflicts(sourceID, targetID string) ([]domain.MergeConflict, error) {
	var out []domain.MergeConflict
	for _, o := range m.outcomes {
		if o.Class != merge.Conflict {
			continue
		}
		c, err := merge.NewConflict(o, m.kind.entityType, sourceID, targetID)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// plan decides the writes given the resolved conflicts, keyed by entity id.
func (m *kindMerge[T]) plan(resolutions map[string]domain.Resolution) error {
	writes, _, err := merge.Plan(m.outcomes, resolutions)
	if err != nil {
		return err
	}
	m.writes = writes
	return nil
}

func (m *kindMerge[T]) changes(conflicted map[string]bool) []app.MergeChange {
	out := make([]app.MergeChange, 0, len(m.writes))
	for _, w := range m.writes {
		ct := domain.ChangeModified
		switch {
		case w.Value == nil:
			ct = domain.ChangeRemoved
		case w.Before == nil:
			ct = domain.ChangeAdded
		}
		out = append(out, app.MergeChange{
			EntityType:   m.kind.entityType,
			EntityID:     w.EntityID,
			ChangeType:   ct,
			FromConflict: conflicted[w.EntityID],
		})
	}
	return out
}

// after returns the target set as it will look once the writes land.
func (m *kindMerge[T]) after() []T {
	idx := make(map[string]int, len(m.target))
	out := append([]T(nil), m.target...)
	for i, e := range out {
		idx[e.EntityKey()] = i
	}
	removed := make(map[string]bool)
	for _, w := range m.writes {
		if w.Value == nil {
			removed[w.EntityID] = true
			continue
		}
		delete(removed, w.EntityID)
		if i, ok := idx[w.EntityID]; ok {
			out[i] = *w.Value
			continue
		}
		idx[w.EntityID] = len(out)
		out = append(out, *w.Value)
	}
	if len(removed) == 0 {
		return out
	}
	kept := out[:0]
	for _, e := range out {
		if !removed[e.EntityKey()] {
			kept = append(kept, e)
		}
	}
	return kept
}

// kindCommit writes one kind's plan into the target. Upserts and removals
// run as separate steps so parents are inserted before children and
// removed after them.
type kindCommit[T domain.Entity[T]] struct {
	m       *kindMerge[T]
	v       *view[T]
	c       *core
	actor   string
	entries *[]audit.Entry
}

func (m *kindMerge[T]) open(ctx context.Context, c *core, res *overlay.Resolver, r *repository.Repos, target *domain.Scenario, actor string, entries *[]audit.Entry) (*kindCommit[T], error) {
	v, err := loadView(ctx, res, r, target, m.kind)
	if err != nil {
		return nil, err
	}
	return &kindCommit[T]{m: m, v: v, c: c, actor: actor, entries: entries}, nil
}

func (k *kindCommit[T]) upserts(ctx context.Context) error {
	for _, w := range k.m.writes {
		if w.Value == nil {
			continue
		}
		if _, err := k.v.upsert(ctx, *w.Value); err != nil {
			return fmt.Errorf("merging %s %s: %w", k.m.kind.label, w.EntityID, err)
		}
		*k.entries = append(*k.entries, k.c.entry(k.m.kind.entityType, w.EntityID, k.v.scenario.ID, "merge", k.actor, w.Before, w.Value))
	}
	return nil
}

func (k *kindCommit[T]) removals(ctx context.Context) error {
	for _, w := range k.m.writes {
		if w.Value != nil {
			continue
		}
		if _, ok := k.v.get(w.EntityID); !ok {
			continue
		}
		if err := k.v.remove(ctx, w.EntityID); err != nil {
			return fmt.Errorf("merging %s %s: %w", k.m.kind.label, w.EntityID, err)
		}
		*k.entries = append(*k.entries, k.c.entry(k.m.kind.entityType, w.EntityID, k.v.scenario.ID, "merge", k.actor, w.Before, nil))
	}
	return nil
}
