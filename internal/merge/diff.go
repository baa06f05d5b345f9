// Package merge classifies and reconciles three-way differences between a
// source scenario, a target scenario and their common ancestor.
package merge

import (
	"sort"

	"github.com/alexanderramin/planloom/internal/domain"
)

type Class string

const (
	Unchanged  Class = "unchanged"
	SourceOnly Class = "source_only"
	TargetOnly Class = "target_only"
	Converged  Class = "converged"
	Conflict   Class = "conflict"
)

// Outcome is the classification of one entity id. A nil side means the
// entity does not exist there.
type Outcome[T domain.Entity[T]] struct {
	EntityID string
	Class    Class
	Base     *T
	Source   *T
	Target   *T
}

// NeedsWrite reports whether adopting the outcome touches the target.
func (o Outcome[T]) NeedsWrite() bool {
	return o.Class == SourceOnly || o.Class == Conflict
}

// Diff classifies every entity id present in any of the three sets. The
// result is sorted by entity id so classification is order independent.
func Diff[T domain.Entity[T]](base, source, target []T) []Outcome[T] {
	b, s, t := index(base), index(source), index(target)

	ids := make(map[string]bool, len(b)+len(s)+len(t))
	for id := range b {
		ids[id] = true
	}
	for id := range s {
		ids[id] = true
	}
	for id := range t {
		ids[id] = true
	}
	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	out := make([]Outcome[T], 0, len(sorted))
	for _, id := range sorted {
		o := Outcome[T]{EntityID: id, Base: b[id], Source: s[id], Target: t[id]}
		o.Class = classify(o.Base, o.Source, o.Target)
		out = append(out, o)
	}
	return out
}

func classify[T domain.Entity[T]](base, source, target *T) Class {
	srcChanged := differs(base, source)
	tgtChanged := differs(base, target)
	switch {
	case !srcChanged && !tgtChanged:
		return Unchanged
	case srcChanged && !tgtChanged:
		return SourceOnly
	case !srcChanged && tgtChanged:
		return TargetOnly
	case !differs(source, target):
		return Converged
	default:
		return Conflict
	}
}

func differs[T domain.Entity[T]](a, b *T) bool {
	if a == nil || b == nil {
		return (a == nil) != (b == nil)
	}
	return !(*a).SameContent(*b)
}

func index[T domain.Entity[T]](items []T) map[string]*T {
	m := make(map[string]*T, len(items))
	for i := range items {
		e := items[i]
		m[e.EntityKey()] = &e
	}
	return m
}

// Summary counts outcomes per class.
func Summary[T domain.Entity[T]](outcomes []Outcome[T]) map[Class]int {
	m := make(map[Class]int)
	for _, o := range outcomes {
		m[o.Class]++
	}
	return m
}
