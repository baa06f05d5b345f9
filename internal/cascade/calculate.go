// Package cascade recomputes phase dates along a dependency graph. It is
// pure: callers load the effective view, call Calculate, and persist the
// result themselves.
package cascade

import (
	"time"

	"github.com/alexanderramin/planloom/internal/depgraph"
	"github.com/alexanderramin/planloom/internal/domain"
)

// Options tunes Calculate. The zero value schedules as soon as possible:
// each successor starts at its earliest dependency-driven date, which can
// pull it earlier than it starts today.
type Options struct {
	// PushOnly keeps successors from moving earlier than their current start.
	PushOnly bool
}

// Change is one phase whose proposed dates differ from its current dates.
type Change struct {
	PhaseTimelineID string
	CurrentStart    time.Time
	CurrentEnd      time.Time
	ProposedStart   time.Time
	ProposedEnd     time.Time
}

func (c Change) Shift() int {
	return domain.DaysBetween(c.CurrentStart, c.ProposedStart)
}

type span struct {
	start, end time.Time
}

// Calculate seeds changedID with the new dates and propagates them to every
// transitively dependent phase. Only the seed may change duration. When a
// phase has several predecessors the latest candidate wins. Output is in
// topological order and contains only phases whose dates moved.
func Calculate(g *depgraph.Graph, phases []domain.PhaseTimeline, changedID string, newStart, newEnd time.Time, opts Options) ([]Change, error) {
	current := make(map[string]span, len(phases))
	for _, p := range phases {
		current[p.ID] = span{domain.Day(p.StartDate), domain.Day(p.EndDate)}
	}
	if _, ok := current[changedID]; !ok || !g.Has(changedID) {
		return nil, domain.NotFound("phase timeline", changedID)
	}
	if err := domain.ValidateDateRange(newStart, newEnd, changedID); err != nil {
		return nil, err
	}

	proposed := make(map[string]span, len(current))
	for id, s := range current {
		proposed[id] = s
	}
	proposed[changedID] = span{domain.Day(newStart), domain.Day(newEnd)}

	affected := g.Reachable(changedID)
	// A DAG settles after one pass in topological order; the extra passes
	// only exist to detect a graph that never settles.
	limit := g.Len() + 1
	for pass := 0; ; pass++ {
		if pass > limit {
			return nil, domain.CyclicDependency(affected)
		}
		moved := false
		for _, id := range affected {
			next, ok := schedule(g, id, current[id], proposed, opts)
			if !ok {
				continue
			}
			if !next.start.Equal(proposed[id].start) || !next.end.Equal(proposed[id].end) {
				proposed[id] = next
				moved = true
			}
		}
		if !moved {
			break
		}
	}

	order := append([]string{changedID}, affected...)
	var changes []Change
	for _, id := range order {
		cur, prop := current[id], proposed[id]
		if cur.start.Equal(prop.start) && cur.end.Equal(prop.end) {
			continue
		}
		changes = append(changes, Change{
			PhaseTimelineID: id,
			CurrentStart:    cur.start,
			CurrentEnd:      cur.end,
			ProposedStart:   prop.start,
			ProposedEnd:     prop.end,
		})
	}
	return changes, nil
}

// schedule computes the dates of id from its predecessors' proposed dates.
func schedule(g *depgraph.Graph, id string, cur span, proposed map[string]span, opts Options) (span, bool) {
	duration := domain.DaysBetween(cur.start, cur.end)
	var best time.Time
	found := false
	for _, e := range g.Incoming(id) {
		pred, ok := proposed[e.From]
		if !ok {
			continue
		}
		start := candidateStart(e, pred, duration)
		if !found || start.After(best) {
			best = start
			found = true
		}
	}
	if !found {
		return span{}, false
	}
	if opts.PushOnly && best.Before(cur.start) {
		best = cur.start
	}
	return span{best, domain.AddDays(best, duration)}, true
}

// candidateStart applies one edge. Dates are inclusive days, so
// finish-to-start begins the day after the predecessor ends.
func candidateStart(e depgraph.Edge, pred span, duration int) time.Time {
	switch e.Type {
	case domain.StartToStart:
		return domain.AddDays(pred.start, e.LagDays)
	case domain.FinishToFinish:
		return domain.AddDays(pred.end, e.LagDays-duration)
	case domain.StartToFinish:
		return domain.AddDays(pred.start, e.LagDays-duration)
	default:
		return domain.AddDays(pred.end, 1+e.LagDays)
	}
}
