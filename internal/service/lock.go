package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/alexanderramin/planloom/internal/domain"
)

const (
	opCascade = "cascade"
	opMerge   = "merge"
)

// withScenarioLocks takes the advisory lock of every scenario in ids for op,
// runs fn and releases them. Acquisition never waits: a held lock fails fast
// with the concurrency code of the operation holding it.
func (c *core) withScenarioLocks(ctx context.Context, op string, ids []string, fn func() error) error {
	token := uuid.NewString()
	var held []string
	defer func() {
		rctx := context.WithoutCancel(ctx)
		for _, id := range held {
			if err := c.repos.Locks.Release(rctx, id, token); err != nil {
				c.logger.WarnContext(rctx, "releasing scenario lock", "scenario_id", id, "error", err.Error())
			}
		}
	}()

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		ok, err := c.repos.Locks.TryAcquire(ctx, id, op, token, c.now(), c.lockTTL)
		if err != nil {
			return domain.Persistence("acquiring scenario lock", err)
		}
		if !ok {
			return c.lockConflict(ctx, id, op)
		}
		held = append(held, id)
	}
	return fn()
}

func (c *core) lockConflict(ctx context.Context, scenarioID, requested string) error {
	holder := requested
	if l, err := c.repos.Locks.Get(ctx, scenarioID); err == nil {
		holder = l.Operation
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Persistence("reading scenario lock", err)
	}
	if holder == opMerge {
		return domain.ConcurrentMerge(scenarioID)
	}
	return domain.ConcurrentCascade(scenarioID)
}
