package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/alexanderramin/planloom/internal/audit"
	"github.com/alexanderramin/planloom/internal/db"
	"github.com/alexanderramin/planloom/internal/domain"
	"github.com/alexanderramin/planloom/internal/overlay"
	"github.com/alexanderramin/planloom/internal/repository"
)

// core holds what every service shares: the non-transactional repos for
// reads outside a transaction, the unit of work and the options.
type core struct {
	repos    *repository.Repos
	uow      db.UnitOfWork
	observer UseCaseObserver
	options
}

func newCore(repos *repository.Repos, uow db.UnitOfWork, opts []Option) core {
	o := buildOptions(opts)
	return core{repos: repos, uow: uow, observer: combineObservers(o.observers), options: o}
}

func (c *core) resolver(r *repository.Repos) *overlay.Resolver {
	return overlay.NewResolver(r, c.cache)
}

// inTx runs fn against tx-scoped repositories. Store failures surface as
// PERSISTENCE_FAILURE; PlanErrors keep their code.
func (c *core) inTx(ctx context.Context, op string, fn func(ctx context.Context, r *repository.Repos) error) error {
	err := c.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return fn(ctx, repository.NewRepos(tx))
	})
	return domain.Persistence(op, err)
}

func (c *core) observe(ctx context.Context, name string, startedAt time.Time, fields map[string]any, err error) {
	c.observer.ObserveUseCase(ctx, UseCaseEvent{
		Name:      name,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
		Err:       err,
		Fields:    fields,
	})
}

// emit hands committed changes to the audit collaborator. Failures are
// logged and never returned.
func (c *core) emit(ctx context.Context, entries []audit.Entry) {
	for _, e := range entries {
		if err := c.sink.Record(ctx, e); err != nil {
			c.logger.WarnContext(ctx, "audit record failed",
				"entity_type", string(e.EntityType),
				"entity_id", e.EntityID,
				"error", err.Error(),
			)
		}
	}
}

func (c *core) entry(entityType domain.EntityType, entityID, scenarioID, action, actor string, oldValue, newValue any) audit.Entry {
	return audit.Entry{
		EntityType: entityType,
		EntityID:   entityID,
		ScenarioID: scenarioID,
		Action:     action,
		OldValue:   jsonValue(oldValue),
		NewValue:   jsonValue(newValue),
		Actor:      actor,
		At:         c.now(),
	}
}

// jsonValue encodes v for the change log; nil pointers encode as absent.
func jsonValue(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return nil
	}
	return b
}

// loadScenario fetches id, or the baseline when id is empty.
func loadScenario(ctx context.Context, r *repository.Repos, id string) (*domain.Scenario, error) {
	var (
		s   *domain.Scenario
		err error
	)
	if id == "" {
		s, err = r.Scenarios.GetBaseline(ctx)
	} else {
		s, err = r.Scenarios.GetByID(ctx, id)
	}
	if errors.Is(err, domain.ErrNotFound) {
		if id == "" {
			return nil, domain.ScenarioNotFound("baseline")
		}
		return nil, domain.ScenarioNotFound(id)
	}
	return s, err
}

// loadActiveScenario is loadScenario that also rejects archived and merged
// scenarios, which are read-only.
func loadActiveScenario(ctx context.Context, r *repository.Repos, id string) (*domain.Scenario, error) {
	s, err := loadScenario(ctx, r, id)
	if err != nil {
		return nil, err
	}
	if !s.IsActive() {
		return nil, domain.Validation("scenario is "+string(s.Status)+" and cannot be changed", s.ID)
	}
	return s, nil
}

// notFoundAs maps a repository miss onto a coded NOT_FOUND error.
func notFoundAs(err error, kind, id string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NotFound(kind, id)
	}
	return err
}

func actorOr(actor, fallback string) string {
	if actor != "" {
		return actor
	}
	return fallback
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
