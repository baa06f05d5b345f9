package overlay

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexanderramin/planloom/internal/domain"
	"github.com/alexanderramin/planloom/internal/repository"
	"github.com/google/uuid"
)

// Writer applies copy-on-write edits for one entity kind. The baseline edits
// its base rows in place; every other scenario only ever touches its own
// delta rows.
type Writer[T domain.Entity[T]] struct {
	Store repository.EntityStore[T]
}

func NewWriter[T domain.Entity[T]](store repository.EntityStore[T]) Writer[T] {
	return Writer[T]{Store: store}
}

// Upsert writes e into scenario. inherited reports whether e's id is visible
// in the scenario's parent view (for the baseline: whether a base row exists).
// It returns the change type recorded.
func (w Writer[T]) Upsert(ctx context.Context, scenario *domain.Scenario, inherited bool, e T) (domain.ChangeType, error) {
	id := e.EntityKey()
	if scenario.IsBaseline() {
		if inherited {
			return domain.ChangeModified, w.Store.UpdateBase(ctx, e)
		}
		return domain.ChangeAdded, w.Store.InsertBase(ctx, e)
	}

	existing, err := w.Store.GetDelta(ctx, scenario.ID, id)
	switch {
	case err == nil:
		d := existing
		d.Payload = e
		if d.ChangeType == domain.ChangeRemoved {
			d.ChangeType = domain.ChangeModified
		}
		return d.ChangeType, w.Store.SaveDelta(ctx, d)
	case !errors.Is(err, domain.ErrNotFound):
		return "", fmt.Errorf("reading delta: %w", err)
	}

	d := domain.Delta[T]{
		ID:         uuid.New().String(),
		ScenarioID: scenario.ID,
		EntityID:   id,
		Payload:    e,
	}
	if inherited {
		base := id
		d.ChangeType = domain.ChangeModified
		d.BaseEntityID = &base
	} else {
		d.ChangeType = domain.ChangeAdded
	}
	return d.ChangeType, w.Store.SaveDelta(ctx, d)
}

// Remove deletes id from scenario's view. Removing an entity the scenario
// itself added drops the delta outright.
func (w Writer[T]) Remove(ctx context.Context, scenario *domain.Scenario, inherited bool, id string) error {
	if scenario.IsBaseline() {
		if !inherited {
			return fmt.Errorf("removing %s: %w", id, domain.ErrNotFound)
		}
		return w.Store.DeleteBase(ctx, id)
	}

	existing, err := w.Store.GetDelta(ctx, scenario.ID, id)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("reading delta: %w", err)
	}
	if err == nil {
		switch existing.ChangeType {
		case domain.ChangeAdded:
			return w.Store.DeleteDelta(ctx, scenario.ID, id)
		case domain.ChangeRemoved:
			return fmt.Errorf("removing %s: %w", id, domain.ErrNotFound)
		}
		var zero T
		existing.ChangeType = domain.ChangeRemoved
		existing.Payload = zero
		return w.Store.SaveDelta(ctx, existing)
	}

	if !inherited {
		return fmt.Errorf("removing %s: %w", id, domain.ErrNotFound)
	}
	base := id
	return w.Store.SaveDelta(ctx, domain.Delta[T]{
		ID:           uuid.New().String(),
		ScenarioID:   scenario.ID,
		EntityID:     id,
		ChangeType:   domain.ChangeRemoved,
		BaseEntityID: &base,
	})
}
