package domain

import "time"

// Delta is one scenario-scoped overlay row. EntityID is the id of the
// effective entity; BaseEntityID is nil for added rows and equals EntityID
// otherwise. Payload is the zero value for removed rows.
type Delta[T any] struct {
	ID           string
	ScenarioID   string
	EntityID     string
	ChangeType   ChangeType
	BaseEntityID *string
	Payload      T
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (d Delta[T]) Validate() error {
	switch d.ChangeType {
	case ChangeAdded:
		if d.BaseEntityID != nil {
			return Validation("added delta must not reference a base entity", d.EntityID)
		}
	case ChangeModified, ChangeRemoved:
		if d.BaseEntityID == nil || *d.BaseEntityID == "" {
			return Validation(string(d.ChangeType)+" delta must reference a base entity", d.EntityID)
		}
	default:
		return Validation("invalid change type " + string(d.ChangeType))
	}
	if d.EntityID == "" || d.ScenarioID == "" {
		return Validation("delta requires scenario and entity ids")
	}
	return nil
}

// Target returns the id of the row this delta overlays or introduces.
func (d Delta[T]) Target() string {
	if d.BaseEntityID != nil {
		return *d.BaseEntityID
	}
	return d.EntityID
}
