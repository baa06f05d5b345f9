package merge

import (
	"encoding/json"
	"fmt"

	"github.com/alexanderramin/planloom/internal/domain"
)

// Write is the final state the target must hold for one entity after a
// merge: Value nil means the entity is removed.
type Write[T domain.Entity[T]] struct {
	EntityID string
	Before   *T
	Value    *T
}

// NewConflict captures an outcome as a pending MergeConflict. The caller
// assigns the id.
func NewConflict[T domain.Entity[T]](o Outcome[T], entityType domain.EntityType, sourceID, targetID string) (domain.MergeConflict, error) {
	c := domain.MergeConflict{
		SourceScenarioID: sourceID,
		TargetScenarioID: targetID,
		ConflictType:     domain.ConflictTypeFor(entityType),
		EntityType:       entityType,
		EntityID:         o.EntityID,
		Resolution:       domain.Resolution{Kind: domain.ResolutionPending},
	}
	var err error
	if c.BaseData, err = encode(o.Base); err != nil {
		return c, err
	}
	if c.SourceData, err = encode(o.Source); err != nil {
		return c, err
	}
	if c.TargetData, err = encode(o.Target); err != nil {
		return c, err
	}
	return c, nil
}

func encode[T any](v *T) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding merge data: %w", err)
	}
	return b, nil
}

// Resolve turns a conflict outcome plus its resolution into a write.
// use_target yields ok=false since the target already holds its value.
func Resolve[T domain.Entity[T]](o Outcome[T], r domain.Resolution) (w Write[T], ok bool, err error) {
	w = Write[T]{EntityID: o.EntityID, Before: o.Target}
	switch r.Kind {
	case domain.ResolutionUseSource:
		w.Value = o.Source
		return w, true, nil
	case domain.ResolutionUseTarget:
		return w, false, nil
	case domain.ResolutionManual:
		v, err := DecodeManual[T](o.EntityID, r.Data)
		if err != nil {
			return w, false, err
		}
		w.Value = v
		return w, true, nil
	}
	return w, false, domain.Validation("conflict is still pending", o.EntityID)
}

// DecodeManual parses manual resolved data. JSON null means remove; the
// decoded entity keeps the conflicting entity's id whatever the payload says.
func DecodeManual[T domain.Entity[T]](entityID string, data json.RawMessage) (*T, error) {
	if len(data) == 0 {
		return nil, domain.Validation("manual resolution requires resolved data", entityID)
	}
	if string(data) == "null" {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, domain.Validation("manual resolution data does not decode: "+err.Error(), entityID)
	}
	if v.EntityKey() != entityID {
		fixed, err := withID(v, entityID)
		if err != nil {
			return nil, err
		}
		v = fixed
	}
	return &v, nil
}

// withID round-trips v through JSON with the id field overwritten. Every
// overlaid entity encodes its key as "id".
func withID[T any](v T, id string) (T, error) {
	var zero T
	b, err := json.Marshal(v)
	if err != nil {
		return zero, fmt.Errorf("encoding manual data: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return zero, fmt.Errorf("decoding manual data: %w", err)
	}
	m["id"] = id
	if b, err = json.Marshal(m); err != nil {
		return zero, fmt.Errorf("encoding manual data: %w", err)
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return zero, fmt.Errorf("decoding manual data: %w", err)
	}
	return out, nil
}

// Plan builds the writes for a set of outcomes. resolutions maps entity id
// to the decision for each conflict. It returns the writes plus the ids of
// conflicts that remain pending; when any are pending no write should be
// applied.
func Plan[T domain.Entity[T]](outcomes []Outcome[T], resolutions map[string]domain.Resolution) ([]Write[T], []string, error) {
	var writes []Write[T]
	var pending []string
	for _, o := range outcomes {
		if !o.NeedsWrite() {
			continue
		}
		switch o.Class {
		case SourceOnly:
			writes = append(writes, Write[T]{EntityID: o.EntityID, Before: o.Target, Value: o.Source})
		case Conflict:
			r, ok := resolutions[o.EntityID]
			if !ok || !r.IsResolved() {
				pending = append(pending, o.EntityID)
				continue
			}
			w, write, err := Resolve(o, r)
			if err != nil {
				return nil, nil, err
			}
			if write {
				writes = append(writes, w)
			}
		}
	}
	return writes, pending, nil
}
