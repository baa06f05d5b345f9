package domain

import (
	"encoding/json"
	"time"
)

// Resolution is the tagged decision attached to a merge conflict. Data is
// only meaningful for ResolutionManual, where it holds the entity to write
// (JSON null meaning "remove").
type Resolution struct {
	Kind ResolutionKind  `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
}

func (r Resolution) IsResolved() bool {
	return r.Kind == ResolutionUseSource || r.Kind == ResolutionUseTarget || r.Kind == ResolutionManual
}

func (r Resolution) Validate() error {
	switch r.Kind {
	case ResolutionPending, ResolutionUseSource, ResolutionUseTarget:
		return nil
	case ResolutionManual:
		if len(r.Data) == 0 {
			return Validation("manual resolution requires resolved data")
		}
		if !json.Valid(r.Data) {
			return Validation("manual resolution data is not valid JSON")
		}
		return nil
	}
	return Validation("invalid resolution " + string(r.Kind))
}

// MergeConflict records an entity both sides changed differently since
// their common ancestor. A nil data field means the entity is absent on
// that side.
type MergeConflict struct {
	ID               string          `json:"id"`
	SourceScenarioID string          `json:"source_scenario_id"`
	TargetScenarioID string          `json:"target_scenario_id"`
	ConflictType     ConflictType    `json:"conflict_type"`
	EntityType       EntityType      `json:"entity_type"`
	EntityID         string          `json:"entity_id"`
	BaseData         json.RawMessage `json:"base_data"`
	SourceData       json.RawMessage `json:"source_data"`
	TargetData       json.RawMessage `json:"target_data"`
	Resolution       Resolution      `json:"resolution"`
	ResolvedBy       string          `json:"resolved_by,omitempty"`
	ResolvedAt       *time.Time      `json:"resolved_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// SameSides reports whether o captured the same three versions as c, which
// lets a retried merge keep an earlier resolution.
func (c MergeConflict) SameSides(o MergeConflict) bool {
	return jsonEqual(c.BaseData, o.BaseData) &&
		jsonEqual(c.SourceData, o.SourceData) &&
		jsonEqual(c.TargetData, o.TargetData)
}

func jsonEqual(a, b json.RawMessage) bool {
	if isJSONNull(a) || isJSONNull(b) {
		return isJSONNull(a) && isJSONNull(b)
	}
	var va, vb any
	if json.Unmarshal(a, &va) != nil || json.Unmarshal(b, &vb) != nil {
		return string(a) == string(b)
	}
	ca, _ := json.Marshal(va)
	cb, _ := json.Marshal(vb)
	return string(ca) == string(cb)
}

func isJSONNull(m json.RawMessage) bool {
	return len(m) == 0 || string(m) == "null"
}
