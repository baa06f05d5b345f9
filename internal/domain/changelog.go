package domain

import (
	"encoding/json"
	"time"
)

// ChangeEntry is one record handed to the audit collaborator.
type ChangeEntry struct {
	EntityType EntityType      `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	ScenarioID string          `json:"scenario_id"`
	Action     string          `json:"action"`
	OldValue   json.RawMessage `json:"old_value,omitempty"`
	NewValue   json.RawMessage `json:"new_value,omitempty"`
	Actor      string          `json:"actor"`
	At         time.Time       `json:"at"`
}
