package models

import (
	"encoding/json"
	"time"
)

// Document is a tenant-scoped JSON record in a named collection.
type Document struct {
	Collection string          `db:"collection" json:"collection"`
	ID         string          `db:"id" json:"id"`
	TenantID   *string         `db:"tenant_id" json:"tenantId,omitempty"`
	Body       json.RawMessage `db:"body" json:"body"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updatedAt"`
}

// DocumentChange is the before/after pair of an update.
type DocumentChange struct {
	Before json.RawMessage `json:"before,omitempty"`
	After  json.RawMessage `json:"after,omitempty"`
}

// PlannedMutation is one concrete write against the document store, derived
// from an action and, for dual-controlled actions, from its descriptor.
type PlannedMutation struct {
	TenantID   *string         `json:"tenantId,omitempty"`
	ActionKey  string          `json:"actionKey"`
	Collection string          `json:"collection"`
	RecordID   string          `json:"recordId"`
	Patch      json.RawMessage `json:"patch,omitempty"`
}
