package models

import "time"

// AuditEntry records one successful order mutation.
type AuditEntry struct {
	Service   string         `json:"service"`
	Action    string         `json:"action"`
	EntityID  string         `json:"entityId"`
	ActorID   string         `json:"actorId"`
	ActorRole Role           `json:"actorRole"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}
