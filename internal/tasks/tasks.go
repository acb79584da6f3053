// Package tasks defines the background task types and their payloads.
package tasks

import "encoding/json"

// Task type constants registered with the worker mux.
const (
	TypeMaintenancePurge = "maintenance:purge"
	TypeMaintenanceAudit = "maintenance:audit"
)

// MaintenancePayload is shared by both maintenance tasks. Reason records what
// triggered the run (scheduler tick or startup sweep) for the task log.
type MaintenancePayload struct {
	Reason string `json:"reason"`
}

// NewMaintenancePurgeTask builds the payload for a purge run.
func NewMaintenancePurgeTask(reason string) ([]byte, error) {
	return json.Marshal(MaintenancePayload{Reason: reason})
}

// NewMaintenanceAuditTask builds the payload for an integrity audit run.
func NewMaintenanceAuditTask(reason string) ([]byte, error) {
	return json.Marshal(MaintenancePayload{Reason: reason})
}
