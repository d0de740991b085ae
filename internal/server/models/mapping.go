package models

import "time"

const (
	ExternalEmployee = "employee"
	ExternalPayEntry = "pay_entry"
	ExternalHire     = "hire"
)

// SyncedRecordMapping resolves an external record to an internal entity.
// Once written it never changes.
type SyncedRecordMapping struct {
	ConnectionID string
	ExternalID   string
	ExternalType string
	InternalID   string
	CreatedAt    time.Time
}
