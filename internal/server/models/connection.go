package models

import "time"

type ConnectionStatus string

const (
	ConnectionActive   ConnectionStatus = "active"
	ConnectionDisabled ConnectionStatus = "disabled"
)

// SyncConnection links an employer to an external payroll, ATS or HRIS
// account. ProviderKind is resolved from ProviderID when the connection is
// created and stored alongside it.
type SyncConnection struct {
	ID                   string
	EmployerID           string
	ProviderID           string
	ProviderKind         string
	EncryptedCredentials string
	LastSyncAt           *time.Time
	Status               ConnectionStatus
	CreatedAt            time.Time
}
