// Package models defines server-side data models persisted in the database.
package models

import "time"

type PortalStatus string

const (
	PortalActive      PortalStatus = "active"
	PortalMaintenance PortalStatus = "maintenance"
	PortalDisabled    PortalStatus = "disabled"
)

// PortalConfig describes how to reach one state agency. Secrets are stored
// as vault ciphertext: EncryptedCredentials holds a cryptox.Credentials pair,
// EncryptedChallenges the security question answers. EncryptedMFASecret is
// empty when the portal has no MFA. Portals are never deleted, only disabled.
type PortalConfig struct {
	ID           string
	Jurisdiction string
	Host         string
	Port         int
	RemoteDir    string
	Username     string
	HostKey      string

	EncryptedCredentials string
	EncryptedMFASecret   string
	MFAType              string
	EncryptedChallenges  string
	EncryptedBackupCodes string

	BatchSizeLimit int
	Cadence        string
	Status         PortalStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
