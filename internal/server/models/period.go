package models

import "time"

const SourceManual = "manual"

// SyncSource tags a period written by a connector for provider.
func SyncSource(provider string) string { return "sync:" + provider }

// PeriodRecord holds hours and wages for one employee in one pay period.
// At most one row exists per (EmployeeID, PeriodStart, PeriodEnd).
type PeriodRecord struct {
	ID           string
	EmployeeID   string
	EmployerID   string
	PeriodStart  time.Time
	PeriodEnd    time.Time
	Hours        float64
	Wages        float64
	Source       string
	ConnectionID string
	UpdatedAt    time.Time
}
