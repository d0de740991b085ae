package models

import "time"

type SyncStatus string

const (
	SyncPending    SyncStatus = "pending"
	SyncProcessing SyncStatus = "processing"
	SyncCompleted  SyncStatus = "completed"
	SyncFailed     SyncStatus = "failed"
)

// SyncLog is one job execution. It is inserted as processing and finalized
// exactly once.
type SyncLog struct {
	ID           string
	ConnectionID string
	EmployerID   string
	ProviderID   string
	JobType      string
	Status       SyncStatus
	StartedAt    time.Time
	CompletedAt  *time.Time
	Processed    int
	Created      int
	Updated      int
	Failed       int
	ErrorDetail  string
	Attempts     int
}

// Duration is zero for unfinished jobs.
func (l *SyncLog) Duration() time.Duration {
	if l.CompletedAt == nil {
		return 0
	}
	return l.CompletedAt.Sub(l.StartedAt)
}
