package models

import "time"

// SubmissionLog records one upload attempt to a state portal.
type SubmissionLog struct {
	ID           string
	PortalID     string
	Jurisdiction string
	FileName     string
	RemotePath   string
	RecordCount  int
	Success      bool
	Error        string
	ArchiveKey   string
	CreatedAt    time.Time
}
