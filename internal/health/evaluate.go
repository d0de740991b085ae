// Package health derives connection health and fleet metrics from sync
// log history.
package health

import (
	"fmt"
	"math"
	"time"

	"github.com/dmitrijs2005/wotcsync/internal/server/models"
)

type Status string

const (
	StatusHealthy      Status = "healthy"
	StatusDegraded     Status = "degraded"
	StatusCritical     Status = "critical"
	StatusDisconnected Status = "disconnected"
)

func (s Status) rank() int {
	switch s {
	case StatusDegraded:
		return 1
	case StatusCritical:
		return 2
	case StatusDisconnected:
		return 3
	}
	return 0
}

// Window is the trailing period health is computed over.
const Window = 24 * time.Hour

const (
	criticalHours    = 48
	degradedHours    = 24
	criticalRate     = 50.0
	degradedRate     = 80.0
	criticalFailures = 10
	degradedFailures = 5
)

// Health is the state of one connection over the trailing Window.
// SuccessRate is a percentage of finished syncs.
type Health struct {
	ConnectionID       string     `json:"connection_id"`
	EmployerID         string     `json:"employer_id"`
	Provider           string     `json:"provider"`
	Status             Status     `json:"status"`
	LastSyncAt         *time.Time `json:"last_sync_at,omitempty"`
	HoursSinceLastSync float64    `json:"hours_since_last_sync"`
	TotalSyncs24h      int        `json:"total_syncs_24h"`
	FailedSyncs24h     int        `json:"failed_syncs_24h"`
	SuccessRate        float64    `json:"success_rate"`
	AvgDurationSeconds float64    `json:"avg_duration_seconds"`
	RecordsSynced24h   int        `json:"records_synced_24h"`
	Issues             []string   `json:"issues"`
}

// Evaluate computes health at now from the connection and its sync logs.
// Logs older than Window are ignored, as are logs still in progress.
func Evaluate(now time.Time, conn *models.SyncConnection, logs []*models.SyncLog) *Health {
	h := &Health{
		ConnectionID: conn.ID,
		EmployerID:   conn.EmployerID,
		Provider:     provider(conn),
		Status:       StatusHealthy,
		LastSyncAt:   conn.LastSyncAt,
		SuccessRate:  100,
		Issues:       []string{},
	}

	since := now.Add(-Window)
	var succeeded int
	var duration time.Duration
	for _, l := range logs {
		if l.ConnectionID != conn.ID || l.StartedAt.Before(since) || !finished(l) {
			continue
		}
		h.TotalSyncs24h++
		duration += l.Duration()
		if l.Status == models.SyncCompleted {
			succeeded++
			h.RecordsSynced24h += l.Created + l.Updated
		} else {
			h.FailedSyncs24h++
		}
	}
	if h.TotalSyncs24h > 0 {
		h.SuccessRate = round2(100 * float64(succeeded) / float64(h.TotalSyncs24h))
		h.AvgDurationSeconds = round2(duration.Seconds() / float64(h.TotalSyncs24h))
	}

	if conn.LastSyncAt == nil {
		h.Status = StatusDisconnected
		h.Issues = append(h.Issues, "Connection has never synced")
		return h
	}

	h.HoursSinceLastSync = round2(now.Sub(*conn.LastSyncAt).Hours())
	switch {
	case h.HoursSinceLastSync > criticalHours:
		h.raise(StatusCritical, fmt.Sprintf("No successful sync in %.0f hours", h.HoursSinceLastSync))
	case h.HoursSinceLastSync > degradedHours:
		h.raise(StatusDegraded, fmt.Sprintf("No successful sync in %.0f hours", h.HoursSinceLastSync))
	}

	switch {
	case h.SuccessRate < criticalRate:
		h.raise(StatusCritical, fmt.Sprintf("Success rate %.1f%% in the last 24 hours", h.SuccessRate))
	case h.SuccessRate < degradedRate:
		h.raise(StatusDegraded, fmt.Sprintf("Success rate %.1f%% in the last 24 hours", h.SuccessRate))
	}

	switch {
	case h.FailedSyncs24h > criticalFailures:
		h.raise(StatusCritical, fmt.Sprintf("%d failed syncs in the last 24 hours", h.FailedSyncs24h))
	case h.FailedSyncs24h > degradedFailures:
		h.raise(StatusDegraded, fmt.Sprintf("%d failed syncs in the last 24 hours", h.FailedSyncs24h))
	}

	return h
}

func (h *Health) raise(s Status, issue string) {
	if s.rank() > h.Status.rank() {
		h.Status = s
	}
	h.Issues = append(h.Issues, issue)
}

func finished(l *models.SyncLog) bool {
	return l.Status == models.SyncCompleted || l.Status == models.SyncFailed
}

func provider(c *models.SyncConnection) string {
	if c.ProviderKind != "" {
		return c.ProviderKind
	}
	return c.ProviderID
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
