package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/wotcsync/internal/common"
	"github.com/dmitrijs2005/wotcsync/internal/connectors"
)

type Cadence string

const (
	CadenceRealtime Cadence = "realtime"
	CadenceHourly   Cadence = "hourly"
	CadenceDaily    Cadence = "daily"
	CadenceWeekly   Cadence = "weekly"
	CadenceManual   Cadence = "manual"
)

func ParseCadence(s string) (Cadence, error) {
	c := Cadence(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CadenceRealtime, CadenceHourly, CadenceDaily, CadenceWeekly, CadenceManual:
		return c, nil
	}
	return "", fmt.Errorf("unknown cadence %q: %w", s, common.ErrConfiguration)
}

// Interval is the fixed period between scheduled runs. It is zero for
// cadences that are only triggered externally.
func (c Cadence) Interval() time.Duration {
	switch c {
	case CadenceHourly:
		return time.Hour
	case CadenceDaily:
		return 24 * time.Hour
	case CadenceWeekly:
		return 7 * 24 * time.Hour
	}
	return 0
}

// Schedulable reports whether the scheduler may install a timer for c.
func (c Cadence) Schedulable() bool { return c.Interval() > 0 }

// Key identifies a job stream. At most one execution per key runs at a time.
type Key struct {
	ConnectionID string
	JobType      connectors.JobType
}

func (k Key) String() string { return k.ConnectionID + "/" + string(k.JobType) }

// SyncJobConfig describes one job stream. EmployerID defaults to the
// connection's employer; zero RetryDelay and Lookback take the orchestrator
// defaults. RetryAttempts counts retries after the first call.
type SyncJobConfig struct {
	ConnectionID  string
	EmployerID    string
	JobType       connectors.JobType
	Cadence       Cadence
	RetryAttempts int
	RetryDelay    time.Duration
	Lookback      time.Duration
}

func (c SyncJobConfig) Key() Key { return Key{ConnectionID: c.ConnectionID, JobType: c.JobType} }

// Defaults fill SyncJobConfig values a caller left unset.
type Defaults struct {
	RetryAttempts int
	RetryDelay    time.Duration
	Lookback      time.Duration
}

// DefaultCadence is the cadence used when schedules are rebuilt from
// connections at startup.
func DefaultCadence(j connectors.JobType) Cadence {
	if j == connectors.JobNewHires {
		return CadenceHourly
	}
	return CadenceDaily
}

// JobResult is the outcome of one ExecuteSyncJob call. Retries counts the
// calls made after the first.
type JobResult struct {
	JobID       string             `json:"job_id"`
	Key         Key                `json:"-"`
	Success     bool               `json:"success"`
	StartedAt   time.Time          `json:"started_at"`
	CompletedAt time.Time          `json:"completed_at"`
	Result      *connectors.Result `json:"result,omitempty"`
	Retries     int                `json:"retries"`
	Error       string             `json:"error,omitempty"`
}
