package health

import (
	"context"
	"sort"
	"time"

	"github.com/dmitrijs2005/wotcsync/internal/clock"
	"github.com/dmitrijs2005/wotcsync/internal/logging"
	"github.com/dmitrijs2005/wotcsync/internal/server/models"
	"github.com/dmitrijs2005/wotcsync/internal/server/repositories/connections"
	"github.com/dmitrijs2005/wotcsync/internal/server/repositories/synclogs"
)

const (
	defaultRecentErrors = 10
	defaultDays         = 7
)

type DashboardOptions struct {
	RecentErrors int
	Days         int
}

type Totals struct {
	Connections       int            `json:"connections"`
	ActiveConnections int            `json:"active_connections"`
	Syncs24h          int            `json:"syncs_24h"`
	SuccessRate24h    float64        `json:"success_rate_24h"`
	Records24h        int            `json:"records_24h"`
	ByStatus          map[Status]int `json:"by_status"`
}

type ErrorEntry struct {
	ConnectionID string    `json:"connection_id"`
	Provider     string    `json:"provider"`
	JobType      string    `json:"job_type"`
	At           time.Time `json:"at"`
	Detail       string    `json:"detail"`
}

// Bucket aggregates finished syncs that started in [Start, Start+span).
type Bucket struct {
	Start   time.Time `json:"start"`
	Syncs   int       `json:"syncs"`
	Failed  int       `json:"failed"`
	Records int       `json:"records"`
}

type ProviderTotal struct {
	Provider    string `json:"provider"`
	Connections int    `json:"connections"`
	Syncs       int    `json:"syncs"`
	Failed      int    `json:"failed"`
	Records     int    `json:"records"`
}

type Dashboard struct {
	GeneratedAt  time.Time       `json:"generated_at"`
	Totals       Totals          `json:"totals"`
	Connections  []*Health       `json:"connections"`
	RecentErrors []ErrorEntry    `json:"recent_errors"`
	Hourly       []Bucket        `json:"hourly"`
	Daily        []Bucket        `json:"daily"`
	ByProvider   []ProviderTotal `json:"by_provider"`
}

type Service struct {
	connections connections.Repository
	syncLogs    synclogs.Repository
	clock       clock.Clock
	logger      logging.Logger
}

func NewService(conns connections.Repository, logs synclogs.Repository, clk clock.Clock, logger logging.Logger) *Service {
	if clk == nil {
		clk = clock.Real()
	}
	return &Service{connections: conns, syncLogs: logs, clock: clk, logger: logger.With("module", "health")}
}

func (s *Service) ConnectionHealth(ctx context.Context, connectionID string) (*Health, error) {
	conn, err := s.connections.Get(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	logs, err := s.syncLogs.ListSince(ctx, conn.ID, now.Add(-Window))
	if err != nil {
		return nil, err
	}
	return Evaluate(now, conn, logs), nil
}

// Dashboard evaluates every connection and aggregates the trailing
// opts.Days of sync history.
func (s *Service) Dashboard(ctx context.Context, opts DashboardOptions) (*Dashboard, error) {
	if opts.RecentErrors <= 0 {
		opts.RecentErrors = defaultRecentErrors
	}
	if opts.Days <= 0 {
		opts.Days = defaultDays
	}

	now := s.clock.Now()
	conns, err := s.connections.List(ctx)
	if err != nil {
		return nil, err
	}
	dayStart := startOfDay(now).AddDate(0, 0, -(opts.Days - 1))
	hourStart := now.Truncate(time.Hour).Add(-23 * time.Hour)
	since := dayStart
	if w := now.Add(-Window); w.Before(since) {
		since = w
	}
	logs, err := s.syncLogs.ListAllSince(ctx, since)
	if err != nil {
		return nil, err
	}
	failures, err := s.syncLogs.RecentErrors(ctx, opts.RecentErrors)
	if err != nil {
		return nil, err
	}

	byConn := map[string][]*models.SyncLog{}
	for _, l := range logs {
		byConn[l.ConnectionID] = append(byConn[l.ConnectionID], l)
	}

	d := &Dashboard{
		GeneratedAt:  now,
		Totals:       Totals{Connections: len(conns), ByStatus: map[Status]int{}},
		Connections:  make([]*Health, 0, len(conns)),
		RecentErrors: make([]ErrorEntry, 0, len(failures)),
	}

	providers := map[string]*ProviderTotal{}
	providerOf := map[string]string{}
	var succeeded int
	for _, c := range conns {
		if c.Status == models.ConnectionActive {
			d.Totals.ActiveConnections++
		}
		h := Evaluate(now, c, byConn[c.ID])
		d.Connections = append(d.Connections, h)
		d.Totals.ByStatus[h.Status]++
		d.Totals.Syncs24h += h.TotalSyncs24h
		d.Totals.Records24h += h.RecordsSynced24h
		succeeded += h.TotalSyncs24h - h.FailedSyncs24h

		p := providerTotal(providers, h.Provider)
		p.Connections++
		providerOf[c.ID] = h.Provider
	}
	d.Totals.SuccessRate24h = 100
	if d.Totals.Syncs24h > 0 {
		d.Totals.SuccessRate24h = round2(100 * float64(succeeded) / float64(d.Totals.Syncs24h))
	}

	for _, l := range failures {
		p := providerOf[l.ConnectionID]
		if p == "" {
			p = l.ProviderID
		}
		d.RecentErrors = append(d.RecentErrors, ErrorEntry{
			ConnectionID: l.ConnectionID, Provider: p, JobType: l.JobType, At: l.StartedAt, Detail: l.ErrorDetail,
		})
	}

	d.Hourly = buckets(24, func(i int) time.Time { return hourStart.Add(time.Duration(i) * time.Hour) })
	d.Daily = buckets(opts.Days, func(i int) time.Time { return dayStart.AddDate(0, 0, i) })

	for _, l := range logs {
		if !finished(l) {
			continue
		}
		records, failed := 0, 0
		if l.Status == models.SyncCompleted {
			records = l.Created + l.Updated
		} else {
			failed = 1
		}

		if i := int(l.StartedAt.Sub(hourStart) / time.Hour); l.StartedAt.Compare(hourStart) >= 0 && i < len(d.Hourly) {
			d.Hourly[i].add(records, failed)
		}
		if l.StartedAt.Compare(dayStart) >= 0 {
			if i := int(startOfDay(l.StartedAt).Sub(dayStart).Hours() / 24); i < len(d.Daily) {
				d.Daily[i].add(records, failed)
			}
		}

		name := providerOf[l.ConnectionID]
		if name == "" {
			name = l.ProviderID
		}
		p := providerTotal(providers, name)
		p.Syncs++
		p.Failed += failed
		p.Records += records
	}

	d.ByProvider = make([]ProviderTotal, 0, len(providers))
	for _, p := range providers {
		d.ByProvider = append(d.ByProvider, *p)
	}
	sort.Slice(d.ByProvider, func(i, j int) bool { return d.ByProvider[i].Provider < d.ByProvider[j].Provider })

	return d, nil
}

func (b *Bucket) add(records, failed int) {
	b.Syncs++
	b.Failed += failed
	b.Records += records
}

func buckets(n int, start func(int) time.Time) []Bucket {
	out := make([]Bucket, n)
	for i := range out {
		out[i].Start = start(i)
	}
	return out
}

func providerTotal(m map[string]*ProviderTotal, name string) *ProviderTotal {
	p, ok := m[name]
	if !ok {
		p = &ProviderTotal{Provider: name}
		m[name] = p
	}
	return p
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
