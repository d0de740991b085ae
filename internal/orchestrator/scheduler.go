package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dmitrijs2005/wotcsync/internal/clock"
	"github.com/dmitrijs2005/wotcsync/internal/common"
	"github.com/dmitrijs2005/wotcsync/internal/connectors"
	"github.com/dmitrijs2005/wotcsync/internal/logging"
	"github.com/dmitrijs2005/wotcsync/internal/server/models"
	"github.com/dmitrijs2005/wotcsync/internal/server/repositories/connections"
)

var ErrSchedulerStopped = errors.New("scheduler is not running")

type scheduled struct {
	cfg    SyncJobConfig
	cancel context.CancelFunc
}

// Scheduler owns the recurring timers, one per (connection, job type).
// Cancelling a timer never interrupts a run already in progress.
type Scheduler struct {
	runner      JobRunner
	connections connections.Repository
	defaults    Defaults
	clock       clock.Clock
	logger      logging.Logger

	mu      sync.Mutex
	ctx     context.Context
	stop    context.CancelFunc
	jobs    map[Key]*scheduled
	running sync.WaitGroup
}

func NewScheduler(runner JobRunner, conns connections.Repository, defaults Defaults, clk clock.Clock, logger logging.Logger) *Scheduler {
	if clk == nil {
		clk = clock.Real()
	}
	return &Scheduler{
		runner:      runner,
		connections: conns,
		defaults:    defaults,
		clock:       clk,
		logger:      logger.With("module", "scheduler"),
		jobs:        map[Key]*scheduled{},
	}
}

// Start makes the scheduler accept jobs. Timers stop when ctx is done or
// Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx != nil {
		return
	}
	s.ctx, s.stop = context.WithCancel(ctx)
}

// Stop cancels every timer and waits for running jobs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stop != nil {
		s.stop()
	}
	s.ctx, s.stop = nil, nil
	s.jobs = map[Key]*scheduled{}
	s.mu.Unlock()

	s.running.Wait()
}

// ScheduleSync replaces any timer for cfg's key with one firing every
// cadence interval and runs the job once right away.
func (s *Scheduler) ScheduleSync(cfg SyncJobConfig) error {
	if !cfg.Cadence.Schedulable() {
		return fmt.Errorf("cadence %q is triggered externally: %w", cfg.Cadence, common.ErrConfiguration)
	}
	if cfg.ConnectionID == "" {
		return fmt.Errorf("schedule without connection: %w", common.ErrConfiguration)
	}
	if _, err := connectors.ParseJobType(string(cfg.JobType)); err != nil {
		return err
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = s.defaults.RetryAttempts
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return ErrSchedulerStopped
	}

	key := cfg.Key()
	if old, ok := s.jobs[key]; ok {
		old.cancel()
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.jobs[key] = &scheduled{cfg: cfg, cancel: cancel}

	ticker := s.clock.NewTicker(cfg.Cadence.Interval())
	s.running.Add(1)
	go s.loop(ctx, cfg, ticker)

	s.logger.Info(ctx, "sync scheduled", "key", key.String(), "cadence", cfg.Cadence)
	return nil
}

func (s *Scheduler) loop(ctx context.Context, cfg SyncJobConfig, ticker *clock.Ticker) {
	defer s.running.Done()
	defer ticker.Stop()

	s.fire(ctx, cfg)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fire(ctx, cfg)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, cfg SyncJobConfig) {
	if ctx.Err() != nil {
		return
	}
	s.logger.Debug(ctx, "scheduled sync tick", "key", cfg.Key().String())
	res := s.runner.ExecuteSyncJob(context.WithoutCancel(ctx), cfg)
	if !res.Success {
		s.logger.Warn(ctx, "scheduled sync failed", "key", cfg.Key().String(), "error", res.Error)
	}
}

// CancelScheduledSync clears the timer for key and reports whether one
// existed.
func (s *Scheduler) CancelScheduledSync(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[key]
	if !ok {
		return false
	}
	job.cancel()
	delete(s.jobs, key)
	return true
}

// Scheduled lists the installed keys in a stable order.
func (s *Scheduler) Scheduled() []Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]Key, 0, len(s.jobs))
	for k := range s.jobs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// InitializeScheduledSyncs rebuilds the schedule from active connections,
// one timer per job type the provider kind supports. Connections whose
// provider cannot be resolved are skipped.
func (s *Scheduler) InitializeScheduledSyncs(ctx context.Context) (int, error) {
	conns, err := s.connections.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, c := range conns {
		kind, err := kindOf(c)
		if err != nil {
			s.logger.Warn(ctx, "connection skipped", "connection", c.ID, "provider", c.ProviderID, "error", err)
			continue
		}
		for _, job := range kind.JobTypes() {
			err := s.ScheduleSync(SyncJobConfig{
				ConnectionID: c.ID,
				EmployerID:   c.EmployerID,
				JobType:      job,
				Cadence:      DefaultCadence(job),
			})
			if err != nil {
				return n, err
			}
			n++
		}
	}

	s.logger.Info(ctx, "schedules initialized", "connections", len(conns), "jobs", n)
	return n, nil
}

func kindOf(c *models.SyncConnection) (connectors.ProviderKind, error) {
	if k := connectors.ProviderKind(c.ProviderKind); k.Valid() {
		return k, nil
	}
	return connectors.ParseProviderKind(c.ProviderID)
}
