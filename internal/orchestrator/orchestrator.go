// Package orchestrator runs connector jobs with retries, records them in
// the sync log, and keeps the recurring schedule.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrijs2005/wotcsync/internal/clock"
	"github.com/dmitrijs2005/wotcsync/internal/common"
	"github.com/dmitrijs2005/wotcsync/internal/connectors"
	"github.com/dmitrijs2005/wotcsync/internal/logging"
	"github.com/dmitrijs2005/wotcsync/internal/retry"
	"github.com/dmitrijs2005/wotcsync/internal/server/models"
	"github.com/dmitrijs2005/wotcsync/internal/server/repositories/connections"
	"github.com/dmitrijs2005/wotcsync/internal/server/repositories/synclogs"
)

// JobRunner is what the scheduler and webhook router drive.
type JobRunner interface {
	ExecuteSyncJob(ctx context.Context, cfg SyncJobConfig) *JobResult
}

// ConnectorLookup resolves the connector for a provider kind and job.
type ConnectorLookup interface {
	Lookup(kind connectors.ProviderKind, job connectors.JobType) (connectors.Connector, error)
}

var errUnsuccessful = errors.New("sync reported failure")

type Orchestrator struct {
	connections connections.Repository
	syncLogs    synclogs.Repository
	connectors  ConnectorLookup
	defaults    Defaults
	clock       clock.Clock
	logger      logging.Logger
	flights     singleflight.Group
}

func NewOrchestrator(conns connections.Repository, logs synclogs.Repository, registry ConnectorLookup,
	defaults Defaults, clk clock.Clock, logger logging.Logger) *Orchestrator {
	if clk == nil {
		clk = clock.Real()
	}
	return &Orchestrator{
		connections: conns,
		syncLogs:    logs,
		connectors:  registry,
		defaults:    defaults,
		clock:       clk,
		logger:      logger.With("module", "orchestrator"),
	}
}

// ExecuteSyncJob runs cfg to success or retry exhaustion. Concurrent calls
// for the same key share one execution and its result. Cancelling ctx does
// not interrupt a run once it has started. It never panics and never
// returns nil.
func (o *Orchestrator) ExecuteSyncJob(ctx context.Context, cfg SyncJobConfig) *JobResult {
	key := cfg.Key()
	runCtx := context.WithoutCancel(ctx)
	v, _, shared := o.flights.Do(key.String(), func() (any, error) {
		return o.execute(runCtx, cfg), nil
	})
	if shared {
		o.logger.Debug(ctx, "joined in-flight sync", "key", key.String())
	}
	return v.(*JobResult)
}

// ManualTrigger runs one operator-initiated sync with the default retry
// policy.
func (o *Orchestrator) ManualTrigger(ctx context.Context, connectionID string, jobType connectors.JobType) (*JobResult, error) {
	if _, err := connectors.ParseJobType(string(jobType)); err != nil {
		return nil, err
	}
	return o.ExecuteSyncJob(ctx, SyncJobConfig{
		ConnectionID:  connectionID,
		JobType:       jobType,
		Cadence:       CadenceManual,
		RetryAttempts: o.defaults.RetryAttempts,
	}), nil
}

func (o *Orchestrator) execute(ctx context.Context, cfg SyncJobConfig) (res *JobResult) {
	res = &JobResult{JobID: uuid.NewString(), Key: cfg.Key(), StartedAt: o.clock.Now()}
	logger := o.logger.With("job_id", res.JobID, "key", res.Key.String())

	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "sync job panicked", "panic", r)
			res.Success = false
			res.Error = fmt.Sprintf("panic: %v", r)
			res.CompletedAt = o.clock.Now()
		}
	}()

	conn, err := o.connections.Get(ctx, cfg.ConnectionID)
	if err != nil {
		logger.Error(ctx, "sync job not started", "error", err)
		res.Error = fmt.Errorf("load connection %s: %w", cfg.ConnectionID, err).Error()
		res.CompletedAt = o.clock.Now()
		return res
	}
	if cfg.EmployerID == "" {
		cfg.EmployerID = conn.EmployerID
	}

	entry := &models.SyncLog{
		ID:           res.JobID,
		ConnectionID: conn.ID,
		EmployerID:   cfg.EmployerID,
		ProviderID:   conn.ProviderID,
		JobType:      string(cfg.JobType),
		StartedAt:    res.StartedAt,
	}
	logged := true
	if err := o.syncLogs.Start(ctx, entry); err != nil {
		logged = false
		logger.Warn(ctx, "sync log not started", "error", err)
	}

	connector, kind, err := o.resolve(conn, cfg)
	if err != nil {
		logger.Error(ctx, "sync job not started", "error", err)
		res.Error = err.Error()
		res.CompletedAt = o.clock.Now()
		if logged {
			o.finishLog(ctx, logger, entry, res, 0)
		}
		return res
	}

	lookback := cfg.Lookback
	if lookback <= 0 {
		lookback = o.defaults.Lookback
	}
	req := connectors.Request{
		Connection: conn,
		Kind:       kind,
		JobType:    cfg.JobType,
		Since:      res.StartedAt.Add(-lookback),
		Until:      res.StartedAt,
	}

	attempts, err := retry.Do(ctx, o.policy(cfg), func(ctx context.Context) error {
		out, err := o.syncOnce(ctx, connector, req)
		if out != nil {
			res.Result = out
		}
		if err != nil {
			logger.Warn(ctx, "sync attempt failed", "error", err)
		}
		return err
	})

	res.Retries = max(attempts-1, 0)
	res.CompletedAt = o.clock.Now()
	res.Success = err == nil
	if err != nil {
		res.Error = err.Error()
	}

	if logged {
		o.finishLog(ctx, logger, entry, res, attempts)
	}
	if res.Success {
		if err := o.connections.MarkSynced(ctx, conn.ID, res.CompletedAt); err != nil {
			logger.Warn(ctx, "last sync time not recorded", "error", err)
		}
	}

	logger.Info(ctx, "sync job finished", "success", res.Success, "retries", res.Retries,
		"duration", res.CompletedAt.Sub(res.StartedAt))
	return res
}

// resolve picks the connector for an already loaded connection.
func (o *Orchestrator) resolve(conn *models.SyncConnection, cfg SyncJobConfig) (connectors.Connector, connectors.ProviderKind, error) {
	if conn.Status != models.ConnectionActive {
		return nil, "", fmt.Errorf("connection %s is %s: %w", conn.ID, conn.Status, common.ErrConfiguration)
	}

	kind, err := kindOf(conn)
	if err != nil {
		return nil, "", err
	}
	c, err := o.connectors.Lookup(kind, cfg.JobType)
	if err != nil {
		return nil, "", err
	}
	return c, kind, nil
}

// syncOnce turns a panic or a Success:false result into an error so the
// retry loop treats all three the same.
func (o *Orchestrator) syncOnce(ctx context.Context, c connectors.Connector, req connectors.Request) (out *connectors.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("connector panic: %v", r)
		}
	}()

	out, err = c.Sync(ctx, req)
	if err != nil {
		return out, err
	}
	if out == nil {
		return nil, fmt.Errorf("connector returned no result: %w", common.ErrorInternal)
	}
	if !out.Success {
		return out, fmt.Errorf("%w: %s", errUnsuccessful, out.ErrorSummary())
	}
	return out, nil
}

func (o *Orchestrator) policy(cfg SyncJobConfig) retry.Policy {
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = o.defaults.RetryDelay
	}
	attempts := max(cfg.RetryAttempts, 0)
	return retry.Policy{
		MaxRetries: uint64(attempts),
		BaseDelay:  delay,
		Clock:      o.clock,
		// Configuration problems do not fix themselves between attempts.
		Retryable: func(err error) bool { return !errors.Is(err, common.ErrConfiguration) },
	}
}

func (o *Orchestrator) finishLog(ctx context.Context, logger logging.Logger, entry *models.SyncLog, res *JobResult, attempts int) {
	completed := res.CompletedAt
	entry.CompletedAt = &completed
	entry.Attempts = attempts
	entry.Status = models.SyncFailed
	if res.Success {
		entry.Status = models.SyncCompleted
	}
	if r := res.Result; r != nil {
		entry.Processed = r.RecordsProcessed
		entry.Created = r.RecordsCreated
		entry.Updated = r.RecordsUpdated
		entry.Failed = r.RecordsFailed
		entry.ErrorDetail = r.ErrorSummary()
	}
	if !res.Success && entry.ErrorDetail == "" {
		entry.ErrorDetail = res.Error
	}

	// Finalize even when ctx was cancelled.
	if err := o.syncLogs.Finish(context.WithoutCancel(ctx), entry); err != nil {
		logger.Error(ctx, "sync log not finalized", "error", err)
	}
}
