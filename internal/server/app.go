// Package server initializes and runs the wotcsync server: it opens the
// database, builds the sync engine and the submission pipeline, and serves
// the REST API and gRPC health until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/wotcsync/internal/archive"
	"github.com/dmitrijs2005/wotcsync/internal/clock"
	"github.com/dmitrijs2005/wotcsync/internal/codec"
	"github.com/dmitrijs2005/wotcsync/internal/connectors"
	"github.com/dmitrijs2005/wotcsync/internal/cryptox"
	"github.com/dmitrijs2005/wotcsync/internal/health"
	"github.com/dmitrijs2005/wotcsync/internal/logging"
	"github.com/dmitrijs2005/wotcsync/internal/mfa"
	"github.com/dmitrijs2005/wotcsync/internal/orchestrator"
	"github.com/dmitrijs2005/wotcsync/internal/server/api"
	"github.com/dmitrijs2005/wotcsync/internal/server/config"
	"github.com/dmitrijs2005/wotcsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/wotcsync/internal/submission"
	"github.com/dmitrijs2005/wotcsync/internal/transport"
	grpchealth "google.golang.org/grpc/health"

	gs "github.com/dmitrijs2005/wotcsync/internal/server/grpc"
)

const dbPingTimeout = 10 * time.Second

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	scheduler  *orchestrator.Scheduler
	httpServer *api.Server
	grpcServer *gs.GRPCServer
	publisher  *gs.Publisher
}

func NewApp(c *config.Config) (*App, error) {

	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	logger := logging.NewJSONLogger(os.Stdout, level)

	ctx := context.Background()

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("repository init error: %w", err)
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	app, err := build(ctx, c, logger, db, rm)
	if err != nil {
		db.Close()
		return nil, err
	}
	return app, nil
}

func build(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB, rm repomanager.RepositoryManager) (*App, error) {
	clk := clock.Real()

	vault, err := cryptox.NewVault(cryptox.DeriveKey([]byte(c.VaultPassphrase), []byte(c.VaultSalt)), logger)
	if err != nil {
		return nil, fmt.Errorf("vault init error: %w", err)
	}

	layouts, err := codec.DefaultRegistry()
	if err != nil {
		return nil, fmt.Errorf("layouts init error: %w", err)
	}

	store, err := archiveStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("archive init error: %w", err)
	}

	registry := connectors.NewDefaultRegistry(connectors.Deps{
		APIs: &connectors.HTTPAPIFactory{
			BaseURLs: providerBaseURLs(ctx, c.ProviderBaseURLs, logger),
			Vault:    vault,
			Client:   &http.Client{Timeout: c.ProviderTimeout},
		},
		Mappings:  rm.Mappings(db),
		Periods:   rm.Periods(db),
		Employees: rm.Employees(db),
		Clock:     clk,
		Logger:    logger,
	})

	defaults := orchestrator.Defaults{
		RetryAttempts: c.RetryAttempts,
		RetryDelay:    c.RetryDelay,
		Lookback:      c.SyncLookback,
	}
	conns := rm.Connections(db)
	logs := rm.SyncLogs(db)

	orch := orchestrator.NewOrchestrator(conns, logs, registry, defaults, clk, logger)
	sched := orchestrator.NewScheduler(orch, conns, defaults, clk, logger)
	hooks := orchestrator.NewWebhookRouter(orch, defaults, logger)
	healthSvc := health.NewService(conns, logs, clk, logger)

	subs := submission.NewService(submission.Deps{
		Portals:     rm.Portals(db),
		Records:     rm.Records(db),
		Submissions: rm.Submissions(db),
		Ledger:      repomanager.NewLedger(db, rm),
		Layouts:     layouts,
		Vault:       vault,
		MFA:         mfa.NewProvider(clk, logger),
		Dialer:      transport.NewSFTPDialer(c.TransportTimeout, logger),
		Archive:     store,
		Clock:       clk,
		Logger:      logger,
	})

	httpServer := api.NewServer(c.EndpointAddrHTTP, logger, api.Services{
		Sync:        orch,
		Webhooks:    hooks,
		Health:      healthSvc,
		Submissions: subs,
	}, c.SecretKey, c.WebhookSecret)

	hs := grpchealth.NewServer()

	return &App{
		config:     c,
		logger:     logger,
		db:         db,
		scheduler:  sched,
		httpServer: httpServer,
		grpcServer: gs.NewGRPCServer(c.EndpointAddrGRPC, logger, hs),
		publisher:  gs.NewPublisher(healthSvc, hs, clk, c.HealthRefreshInterval, logger),
	}, nil
}

func archiveStore(ctx context.Context, c *config.Config) (archive.Store, error) {
	if c.S3Bucket == "" {
		return archive.Nop{}, nil
	}
	return archive.NewS3Store(ctx, archive.Config{
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		BaseEndpoint: c.S3BaseEndpoint,
		Bucket:       c.S3Bucket,
	})
}

// providerBaseURLs keys the configured API roots by provider kind. Unknown
// provider names are logged and dropped.
func providerBaseURLs(ctx context.Context, in map[string]string, logger logging.Logger) map[connectors.ProviderKind]string {
	out := make(map[connectors.ProviderKind]string, len(in))
	for name, url := range in {
		kind, err := connectors.ParseProviderKind(name)
		if err != nil {
			logger.Warn(ctx, "provider base url ignored", "provider", name, "error", err)
			continue
		}
		out[kind] = url
	}
	return out
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startScheduler(ctx context.Context) {
	if !app.config.SchedulerEnabled {
		app.logger.Info(ctx, "Scheduler disabled")
		return
	}

	app.scheduler.Start(ctx)

	n, err := app.scheduler.InitializeScheduledSyncs(ctx)
	if err != nil {
		app.logger.Error(ctx, "schedules not fully initialized", "scheduled", n, "error", err)
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	app.startScheduler(ctx)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		if err := app.grpcServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()
	go func() {
		defer wg.Done()
		if err := app.httpServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()
	go func() {
		defer wg.Done()
		app.publisher.Run(ctx)
	}()

	wg.Wait()

	app.scheduler.Stop()
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close", "error", err)
	}

	app.logger.Info(ctx, "App stopped")
}
