// Package api exposes the sync engine and the submission pipeline over a
// REST interface built on gin.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/wotcsync/internal/codec"
	"github.com/dmitrijs2005/wotcsync/internal/connectors"
	"github.com/dmitrijs2005/wotcsync/internal/health"
	"github.com/dmitrijs2005/wotcsync/internal/logging"
	"github.com/dmitrijs2005/wotcsync/internal/orchestrator"
	"github.com/dmitrijs2005/wotcsync/internal/server/models"
	"github.com/dmitrijs2005/wotcsync/internal/submission"
	"github.com/dmitrijs2005/wotcsync/internal/transport"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

type SyncTrigger interface {
	ManualTrigger(ctx context.Context, connectionID string, jobType connectors.JobType) (*orchestrator.JobResult, error)
}

type WebhookReceiver interface {
	Handle(ctx context.Context, providerID, connectionID string, payload []byte) (*orchestrator.WebhookOutcome, error)
}

type HealthReporter interface {
	ConnectionHealth(ctx context.Context, connectionID string) (*health.Health, error)
	Dashboard(ctx context.Context, opts health.DashboardOptions) (*health.Dashboard, error)
}

type Submitter interface {
	Submit(ctx context.Context, jurisdiction string, recs []codec.SubmissionRecord) (*submission.Outcome, error)
	SubmitPending(ctx context.Context, jurisdiction string) (*submission.Outcome, error)
	TestPortal(ctx context.Context, jurisdiction string) (*transport.ConnectionTest, error)
	FetchDeterminations(ctx context.Context, jurisdiction string) ([]submission.Determination, error)
	RotateCredentials(ctx context.Context, jurisdiction string, sec submission.Secrets) error
	SetStatus(ctx context.Context, jurisdiction string, status models.PortalStatus) error
	PresignArchive(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Services groups the components the handlers delegate to.
type Services struct {
	Sync        SyncTrigger
	Webhooks    WebhookReceiver
	Health      HealthReporter
	Submissions Submitter
}

type Server struct {
	address       string
	services      Services
	logger        logging.Logger
	jwtSecret     []byte
	webhookSecret string
	router        *gin.Engine
}

// NewServer builds the router. An empty webhookSecret accepts webhooks
// without the X-Webhook-Secret header.
func NewServer(address string, l logging.Logger, svc Services, secretKey, webhookSecret string) *Server {
	s := &Server{
		address:       address,
		services:      svc,
		logger:        l.With("module", "http_server"),
		jwtSecret:     []byte(secretKey),
		webhookSecret: webhookSecret,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger)

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	r.POST("/webhooks/:provider/:connection", s.webhookAuth, s.handleWebhook)

	api := r.Group("/api", s.operatorAuth)
	{
		api.POST("/connections/:id/sync/:jobType", s.handleTriggerSync)
		api.GET("/connections/:id/health", s.handleConnectionHealth)
		api.GET("/dashboard", s.handleDashboard)

		api.POST("/portals/:jurisdiction/submit", s.handleSubmit)
		api.GET("/portals/:jurisdiction/test", s.handleTestPortal)
		api.POST("/portals/:jurisdiction/determinations", s.handleDeterminations)
		api.PUT("/portals/:jurisdiction/credentials", s.handleRotateCredentials)
		api.PUT("/portals/:jurisdiction/status", s.handleSetStatus)
		api.GET("/archive/*key", s.handlePresignArchive)
	}

	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
