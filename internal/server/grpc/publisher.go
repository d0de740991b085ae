package grpc

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/wotcsync/internal/clock"
	"github.com/dmitrijs2005/wotcsync/internal/health"
	"github.com/dmitrijs2005/wotcsync/internal/logging"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServicePrefix prefixes per-connection health service names.
const ServicePrefix = "sync."

type HealthSource interface {
	Dashboard(ctx context.Context, opts health.DashboardOptions) (*health.Dashboard, error)
}

// StatusSetter is satisfied by *health.Server from grpc-go.
type StatusSetter interface {
	SetServingStatus(service string, status healthpb.HealthCheckResponse_ServingStatus)
}

// Publisher periodically evaluates every connection and mirrors the result
// into the gRPC health table.
type Publisher struct {
	source   HealthSource
	setter   StatusSetter
	clock    clock.Clock
	interval time.Duration
	logger   logging.Logger

	mu    sync.Mutex
	known map[string]struct{}
}

func NewPublisher(source HealthSource, setter StatusSetter, clk clock.Clock, interval time.Duration, logger logging.Logger) *Publisher {
	if clk == nil {
		clk = clock.Real()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Publisher{
		source:   source,
		setter:   setter,
		clock:    clk,
		interval: interval,
		logger:   logger.With("module", "health_publisher"),
		known:    make(map[string]struct{}),
	}
}

// ServingStatus maps a connection health state to the gRPC status.
func ServingStatus(s health.Status) healthpb.HealthCheckResponse_ServingStatus {
	switch s {
	case health.StatusHealthy, health.StatusDegraded:
		return healthpb.HealthCheckResponse_SERVING
	default:
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
}

// Refresh publishes one snapshot. Connections that disappeared since the
// previous snapshot are reported NOT_SERVING.
func (p *Publisher) Refresh(ctx context.Context) error {
	d, err := p.source.Dashboard(ctx, health.DashboardOptions{Days: 1})
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	seen := make(map[string]struct{}, len(d.Connections))
	for _, h := range d.Connections {
		name := ServicePrefix + h.ConnectionID
		seen[name] = struct{}{}
		p.setter.SetServingStatus(name, ServingStatus(h.Status))
	}
	for name := range p.known {
		if _, ok := seen[name]; !ok {
			p.setter.SetServingStatus(name, healthpb.HealthCheckResponse_NOT_SERVING)
		}
	}
	p.known = seen

	p.setter.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return nil
}

// Run refreshes immediately and then every interval until ctx is done.
func (p *Publisher) Run(ctx context.Context) {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	p.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

func (p *Publisher) refresh(ctx context.Context) {
	if err := p.Refresh(ctx); err != nil && ctx.Err() == nil {
		p.logger.Warn(ctx, "health refresh failed", "error", err)
	}
}
