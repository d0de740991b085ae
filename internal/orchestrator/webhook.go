package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/wotcsync/internal/common"
	"github.com/dmitrijs2005/wotcsync/internal/connectors"
	"github.com/dmitrijs2005/wotcsync/internal/logging"
)

// eventFields are the payload fields that may carry the event name, in the
// order they are checked.
var eventFields = []string{"event_type", "action", "type", "event"}

var webhookEvents = map[connectors.ProviderKind]map[string]connectors.JobType{
	connectors.KindGusto: {
		"payroll.processed":   connectors.JobPayrollHours,
		"payroll.paid":        connectors.JobPayrollHours,
		"employee.created":    connectors.JobEmployeeRoster,
		"employee.updated":    connectors.JobEmployeeRoster,
		"employee.terminated": connectors.JobEmployeeRoster,
	},
	connectors.KindADP: {
		"pay_statement.created": connectors.JobPayrollHours,
		"worker.hire":           connectors.JobEmployeeRoster,
		"worker.update":         connectors.JobEmployeeRoster,
	},
	connectors.KindPaychex: {
		"payroll_completed": connectors.JobPayrollHours,
		"employee_added":    connectors.JobEmployeeRoster,
		"employee_changed":  connectors.JobEmployeeRoster,
	},
	connectors.KindQuickBooks: {
		"payrollrun.create": connectors.JobPayrollHours,
		"payrollrun.update": connectors.JobPayrollHours,
	},
	connectors.KindGreenhouse: {
		"hire_candidate":  connectors.JobNewHires,
		"candidate_hired": connectors.JobNewHires,
	},
	connectors.KindBambooHR: {
		"employee.hired":   connectors.JobNewHires,
		"employee.updated": connectors.JobEmployeeRoster,
	},
	connectors.KindWorkday: {
		"hire":          connectors.JobNewHires,
		"worker_change": connectors.JobEmployeeRoster,
	},
}

// WebhookOutcome says what an inbound event did. Result is nil when the
// event was not handled.
type WebhookOutcome struct {
	Handled bool               `json:"handled"`
	Event   string             `json:"event,omitempty"`
	JobType connectors.JobType `json:"job_type,omitempty"`
	Result  *JobResult         `json:"result,omitempty"`
}

// WebhookRouter turns provider events into immediate sync runs outside the
// timer table.
type WebhookRouter struct {
	runner   JobRunner
	defaults Defaults
	logger   logging.Logger
}

func NewWebhookRouter(runner JobRunner, defaults Defaults, logger logging.Logger) *WebhookRouter {
	return &WebhookRouter{runner: runner, defaults: defaults, logger: logger.With("module", "webhooks")}
}

// Handle maps the event in payload to a job type and runs it once. Events
// the provider kind has no mapping for are ignored.
func (w *WebhookRouter) Handle(ctx context.Context, providerID, connectionID string, payload []byte) (*WebhookOutcome, error) {
	kind, err := connectors.ParseProviderKind(providerID)
	if err != nil {
		return nil, err
	}
	if connectionID == "" {
		return nil, fmt.Errorf("webhook without connection: %w", common.ErrConfiguration)
	}

	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("webhook payload: %v: %w", err, common.ErrValidation)
	}

	event := eventName(body)
	out := &WebhookOutcome{Event: event}
	job, ok := webhookEvents[kind][strings.ToLower(event)]
	if !ok || !kind.Supports(job) {
		w.logger.Info(ctx, "webhook event ignored", "provider", providerID, "connection", connectionID, "event", event)
		return out, nil
	}

	out.Handled = true
	out.JobType = job
	out.Result = w.runner.ExecuteSyncJob(ctx, SyncJobConfig{
		ConnectionID:  connectionID,
		JobType:       job,
		Cadence:       CadenceRealtime,
		RetryAttempts: w.defaults.RetryAttempts,
	})
	return out, nil
}

func eventName(body map[string]any) string {
	for _, f := range eventFields {
		if s, ok := body[f].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
