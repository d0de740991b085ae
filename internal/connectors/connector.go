package connectors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/wotcsync/internal/common"
	"github.com/dmitrijs2005/wotcsync/internal/server/models"
)

// Request is one sync invocation.
type Request struct {
	Connection *models.SyncConnection
	Kind       ProviderKind
	JobType    JobType
	Since      time.Time
	Until      time.Time
}

// RecordError is a failure scoped to one external record.
type RecordError struct {
	ExternalID string `json:"external_id,omitempty"`
	Message    string `json:"message"`

	Err error `json:"-"`
}

func (e RecordError) Error() string {
	if e.ExternalID == "" {
		return e.Message
	}
	return e.ExternalID + ": " + e.Message
}

func (e RecordError) Unwrap() error { return e.Err }

// Result is what a connector reports. Per-record failures keep Success true;
// only a failed fetch turns it false.
type Result struct {
	Success          bool          `json:"success"`
	RecordsProcessed int           `json:"records_processed"`
	RecordsCreated   int           `json:"records_created"`
	RecordsUpdated   int           `json:"records_updated"`
	RecordsFailed    int           `json:"records_failed"`
	Errors           []RecordError `json:"errors"`
}

func newResult() *Result {
	return &Result{Success: true, Errors: []RecordError{}}
}

func (r *Result) recordFailed(externalID string, err error) {
	r.RecordsFailed++
	r.Errors = append(r.Errors, RecordError{ExternalID: externalID, Message: err.Error(), Err: err})
}

func connectionFailure(err error) *Result {
	err = fmt.Errorf("fetch: %v: %w", err, common.ErrConnection)
	return &Result{Success: false, Errors: []RecordError{{Message: err.Error(), Err: err}}}
}

// ErrorSummary joins the error messages for logging and SyncLog detail.
func (r *Result) ErrorSummary() string {
	if len(r.Errors) == 0 {
		return ""
	}
	errs := make([]error, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, e)
	}
	return errors.Join(errs...).Error()
}

type Connector interface {
	Sync(ctx context.Context, req Request) (*Result, error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context, req Request) (*Result, error)

func (f ConnectorFunc) Sync(ctx context.Context, req Request) (*Result, error) { return f(ctx, req) }

type registryKey struct {
	kind ProviderKind
	job  JobType
}

// Registry maps (provider kind, job type) to the connector that serves it.
type Registry struct {
	connectors map[registryKey]Connector
}

func NewRegistry() *Registry {
	return &Registry{connectors: map[registryKey]Connector{}}
}

func (r *Registry) Register(kind ProviderKind, job JobType, c Connector) {
	r.connectors[registryKey{kind, job}] = c
}

func (r *Registry) Lookup(kind ProviderKind, job JobType) (Connector, error) {
	c, ok := r.connectors[registryKey{kind, job}]
	if !ok {
		return nil, fmt.Errorf("no connector for %s/%s: %w", kind, job, common.ErrConfiguration)
	}
	return c, nil
}
