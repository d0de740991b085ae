package api

import (
	"context"
	"time"

	"github.com/dmitrijs2005/wotcsync/internal/codec"
	"github.com/dmitrijs2005/wotcsync/internal/connectors"
	"github.com/dmitrijs2005/wotcsync/internal/health"
	"github.com/dmitrijs2005/wotcsync/internal/orchestrator"
	"github.com/dmitrijs2005/wotcsync/internal/server/models"
	"github.com/dmitrijs2005/wotcsync/internal/submission"
	"github.com/dmitrijs2005/wotcsync/internal/transport"
)

type fakeSync struct {
	gotConnection string
	gotJob        connectors.JobType
	res           *orchestrator.JobResult
	err           error
}

func (f *fakeSync) ManualTrigger(_ context.Context, connectionID string, jobType connectors.JobType) (*orchestrator.JobResult, error) {
	f.gotConnection, f.gotJob = connectionID, jobType
	return f.res, f.err
}

type fakeWebhooks struct {
	gotProvider, gotConnection string
	gotPayload                 []byte
	out                        *orchestrator.WebhookOutcome
	err                        error
}

func (f *fakeWebhooks) Handle(_ context.Context, providerID, connectionID string, payload []byte) (*orchestrator.WebhookOutcome, error) {
	f.gotProvider, f.gotConnection, f.gotPayload = providerID, connectionID, payload
	return f.out, f.err
}

type fakeHealth struct {
	gotOpts   health.DashboardOptions
	health    *health.Health
	dashboard *health.Dashboard
	err       error
}

func (f *fakeHealth) ConnectionHealth(_ context.Context, id string) (*health.Health, error) {
	if f.err != nil {
		return nil, f.err
	}
	h := *f.health
	h.ConnectionID = id
	return &h, nil
}

func (f *fakeHealth) Dashboard(_ context.Context, opts health.DashboardOptions) (*health.Dashboard, error) {
	f.gotOpts = opts
	return f.dashboard, f.err
}

type fakeSubmitter struct {
	pendingCalls int
	gotRecords   []codec.SubmissionRecord
	outcome      *submission.Outcome
	test         *transport.ConnectionTest
	files        []submission.Determination
	gotSecrets   submission.Secrets
	gotStatus    models.PortalStatus
	gotKey       string
	gotTTL       time.Duration
	url          string
	err          error
}

func (f *fakeSubmitter) Submit(_ context.Context, _ string, recs []codec.SubmissionRecord) (*submission.Outcome, error) {
	f.gotRecords = recs
	return f.outcome, f.err
}

func (f *fakeSubmitter) SubmitPending(_ context.Context, _ string) (*submission.Outcome, error) {
	f.pendingCalls++
	return f.outcome, f.err
}

func (f *fakeSubmitter) TestPortal(context.Context, string) (*transport.ConnectionTest, error) {
	return f.test, f.err
}

func (f *fakeSubmitter) FetchDeterminations(context.Context, string) ([]submission.Determination, error) {
	return f.files, f.err
}

func (f *fakeSubmitter) RotateCredentials(_ context.Context, _ string, sec submission.Secrets) error {
	f.gotSecrets = sec
	return f.err
}

func (f *fakeSubmitter) SetStatus(_ context.Context, _ string, status models.PortalStatus) error {
	f.gotStatus = status
	return f.err
}

func (f *fakeSubmitter) PresignArchive(_ context.Context, key string, ttl time.Duration) (string, error) {
	f.gotKey, f.gotTTL = key, ttl
	return f.url, f.err
}
