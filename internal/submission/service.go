// Package submission sends certified screenings to state agency portals
// and collects the determination files they return.
package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/wotcsync/internal/archive"
	"github.com/dmitrijs2005/wotcsync/internal/clock"
	"github.com/dmitrijs2005/wotcsync/internal/codec"
	"github.com/dmitrijs2005/wotcsync/internal/common"
	"github.com/dmitrijs2005/wotcsync/internal/cryptox"
	"github.com/dmitrijs2005/wotcsync/internal/logging"
	"github.com/dmitrijs2005/wotcsync/internal/mfa"
	"github.com/dmitrijs2005/wotcsync/internal/server/models"
	"github.com/dmitrijs2005/wotcsync/internal/server/repositories/portals"
	"github.com/dmitrijs2005/wotcsync/internal/server/repositories/records"
	"github.com/dmitrijs2005/wotcsync/internal/server/repositories/submissions"
	"github.com/dmitrijs2005/wotcsync/internal/transport"
)

// Ledger records a successful upload and stamps its screenings as one unit.
type Ledger interface {
	RecordUpload(ctx context.Context, entry *models.SubmissionLog, screeningIDs []string, at time.Time) error
}

// Deps are the collaborators of a Service. Archive defaults to archive.Nop.
// Without a Ledger the audit row and the stamps are written separately.
type Deps struct {
	Portals     portals.Repository
	Records     records.Repository
	Submissions submissions.Repository
	Ledger      Ledger
	Layouts     *codec.Registry
	Vault       *cryptox.Vault
	MFA         *mfa.Provider
	Dialer      transport.Dialer
	Archive     archive.Store
	Clock       clock.Clock
	Logger      logging.Logger
}

type Service struct {
	deps   Deps
	logger logging.Logger
}

func NewService(d Deps) *Service {
	if d.Clock == nil {
		d.Clock = clock.Real()
	}
	if d.Logger == nil {
		d.Logger = logging.NewNopLogger()
	}
	if d.Archive == nil {
		d.Archive = archive.Nop{}
	}
	if d.MFA == nil {
		d.MFA = mfa.NewProvider(d.Clock, d.Logger)
	}
	return &Service{deps: d, logger: d.Logger.With("module", "submission")}
}

// Outcome reports one submission. Upload is nil when nothing was sent.
type Outcome struct {
	Jurisdiction string                  `json:"jurisdiction"`
	RecordCount  int                     `json:"record_count"`
	Upload       *transport.UploadResult `json:"upload,omitempty"`
	ArchiveKey   string                  `json:"archive_key,omitempty"`
	Preview      codec.Preview           `json:"preview"`
}

// Determination is one agency response file and where it was archived.
type Determination struct {
	Name       string `json:"name"`
	RemotePath string `json:"remote_path"`
	Size       int64  `json:"size"`
	ArchiveKey string `json:"archive_key,omitempty"`
}

func (s *Service) portal(ctx context.Context, jurisdiction string) (*models.PortalConfig, error) {
	j := strings.ToUpper(strings.TrimSpace(jurisdiction))
	p, err := s.deps.Portals.GetByJurisdiction(ctx, j)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("no portal configured for %q: %w", j, common.ErrConfiguration)
		}
		return nil, err
	}
	return p, nil
}

func (s *Service) activePortal(ctx context.Context, jurisdiction string) (*models.PortalConfig, error) {
	p, err := s.portal(ctx, jurisdiction)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PortalActive {
		return nil, fmt.Errorf("portal %s is %s: %w", p.Jurisdiction, p.Status, common.ErrPortalUnavailable)
	}
	return p, nil
}

// client opens the portal secrets and resolves the MFA login code. A used
// backup code is retired before the client is returned.
func (s *Service) client(ctx context.Context, p *models.PortalConfig) (*transport.Client, error) {
	sec, err := open(s.deps.Vault, p)
	if err != nil {
		return nil, err
	}
	if sec.Credentials.Username == "" || sec.Credentials.Password == "" {
		return nil, fmt.Errorf("portal %s has no credentials: %w", p.Jurisdiction, common.ErrConfiguration)
	}

	var otp string
	if sec.MFAType != mfa.TypeNone {
		token, err := s.deps.MFA.GetToken(ctx, sec.MFAType, sec.MFASecret, sec.BackupCodes)
		if err != nil {
			return nil, fmt.Errorf("portal %s mfa: %w", p.Jurisdiction, err)
		}
		s.logger.Info(ctx, "mfa code resolved", "jurisdiction", p.Jurisdiction,
			"mfa_type", string(sec.MFAType), "manual", token == nil)
		if token != nil {
			otp = *token
		}
		if sec.MFAType == mfa.TypeBackupCode && token != nil {
			sec.BackupCodes = sec.BackupCodes[1:]
			if err := s.store(ctx, p, sec); err != nil {
				return nil, fmt.Errorf("retire backup code: %w", err)
			}
		}
	}

	ep := transport.Endpoint{
		Host:     p.Host,
		Port:     p.Port,
		Username: sec.Credentials.Username,
		Password: sec.Credentials.Password,
		HostKey:  p.HostKey,
		OTP:      otp,
	}
	if len(sec.Challenges) > 0 {
		ep.Challenges = make(map[string]string, len(sec.Challenges))
		for _, ch := range sec.Challenges {
			ep.Challenges[ch.Question] = ch.Answer
		}
	}
	return transport.NewClient(ep, s.deps.Dialer, s.deps.Layouts, s.deps.Clock, s.deps.Logger), nil
}

// Submit encodes recs in the jurisdiction's layout and uploads the file.
// The attempt is recorded in the submission log whether or not the upload
// succeeds. On success every screening is stamped as submitted.
func (s *Service) Submit(ctx context.Context, jurisdiction string, recs []codec.SubmissionRecord) (*Outcome, error) {
	p, err := s.activePortal(ctx, jurisdiction)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("no records to submit: %w", common.ErrValidation)
	}
	if p.BatchSizeLimit > 0 && len(recs) > p.BatchSizeLimit {
		return nil, fmt.Errorf("%d records exceed the %s batch limit of %d: %w",
			len(recs), p.Jurisdiction, p.BatchSizeLimit, common.ErrValidation)
	}

	batch, err := s.deps.Layouts.EncodeBatch(recs, p.Jurisdiction)
	if err != nil {
		return nil, err
	}
	client, err := s.client(ctx, p)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Jurisdiction: p.Jurisdiction, RecordCount: len(recs), Preview: batch.Preview()}
	content := batch.Content()
	upload, uploadErr := client.Upload(ctx, p.Jurisdiction, content)
	out.Upload = upload
	now := s.deps.Clock.Now()

	if uploadErr == nil {
		out.ArchiveKey = s.archive(ctx, archive.SubmissionKey(now, p.Jurisdiction, upload.FileName), content, p)
	}

	entry := &models.SubmissionLog{
		ID:           uuid.NewString(),
		PortalID:     p.ID,
		Jurisdiction: p.Jurisdiction,
		FileName:     upload.FileName,
		RemotePath:   upload.RemotePath,
		RecordCount:  len(recs),
		Success:      uploadErr == nil,
		Error:        upload.Error,
		ArchiveKey:   out.ArchiveKey,
		CreatedAt:    now,
	}
	if uploadErr != nil {
		if err := s.deps.Submissions.Create(ctx, entry); err != nil {
			s.logger.Error(ctx, "submission log not written", "jurisdiction", p.Jurisdiction, "error", err)
		}
		s.logger.Error(ctx, "submission failed", "jurisdiction", p.Jurisdiction, "error", uploadErr)
		return out, uploadErr
	}

	s.recordSuccess(ctx, entry, recs, now)

	s.logger.Info(ctx, "submission uploaded", "jurisdiction", p.Jurisdiction,
		"path", upload.RemotePath, "records", len(recs))
	return out, nil
}

// recordSuccess writes the audit row and stamps the screenings, atomically
// when a Ledger is configured. The file is already on the portal, so
// failures here are logged rather than returned.
func (s *Service) recordSuccess(ctx context.Context, entry *models.SubmissionLog, recs []codec.SubmissionRecord, at time.Time) {
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		if r.ScreeningID != "" {
			ids = append(ids, r.ScreeningID)
		}
	}

	if s.deps.Ledger != nil {
		if err := s.deps.Ledger.RecordUpload(ctx, entry, ids, at); err != nil {
			s.logger.Error(ctx, "submission ledger not written", "jurisdiction", entry.Jurisdiction, "error", err)
		}
		return
	}

	if err := s.deps.Submissions.Create(ctx, entry); err != nil {
		s.logger.Error(ctx, "submission log not written", "jurisdiction", entry.Jurisdiction, "error", err)
	}
	for _, id := range ids {
		if err := s.deps.Records.MarkSubmitted(ctx, id, at); err != nil {
			s.logger.Warn(ctx, "screening not stamped", "screening", id, "error", err)
		}
	}
}

// SubmitPending submits the certified screenings not yet sent for the
// jurisdiction, at most one batch. With nothing pending it returns an
// Outcome without an upload.
func (s *Service) SubmitPending(ctx context.Context, jurisdiction string) (*Outcome, error) {
	p, err := s.activePortal(ctx, jurisdiction)
	if err != nil {
		return nil, err
	}
	recs, err := s.deps.Records.CertifiedPending(ctx, p.Jurisdiction, p.BatchSizeLimit)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		s.logger.Info(ctx, "nothing pending", "jurisdiction", p.Jurisdiction)
		return &Outcome{Jurisdiction: p.Jurisdiction}, nil
	}
	return s.Submit(ctx, p.Jurisdiction, recs)
}

// FetchDeterminations downloads the agency's response files and archives
// each one. Archive failures are logged; the file is still returned.
func (s *Service) FetchDeterminations(ctx context.Context, jurisdiction string) ([]Determination, error) {
	p, err := s.activePortal(ctx, jurisdiction)
	if err != nil {
		return nil, err
	}
	client, err := s.client(ctx, p)
	if err != nil {
		return nil, err
	}

	files, err := client.DownloadDeterminations(ctx, p.Jurisdiction)
	if err != nil {
		return nil, err
	}

	now := s.deps.Clock.Now()
	out := make([]Determination, 0, len(files))
	for _, f := range files {
		key := s.archive(ctx, archive.DeterminationKey(now, p.Jurisdiction, f.Name), string(f.Content), p)
		out = append(out, Determination{Name: f.Name, RemotePath: f.RemotePath, Size: f.Size, ArchiveKey: key})
	}
	return out, nil
}

// TestPortal checks that the portal accepts a login, whatever its status.
func (s *Service) TestPortal(ctx context.Context, jurisdiction string) (*transport.ConnectionTest, error) {
	p, err := s.portal(ctx, jurisdiction)
	if err != nil {
		return nil, err
	}
	client, err := s.client(ctx, p)
	if err != nil {
		return nil, err
	}
	res := client.TestConnection(ctx)
	return &res, nil
}

// RotateCredentials replaces every stored secret of the portal.
func (s *Service) RotateCredentials(ctx context.Context, jurisdiction string, sec Secrets) error {
	p, err := s.portal(ctx, jurisdiction)
	if err != nil {
		return err
	}
	if sec.Credentials.Username == "" || sec.Credentials.Password == "" {
		return fmt.Errorf("username and password are required: %w", common.ErrValidation)
	}
	if err := s.store(ctx, p, sec); err != nil {
		return err
	}
	s.logger.Info(ctx, "portal credentials rotated", "jurisdiction", p.Jurisdiction)
	return nil
}

func (s *Service) SetStatus(ctx context.Context, jurisdiction string, status models.PortalStatus) error {
	switch status {
	case models.PortalActive, models.PortalMaintenance, models.PortalDisabled:
	default:
		return fmt.Errorf("unknown portal status %q: %w", status, common.ErrValidation)
	}
	p, err := s.portal(ctx, jurisdiction)
	if err != nil {
		return err
	}
	if err := s.deps.Portals.SetStatus(ctx, p.ID, status); err != nil {
		return err
	}
	s.logger.Info(ctx, "portal status changed", "jurisdiction", p.Jurisdiction, "from", p.Status, "to", status)
	return nil
}

func (s *Service) store(ctx context.Context, p *models.PortalConfig, sec Secrets) error {
	if err := seal(s.deps.Vault, p, sec); err != nil {
		return err
	}
	return s.deps.Portals.UpdateCredentials(ctx, p)
}

func (s *Service) archive(ctx context.Context, key, content string, p *models.PortalConfig) string {
	contentType := "text/plain"
	if l, err := s.deps.Layouts.Lookup(p.Jurisdiction); err == nil && l.Format == codec.FormatCSV {
		contentType = "text/csv"
	}
	if err := s.deps.Archive.Put(ctx, key, []byte(content), contentType); err != nil {
		s.logger.Warn(ctx, "archive failed", "key", key, "error", err)
		return ""
	}
	return key
}

// PresignArchive returns a time-limited download link for an archived file.
func (s *Service) PresignArchive(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return s.deps.Archive.PresignGet(ctx, key, ttl)
}
