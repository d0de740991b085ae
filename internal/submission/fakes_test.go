package submission

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/wotcsync/internal/codec"
	"github.com/dmitrijs2005/wotcsync/internal/common"
	"github.com/dmitrijs2005/wotcsync/internal/server/models"
	"github.com/dmitrijs2005/wotcsync/internal/server/repositories/portals"
	"github.com/dmitrijs2005/wotcsync/internal/server/repositories/submissions"
	"github.com/dmitrijs2005/wotcsync/internal/transport"
)

type memPortals struct {
	portals.Repository
	rows    map[string]*models.PortalConfig
	updated int
}

func (m *memPortals) GetByJurisdiction(ctx context.Context, j string) (*models.PortalConfig, error) {
	p, ok := m.rows[j]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPortals) UpdateCredentials(ctx context.Context, p *models.PortalConfig) error {
	m.updated++
	cp := *p
	m.rows[p.Jurisdiction] = &cp
	return nil
}

func (m *memPortals) SetStatus(ctx context.Context, id string, status models.PortalStatus) error {
	for _, p := range m.rows {
		if p.ID == id {
			p.Status = status
			return nil
		}
	}
	return common.ErrorNotFound
}

type memRecords struct {
	pending   []codec.SubmissionRecord
	submitted []string
	limit     int
}

func (m *memRecords) CertifiedPending(ctx context.Context, j string, limit int) ([]codec.SubmissionRecord, error) {
	m.limit = limit
	return m.pending, nil
}

func (m *memRecords) MarkSubmitted(ctx context.Context, id string, at time.Time) error {
	m.submitted = append(m.submitted, id)
	return nil
}

type memSubmissions struct {
	submissions.Repository
	rows []*models.SubmissionLog
}

func (m *memSubmissions) Create(ctx context.Context, l *models.SubmissionLog) error {
	m.rows = append(m.rows, l)
	return nil
}

type memArchive struct {
	objects map[string][]byte
	types   map[string]string
	fail    bool
}

func newMemArchive() *memArchive {
	return &memArchive{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memArchive) Put(ctx context.Context, key string, body []byte, contentType string) error {
	if m.fail {
		return errors.New("bucket unavailable")
	}
	m.objects[key] = body
	m.types[key] = contentType
	return nil
}

func (m *memArchive) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://archive.test/" + key, nil
}

type memSession struct {
	mu    sync.Mutex
	files map[string][]byte
	dirs  map[string][]transport.Entry
}

func (s *memSession) Put(p string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.Contains(p, "readonly") {
		return errors.New("permission denied")
	}
	s.files[p] = content
	return nil
}

func (s *memSession) List(dir string) ([]transport.Entry, error) { return s.dirs[dir], nil }

func (s *memSession) Get(p string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.files[p]
	if !ok {
		return nil, errors.New("not found")
	}
	return d, nil
}

func (s *memSession) Close() error { return nil }

type memDialer struct {
	session *memSession
	last    transport.Endpoint
	err     error
}

func (d *memDialer) Dial(ctx context.Context, ep transport.Endpoint) (transport.Session, error) {
	d.last = ep
	if d.err != nil {
		return nil, d.err
	}
	return d.session, nil
}

type memLedger struct {
	entries []*models.SubmissionLog
	ids     []string
	err     error
}

func (m *memLedger) RecordUpload(ctx context.Context, entry *models.SubmissionLog, ids []string, at time.Time) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	m.ids = append(m.ids, ids...)
	return nil
}
