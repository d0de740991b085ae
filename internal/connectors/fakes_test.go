package connectors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/wotcsync/internal/common"
	"github.com/dmitrijs2005/wotcsync/internal/server/models"
	"github.com/dmitrijs2005/wotcsync/internal/server/repositories/periods"
)

type fakeAPI struct {
	entries   []PayEntry
	employees []ExternalEmployee
	hires     []ExternalEmployee
	err       error
}

func (f *fakeAPI) FetchPayEntries(ctx context.Context, since, until time.Time) ([]PayEntry, error) {
	return f.entries, f.err
}

func (f *fakeAPI) FetchEmployees(ctx context.Context) ([]ExternalEmployee, error) {
	return f.employees, f.err
}

func (f *fakeAPI) FetchHires(ctx context.Context, since time.Time) ([]ExternalEmployee, error) {
	return f.hires, f.err
}

type fakeFactory struct {
	api ProviderAPI
	err error
}

func (f *fakeFactory) For(ctx context.Context, conn *models.SyncConnection, kind ProviderKind) (ProviderAPI, error) {
	return f.api, f.err
}

type memMappings struct {
	mu   sync.Mutex
	rows map[string]string
}

func newMemMappings() *memMappings { return &memMappings{rows: map[string]string{}} }

func mappingKey(conn, ext, typ string) string { return conn + "|" + typ + "|" + ext }

func (m *memMappings) put(conn, ext, typ, internal string) {
	m.rows[mappingKey(conn, ext, typ)] = internal
}

func (m *memMappings) Find(ctx context.Context, connectionID, externalID, externalType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.rows[mappingKey(connectionID, externalID, externalType)]
	if !ok {
		return "", common.ErrorNotFound
	}
	return id, nil
}

func (m *memMappings) Ensure(ctx context.Context, r *models.SyncedRecordMapping) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := mappingKey(r.ConnectionID, r.ExternalID, r.ExternalType)
	if id, ok := m.rows[k]; ok {
		return id, nil
	}
	m.rows[k] = r.InternalID
	return r.InternalID, nil
}

type memPeriods struct {
	rows map[string]*models.PeriodRecord
	err  error
	seq  int
}

func newMemPeriods() *memPeriods { return &memPeriods{rows: map[string]*models.PeriodRecord{}} }

func periodKeyOf(emp string, start, end time.Time) string {
	return emp + "|" + start.Format(time.DateOnly) + "|" + end.Format(time.DateOnly)
}

func (m *memPeriods) Upsert(ctx context.Context, p *models.PeriodRecord) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	k := periodKeyOf(p.EmployeeID, p.PeriodStart, p.PeriodEnd)
	if old, ok := m.rows[k]; ok {
		if old.Source == models.SourceManual {
			return false, periods.ErrManualPeriod
		}
		p.ID = old.ID
		cp := *p
		m.rows[k] = &cp
		return false, nil
	}
	m.seq++
	p.ID = fmt.Sprintf("period-%d", m.seq)
	cp := *p
	m.rows[k] = &cp
	return true, nil
}

func (m *memPeriods) Get(ctx context.Context, employeeID string, start, end time.Time) (*models.PeriodRecord, error) {
	p, ok := m.rows[periodKeyOf(employeeID, start, end)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return p, nil
}

type memEmployees struct {
	byEmail   map[string]string
	details   map[string]models.HireDetails
	recalc    []string
	updateErr error
}

func newMemEmployees() *memEmployees {
	return &memEmployees{byEmail: map[string]string{}, details: map[string]models.HireDetails{}}
}

func (m *memEmployees) FindByEmail(ctx context.Context, employerID, email string) (string, error) {
	id, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return "", common.ErrorNotFound
	}
	return id, nil
}

func (m *memEmployees) UpdateHireDetails(ctx context.Context, employeeID string, d models.HireDetails) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.details[employeeID] = d
	return nil
}

func (m *memEmployees) RequestRecalculation(ctx context.Context, employeeID, reason string) error {
	m.recalc = append(m.recalc, employeeID)
	return nil
}

var errBoom = errors.New("boom")
