package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/wotcsync/internal/common"
	"github.com/dmitrijs2005/wotcsync/internal/server/models"
	"github.com/dmitrijs2005/wotcsync/internal/server/repositories/connections"
	"github.com/dmitrijs2005/wotcsync/internal/server/repositories/synclogs"
)

type memConnections struct {
	connections.Repository

	mu     sync.Mutex
	rows   map[string]*models.SyncConnection
	synced map[string]time.Time
}

func newMemConnections(conns ...*models.SyncConnection) *memConnections {
	m := &memConnections{rows: map[string]*models.SyncConnection{}, synced: map[string]time.Time{}}
	for _, c := range conns {
		m.rows[c.ID] = c
	}
	return m
}

func (m *memConnections) Get(ctx context.Context, id string) (*models.SyncConnection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memConnections) ListActive(ctx context.Context) ([]*models.SyncConnection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.SyncConnection
	for _, c := range m.rows {
		if c.Status == models.ConnectionActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memConnections) MarkSynced(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.synced[id] = at
	return nil
}

func (m *memConnections) syncedAt(id string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.synced[id]
	return t, ok
}

type memSyncLogs struct {
	synclogs.Repository

	mu   sync.Mutex
	rows map[string]*models.SyncLog
}

func newMemSyncLogs() *memSyncLogs { return &memSyncLogs{rows: map[string]*models.SyncLog{}} }

func (m *memSyncLogs) Start(ctx context.Context, l *models.SyncLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.Status = models.SyncProcessing
	cp := *l
	m.rows[l.ID] = &cp
	return nil
}

func (m *memSyncLogs) Finish(ctx context.Context, l *models.SyncLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[l.ID]
	if !ok || row.Status != models.SyncProcessing {
		return common.ErrVersionConflict
	}
	cp := *l
	m.rows[l.ID] = &cp
	return nil
}

func (m *memSyncLogs) get(id string) *models.SyncLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id]
}

func (m *memSyncLogs) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type recordingRunner struct {
	calls chan SyncJobConfig
}

func newRecordingRunner() *recordingRunner {
	return &recordingRunner{calls: make(chan SyncJobConfig, 64)}
}

func (r *recordingRunner) ExecuteSyncJob(ctx context.Context, cfg SyncJobConfig) *JobResult {
	r.calls <- cfg
	return &JobResult{Key: cfg.Key(), Success: true}
}
