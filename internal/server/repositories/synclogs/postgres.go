package synclogs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/wotcsync/internal/common"
	"github.com/dmitrijs2005/wotcsync/internal/dbx"
	"github.com/dmitrijs2005/wotcsync/internal/server/models"
)

const columns = `id, connection_id, employer_id, provider_id, job_type, status, started_at, completed_at,
		 processed, created, updated, failed, error_detail, attempts`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Start(ctx context.Context, l *models.SyncLog) error {
	query :=
		`INSERT INTO sync_logs (id, connection_id, employer_id, provider_id, job_type, status, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 `

	l.Status = models.SyncProcessing
	_, err := r.db.ExecContext(ctx, query,
		l.ID, l.ConnectionID, l.EmployerID, l.ProviderID, l.JobType, l.Status, l.StartedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Finish(ctx context.Context, l *models.SyncLog) error {
	query :=
		`UPDATE sync_logs
		 SET status = $2, completed_at = $3, processed = $4, created = $5, updated = $6, failed = $7,
		     error_detail = $8, attempts = $9
		 WHERE id = $1 AND status = 'processing'
		 `

	res, err := r.db.ExecContext(ctx, query,
		l.ID, l.Status, l.CompletedAt, l.Processed, l.Created, l.Updated, l.Failed, l.ErrorDetail, l.Attempts)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("sync log %s already finalized: %w", l.ID, common.ErrVersionConflict)
	}

	return nil
}

func (r *PostgresRepository) ListSince(ctx context.Context, connectionID string, since time.Time) ([]*models.SyncLog, error) {
	query := `SELECT ` + columns + ` FROM sync_logs
		 WHERE connection_id = $1 AND started_at >= $2
		 ORDER BY started_at DESC
		 `

	return r.list(ctx, query, connectionID, since)
}

func (r *PostgresRepository) ListAllSince(ctx context.Context, since time.Time) ([]*models.SyncLog, error) {
	query := `SELECT ` + columns + ` FROM sync_logs
		 WHERE started_at >= $1
		 ORDER BY started_at DESC
		 `

	return r.list(ctx, query, since)
}

func (r *PostgresRepository) RecentErrors(ctx context.Context, limit int) ([]*models.SyncLog, error) {
	query := `SELECT ` + columns + ` FROM sync_logs
		 WHERE status = 'failed' OR error_detail <> ''
		 ORDER BY started_at DESC
		 LIMIT $1
		 `

	return r.list(ctx, query, limit)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.SyncLog, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.SyncLog
	for rows.Next() {
		l := &models.SyncLog{}
		var completed sql.NullTime
		if err := rows.Scan(&l.ID, &l.ConnectionID, &l.EmployerID, &l.ProviderID, &l.JobType, &l.Status,
			&l.StartedAt, &completed, &l.Processed, &l.Created, &l.Updated, &l.Failed, &l.ErrorDetail,
			&l.Attempts); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if completed.Valid {
			t := completed.Time
			l.CompletedAt = &t
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return out, nil
}
