package submissions

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/wotcsync/internal/dbx"
	"github.com/dmitrijs2005/wotcsync/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, l *models.SubmissionLog) error {
	query :=
		`INSERT INTO submission_logs (portal_id, jurisdiction, file_name, remote_path, record_count, success, error, archive_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at
		 `

	var portalID sql.NullString
	if l.PortalID != "" {
		portalID = sql.NullString{String: l.PortalID, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query, portalID, l.Jurisdiction, l.FileName, l.RemotePath, l.RecordCount,
		l.Success, l.Error, l.ArchiveKey).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) ListRecent(ctx context.Context, jurisdiction string, limit int) ([]*models.SubmissionLog, error) {
	query :=
		`SELECT id, COALESCE(portal_id::text, ''), jurisdiction, file_name, remote_path, record_count, success, error,
		        archive_key, created_at
		 FROM submission_logs
		 WHERE jurisdiction = $1
		 ORDER BY created_at DESC
		 LIMIT $2
		 `

	rows, err := r.db.QueryContext(ctx, query, jurisdiction, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.SubmissionLog
	for rows.Next() {
		l := &models.SubmissionLog{}
		if err := rows.Scan(&l.ID, &l.PortalID, &l.Jurisdiction, &l.FileName, &l.RemotePath, &l.RecordCount,
			&l.Success, &l.Error, &l.ArchiveKey, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return out, nil
}
