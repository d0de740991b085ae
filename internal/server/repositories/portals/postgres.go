package portals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/wotcsync/internal/common"
	"github.com/dmitrijs2005/wotcsync/internal/dbx"
	"github.com/dmitrijs2005/wotcsync/internal/server/models"
)

const columns = `id, jurisdiction, host, port, remote_dir, username, host_key,
		 encrypted_credentials, encrypted_mfa_secret, mfa_type, encrypted_challenges, encrypted_backup_codes,
		 batch_size_limit, cadence, status, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPortal(row scanner) (*models.PortalConfig, error) {
	p := &models.PortalConfig{}
	err := row.Scan(&p.ID, &p.Jurisdiction, &p.Host, &p.Port, &p.RemoteDir, &p.Username, &p.HostKey,
		&p.EncryptedCredentials, &p.EncryptedMFASecret, &p.MFAType, &p.EncryptedChallenges, &p.EncryptedBackupCodes,
		&p.BatchSizeLimit, &p.Cadence, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.PortalConfig) (*models.PortalConfig, error) {
	query :=
		`INSERT INTO portal_configs (jurisdiction, host, port, remote_dir, username, host_key,
		 encrypted_credentials, encrypted_mfa_secret, mfa_type, encrypted_challenges, encrypted_backup_codes,
		 batch_size_limit, cadence, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING id, created_at, updated_at
		 `

	if p.Status == "" {
		p.Status = models.PortalActive
	}

	err := r.db.QueryRowContext(ctx, query,
		p.Jurisdiction, p.Host, p.Port, p.RemoteDir, p.Username, p.HostKey,
		p.EncryptedCredentials, p.EncryptedMFASecret, p.MFAType, p.EncryptedChallenges, p.EncryptedBackupCodes,
		p.BatchSizeLimit, p.Cadence, p.Status).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) GetByJurisdiction(ctx context.Context, jurisdiction string) (*models.PortalConfig, error) {
	query := `SELECT ` + columns + ` FROM portal_configs
		 WHERE jurisdiction = $1
		 `

	p, err := scanPortal(r.db.QueryRowContext(ctx, query, jurisdiction))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.PortalConfig, error) {
	query := `SELECT ` + columns + ` FROM portal_configs
		 ORDER BY jurisdiction
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.PortalConfig
	for rows.Next() {
		p, err := scanPortal(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return out, nil
}

func (r *PostgresRepository) UpdateCredentials(ctx context.Context, p *models.PortalConfig) error {
	query :=
		`UPDATE portal_configs
		 SET encrypted_credentials = $2, encrypted_mfa_secret = $3, mfa_type = $4,
		     encrypted_challenges = $5, encrypted_backup_codes = $6, updated_at = now()
		 WHERE id = $1
		 `

	return r.exec(ctx, query, p.ID, p.EncryptedCredentials, p.EncryptedMFASecret, p.MFAType,
		p.EncryptedChallenges, p.EncryptedBackupCodes)
}

func (r *PostgresRepository) SetStatus(ctx context.Context, id string, status models.PortalStatus) error {
	query :=
		`UPDATE portal_configs SET status = $2, updated_at = now()
		 WHERE id = $1
		 `

	return r.exec(ctx, query, id, status)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
