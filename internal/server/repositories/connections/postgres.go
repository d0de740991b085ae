package connections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/wotcsync/internal/common"
	"github.com/dmitrijs2005/wotcsync/internal/dbx"
	"github.com/dmitrijs2005/wotcsync/internal/server/models"
)

const columns = `id, employer_id, provider_id, provider_kind, encrypted_credentials, last_sync_at, status, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConnection(row scanner) (*models.SyncConnection, error) {
	c := &models.SyncConnection{}
	var last sql.NullTime
	if err := row.Scan(&c.ID, &c.EmployerID, &c.ProviderID, &c.ProviderKind, &c.EncryptedCredentials,
		&last, &c.Status, &c.CreatedAt); err != nil {
		return nil, err
	}
	if last.Valid {
		t := last.Time
		c.LastSyncAt = &t
	}
	return c, nil
}

// Create stores a connection. ProviderKind must already be resolved.
func (r *PostgresRepository) Create(ctx context.Context, c *models.SyncConnection) (*models.SyncConnection, error) {
	query :=
		`INSERT INTO sync_connections (employer_id, provider_id, provider_kind, encrypted_credentials, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at
		 `

	if c.Status == "" {
		c.Status = models.ConnectionActive
	}

	err := r.db.QueryRowContext(ctx, query,
		c.EmployerID, c.ProviderID, c.ProviderKind, c.EncryptedCredentials, c.Status).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return c, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.SyncConnection, error) {
	query := `SELECT ` + columns + ` FROM sync_connections
		 WHERE id = $1
		 `

	c, err := scanConnection(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return c, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.SyncConnection, error) {
	return r.list(ctx, `SELECT `+columns+` FROM sync_connections
		 ORDER BY created_at
		 `)
}

func (r *PostgresRepository) ListActive(ctx context.Context) ([]*models.SyncConnection, error) {
	return r.list(ctx, `SELECT `+columns+` FROM sync_connections
		 WHERE status = 'active'
		 ORDER BY created_at
		 `)
}

func (r *PostgresRepository) list(ctx context.Context, query string) ([]*models.SyncConnection, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.SyncConnection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return out, nil
}

func (r *PostgresRepository) MarkSynced(ctx context.Context, id string, at time.Time) error {
	query :=
		`UPDATE sync_connections SET last_sync_at = $2
		 WHERE id = $1
		 `

	return r.exec(ctx, query, id, at)
}

func (r *PostgresRepository) SetStatus(ctx context.Context, id string, status models.ConnectionStatus) error {
	query :=
		`UPDATE sync_connections SET status = $2
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
