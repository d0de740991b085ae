package mappings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/wotcsync/internal/common"
	"github.com/dmitrijs2005/wotcsync/internal/dbx"
	"github.com/dmitrijs2005/wotcsync/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Find(ctx context.Context, connectionID, externalID, externalType string) (string, error) {
	query :=
		`SELECT internal_id FROM synced_record_mappings
		 WHERE connection_id = $1 AND external_id = $2 AND external_type = $3
		 `

	var id string
	err := r.db.QueryRowContext(ctx, query, connectionID, externalID, externalType).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}

	return id, nil
}

func (r *PostgresRepository) Ensure(ctx context.Context, m *models.SyncedRecordMapping) (string, error) {
	query :=
		`INSERT INTO synced_record_mappings (connection_id, external_id, external_type, internal_id)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (connection_id, external_id, external_type) DO NOTHING
		 `

	if _, err := r.db.ExecContext(ctx, query, m.ConnectionID, m.ExternalID, m.ExternalType, m.InternalID); err != nil {
		return "", fmt.Errorf("db error: %w", err)
	}

	return r.Find(ctx, m.ConnectionID, m.ExternalID, m.ExternalType)
}
