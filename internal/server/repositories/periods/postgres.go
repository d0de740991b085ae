package periods

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

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert relies on the unique period key, so concurrent writers for the same
// period collapse into one row and the last synced source tag wins. Manual
// rows block the update, which makes RETURNING yield nothing.
func (r *PostgresRepository) Upsert(ctx context.Context, p *models.PeriodRecord) (bool, error) {
	query :=
		`INSERT INTO period_records (employee_id, employer_id, period_start, period_end, hours, wages, source, connection_id, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (employee_id, period_start, period_end) DO UPDATE
		 SET hours = EXCLUDED.hours, wages = EXCLUDED.wages, source = EXCLUDED.source,
		     connection_id = EXCLUDED.connection_id, updated_at = EXCLUDED.updated_at
		 WHERE period_records.source <> 'manual'
		 RETURNING id, (xmax = 0) AS inserted
		 `

	var inserted bool
	err := r.db.QueryRowContext(ctx, query,
		p.EmployeeID, p.EmployerID, p.PeriodStart, p.PeriodEnd, p.Hours, p.Wages, p.Source, p.ConnectionID,
		p.UpdatedAt).Scan(&p.ID, &inserted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrManualPeriod
		}
		return false, fmt.Errorf("db error: %w", err)
	}

	return inserted, nil
}

func (r *PostgresRepository) Get(ctx context.Context, employeeID string, start, end time.Time) (*models.PeriodRecord, error) {
	query :=
		`SELECT id, employee_id, employer_id, period_start, period_end, hours, wages, source, connection_id, updated_at
		 FROM period_records
		 WHERE employee_id = $1 AND period_start = $2 AND period_end = $3
		 `

	p := &models.PeriodRecord{}
	err := r.db.QueryRowContext(ctx, query, employeeID, start, end).Scan(&p.ID, &p.EmployeeID, &p.EmployerID,
		&p.PeriodStart, &p.PeriodEnd, &p.Hours, &p.Wages, &p.Source, &p.ConnectionID, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}
