package employees

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

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

func (r *PostgresRepository) FindByEmail(ctx context.Context, employerID, email string) (string, error) {
	query :=
		`SELECT id FROM employees
		 WHERE employer_id = $1 AND lower(email) = $2
		 LIMIT 1
		 `

	var id string
	err := r.db.QueryRowContext(ctx, query, employerID, strings.ToLower(strings.TrimSpace(email))).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}

	return id, nil
}

func (r *PostgresRepository) UpdateHireDetails(ctx context.Context, employeeID string, d models.HireDetails) error {
	query :=
		`UPDATE employees
		 SET hire_date = COALESCE($2, hire_date),
		     start_date = COALESCE($3, start_date),
		     position = COALESCE(NULLIF($4, ''), position),
		     starting_wage = CASE WHEN $5 > 0 THEN $5 ELSE starting_wage END
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, employeeID, d.HireDate, d.StartDate, d.Position, d.Wage)
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

func (r *PostgresRepository) RequestRecalculation(ctx context.Context, employeeID, reason string) error {
	query :=
		`INSERT INTO recalculation_requests (employee_id, reason)
		 VALUES ($1, $2)
		 ON CONFLICT (employee_id) DO UPDATE SET reason = EXCLUDED.reason, requested_at = now()
		 `

	if _, err := r.db.ExecContext(ctx, query, employeeID, reason); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
