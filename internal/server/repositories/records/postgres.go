package records

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/wotcsync/internal/codec"
	"github.com/dmitrijs2005/wotcsync/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CertifiedPending returns certified screenings for jurisdiction that have
// not been submitted yet, oldest first. limit <= 0 means no limit.
func (r *PostgresRepository) CertifiedPending(ctx context.Context, jurisdiction string, limit int) ([]codec.SubmissionRecord, error) {
	query :=
		`SELECT s.id, e.id, e.first_name, e.middle_initial, e.last_name, e.ssn, e.date_of_birth,
		        e.address, e.city, e.state, e.zip,
		        s.offer_date, e.hire_date, e.start_date, s.screening_date, e.starting_wage::float8, e.position,
		        array_to_string(s.target_groups, ','),
		        r.name, r.ein, r.address, r.city, r.state, r.zip, r.phone
		 FROM screenings s
		 JOIN employees e ON e.id = s.employee_id
		 JOIN employers r ON r.id = e.employer_id
		 WHERE s.jurisdiction = $1 AND s.status = 'certified' AND s.submitted_at IS NULL
		 ORDER BY s.screening_date, s.id
		 LIMIT NULLIF($2, 0)
		 `

	if limit < 0 {
		limit = 0
	}

	rows, err := r.db.QueryContext(ctx, query, strings.ToUpper(jurisdiction), limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []codec.SubmissionRecord
	for rows.Next() {
		var rec codec.SubmissionRecord
		var dob, offer, hire, start, screened sql.NullTime
		var groups string
		if err := rows.Scan(&rec.ScreeningID, &rec.EmployeeID, &rec.FirstName, &rec.MiddleInitial, &rec.LastName,
			&rec.SSN, &dob, &rec.Address, &rec.City, &rec.State, &rec.Zip,
			&offer, &hire, &start, &screened, &rec.StartingWage, &rec.Position,
			&groups,
			&rec.EmployerName, &rec.EmployerEIN, &rec.EmployerAddress, &rec.EmployerCity, &rec.EmployerState,
			&rec.EmployerZip, &rec.EmployerPhone); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		rec.DateOfBirth = dob.Time
		rec.OfferDate = offer.Time
		rec.HireDate = hire.Time
		rec.StartDate = start.Time
		rec.ScreeningDate = screened.Time
		rec.TargetGroups = parseGroups(groups)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return out, nil
}

func parseGroups(s string) []codec.TargetGroup {
	var out []codec.TargetGroup
	for _, g := range strings.Split(s, ",") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, codec.TargetGroup(g))
		}
	}
	return out
}

func (r *PostgresRepository) MarkSubmitted(ctx context.Context, screeningID string, at time.Time) error {
	query :=
		`UPDATE screenings SET submitted_at = $2
		 WHERE id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, screeningID, at); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
