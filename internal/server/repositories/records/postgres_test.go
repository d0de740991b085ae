package records

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/wotcsync/internal/codec"
	"github.com/google/go-cmp/cmp"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCertifiedPending(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	dob := time.Date(1990, 4, 2, 0, 0, 0, 0, time.UTC)
	start := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)

	cols := []string{"s_id", "e_id", "first_name", "middle_initial", "last_name", "ssn", "date_of_birth",
		"address", "city", "state", "zip", "offer_date", "hire_date", "start_date", "screening_date", "starting_wage",
		"position", "target_groups", "name", "ein", "r_address", "r_city", "r_state", "r_zip", "phone"}
	mock.ExpectQuery(`(?s)^SELECT\s+s\.id.*FROM\s+screenings\s+s.*WHERE\s+s\.jurisdiction\s*=\s*\$1\s+AND\s+s\.status\s*=\s*'certified'`).
		WithArgs("TX", 0).
		WillReturnRows(sqlmock.NewRows(cols).AddRow("scr-1", "emp-1", "Ana", "", "Diaz", "123456789", dob,
			"1 Main", "Austin", "TX", "78701", nil, nil, start, nil, 12.5,
			"Cook", "snap,ex_felon", "Acme", "123456789", "2 Oak", "Austin", "TX", "78702", "5125550100"))

	recs, err := repo.CertifiedPending(context.Background(), "tx", -1)
	if err != nil {
		t.Fatalf("CertifiedPending error: %v", err)
	}

	want := []codec.SubmissionRecord{{
		ScreeningID: "scr-1", EmployeeID: "emp-1", FirstName: "Ana", LastName: "Diaz", SSN: "123456789",
		DateOfBirth: dob, Address: "1 Main", City: "Austin", State: "TX", Zip: "78701", StartDate: start,
		StartingWage: 12.5, Position: "Cook", TargetGroups: []codec.TargetGroup{codec.GroupSNAP, codec.GroupExFelon},
		EmployerName: "Acme", EmployerEIN: "123456789", EmployerAddress: "2 Oak", EmployerCity: "Austin",
		EmployerState: "TX", EmployerZip: "78702", EmployerPhone: "5125550100",
	}}
	if diff := cmp.Diff(want, recs); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestParseGroups(t *testing.T) {
	if got := parseGroups(""); got != nil {
		t.Fatalf("empty groups = %v", got)
	}
	got := parseGroups("ssi, snap ,")
	if len(got) != 2 || got[0] != codec.GroupSSI || got[1] != codec.GroupSNAP {
		t.Fatalf("parseGroups = %v", got)
	}
}

func TestMarkSubmitted(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(`(?s)^UPDATE\s+screenings\s+SET\s+submitted_at\s*=\s*\$2`).
		WithArgs("scr-1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkSubmitted(context.Background(), "scr-1", at); err != nil {
		t.Fatalf("MarkSubmitted error: %v", err)
	}
}
