package submissions

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/wotcsync/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_WithoutPortalStoresNull(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+submission_logs.*RETURNING\s+id,\s*created_at\s*$`).
		WithArgs(nil, "CA", "wotc_ca.csv", "/in/wotc_ca.csv", 3, true, "", "k").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("s-1", now))

	l := &models.SubmissionLog{Jurisdiction: "CA", FileName: "wotc_ca.csv", RemotePath: "/in/wotc_ca.csv", RecordCount: 3, Success: true, ArchiveKey: "k"}
	if err := repo.Create(context.Background(), l); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if l.ID != "s-1" {
		t.Fatalf("id = %q", l.ID)
	}
}

func TestListRecent(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)FROM\s+submission_logs\s+WHERE\s+jurisdiction\s*=\s*\$1`).
		WithArgs("TX", 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "portal_id", "jurisdiction", "file_name", "remote_path", "record_count", "success", "error", "archive_key", "created_at"}).
			AddRow("s-2", "p-1", "TX", "f", "/f", 2, false, "put failed", "", now))

	logs, err := repo.ListRecent(context.Background(), "TX", 10)
	if err != nil || len(logs) != 1 || logs[0].Success || logs[0].Error != "put failed" {
		t.Fatalf("ListRecent = %+v, %v", logs, err)
	}
}
