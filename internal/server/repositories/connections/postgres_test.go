package connections

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/wotcsync/internal/common"
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

var cols = []string{"id", "employer_id", "provider_id", "provider_kind", "encrypted_credentials", "last_sync_at", "status", "created_at"}

func TestCreate_DefaultsToActive(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+sync_connections.*RETURNING\s+id,\s*created_at\s*$`).
		WithArgs("er-1", "gusto-prod", "gusto", "enc", models.ConnectionActive).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("c-1", created))

	c, err := repo.Create(context.Background(), &models.SyncConnection{EmployerID: "er-1", ProviderID: "gusto-prod", ProviderKind: "gusto", EncryptedCredentials: "enc"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if c.ID != "c-1" || c.Status != models.ConnectionActive {
		t.Fatalf("unexpected connection: %+v", c)
	}
}

func TestGet(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	synced := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	q := `(?s)^SELECT\s+id,\s*employer_id.*FROM\s+sync_connections\s+WHERE\s+id\s*=\s*\$1\s*$`
	mock.ExpectQuery(q).WithArgs("c-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("c-1", "er-1", "adp-wfn", "adp", "", synced, "active", synced))
	mock.ExpectQuery(q).WithArgs("c-2").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("c-2", "er-1", "bamboohr", "bamboohr", "", nil, "active", synced))
	mock.ExpectQuery(q).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	c, err := repo.Get(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if c.LastSyncAt == nil || !c.LastSyncAt.Equal(synced) {
		t.Fatalf("last sync = %v", c.LastSyncAt)
	}

	c, err = repo.Get(context.Background(), "c-2")
	if err != nil || c.LastSyncAt != nil {
		t.Fatalf("never-synced connection: %+v err=%v", c, err)
	}

	if _, err := repo.Get(context.Background(), "missing"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestListActive(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)FROM\s+sync_connections\s+WHERE\s+status\s*=\s*'active'`).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("c-1", "er-1", "gusto", "gusto", "", nil, "active", now).
			AddRow("c-2", "er-2", "greenhouse", "greenhouse", "", now, "active", now))

	list, err := repo.ListActive(context.Background())
	if err != nil || len(list) != 2 {
		t.Fatalf("ListActive: %v, %d", err, len(list))
	}
}

func TestMarkSynced_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(`(?s)^UPDATE\s+sync_connections\s+SET\s+last_sync_at\s*=\s*\$2`).
		WithArgs("c-9", at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.MarkSynced(context.Background(), "c-9", at); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}
