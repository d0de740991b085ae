package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestNewPostgresRepositoryManager(t *testing.T) {
	db, _ := newDB(t)

	m, err := NewPostgresRepositoryManager(db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := m.(*PostgresRepositoryManager); !ok {
		t.Fatalf("got %T, want *PostgresRepositoryManager", m)
	}
}

func TestFactories(t *testing.T) {
	db, _ := newDB(t)
	m := &PostgresRepositoryManager{}

	factories := map[string]func() any{
		"portals":     func() any { return m.Portals(db) },
		"connections": func() any { return m.Connections(db) },
		"mappings":    func() any { return m.Mappings(db) },
		"synclogs":    func() any { return m.SyncLogs(db) },
		"periods":     func() any { return m.Periods(db) },
		"employees":   func() any { return m.Employees(db) },
		"records":     func() any { return m.Records(db) },
		"submissions": func() any { return m.Submissions(db) },
	}
	for name, f := range factories {
		t.Run(name, func(t *testing.T) {
			if f() == nil {
				t.Fatalf("%s repository is nil", name)
			}
		})
	}
}

func stubGooseUp(t *testing.T, fn func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error) {
	t.Helper()
	orig := gooseUpContext
	gooseUpContext = fn
	t.Cleanup(func() { gooseUpContext = orig })
}

func TestRunMigrations_UsesEmbeddedRoot(t *testing.T) {
	db, _ := newDB(t)

	var gotDir string
	stubGooseUp(t, func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	})

	if err := (&PostgresRepositoryManager{}).RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
	if gotDir != "." {
		t.Fatalf("migrations dir = %q, want \".\"", gotDir)
	}
}

func TestRunMigrations_WrapsGooseError(t *testing.T) {
	db, _ := newDB(t)

	errLocked := errors.New("migration table locked")
	stubGooseUp(t, func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errLocked
	})

	err := (&PostgresRepositoryManager{}).RunMigrations(context.Background(), db)
	if !errors.Is(err, errLocked) {
		t.Fatalf("expected wrapped goose error, got %v", err)
	}
}
