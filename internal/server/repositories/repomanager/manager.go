package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/wotcsync/internal/dbx"
	"github.com/dmitrijs2005/wotcsync/internal/server/repositories/connections"
	"github.com/dmitrijs2005/wotcsync/internal/server/repositories/employees"
	"github.com/dmitrijs2005/wotcsync/internal/server/repositories/mappings"
	"github.com/dmitrijs2005/wotcsync/internal/server/repositories/periods"
	"github.com/dmitrijs2005/wotcsync/internal/server/repositories/portals"
	"github.com/dmitrijs2005/wotcsync/internal/server/repositories/records"
	"github.com/dmitrijs2005/wotcsync/internal/server/repositories/submissions"
	"github.com/dmitrijs2005/wotcsync/internal/server/repositories/synclogs"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Portals(db dbx.DBTX) portals.Repository
	Connections(db dbx.DBTX) connections.Repository
	Mappings(db dbx.DBTX) mappings.Repository
	SyncLogs(db dbx.DBTX) synclogs.Repository
	Periods(db dbx.DBTX) periods.Repository
	Employees(db dbx.DBTX) employees.Repository
	Records(db dbx.DBTX) records.Repository
	Submissions(db dbx.DBTX) submissions.Repository
}
