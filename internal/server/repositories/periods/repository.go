package periods

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/wotcsync/internal/server/models"
)

// ErrManualPeriod is returned by Upsert when the stored period was entered
// by hand. Synced values never replace it.
var ErrManualPeriod = errors.New("period is maintained manually")

type Repository interface {
	// Upsert writes the period keyed by (employee, start, end) and reports
	// whether a new row was created. A stored manual row is left untouched
	// and ErrManualPeriod is returned.
	Upsert(ctx context.Context, p *models.PeriodRecord) (created bool, err error)
	Get(ctx context.Context, employeeID string, start, end time.Time) (*models.PeriodRecord, error)
}
