package connectors

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/wotcsync/internal/clock"
	"github.com/dmitrijs2005/wotcsync/internal/common"
	"github.com/dmitrijs2005/wotcsync/internal/logging"
	"github.com/dmitrijs2005/wotcsync/internal/server/models"
	"github.com/dmitrijs2005/wotcsync/internal/server/repositories/employees"
	"github.com/dmitrijs2005/wotcsync/internal/server/repositories/mappings"
	"github.com/dmitrijs2005/wotcsync/internal/server/repositories/periods"
)

// Deps are the stores and clients connectors share.
type Deps struct {
	APIs      APIFactory
	Mappings  mappings.Repository
	Periods   periods.Repository
	Employees employees.Repository
	Clock     clock.Clock
	Logger    logging.Logger
}

func (d *Deps) defaults() {
	if d.Clock == nil {
		d.Clock = clock.Real()
	}
	if d.Logger == nil {
		d.Logger = logging.NewNopLogger()
	}
}

// PayrollConnector turns pay entries into hours and wages per employee and
// pay period.
type PayrollConnector struct {
	deps   Deps
	logger logging.Logger
}

func NewPayrollConnector(d Deps) *PayrollConnector {
	d.defaults()
	return &PayrollConnector{deps: d, logger: d.Logger.With("module", "payroll_connector")}
}

type periodKey struct {
	employeeID string
	start, end time.Time
}

type periodTotal struct {
	hours, wages float64
	entries      []string
}

func (c *PayrollConnector) Sync(ctx context.Context, req Request) (*Result, error) {
	if req.Connection == nil {
		return nil, fmt.Errorf("payroll sync without connection: %w", common.ErrConfiguration)
	}
	conn := req.Connection

	api, err := c.deps.APIs.For(ctx, conn, req.Kind)
	if err != nil {
		return nil, err
	}
	entries, err := api.FetchPayEntries(ctx, req.Since, req.Until)
	if err != nil {
		c.logger.Error(ctx, "fetch pay entries failed", "connection", conn.ID, "error", err)
		return connectionFailure(err), nil
	}

	res := newResult()
	totals := map[periodKey]*periodTotal{}

	for _, e := range entries {
		res.RecordsProcessed++

		if e.PeriodStart.IsZero() || e.PeriodEnd.Before(e.PeriodStart) || e.Hours < 0 {
			res.recordFailed(e.ID, fmt.Errorf("malformed pay entry: %w", common.ErrRecord))
			continue
		}

		internalID, err := c.deps.Mappings.Find(ctx, conn.ID, e.EmployeeExternalID, models.ExternalEmployee)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				err = fmt.Errorf("no mapping for employee %s: %w", e.EmployeeExternalID, common.ErrRecord)
			}
			res.recordFailed(e.ID, err)
			continue
		}

		k := periodKey{internalID, dateOnly(e.PeriodStart), dateOnly(e.PeriodEnd)}
		t := totals[k]
		if t == nil {
			t = &periodTotal{}
			totals[k] = t
		}
		t.hours += e.Hours
		t.wages += e.Wages
		t.entries = append(t.entries, e.ID)
	}

	keys := make([]periodKey, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].employeeID != keys[j].employeeID {
			return keys[i].employeeID < keys[j].employeeID
		}
		return keys[i].start.Before(keys[j].start)
	})

	affected := map[string]struct{}{}
	for _, k := range keys {
		t := totals[k]
		p := &models.PeriodRecord{
			EmployeeID:   k.employeeID,
			EmployerID:   conn.EmployerID,
			PeriodStart:  k.start,
			PeriodEnd:    k.end,
			Hours:        t.hours,
			Wages:        t.wages,
			Source:       models.SyncSource(string(req.Kind)),
			ConnectionID: conn.ID,
			UpdatedAt:    c.deps.Clock.Now(),
		}
		created, err := c.deps.Periods.Upsert(ctx, p)
		if errors.Is(err, periods.ErrManualPeriod) {
			c.logger.Info(ctx, "manual period kept", "employee", k.employeeID,
				"start", k.start.Format(time.DateOnly), "entries", len(t.entries))
			continue
		}
		if err != nil {
			for _, id := range t.entries {
				res.recordFailed(id, err)
			}
			continue
		}

		// Entries folded into a period the batch itself created count as
		// updates of that period.
		if created {
			res.RecordsCreated++
			res.RecordsUpdated += len(t.entries) - 1
		} else {
			res.RecordsUpdated += len(t.entries)
		}

		for _, id := range t.entries {
			_, err := c.deps.Mappings.Ensure(ctx, &models.SyncedRecordMapping{
				ConnectionID: conn.ID, ExternalID: id, ExternalType: models.ExternalPayEntry, InternalID: p.ID,
			})
			if err != nil {
				c.logger.Warn(ctx, "pay entry provenance not recorded", "entry", id, "error", err)
			}
		}
		affected[k.employeeID] = struct{}{}
	}

	requestRecalculations(ctx, c.deps.Employees, c.logger, affected, models.SyncSource(string(req.Kind)))

	c.logger.Info(ctx, "payroll sync finished", "connection", conn.ID,
		"processed", res.RecordsProcessed, "created", res.RecordsCreated,
		"updated", res.RecordsUpdated, "failed", res.RecordsFailed)
	return res, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func requestRecalculations(ctx context.Context, repo employees.Repository, logger logging.Logger, ids map[string]struct{}, reason string) {
	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)
	for _, id := range sorted {
		if err := repo.RequestRecalculation(ctx, id, reason); err != nil {
			logger.Warn(ctx, "recalculation request failed", "employee", id, "error", err)
		}
	}
}
