package connectors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/wotcsync/internal/common"
	"github.com/dmitrijs2005/wotcsync/internal/logging"
	"github.com/dmitrijs2005/wotcsync/internal/server/models"
)

// RosterConnector links external employees to internal ones and refreshes
// hire details. It serves both the full roster and the new hires feed.
type RosterConnector struct {
	deps   Deps
	logger logging.Logger
}

func NewRosterConnector(d Deps) *RosterConnector {
	d.defaults()
	return &RosterConnector{deps: d, logger: d.Logger.With("module", "roster_connector")}
}

func (c *RosterConnector) Sync(ctx context.Context, req Request) (*Result, error) {
	if req.Connection == nil {
		return nil, fmt.Errorf("roster sync without connection: %w", common.ErrConfiguration)
	}
	conn := req.Connection

	api, err := c.deps.APIs.For(ctx, conn, req.Kind)
	if err != nil {
		return nil, err
	}

	var people []ExternalEmployee
	if req.JobType == JobNewHires {
		people, err = api.FetchHires(ctx, req.Since)
	} else {
		people, err = api.FetchEmployees(ctx)
	}
	if err != nil {
		c.logger.Error(ctx, "fetch employees failed", "connection", conn.ID, "job", req.JobType, "error", err)
		return connectionFailure(err), nil
	}

	res := newResult()
	affected := map[string]struct{}{}

	for _, p := range people {
		res.RecordsProcessed++

		if strings.TrimSpace(p.ID) == "" {
			res.recordFailed("", fmt.Errorf("external employee without id: %w", common.ErrRecord))
			continue
		}

		internalID, isNew, err := c.resolve(ctx, conn, p)
		if err != nil {
			res.recordFailed(p.ID, err)
			continue
		}

		err = c.deps.Employees.UpdateHireDetails(ctx, internalID, models.HireDetails{
			HireDate: p.HireDate, StartDate: p.StartDate, Position: p.Position, Wage: p.Wage,
		})
		if err != nil {
			res.recordFailed(p.ID, fmt.Errorf("update employee %s: %w", internalID, err))
			continue
		}

		if isNew {
			res.RecordsCreated++
		} else {
			res.RecordsUpdated++
		}
		affected[internalID] = struct{}{}
	}

	requestRecalculations(ctx, c.deps.Employees, c.logger, affected, models.SyncSource(string(req.Kind)))

	c.logger.Info(ctx, "roster sync finished", "connection", conn.ID, "job", req.JobType,
		"processed", res.RecordsProcessed, "created", res.RecordsCreated,
		"updated", res.RecordsUpdated, "failed", res.RecordsFailed)
	return res, nil
}

// resolve returns the internal employee for p, matching by email and
// writing the mapping the first time the external id is seen.
func (c *RosterConnector) resolve(ctx context.Context, conn *models.SyncConnection, p ExternalEmployee) (string, bool, error) {
	id, err := c.deps.Mappings.Find(ctx, conn.ID, p.ID, models.ExternalEmployee)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return "", false, err
	}

	if strings.TrimSpace(p.Email) == "" {
		return "", false, fmt.Errorf("unmapped employee without email: %w", common.ErrRecord)
	}
	match, err := c.deps.Employees.FindByEmail(ctx, conn.EmployerID, p.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", false, fmt.Errorf("no employee matches %s: %w", p.Email, common.ErrRecord)
		}
		return "", false, err
	}

	stored, err := c.deps.Mappings.Ensure(ctx, &models.SyncedRecordMapping{
		ConnectionID: conn.ID, ExternalID: p.ID, ExternalType: models.ExternalEmployee, InternalID: match,
	})
	if err != nil {
		return "", false, err
	}
	return stored, stored == match, nil
}

// NewDefaultRegistry wires the payroll connector to every payroll-capable
// kind and the roster connector to every roster or hires capable kind.
func NewDefaultRegistry(d Deps) *Registry {
	payroll := NewPayrollConnector(d)
	roster := NewRosterConnector(d)

	r := NewRegistry()
	for kind, info := range kinds {
		for _, job := range info.jobs {
			switch job {
			case JobPayrollHours:
				r.Register(kind, job, payroll)
			case JobEmployeeRoster, JobNewHires:
				r.Register(kind, job, roster)
			}
		}
	}
	return r
}
