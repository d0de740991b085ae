// Package connectors pulls payroll, ATS and HRIS data from external
// providers into period records and employee mappings.
//
// A connection's provider is resolved to a ProviderKind once, when the
// connection is created. Dispatch afterwards goes through a Registry keyed
// by (kind, job type).
package connectors

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrijs2005/wotcsync/internal/common"
)

type ProviderKind string

const (
	KindGusto      ProviderKind = "gusto"
	KindADP        ProviderKind = "adp"
	KindPaychex    ProviderKind = "paychex"
	KindQuickBooks ProviderKind = "quickbooks"
	KindGreenhouse ProviderKind = "greenhouse"
	KindBambooHR   ProviderKind = "bamboohr"
	KindWorkday    ProviderKind = "workday"
)

type Category string

const (
	CategoryPayroll Category = "payroll"
	CategoryATS     Category = "ats"
	CategoryHRIS    Category = "hris"
)

type JobType string

const (
	JobPayrollHours   JobType = "payroll_hours"
	JobEmployeeRoster JobType = "employee_roster"
	JobNewHires       JobType = "new_hires"
)

// ParseJobType accepts the wire names above.
func ParseJobType(s string) (JobType, error) {
	j := JobType(strings.ToLower(strings.TrimSpace(s)))
	switch j {
	case JobPayrollHours, JobEmployeeRoster, JobNewHires:
		return j, nil
	}
	return "", fmt.Errorf("unknown job type %q: %w", s, common.ErrConfiguration)
}

type kindInfo struct {
	category Category
	jobs     []JobType
}

var kinds = map[ProviderKind]kindInfo{
	KindGusto:      {CategoryPayroll, []JobType{JobPayrollHours, JobEmployeeRoster}},
	KindADP:        {CategoryPayroll, []JobType{JobPayrollHours, JobEmployeeRoster}},
	KindPaychex:    {CategoryPayroll, []JobType{JobPayrollHours, JobEmployeeRoster}},
	KindQuickBooks: {CategoryPayroll, []JobType{JobPayrollHours}},
	KindGreenhouse: {CategoryATS, []JobType{JobNewHires}},
	KindBambooHR:   {CategoryHRIS, []JobType{JobEmployeeRoster, JobNewHires}},
	KindWorkday:    {CategoryHRIS, []JobType{JobEmployeeRoster, JobNewHires}},
}

// matchOrder is checked in sequence so "adp" never shadows a longer name.
var matchOrder = []ProviderKind{
	KindQuickBooks, KindGreenhouse, KindBambooHR, KindWorkday, KindPaychex, KindGusto, KindADP,
}

// ParseProviderKind resolves a provider identifier such as "gusto",
// "ADP-WFN" or "bamboohr_sandbox" to its kind.
func ParseProviderKind(providerID string) (ProviderKind, error) {
	id := strings.ToLower(strings.TrimSpace(providerID))
	if _, ok := kinds[ProviderKind(id)]; ok {
		return ProviderKind(id), nil
	}
	for _, k := range matchOrder {
		if strings.Contains(id, string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q: %w", providerID, common.ErrConfiguration)
}

func (k ProviderKind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

func (k ProviderKind) Category() Category { return kinds[k].category }

// JobTypes lists the jobs the kind can run, in scheduling order.
func (k ProviderKind) JobTypes() []JobType { return slices.Clone(kinds[k].jobs) }

func (k ProviderKind) Supports(j JobType) bool { return slices.Contains(kinds[k].jobs, j) }
