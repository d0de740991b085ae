// Package codec renders certified WOTC screenings into the submission files
// each state workforce agency accepts.
//
// A jurisdiction is described by a Layout loaded from a YAML schema (see the
// layouts directory). Fixed-width and CSV jurisdictions are served by two
// independent encoders that share only the Encoder interface.
package codec

import (
	"slices"
	"time"
)

// TargetGroup is a statutory WOTC eligibility category.
type TargetGroup string

const (
	GroupTANF                    TargetGroup = "tanf"
	GroupLongTermTANF            TargetGroup = "long_term_tanf"
	GroupVeteranSNAP             TargetGroup = "veteran_snap"
	GroupUnemployedVeteran4W     TargetGroup = "unemployed_veteran_4w"
	GroupUnemployedVeteran6M     TargetGroup = "unemployed_veteran_6m"
	GroupDisabledVeteran         TargetGroup = "disabled_veteran"
	GroupDisabledVeteranUnempl6M TargetGroup = "disabled_veteran_unemployed_6m"
	GroupExFelon                 TargetGroup = "ex_felon"
	GroupDesignatedCommunity     TargetGroup = "designated_community"
	GroupVocationalRehab         TargetGroup = "vocational_rehab"
	GroupSummerYouth             TargetGroup = "summer_youth"
	GroupSNAP                    TargetGroup = "snap"
	GroupSSI                     TargetGroup = "ssi"
	GroupLongTermUnemployed      TargetGroup = "long_term_unemployed"
)

var knownGroups = []TargetGroup{
	GroupTANF, GroupLongTermTANF, GroupVeteranSNAP, GroupUnemployedVeteran4W, GroupUnemployedVeteran6M,
	GroupDisabledVeteran, GroupDisabledVeteranUnempl6M, GroupExFelon, GroupDesignatedCommunity,
	GroupVocationalRehab, GroupSummerYouth, GroupSNAP, GroupSSI, GroupLongTermUnemployed,
}

// SubmissionRecord is the read-only projection of one certified employee,
// its screening and its employer, assembled right before encoding.
type SubmissionRecord struct {
	ScreeningID   string    `json:"screening_id"`
	EmployeeID    string    `json:"employee_id"`
	FirstName     string    `json:"first_name"`
	MiddleInitial string    `json:"middle_initial"`
	LastName      string    `json:"last_name"`
	SSN           string    `json:"ssn"`
	DateOfBirth   time.Time `json:"date_of_birth"`
	Address       string    `json:"address"`
	City          string    `json:"city"`
	State         string    `json:"state"`
	Zip           string    `json:"zip"`

	OfferDate     time.Time `json:"offer_date"`
	HireDate      time.Time `json:"hire_date"`
	StartDate     time.Time `json:"start_date"`
	ScreeningDate time.Time `json:"screening_date"`
	StartingWage  float64   `json:"starting_wage"`
	Position      string    `json:"position"`

	TargetGroups []TargetGroup `json:"target_groups"`

	EmployerName    string `json:"employer_name"`
	EmployerEIN     string `json:"employer_ein"`
	EmployerAddress string `json:"employer_address"`
	EmployerCity    string `json:"employer_city"`
	EmployerState   string `json:"employer_state"`
	EmployerZip     string `json:"employer_zip"`
	EmployerPhone   string `json:"employer_phone"`
}

// InAnyGroup reports whether the record belongs to at least one of groups.
func (r SubmissionRecord) InAnyGroup(groups []TargetGroup) bool {
	for _, g := range groups {
		if slices.Contains(r.TargetGroups, g) {
			return true
		}
	}
	return false
}
