package codec

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/dmitrijs2005/wotcsync/internal/common"
)

// Format selects the encoder for a layout.
type Format string

const (
	FormatFixed Format = "fixed"
	FormatCSV   Format = "csv"
)

// Source names the record attribute a field is derived from.
type Source string

const (
	SourceConstant        Source = "constant"
	SourceFiller          Source = "filler"
	SourceFirstName       Source = "first_name"
	SourceMiddleInitial   Source = "middle_initial"
	SourceLastName        Source = "last_name"
	SourceFullName        Source = "full_name"
	SourceSSN             Source = "ssn"
	SourceDateOfBirth     Source = "date_of_birth"
	SourceAddress         Source = "address"
	SourceCity            Source = "city"
	SourceState           Source = "state"
	SourceZip             Source = "zip"
	SourceOfferDate       Source = "offer_date"
	SourceHireDate        Source = "hire_date"
	SourceStartDate       Source = "start_date"
	SourceScreeningDate   Source = "screening_date"
	SourceWage            Source = "wage"
	SourceWageDollars     Source = "wage_dollars"
	SourceWageCents       Source = "wage_cents"
	SourcePosition        Source = "position"
	SourceEmployerName    Source = "employer_name"
	SourceEmployerEIN     Source = "employer_ein"
	SourceEmployerAddress Source = "employer_address"
	SourceEmployerCity    Source = "employer_city"
	SourceEmployerState   Source = "employer_state"
	SourceEmployerZip     Source = "employer_zip"
	SourceEmployerPhone   Source = "employer_phone"
	SourceSubmitterID     Source = "submitter_id"
	SourceRepresentative  Source = "representative"
	SourceFlag            Source = "flag"
	SourceAnswer          Source = "answer"
)

var knownSources = []Source{
	SourceConstant, SourceFiller, SourceFirstName, SourceMiddleInitial, SourceLastName, SourceFullName,
	SourceSSN, SourceDateOfBirth, SourceAddress, SourceCity, SourceState, SourceZip, SourceOfferDate,
	SourceHireDate, SourceStartDate, SourceScreeningDate, SourceWage, SourceWageDollars, SourceWageCents,
	SourcePosition, SourceEmployerName, SourceEmployerEIN, SourceEmployerAddress, SourceEmployerCity,
	SourceEmployerState, SourceEmployerZip, SourceEmployerPhone, SourceSubmitterID, SourceRepresentative,
	SourceFlag, SourceAnswer,
}

var dateSources = []Source{SourceDateOfBirth, SourceOfferDate, SourceHireDate, SourceStartDate, SourceScreeningDate}

// Field is one column of a layout. Width applies to fixed-width layouts,
// Header to CSV layouts.
type Field struct {
	Name     string        `yaml:"name"`
	Header   string        `yaml:"header"`
	Width    int           `yaml:"width"`
	Source   Source        `yaml:"source"`
	Value    string        `yaml:"value"`
	YesIfAny []TargetGroup `yaml:"yes_if_any"`
}

// Defaults are jurisdiction-wide values used when a record lacks data.
type Defaults struct {
	SubmitterID    string  `yaml:"submitter_id"`
	Representative string  `yaml:"representative"`
	DefaultWage    float64 `yaml:"default_wage"`
}

// Remote describes where files for the jurisdiction live on its SFTP host.
type Remote struct {
	Dir         string `yaml:"dir"`
	ResponseDir string `yaml:"response_dir"`
	FilePattern string `yaml:"file_pattern"`
}

// Layout is a versioned submission schema for one jurisdiction.
type Layout struct {
	Jurisdiction string   `yaml:"jurisdiction"`
	Name         string   `yaml:"name"`
	Version      int      `yaml:"version"`
	Format       Format   `yaml:"format"`
	DateFormat   string   `yaml:"date_format"`
	Uppercase    bool     `yaml:"uppercase"`
	MaxRecords   int      `yaml:"max_records"`
	Defaults     Defaults `yaml:"defaults"`
	Remote       Remote   `yaml:"remote"`
	Fields       []Field  `yaml:"fields"`

	recordWidth int
}

// RecordWidth is the sum of field widths; every fixed-width line has exactly
// this length.
func (l *Layout) RecordWidth() int { return l.recordWidth }

// Headers returns the CSV header names in order.
func (l *Layout) Headers() []string {
	out := make([]string, 0, len(l.Fields))
	for _, f := range l.Fields {
		out = append(out, f.Header)
	}
	return out
}

var jurisdictionPattern = regexp.MustCompile(`^[A-Z]{2}$`)

// Validate checks the schema and computes derived values. It is called for
// every layout at load time so encoding never meets a broken schema.
func (l *Layout) Validate() error {
	if !jurisdictionPattern.MatchString(l.Jurisdiction) {
		return l.invalid("jurisdiction must be a two-letter upper-case code")
	}
	if l.Version <= 0 {
		return l.invalid("version must be positive")
	}
	if len(l.Fields) == 0 {
		return l.invalid("no fields")
	}
	if l.Remote.FilePattern == "" {
		return l.invalid("remote.file_pattern is required")
	}
	if l.MaxRecords < 0 {
		return l.invalid("max_records must not be negative")
	}

	names := make(map[string]struct{}, len(l.Fields))
	headers := make(map[string]struct{}, len(l.Fields))
	width := 0

	for i := range l.Fields {
		f := &l.Fields[i]
		if f.Name == "" {
			return l.invalid(fmt.Sprintf("field %d has no name", i))
		}
		if _, dup := names[f.Name]; dup {
			return l.invalid(fmt.Sprintf("duplicate field name %q", f.Name))
		}
		names[f.Name] = struct{}{}

		if f.Source == "" && f.Value != "" {
			f.Source = SourceConstant
		}
		if !slices.Contains(knownSources, f.Source) {
			return l.invalid(fmt.Sprintf("field %q: unknown source %q", f.Name, f.Source))
		}
		if f.Source == SourceFlag || f.Source == SourceAnswer {
			if len(f.YesIfAny) == 0 {
				return l.invalid(fmt.Sprintf("field %q: yes_if_any is required", f.Name))
			}
			for _, g := range f.YesIfAny {
				if !slices.Contains(knownGroups, g) {
					return l.invalid(fmt.Sprintf("field %q: unknown target group %q", f.Name, g))
				}
			}
		}
		if slices.Contains(dateSources, f.Source) && l.DateFormat == "" {
			return l.invalid(fmt.Sprintf("field %q needs date_format", f.Name))
		}

		switch l.Format {
		case FormatFixed:
			if f.Width <= 0 {
				return l.invalid(fmt.Sprintf("field %q: width must be positive", f.Name))
			}
			width += f.Width
		case FormatCSV:
			if f.Header == "" {
				return l.invalid(fmt.Sprintf("field %q: header is required", f.Name))
			}
			if _, dup := headers[f.Header]; dup {
				return l.invalid(fmt.Sprintf("duplicate header %q", f.Header))
			}
			headers[f.Header] = struct{}{}
		default:
			return l.invalid(fmt.Sprintf("unknown format %q", l.Format))
		}
	}

	l.recordWidth = width
	return nil
}

func (l *Layout) invalid(msg string) error {
	return fmt.Errorf("layout %s v%d: %s: %w", l.Jurisdiction, l.Version, msg, common.ErrValidation)
}
