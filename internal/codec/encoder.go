package codec

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Encoder produces one output row from one record. Fixed-width and CSV
// encoders share this shape but not their wire format.
type Encoder interface {
	Layout() *Layout
	EncodeRow(rec SubmissionRecord) (string, error)
}

// HeaderEncoder is implemented by encoders whose files start with a header row.
type HeaderEncoder interface {
	Header() (string, error)
}

// NewEncoder selects the encoder for l.Format.
func NewEncoder(l *Layout) Encoder {
	if l.Format == FormatCSV {
		return &CSVEncoder{layout: l}
	}
	return &FixedWidthEncoder{layout: l}
}

var nonDigits = regexp.MustCompile(`\D`)

// SplitWage rounds w to cents and splits it into dollars and two-digit cents,
// carrying into dollars when rounding reaches 100 cents (11.996 -> "12","00").
func SplitWage(w float64) (dollars, cents string) {
	if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
		w = 0
	}
	total := int64(math.Round(w * 100))
	return strconv.FormatInt(total/100, 10), fmt.Sprintf("%02d", total%100)
}

// toASCII folds accented letters to their base form and drops anything that
// is still not printable ASCII.
func toASCII(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	for _, r := range folded {
		if r >= 0x20 && r < 0x7f {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func formatDate(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(layout)
}

// Values maps every field of l to its derived string value for rec.
func (l *Layout) Values(rec SubmissionRecord) map[string]string {
	wage := rec.StartingWage
	if wage <= 0 {
		wage = l.Defaults.DefaultWage
	}
	dollars, cents := SplitWage(wage)

	out := make(map[string]string, len(l.Fields))
	for _, f := range l.Fields {
		var v string
		switch f.Source {
		case SourceConstant:
			v = f.Value
		case SourceFiller:
			v = ""
		case SourceFirstName:
			v = rec.FirstName
		case SourceMiddleInitial:
			if m := strings.TrimSpace(rec.MiddleInitial); m != "" {
				v = m[:1]
			}
		case SourceLastName:
			v = rec.LastName
		case SourceFullName:
			v = strings.TrimSpace(rec.FirstName + " " + rec.LastName)
		case SourceSSN:
			v = nonDigits.ReplaceAllString(rec.SSN, "")
		case SourceDateOfBirth:
			v = formatDate(rec.DateOfBirth, l.DateFormat)
		case SourceAddress:
			v = rec.Address
		case SourceCity:
			v = rec.City
		case SourceState:
			v = rec.State
		case SourceZip:
			v = nonDigits.ReplaceAllString(rec.Zip, "")
		case SourceOfferDate:
			v = formatDate(rec.OfferDate, l.DateFormat)
		case SourceHireDate:
			v = formatDate(rec.HireDate, l.DateFormat)
		case SourceStartDate:
			v = formatDate(rec.StartDate, l.DateFormat)
		case SourceScreeningDate:
			v = formatDate(rec.ScreeningDate, l.DateFormat)
		case SourceWage:
			v = dollars + "." + cents
		case SourceWageDollars:
			v = dollars
		case SourceWageCents:
			v = cents
		case SourcePosition:
			v = rec.Position
		case SourceEmployerName:
			v = rec.EmployerName
		case SourceEmployerEIN:
			v = nonDigits.ReplaceAllString(rec.EmployerEIN, "")
		case SourceEmployerAddress:
			v = rec.EmployerAddress
		case SourceEmployerCity:
			v = rec.EmployerCity
		case SourceEmployerState:
			v = rec.EmployerState
		case SourceEmployerZip:
			v = nonDigits.ReplaceAllString(rec.EmployerZip, "")
		case SourceEmployerPhone:
			v = nonDigits.ReplaceAllString(rec.EmployerPhone, "")
		case SourceSubmitterID:
			v = l.Defaults.SubmitterID
		case SourceRepresentative:
			v = l.Defaults.Representative
		case SourceFlag:
			v = "N"
			if rec.InAnyGroup(f.YesIfAny) {
				v = "Y"
			}
		case SourceAnswer:
			v = "No"
			if rec.InAnyGroup(f.YesIfAny) {
				v = "Yes"
			}
		}
		v = toASCII(strings.TrimSpace(v))
		if l.Uppercase {
			v = strings.ToUpper(v)
		}
		out[f.Name] = v
	}
	return out
}
