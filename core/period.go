package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// PERIOD - Year-month partition key shared by every fact table
// =============================================================================

// Period is a calendar month formatted as "YYYY-MM".
type Period string

// NewPeriod builds the period for year/month.
func NewPeriod(year int, month time.Month) Period {
	return Period(fmt.Sprintf("%04d-%02d", year, int(month)))
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return NewPeriod(t.Year(), t.Month())
}

// ParsePeriod validates a "YYYY-MM" string.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid period %q: %w", s, err)
	}
	return PeriodOf(t), nil
}

func (p Period) String() string { return string(p) }
func (p Period) IsZero() bool   { return p == "" }

// Year returns the four-digit year, or 0 for a malformed period.
func (p Period) Year() int {
	if len(p) < 7 {
		return 0
	}
	y, _ := strconv.Atoi(string(p[:4]))
	return y
}

// Month returns the month, or 0 for a malformed period.
func (p Period) Month() time.Month {
	if len(p) < 7 {
		return 0
	}
	m, _ := strconv.Atoi(string(p[5:7]))
	return time.Month(m)
}

// ShortYear returns the two-digit year used in report headers ("26").
func (p Period) ShortYear() string {
	if len(p) < 4 {
		return ""
	}
	return string(p[2:4])
}

// =============================================================================
// MONTH LABELS - "FEB '26", "SEPT 25", "dic'24"
// =============================================================================

// monthAbbrev maps every accepted spelling to its month. Spanish labels are
// what the reports use; English ones show up after locale changes upstream.
var monthAbbrev = map[string]time.Month{
	"ENE":  time.January,
	"JAN":  time.January,
	"FEB":  time.February,
	"MAR":  time.March,
	"ABR":  time.April,
	"APR":  time.April,
	"MAY":  time.May,
	"JUN":  time.June,
	"JUL":  time.July,
	"AGO":  time.August,
	"AUG":  time.August,
	"SEP":  time.September,
	"SEPT": time.September,
	"SET":  time.September,
	"OCT":  time.October,
	"NOV":  time.November,
	"DIC":  time.December,
	"DEC":  time.December,
}

var spanishAbbrev = [...]string{"", "ENE", "FEB", "MAR", "ABR", "MAY", "JUN", "JUL", "AGO", "SEP", "OCT", "NOV", "DIC"}
var englishAbbrev = [...]string{"", "JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC"}

var monthLabelRe = regexp.MustCompile(`^(ENE|JAN|FEB|MAR|ABR|APR|MAY|JUN|JUL|AGO|AUG|SEPT|SEP|SET|OCT|NOV|DIC|DEC)\s*['"’´` + "`" + `]?\s*(\d{2})$`)

// ParseMonthLabel maps a header such as "FEB '25" to its period.
func ParseMonthLabel(label string) (Period, bool) {
	m := monthLabelRe.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(label)))
	if m == nil {
		return "", false
	}
	month, ok := monthAbbrev[m[1]]
	if !ok {
		return "", false
	}
	yy, _ := strconv.Atoi(m[2])
	return NewPeriod(2000+yy, month), true
}

// SpanishAbbrev returns the report abbreviation for the period's month ("FEB").
func (p Period) SpanishAbbrev() string {
	m := p.Month()
	if m < 1 || m > 12 {
		return ""
	}
	return spanishAbbrev[m]
}

// EnglishAbbrev returns the English abbreviation for the period's month.
func (p Period) EnglishAbbrev() string {
	m := p.Month()
	if m < 1 || m > 12 {
		return ""
	}
	return englishAbbrev[m]
}

// =============================================================================
// FILENAME DATES - "Avance x Cliente-Vendedor 06-02.xlsx"
// =============================================================================

var filenameDateRe = regexp.MustCompile(`(\d{2})[-_](\d{2})`)

// PeriodFromFilename extracts a DD-MM date from a file name and returns its
// period in the given year. ok is false when no valid date is embedded.
func PeriodFromFilename(name string, year int) (Period, bool) {
	for _, m := range filenameDateRe.FindAllStringSubmatch(name, -1) {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		if day < 1 || day > 31 || month < 1 || month > 12 {
			continue
		}
		return NewPeriod(year, time.Month(month)), true
	}
	return "", false
}
