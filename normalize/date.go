package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/IamNiko/sales-app/core"
)

// excelEpoch is day zero of the Excel 1900 date system (accounting for the
// fictitious 1900-02-29).
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Serial day numbers outside this window are treated as plain numbers, not
// dates (1954-10-03 .. 2119-01-10).
const (
	minExcelSerial = 20000
	maxExcelSerial = 80000
)

var dateLayouts = buildLayouts()

func buildLayouts() []string {
	// ISO first: a leading four-digit year is never ambiguous.
	layouts := []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
		"2006/01/02",
	}
	// Day-first with every separator, four-digit year before two-digit.
	for _, sep := range []string{"/", "-", "."} {
		for _, year := range []string{"2006", "06"} {
			base := "2" + sep + "1" + sep + year
			layouts = append(layouts, base+" 15:04:05", base+" 15:04", base)
		}
	}
	return layouts
}

// Date parses a day-first date. Unparseable input returns
// core.ErrUnparseableDate; callers skip the row rather than default it.
func Date(v string) (time.Time, error) {
	s := strings.TrimSpace(v)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", core.ErrUnparseableDate)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t), nil
		}
	}
	if t, ok := excelSerial(s); ok {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", core.ErrUnparseableDate, s)
}

func excelSerial(s string) (time.Time, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < minExcelSerial || f > maxExcelSerial {
		return time.Time{}, false
	}
	return excelEpoch.AddDate(0, 0, int(f)), true
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
