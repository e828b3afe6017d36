/*
Package launch loads per-client purchase coverage of launch products.

PURPOSE:
  The launch workbook has one sheet per launch product. Each row is a
  (vendor, client) pair with a purchase status and current-month
  quantities, followed by month-named columns holding past quantities.

OUTPUT:
  Current rows:    target period, normalized status, billed/pending/total
                   quantities and the trailing average
  Historical rows: one per positive month column other than the target
                   period, status HISTORICAL, billed = total = quantity

FAILURE POLICY:
  A sheet that cannot be read or lacks a client column is logged and
  skipped; the rest of the workbook still loads.

SEE ALSO:
  - store/sqlite/snapshot.go: ReplaceLaunchCoverage
*/
package launch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/IamNiko/sales-app/core"
	"github.com/IamNiko/sales-app/normalize"
	"github.com/IamNiko/sales-app/source"
)

const (
	colStatus     = "ESTADO"
	colClientCode = "COD CENTRALIZADOR"
	colClientName = "NOM CENTRALIZADOR"
	colVendorCode = "COD VENDEDOR"
	colVendorName = "NOM VENDEDOR"
	colChannel    = "CANAL"
	colRegion     = "ZONA"
)

// NormalizeStatus maps a free-text status cell to a CoverageStatus.
func NormalizeStatus(raw string) core.CoverageStatus {
	s := normalize.Text(raw)
	switch {
	case strings.Contains(s, "SIN COMPRA"):
		return core.StatusNoPurchase
	case strings.Contains(s, "NO COMPRADOR"):
		return core.StatusNonBuyer
	case strings.Contains(s, "COMPRADOR"):
		return core.StatusBuyer
	default:
		return core.StatusUnknown
	}
}

// currentColumns locates the target-month quantity columns.
type currentColumns struct {
	billed, pending, total, average int
}

func findCurrentColumns(tbl *source.Table, period core.Period) currentColumns {
	abbrevs := []string{period.SpanishAbbrev(), period.EnglishAbbrev()}
	monthCol := func(marker string) int {
		i, _ := tbl.FirstColumn(func(h string) bool {
			h = strings.ToUpper(h)
			if !strings.Contains(h, marker) {
				return false
			}
			for _, a := range abbrevs {
				if strings.Contains(h, a) {
					return true
				}
			}
			return false
		})
		return i
	}
	avg, _ := tbl.FirstColumn(func(h string) bool {
		return strings.Contains(strings.ToUpper(h), "PROMEDIO")
	})
	return currentColumns{
		billed:  monthCol("FACT"),
		pending: monthCol("PEND"),
		total:   monthCol("TOTAL"),
		average: avg,
	}
}

func numericAt(row []string, i int) decimal.Decimal {
	if i < 0 {
		return decimal.Zero
	}
	return normalize.Numeric(source.Cell(row, i))
}

// ParseSheet converts one launch sheet. warnings lists non-fatal problems.
func ParseSheet(tbl *source.Table, launchID string, period core.Period) (sheet core.LaunchSheet, warnings []string, err error) {
	sheet.LaunchID = launchID
	if !tbl.Has(colClientCode) {
		return sheet, nil, fmt.Errorf("sheet %q has no %s column", launchID, colClientCode)
	}

	hasStatus := tbl.Has(colStatus)
	if !hasStatus {
		warnings = append(warnings, "no status column, current month skipped")
	}
	cur := findCurrentColumns(tbl, period)

	type monthCol struct {
		index  int
		period core.Period
	}
	var history []monthCol
	for i, h := range tbl.Header {
		if p, ok := core.ParseMonthLabel(h); ok && p != period {
			history = append(history, monthCol{index: i, period: p})
		}
	}

	for _, row := range tbl.Rows {
		client := normalize.Key(tbl.Get(row, colClientCode))
		name := tbl.Get(row, colClientName)
		if client == "" || strings.Contains(strings.ToUpper(name), "TOTAL") {
			continue
		}
		base := core.LaunchCoverage{
			LaunchID:   launchID,
			VendorCode: normalize.Key(tbl.Get(row, colVendorCode)),
			VendorName: tbl.Get(row, colVendorName),
			ClientID:   client,
			ClientName: name,
			Channel:    tbl.Get(row, colChannel),
			Region:     tbl.Get(row, colRegion),
		}

		if hasStatus {
			c := base
			c.Period = period
			c.Status = NormalizeStatus(tbl.Get(row, colStatus))
			c.PeriodBilledQty = numericAt(row, cur.billed)
			c.PeriodPendingQty = numericAt(row, cur.pending)
			c.PeriodTotalQty = numericAt(row, cur.total)
			c.TrailingAvgQty = numericAt(row, cur.average)
			sheet.Current = append(sheet.Current, c)
		}

		for _, m := range history {
			qty := numericAt(row, m.index)
			if !qty.IsPositive() {
				continue
			}
			h := base
			h.Period = m.period
			h.Status = core.StatusHistorical
			h.PeriodBilledQty = qty
			h.PeriodPendingQty = decimal.Zero
			h.PeriodTotalQty = qty
			h.TrailingAvgQty = decimal.Zero
			sheet.Historical = append(sheet.Historical, h)
		}
	}
	return sheet, warnings, nil
}

// =============================================================================
// LOADER
// =============================================================================

type Loader struct {
	Store  core.LaunchStore
	Logger *zap.Logger

	HeaderRow  int
	SkipSheets []string
}

func NewLoader(store core.LaunchStore, headerRow int, skip []string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{Store: store, Logger: logger, HeaderRow: headerRow, SkipSheets: skip}
}

// Result summarizes a launch workbook load.
type Result struct {
	Sheets     int
	Failed     int
	Current    int
	Historical int
}

func (l *Loader) skipped(sheet string) bool {
	for _, s := range l.SkipSheets {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(sheet)) {
			return true
		}
	}
	return false
}

// Load reads every non-skipped sheet and replaces coverage for period.
func (l *Loader) Load(ctx context.Context, path string, period core.Period) (Result, error) {
	wb, err := source.OpenWorkbook(path)
	if err != nil {
		return Result{}, err
	}
	defer wb.Close()

	var (
		res    Result
		sheets []core.LaunchSheet
	)
	for _, name := range wb.Sheets() {
		if l.skipped(name) {
			continue
		}
		tbl, err := wb.Table(name, l.HeaderRow)
		if err == nil {
			var sheet core.LaunchSheet
			var warnings []string
			sheet, warnings, err = ParseSheet(tbl, name, period)
			for _, w := range warnings {
				l.Logger.Warn("launch sheet: "+w, zap.String("sheet", name))
			}
			if err == nil {
				sheets = append(sheets, sheet)
				res.Sheets++
				res.Current += len(sheet.Current)
				res.Historical += len(sheet.Historical)
				continue
			}
		}
		res.Failed++
		l.Logger.Warn("launch sheet failed, skipping", zap.String("sheet", name), zap.Error(err))
	}

	if _, err := l.Store.ReplaceLaunchCoverage(ctx, period, sheets); err != nil {
		return res, fmt.Errorf("replace launch coverage: %w", err)
	}
	l.Logger.Info("launch coverage loaded",
		zap.String("file", filepath.Base(path)),
		zap.String("period", period.String()),
		zap.Int("sheets", res.Sheets),
		zap.Int("failed", res.Failed),
		zap.Int("current_rows", res.Current),
		zap.Int("historical_rows", res.Historical))
	return res, nil
}
