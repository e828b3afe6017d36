package snapshot

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/IamNiko/sales-app/core"
	"github.com/IamNiko/sales-app/identity"
	"github.com/IamNiko/sales-app/normalize"
	"github.com/IamNiko/sales-app/source"
)

// Loader persists the progress workbook for one period.
type Loader struct {
	Store  core.SnapshotStore
	Logger *zap.Logger

	HeaderRow         int      // zero-based header row of the progress sheet
	CategoryHeaderRow int      // zero-based header row of category sheets
	CategorySheets    []string // category sheet names, in processing order

	// VendorAliases maps obsolete vendor codes found in category sheets to
	// the canonical code already applied to the snapshot.
	VendorAliases map[string]string
}

func NewLoader(store core.SnapshotStore, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{Store: store, Logger: logger, HeaderRow: 1, CategoryHeaderRow: 2}
}

// Result summarizes what the progress workbook contributed.
type Result struct {
	Rows        int
	Unmatched   int
	History     int
	SalesColumn string
}

// Load replaces the period's snapshot and rebuilds the client history from
// the first sheet of the workbook at path.
func (l *Loader) Load(ctx context.Context, path string, period core.Period, runID int64, resolver *identity.Resolver) (Result, error) {
	wb, err := source.OpenWorkbook(path)
	if err != nil {
		return Result{}, err
	}
	defer wb.Close()

	tbl, err := wb.Table(wb.FirstSheet(), l.HeaderRow)
	if err != nil {
		return Result{}, err
	}
	if !tbl.Has(colClientCode) {
		return Result{}, &core.MissingSchemaError{
			Dataset:  "progress",
			Path:     filepath.Base(path),
			Required: []string{colClientCode},
			Found:    firstN(tbl.Header, 15),
		}
	}

	var res Result
	if _, res.SalesColumn = SalesColumn(tbl, period); res.SalesColumn == "" {
		l.Logger.Warn("no sales column for period, current sales default to zero",
			zap.String("period", period.String()),
			zap.Strings("candidates", SalesColumnCandidates(period)))
	}

	rows, unmatched := Build(tbl, period, runID, resolver)
	if err := l.Store.ReplaceSnapshot(ctx, period, rows, unmatched); err != nil {
		return Result{}, fmt.Errorf("replace snapshot %s: %w", period, err)
	}
	res.Rows = len(rows)
	res.Unmatched = len(unmatched)

	history := History(tbl)
	if err := l.Store.ReplaceHistory(ctx, history); err != nil {
		return Result{}, fmt.Errorf("replace history: %w", err)
	}
	res.History = len(history)

	l.Logger.Info("progress snapshot loaded",
		zap.String("file", filepath.Base(path)),
		zap.String("period", period.String()),
		zap.String("sales_column", res.SalesColumn),
		zap.Int("rows", res.Rows),
		zap.Int("unmatched", res.Unmatched),
		zap.Int("history_rows", res.History))
	return res, nil
}

// =============================================================================
// CATEGORY SHEETS
// =============================================================================

var billedLabels = []string{"FACTURACIÓN", "FACTURACION"}

// LoadCategorySheets sums the billed amount of every configured category
// sheet per (client, vendor) and stores it on the period's snapshot.
// Missing sheets and sheets without a billed column are skipped.
func (l *Loader) LoadCategorySheets(ctx context.Context, path string, period core.Period) (int, error) {
	wb, err := source.OpenWorkbook(path)
	if err != nil {
		return 0, err
	}
	defer wb.Close()

	amounts := l.categoryAmounts(wb)
	n, err := l.Store.UpdateBilledAmounts(ctx, period, amounts)
	if err != nil {
		return 0, fmt.Errorf("update billed amounts: %w", err)
	}
	l.Logger.Info("category sheets applied",
		zap.String("period", period.String()),
		zap.Int("clients", len(amounts)),
		zap.Int("rows_updated", n))
	return n, nil
}

func (l *Loader) categoryAmounts(wb *source.Workbook) []core.BilledAmount {
	type key struct{ client, vendor string }
	totals := make(map[key]decimal.Decimal)

	for _, sheet := range l.CategorySheets {
		if !wb.HasSheet(sheet) {
			l.Logger.Warn("category sheet not found, skipping", zap.String("sheet", sheet))
			continue
		}
		tbl, err := wb.Table(sheet, l.CategoryHeaderRow)
		if err != nil {
			l.Logger.Warn("category sheet unreadable, skipping", zap.String("sheet", sheet), zap.Error(err))
			continue
		}
		col, _ := tbl.FirstColumn(func(h string) bool {
			h = strings.ToUpper(strings.TrimSpace(h))
			for _, label := range billedLabels {
				if h == label {
					return true
				}
			}
			return false
		})
		if col < 0 {
			l.Logger.Warn("billed column not found in category sheet, skipping", zap.String("sheet", sheet))
			continue
		}

		for _, row := range tbl.Rows {
			client := normalize.Key(tbl.Get(row, colClientCode))
			vendor := normalize.Key(tbl.Get(row, colVendorCode))
			if canonical, ok := l.VendorAliases[vendor]; ok {
				vendor = canonical
			}
			amount := normalize.Numeric(source.Cell(row, col))
			if client == "" || vendor == "" || !amount.IsPositive() {
				continue
			}
			k := key{client, vendor}
			totals[k] = totals[k].Add(amount)
		}
	}

	out := make([]core.BilledAmount, 0, len(totals))
	for k, v := range totals {
		out = append(out, core.BilledAmount{ClientID: k.client, VendorCode: k.vendor, Amount: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].VendorCode != out[j].VendorCode {
			return out[i].VendorCode < out[j].VendorCode
		}
		return out[i].ClientID < out[j].ClientID
	})
	return out
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
