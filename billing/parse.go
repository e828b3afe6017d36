package billing

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/IamNiko/sales-app/core"
	"github.com/IamNiko/sales-app/normalize"
	"github.com/IamNiko/sales-app/source"
)

// Batch is one parsed extract.
type Batch struct {
	File         string
	Format       Format
	Records      []core.BillingRecord
	Rows         int // data rows read, before any filtering
	SkippedDates int // rows dropped for a missing or unparseable date
	ZeroValue    int // bulk-refresh rows dropped for a zero amount

	// Reported holds the period of every dated row, including rows later
	// dropped for a zero amount.
	Reported map[core.Period]bool
}

// Periods returns the sorted periods the extract reports. A bulk refresh
// replaces all of them, even those left with no records.
func (b *Batch) Periods() []core.Period {
	periods := make([]core.Period, 0, len(b.Reported))
	for p := range b.Reported {
		periods = append(periods, p)
	}
	return core.MergePeriods(periods, core.DistinctPeriods(b.Records))
}

// Parse reads and classifies one extract.
func Parse(path string) (*Batch, error) {
	rows, err := source.ReadDelimited(path)
	if err != nil {
		return nil, err
	}
	return ParseRows(filepath.Base(path), rows)
}

// ParseRows classifies rows by their first line and converts every data row.
// Rows that cannot be dated are counted and skipped; they never fail the batch.
func ParseRows(name string, rows [][]string) (*Batch, error) {
	batch := &Batch{File: name, Reported: make(map[core.Period]bool)}
	if len(rows) == 0 {
		return batch, nil
	}

	batch.Format = Detect(rows[0])

	var (
		tbl  *source.Table
		cols columns
	)
	switch batch.Format {
	case FormatBulkRefresh:
		tbl = source.NewTable(name, rows[0], rows[1:])
		cols = bulkRefreshColumns
	case FormatLegacy:
		tbl = source.NewTable(name, rows[0], rows[1:])
		cols = legacyColumns
	case FormatHeaderless:
		header := LegacyHeader
		if len(rows[0]) < len(header) {
			header = header[:len(rows[0])]
		}
		tbl = source.NewTable(name, header, rows)
		cols = legacyColumns
	}

	dateCol := -1
	for _, c := range cols.dates {
		if i := tbl.Column(c); i >= 0 {
			dateCol = i
			break
		}
	}
	if dateCol < 0 {
		return nil, &core.MissingSchemaError{
			Dataset:  "billing",
			Path:     name,
			Required: cols.dates,
			Found:    truncate(tbl.Header, 15),
		}
	}

	for _, row := range tbl.Rows {
		if isBlank(row) {
			continue
		}
		batch.Rows++

		issued, err := normalize.Date(source.Cell(row, dateCol))
		if err != nil {
			batch.SkippedDates++
			continue
		}

		rec := core.BillingRecord{
			ContentHash: core.ContentHash(row),
			IssueDate:   issued,
			ClientID:    normalize.Key(tbl.Get(row, cols.client)),
			VendorCode:  normalize.Key(tbl.Get(row, cols.vendor)),
			ProductID:   normalize.Key(tbl.Get(row, cols.product)),
			Quantity:    normalize.Numeric(tbl.Get(row, cols.quantity)),
			Amount:      normalize.Numeric(tbl.Get(row, cols.amount)),
			Warehouse:   tbl.Get(row, cols.warehouse),
			Period:      core.PeriodOf(issued),
		}
		batch.Reported[rec.Period] = true

		if batch.Format == FormatBulkRefresh && rec.Amount.IsZero() {
			batch.ZeroValue++
			continue
		}
		batch.Records = append(batch.Records, rec)
	}

	return batch, nil
}

// String summarizes the batch for logs and errors.
func (b *Batch) String() string {
	return fmt.Sprintf("%s (%s): %d rows, %d records, %d bad dates, %d zero-value",
		b.File, b.Format, b.Rows, len(b.Records), b.SkippedDates, b.ZeroValue)
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func truncate(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
