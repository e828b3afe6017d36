/*
Package snapshot loads the monthly vendor/client progress workbook.

PURPOSE:
  The progress workbook is the authoritative view of the current period:
  one row per (vendor, client) with targets, pending quantity and sales to
  date. It also carries a trailing window of month-named columns that feed
  the client history series.

KEY CONCEPTS:
  - Snapshot: replaced wholesale for the target period on every run
  - Sales column: found by header candidates built from the target month;
    degrades to zero when none matches
  - History: wide month columns pivoted to sparse (client, period) rows,
    rebuilt on every run
  - Category sheets: per-category billed amounts summed per (client, vendor)

SPARSITY:
  A history value of zero or blank emits no row. Absence means "no data".

SEE ALSO:
  - identity/identity.go: Delivery frequency and match quality per row
  - core/period.go: ParseMonthLabel
*/
package snapshot

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/IamNiko/sales-app/core"
	"github.com/IamNiko/sales-app/identity"
	"github.com/IamNiko/sales-app/normalize"
	"github.com/IamNiko/sales-app/source"
)

// UnmatchedReason is recorded on audit rows for unresolved clients.
const UnmatchedReason = "No match found in client master"

// Column names of the progress sheet.
const (
	colChannel    = "CANAL"
	colRegion     = "ZONA"
	colManager    = "JEFE"
	colVendorCode = "COD VENDEDOR"
	colVendorName = "NOM VENDEDOR"
	colClientCode = "COD CENTRALIZADOR"
	colClientName = "NOM CENTRALIZADOR"
	colTarget     = "OBJETIVO"
	colPending    = "PENDIENTE"
)

var genericSalesLabels = []string{"FACTURACIÓN", "FACTURACION"}

// SalesColumnCandidates lists the header fragments that identify the
// sales-to-date column for period, most specific first.
func SalesColumnCandidates(period core.Period) []string {
	yy := period.ShortYear()
	var out []string
	seen := map[string]bool{}
	for _, abbr := range []string{period.SpanishAbbrev(), period.EnglishAbbrev()} {
		for _, sep := range []string{" '", "'", " ", ""} {
			c := abbr + sep + yy
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return append(out, genericSalesLabels...)
}

// SalesColumn returns the index of the first column whose upper-cased
// header contains any candidate, or -1.
func SalesColumn(tbl *source.Table, period core.Period) (int, string) {
	candidates := SalesColumnCandidates(period)
	return tbl.FirstColumn(func(h string) bool {
		h = strings.ToUpper(strings.TrimSpace(h))
		for _, c := range candidates {
			if strings.Contains(h, c) {
				return true
			}
		}
		return false
	})
}

// skipRow reports rows that carry no client or are subtotal lines.
func skipRow(clientCode, clientName string) bool {
	return clientCode == "" || strings.Contains(strings.ToUpper(clientName), "TOTAL")
}

// Build converts the progress table into snapshot rows for period. Every
// unresolved row also yields exactly one audit record tagged with runID.
func Build(tbl *source.Table, period core.Period, runID int64, resolver *identity.Resolver) ([]core.VendorClientSnapshot, []core.UnmatchedClient) {
	salesCol, _ := SalesColumn(tbl, period)

	var (
		rows      []core.VendorClientSnapshot
		unmatched []core.UnmatchedClient
	)
	for _, row := range tbl.Rows {
		code := normalize.Key(tbl.Get(row, colClientCode))
		name := tbl.Get(row, colClientName)
		if skipRow(code, name) {
			continue
		}

		match := resolver.Resolve(identity.Weak{Code: code, Name: name, SecondaryCode: code})

		sales := decimal.Zero
		if salesCol >= 0 {
			sales = normalize.Numeric(source.Cell(row, salesCol))
		}

		rows = append(rows, core.VendorClientSnapshot{
			Period:            period,
			Channel:           tbl.Get(row, colChannel),
			Region:            tbl.Get(row, colRegion),
			Manager:           tbl.Get(row, colManager),
			VendorCode:        normalize.Key(tbl.Get(row, colVendorCode)),
			VendorName:        tbl.Get(row, colVendorName),
			ClientID:          code,
			ClientName:        name,
			SecondaryCode:     code,
			CurrentSales:      sales,
			Target:            normalize.Numeric(tbl.Get(row, colTarget)),
			Pending:           normalize.Numeric(tbl.Get(row, colPending)),
			DeliveryFrequency: match.Frequency,
			MatchQuality:      match.Quality,
		})

		if !match.Matched() {
			unmatched = append(unmatched, core.UnmatchedClient{
				RunID:         runID,
				Period:        period,
				WeakCode:      code,
				Name:          name,
				SecondaryCode: code,
				Reason:        UnmatchedReason,
			})
		}
	}
	return rows, unmatched
}

// History pivots every month-named column into sparse ClientHistory rows.
// A repeated (client, period) keeps the value of the last row.
func History(tbl *source.Table) []core.ClientHistory {
	type monthCol struct {
		index  int
		period core.Period
	}
	var months []monthCol
	for i, h := range tbl.Header {
		if p, ok := core.ParseMonthLabel(h); ok {
			months = append(months, monthCol{index: i, period: p})
		}
	}
	if len(months) == 0 {
		return nil
	}

	type key struct {
		client string
		period core.Period
	}
	pos := make(map[key]int)
	var out []core.ClientHistory
	for _, row := range tbl.Rows {
		code := normalize.Key(tbl.Get(row, colClientCode))
		if skipRow(code, tbl.Get(row, colClientName)) {
			continue
		}
		vendor := normalize.Key(tbl.Get(row, colVendorCode))
		for _, m := range months {
			qty := normalize.Numeric(source.Cell(row, m.index))
			if !qty.IsPositive() {
				continue
			}
			h := core.ClientHistory{ClientID: code, VendorCode: vendor, Period: m.period, QuantitySold: qty}
			k := key{code, m.period}
			if i, dup := pos[k]; dup {
				out[i] = h
				continue
			}
			pos[k] = len(out)
			out = append(out, h)
		}
	}
	return out
}
