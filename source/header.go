/*
Package source locates input files and the tables inside them.

PURPOSE:
  Upstream reports move their header row around, rename files between
  months and mix encodings. This package turns "the client master" or
  "the billing extracts" into a Table with known columns, or fails with
  a MissingSchemaError that says what was found instead.

KEY CONCEPTS:
  - LocateHeader: the one header-discovery routine every source reuses
  - Table: header-indexed rows, looked up by normalized column name
  - Workbook: xlsx access (excelize)
  - ReadDelimited: semicolon-delimited text, UTF-8 or latin-1

SEE ALSO:
  - files.go: Filename pattern matching
  - normalize.Header: Header comparison key
*/
package source

import (
	"github.com/IamNiko/sales-app/core"
	"github.com/IamNiko/sales-app/normalize"
)

// HeaderScanWindow is how many leading rows are candidates for the header.
const HeaderScanWindow = 20

// maxReportedHeaders caps the header names carried by MissingSchemaError.
const maxReportedHeaders = 15

// LocateHeader returns the index of the first row (within window) whose
// normalized cells include every required column.
func LocateHeader(rows [][]string, required []string, window int) (int, error) {
	if window <= 0 {
		window = HeaderScanWindow
	}
	want := make([]string, len(required))
	for i, r := range required {
		want[i] = normalize.Header(r)
	}

	var firstFound []string
	for i := 0; i < len(rows) && i < window; i++ {
		found := headerSet(rows[i])
		if firstFound == nil && len(found) > 0 {
			firstFound = headerList(rows[i])
		}
		if containsAll(found, want) {
			return i, nil
		}
	}

	if len(firstFound) > maxReportedHeaders {
		firstFound = firstFound[:maxReportedHeaders]
	}
	return -1, &core.MissingSchemaError{Required: want, Found: firstFound}
}

func headerSet(row []string) map[string]bool {
	set := make(map[string]bool, len(row))
	for _, cell := range row {
		if h := normalize.Header(cell); h != "" {
			set[h] = true
		}
	}
	return set
}

func headerList(row []string) []string {
	var out []string
	for _, cell := range row {
		if h := normalize.Header(cell); h != "" {
			out = append(out, h)
		}
	}
	return out
}

func containsAll(set map[string]bool, want []string) bool {
	for _, w := range want {
		if !set[w] {
			return false
		}
	}
	return true
}
