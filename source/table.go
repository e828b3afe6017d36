package source

import (
	"strings"

	"github.com/IamNiko/sales-app/normalize"
)

// Table is a header row plus data rows. Columns are addressed by their
// normalized header name; the first occurrence of a duplicated header wins.
type Table struct {
	Name   string   // file or sheet the table came from
	Header []string // raw header cells
	Rows   [][]string

	index map[string]int
}

// NewTable builds a table from a header and its data rows.
func NewTable(name string, header []string, rows [][]string) *Table {
	t := &Table{Name: name, Header: header, Rows: rows, index: make(map[string]int, len(header))}
	for i, h := range header {
		key := normalize.Header(h)
		if key == "" {
			continue
		}
		if _, dup := t.index[key]; !dup {
			t.index[key] = i
		}
	}
	return t
}

// TableAt splits rows at headerRow: that row becomes the header, everything
// after it the data. Fully blank rows are dropped.
func TableAt(name string, rows [][]string, headerRow int) *Table {
	if headerRow < 0 || headerRow >= len(rows) {
		return NewTable(name, nil, nil)
	}
	var data [][]string
	for _, r := range rows[headerRow+1:] {
		if !blank(r) {
			data = append(data, r)
		}
	}
	return NewTable(name, rows[headerRow], data)
}

// Column returns the index of a column, or -1.
func (t *Table) Column(name string) int {
	if i, ok := t.index[normalize.Header(name)]; ok {
		return i
	}
	return -1
}

// Has reports whether the column exists.
func (t *Table) Has(name string) bool {
	return t.Column(name) >= 0
}

// Get returns the trimmed cell of row under column name ("" when absent).
func (t *Table) Get(row []string, name string) string {
	return Cell(row, t.Column(name))
}

// FirstColumn returns the first header (in column order) accepted by match.
func (t *Table) FirstColumn(match func(header string) bool) (int, string) {
	for i, h := range t.Header {
		if match(h) {
			return i, h
		}
	}
	return -1, ""
}

// Cell returns row[i] trimmed, or "" when i is out of range.
func Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
