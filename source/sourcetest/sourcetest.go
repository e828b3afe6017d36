// Package sourcetest writes input fixtures for tests.
package sourcetest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet of a fixture workbook. Rows start at A1.
type Sheet struct {
	Name string
	Rows [][]any
}

// WriteWorkbook creates dir/name with the given sheets, in order.
func WriteWorkbook(t testing.TB, dir, name string, sheets ...Sheet) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName(f.GetSheetName(0), s.Name))
		} else {
			_, err := f.NewSheet(s.Name)
			require.NoError(t, err)
		}
		for r, row := range s.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(s.Name, cell, &row))
		}
	}

	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}

// WriteDelimited writes semicolon-joined lines to dir/name as UTF-8.
func WriteDelimited(t testing.TB, dir, name string, rows ...[]string) string {
	t.Helper()

	var b strings.Builder
	for _, r := range rows {
		b.WriteString(strings.Join(r, ";"))
		b.WriteString("\n")
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}
