package source

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/IamNiko/sales-app/core"
)

// Workbook wraps an xlsx file. Cells are read as raw values so numbers keep
// their stored precision instead of the sheet's display format.
type Workbook struct {
	Path string
	f    *excelize.File
}

// OpenWorkbook opens an xlsx file for reading.
func OpenWorkbook(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", filepath.Base(path), err)
	}
	return &Workbook{Path: path, f: f}, nil
}

func (w *Workbook) Close() error {
	return w.f.Close()
}

// Sheets lists sheet names in workbook order.
func (w *Workbook) Sheets() []string {
	return w.f.GetSheetList()
}

// FirstSheet returns the first sheet name.
func (w *Workbook) FirstSheet() string {
	return w.f.GetSheetName(0)
}

// HasSheet reports whether a sheet exists.
func (w *Workbook) HasSheet(sheet string) bool {
	idx, err := w.f.GetSheetIndex(sheet)
	return err == nil && idx >= 0
}

// Rows returns every row of a sheet as raw strings.
func (w *Workbook) Rows(sheet string) ([][]string, error) {
	rows, err := w.f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q of %s: %w", sheet, filepath.Base(w.Path), err)
	}
	return rows, nil
}

// Table reads a sheet whose header sits at a fixed zero-based row.
func (w *Workbook) Table(sheet string, headerRow int) (*Table, error) {
	rows, err := w.Rows(sheet)
	if err != nil {
		return nil, err
	}
	return TableAt(sheet, rows, headerRow), nil
}

// LocateTable reads a sheet whose header row is found by LocateHeader.
func (w *Workbook) LocateTable(dataset, sheet string, required []string) (*Table, error) {
	rows, err := w.Rows(sheet)
	if err != nil {
		return nil, err
	}
	at, err := LocateHeader(rows, required, HeaderScanWindow)
	if err != nil {
		var mse *core.MissingSchemaError
		if errors.As(err, &mse) {
			mse.Dataset = dataset
			mse.Path = filepath.Base(w.Path)
		}
		return nil, err
	}
	return TableAt(sheet, rows, at), nil
}
