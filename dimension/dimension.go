// Package dimension loads the client master and product classification
// workbooks. Both are upserted by natural key; the last file read wins.
package dimension

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/IamNiko/sales-app/core"
	"github.com/IamNiko/sales-app/normalize"
	"github.com/IamNiko/sales-app/source"
)

var (
	clientColumns  = []string{"CLIENTEID", "CLIENTE"}
	productColumns = []string{"COD PRODUCTO"}
)

// Loader reads dimension workbooks into a DimensionStore.
type Loader struct {
	Store  core.DimensionStore
	Logger *zap.Logger

	// ProductHeaderRow is the zero-based header row of the product sheet.
	ProductHeaderRow int
}

func NewLoader(store core.DimensionStore, productHeaderRow int, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{Store: store, Logger: logger, ProductHeaderRow: productHeaderRow}
}

// LoadClients upserts the client master found at path.
func (l *Loader) LoadClients(ctx context.Context, path string) (int, error) {
	wb, err := source.OpenWorkbook(path)
	if err != nil {
		return 0, err
	}
	defer wb.Close()

	clients, err := ParseClients(wb)
	if err != nil {
		return 0, err
	}
	n, err := l.Store.UpsertClients(ctx, clients)
	if err != nil {
		return 0, fmt.Errorf("upsert clients: %w", err)
	}
	l.Logger.Info("client master loaded", zap.String("file", filepath.Base(path)), zap.Int("clients", n))
	return n, nil
}

// LoadProducts upserts the product classification found at path.
func (l *Loader) LoadProducts(ctx context.Context, path string) (int, error) {
	wb, err := source.OpenWorkbook(path)
	if err != nil {
		return 0, err
	}
	defer wb.Close()

	products, err := ParseProducts(wb, l.ProductHeaderRow)
	if err != nil {
		return 0, err
	}
	n, err := l.Store.UpsertProducts(ctx, products)
	if err != nil {
		return 0, fmt.Errorf("upsert products: %w", err)
	}
	l.Logger.Info("product classification loaded", zap.String("file", filepath.Base(path)), zap.Int("products", n))
	return n, nil
}

// ParseClients reads the first sheet. The header row is located by its
// CLIENTEID and CLIENTE columns; rows without an id are skipped.
func ParseClients(wb *source.Workbook) ([]core.ClientMaster, error) {
	tbl, err := wb.LocateTable("clients", wb.FirstSheet(), clientColumns)
	if err != nil {
		return nil, err
	}

	var clients []core.ClientMaster
	for _, row := range tbl.Rows {
		id := normalize.Key(tbl.Get(row, "CLIENTEID"))
		if id == "" {
			continue
		}
		clients = append(clients, core.ClientMaster{
			ClientID:          id,
			DisplayName:       tbl.Get(row, "CLIENTE"),
			SecondaryCode:     normalize.Key(tbl.Get(row, "COD CENTRALIZADOR")),
			DeliveryFrequency: tbl.Get(row, "FRECUENCIA"),
		})
	}
	return clients, nil
}

// ParseProducts reads the first sheet with its header at headerRow.
func ParseProducts(wb *source.Workbook, headerRow int) ([]core.ProductClassification, error) {
	tbl, err := wb.Table(wb.FirstSheet(), headerRow)
	if err != nil {
		return nil, err
	}
	for _, c := range productColumns {
		if !tbl.Has(c) {
			return nil, &core.MissingSchemaError{
				Dataset:  "products",
				Path:     filepath.Base(wb.Path),
				Required: productColumns,
				Found:    firstN(tbl.Header, 15),
			}
		}
	}

	var products []core.ProductClassification
	for _, row := range tbl.Rows {
		id := normalize.Key(tbl.Get(row, "COD PRODUCTO"))
		if id == "" {
			continue
		}
		products = append(products, core.ProductClassification{
			ProductID:   id,
			Description: tbl.Get(row, "NOM PRODUCTO"),
			Category:    tbl.Get(row, "NOM CATEGORIA"),
			Subcategory: tbl.Get(row, "NOM CLASE COMERCIAL"),
		})
	}
	return products, nil
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
