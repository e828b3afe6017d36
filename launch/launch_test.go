package launch_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/IamNiko/sales-app/core"
	"github.com/IamNiko/sales-app/launch"
	"github.com/IamNiko/sales-app/source"
	"github.com/IamNiko/sales-app/source/sourcetest"
	"github.com/IamNiko/sales-app/store/sqlite"
)

const feb = core.Period("2026-02")

var launchHeader = []string{
	"COD VENDEDOR", "NOM VENDEDOR", "COD CENTRALIZADOR", "NOM CENTRALIZADOR", "CANAL", "ZONA", "ESTADO",
	"FEB '26 FACT", "FEB '26 PEND", "FEB '26 TOTAL", "PROMEDIO 3M", "DIC '25", "ENE '26",
}

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]core.CoverageStatus{
		"Comprador":      core.StatusBuyer,
		" COMPRADOR ":    core.StatusBuyer,
		"Sin compra":     core.StatusNoPurchase,
		"NO COMPRADOR":   core.StatusNonBuyer,
		"":               core.StatusUnknown,
		"pendiente algo": core.StatusUnknown,
	}
	for raw, want := range cases {
		assert.Equal(t, want, launch.NormalizeStatus(raw), raw)
	}
}

func TestParseSheet_CurrentAndHistorical(t *testing.T) {
	// GIVEN: One buyer with past purchases, a total row and a blank client
	tbl := source.NewTable("LANZ A", launchHeader, [][]string{
		{"100067806", "GENTILE", "00001", "ALMACEN UNO", "TRAD", "NORTE", "Comprador", "10", "2", "12", "4,5", "3", "0"},
		{"100067806", "GENTILE", "00002", "ALMACEN DOS", "TRAD", "NORTE", "Sin compra", "0", "0", "0", "0", "", "7"},
		{"", "", "", "", "", "", "", "", "", "", "", "", ""},
		{"100067806", "GENTILE", "99999", "TOTAL VENDEDOR", "", "", "", "10", "2", "12", "", "3", "7"},
	})

	// WHEN: Parsing for February
	sheet, warnings, err := launch.ParseSheet(tbl, "LANZ A", feb)

	// THEN: Two current rows and one historical row per positive past month
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "LANZ A", sheet.LaunchID)
	require.Len(t, sheet.Current, 2)

	first := sheet.Current[0]
	assert.Equal(t, core.StatusBuyer, first.Status)
	assert.Equal(t, "00001", first.ClientID)
	assert.True(t, decimal.NewFromInt(10).Equal(first.PeriodBilledQty))
	assert.True(t, decimal.NewFromInt(2).Equal(first.PeriodPendingQty))
	assert.True(t, decimal.NewFromInt(12).Equal(first.PeriodTotalQty))
	assert.True(t, decimal.RequireFromString("4.5").Equal(first.TrailingAvgQty))
	assert.Equal(t, core.StatusNoPurchase, sheet.Current[1].Status)

	require.Len(t, sheet.Historical, 2)
	assert.Equal(t, core.Period("2025-12"), sheet.Historical[0].Period)
	assert.Equal(t, "00001", sheet.Historical[0].ClientID)
	assert.Equal(t, core.StatusHistorical, sheet.Historical[0].Status)
	assert.True(t, decimal.NewFromInt(3).Equal(sheet.Historical[0].PeriodTotalQty))
	assert.True(t, sheet.Historical[0].PeriodPendingQty.IsZero())
	assert.Equal(t, core.Period("2026-01"), sheet.Historical[1].Period)
	assert.Equal(t, "00002", sheet.Historical[1].ClientID)
}

func TestParseSheet_NoStatusKeepsHistory(t *testing.T) {
	tbl := source.NewTable("LANZ B",
		[]string{"COD VENDEDOR", "COD CENTRALIZADOR", "NOM CENTRALIZADOR", "ENE '26"},
		[][]string{{"1", "00001", "UNO", "5"}})

	sheet, warnings, err := launch.ParseSheet(tbl, "LANZ B", feb)

	require.NoError(t, err)
	assert.Len(t, warnings, 1)
	assert.Empty(t, sheet.Current)
	require.Len(t, sheet.Historical, 1)
	assert.Equal(t, core.Period("2026-01"), sheet.Historical[0].Period)
}

func TestParseSheet_NoClientColumn(t *testing.T) {
	tbl := source.NewTable("RESUMEN", []string{"A", "B"}, [][]string{{"1", "2"}})

	_, _, err := launch.ParseSheet(tbl, "RESUMEN", feb)

	assert.Error(t, err)
}

func TestLoader_SkipsSheetsAndReplaces(t *testing.T) {
	// GIVEN: A workbook with a skipped summary sheet, a broken sheet and a launch
	dir := t.TempDir()
	header := make([]any, len(launchHeader))
	for i, h := range launchHeader {
		header[i] = h
	}
	path := sourcetest.WriteWorkbook(t, dir, "Compradores Lanzamientos.xlsx",
		sourcetest.Sheet{Name: "Resumen", Rows: [][]any{{"x"}, {"y"}}},
		sourcetest.Sheet{Name: "LANZ A", Rows: [][]any{
			{"Compradores lanzamiento A"},
			header,
			{"100067806", "GENTILE", "00001", "ALMACEN UNO", "TRAD", "NORTE", "Comprador", 10, 2, 12, 4, 3, 0},
		}},
		sourcetest.Sheet{Name: "Notas", Rows: [][]any{{"libre"}, {"sin columnas"}}},
	)

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	loader := launch.NewLoader(store, 1, []string{"RESUMEN"}, zaptest.NewLogger(t))
	ctx := context.Background()

	// WHEN: Loading twice
	var res launch.Result
	for i := 0; i < 2; i++ {
		res, err = loader.Load(ctx, path, feb)
		require.NoError(t, err)
	}

	// THEN: Only the launch sheet lands, without duplicates
	assert.Equal(t, launch.Result{Sheets: 1, Failed: 1, Current: 1, Historical: 1}, res)

	cur, err := store.ListLaunchCoverage(ctx, feb)
	require.NoError(t, err)
	require.Len(t, cur, 1)
	assert.Equal(t, core.StatusBuyer, cur[0].Status)

	hist, err := store.ListLaunchCoverage(ctx, "2025-12")
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, core.StatusHistorical, hist[0].Status)
}
