package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IamNiko/sales-app/core"
	"github.com/IamNiko/sales-app/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func billingRow(hash string, period core.Period, client, vendor, product string, qty int64) core.BillingRecord {
	return core.BillingRecord{
		ContentHash: hash,
		IssueDate:   time.Date(period.Year(), period.Month(), 5, 0, 0, 0, 0, time.UTC),
		ClientID:    client,
		VendorCode:  vendor,
		ProductID:   product,
		Quantity:    decimal.NewFromInt(qty),
		Amount:      decimal.NewFromInt(qty * 100),
		Period:      period,
	}
}

func snapshotRow(vendor, client string, sales int64) core.VendorClientSnapshot {
	return core.VendorClientSnapshot{
		VendorCode:   vendor,
		VendorName:   "V " + vendor,
		ClientID:     client,
		ClientName:   "C " + client,
		CurrentSales: decimal.NewFromInt(sales),
		Target:       decimal.NewFromInt(sales * 2),
		MatchQuality: core.MatchID,
	}
}

const feb = core.Period("2026-02")

// =============================================================================
// DIMENSIONS
// =============================================================================

func TestUpsertClients_LastWriteWins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertClients(ctx, []core.ClientMaster{
		{ClientID: "00001", DisplayName: "ACME", SecondaryCode: "S1", DeliveryFrequency: "SEMANAL"},
		{ClientID: "00002", DisplayName: "BETA"},
	})
	require.NoError(t, err)

	n, err := store.UpsertClients(ctx, []core.ClientMaster{
		{ClientID: "00001", DisplayName: "ACME SA", SecondaryCode: "S1", DeliveryFrequency: "QUINCENAL"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	clients, err := store.ListClients(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, "ACME SA", clients[0].DisplayName)
	assert.Equal(t, "QUINCENAL", clients[0].DeliveryFrequency)
	assert.Equal(t, "00002", clients[1].ClientID, "insertion order is kept")
}

// =============================================================================
// LEDGER
// =============================================================================

func TestInsertBilling_IgnoresKnownHashes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	n, err := store.InsertBilling(ctx, []core.BillingRecord{
		billingRow("h1", feb, "00001", "V1", "P1", 10),
		billingRow("h2", feb, "00001", "V1", "P2", 5),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = store.InsertBilling(ctx, []core.BillingRecord{
		billingRow("h1", feb, "00001", "V1", "P1", 10),
		billingRow("h3", feb, "00002", "V1", "P1", 1),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	exists, err := store.HashExists(ctx, "h3")
	require.NoError(t, err)
	assert.True(t, exists)

	totals, err := store.LedgerTotals(ctx)
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, 3, totals[0].Rows)
	assert.True(t, decimal.NewFromInt(16).Equal(totals[0].Quantity))
}

func TestReplaceBillingPeriods_OnlyTouchesReportedPeriods(t *testing.T) {
	// GIVEN: January and February rows in the ledger
	store := newTestStore(t)
	ctx := context.Background()
	jan := core.Period("2026-01")

	_, err := store.InsertBilling(ctx, []core.BillingRecord{
		billingRow("j1", jan, "00001", "V1", "P1", 1),
		billingRow("f1", feb, "00001", "V1", "P1", 2),
		billingRow("f2", feb, "00002", "V1", "P1", 3),
	})
	require.NoError(t, err)

	// WHEN: February is replaced by a single row
	deleted, inserted, err := store.ReplaceBillingPeriods(ctx, []core.Period{feb}, []core.BillingRecord{
		billingRow("f9", feb, "00003", "V1", "P1", 9),
	})

	// THEN: February holds only the new row, January is untouched
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.Equal(t, 1, inserted)

	rows, err := store.ListBilling(ctx, feb)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "f9", rows[0].ContentHash)

	rows, err = store.ListBilling(ctx, jan)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRefreshPremiumFlags(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertProducts(ctx, []core.ProductClassification{
		{ProductID: "P1", Subcategory: "PREMIUM"},
		{ProductID: "P2", Subcategory: "STANDARD"},
	})
	require.NoError(t, err)

	stale := billingRow("h2", feb, "00001", "V1", "P2", 1)
	stale.Premium = true
	_, err = store.InsertBilling(ctx, []core.BillingRecord{
		billingRow("h1", feb, "00001", "V1", "P1", 1),
		stale,
	})
	require.NoError(t, err)

	premium, err := store.RefreshPremiumFlags(ctx, "PREMIUM")
	require.NoError(t, err)
	assert.Equal(t, 1, premium)

	rows, err := store.ListBilling(ctx, feb)
	require.NoError(t, err)
	flags := map[string]bool{}
	for _, r := range rows {
		flags[r.ProductID] = r.Premium
	}
	assert.Equal(t, map[string]bool{"P1": true, "P2": false}, flags)
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

func TestReplaceSnapshot_ReplacesPeriodAndAudits(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run, err := store.StartRun(ctx)
	require.NoError(t, err)

	freq := "SEMANAL"
	first := snapshotRow("V1", "00001", 10)
	first.DeliveryFrequency = &freq
	require.NoError(t, store.ReplaceSnapshot(ctx, feb, []core.VendorClientSnapshot{
		first, snapshotRow("V1", "00002", 20),
	}, nil))

	// Second replacement drops 00002 and audits an unmatched row
	unmatched := snapshotRow("V1", "99999", 5)
	unmatched.MatchQuality = core.MatchUnmatched
	require.NoError(t, store.ReplaceSnapshot(ctx, feb, []core.VendorClientSnapshot{first, unmatched},
		[]core.UnmatchedClient{{RunID: run.RunID, Period: feb, WeakCode: "99999", Name: "C 99999", Reason: "No match found in client master"}}))

	rows, err := store.ListSnapshot(ctx, feb)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "00001", rows[0].ClientID)
	require.NotNil(t, rows[0].DeliveryFrequency)
	assert.Equal(t, "SEMANAL", *rows[0].DeliveryFrequency)
	assert.Nil(t, rows[1].DeliveryFrequency)
	assert.Equal(t, core.MatchUnmatched, rows[1].MatchQuality)

	audit, err := store.ListUnmatched(ctx, run.RunID)
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.Equal(t, "99999", audit[0].WeakCode)
}

func TestReplaceSnapshot_RejectsInvalidMatchQuality(t *testing.T) {
	store := newTestStore(t)
	bad := snapshotRow("V1", "00001", 1)
	bad.MatchQuality = "fuzzy"

	err := store.ReplaceSnapshot(context.Background(), feb, []core.VendorClientSnapshot{bad}, nil)
	assert.Error(t, err)
}

func TestSyncSalesFromLedger_KeepsRowsWithoutLedgerLines(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.ReplaceSnapshot(ctx, feb, []core.VendorClientSnapshot{
		snapshotRow("V1", "00001", 10),
		snapshotRow("V1", "00002", 20),
	}, nil))
	_, err := store.InsertBilling(ctx, []core.BillingRecord{
		billingRow("h1", feb, "00001", "V1", "P1", 7),
		billingRow("h2", feb, "00001", "V1", "P2", 8),
	})
	require.NoError(t, err)

	n, err := store.SyncSalesFromLedger(ctx, feb)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows, err := store.ListSnapshot(ctx, feb)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(15).Equal(rows[0].CurrentSales))
	assert.True(t, decimal.NewFromInt(20).Equal(rows[1].CurrentSales))
}

func TestReplaceHistory_RebuildsTable(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.ReplaceHistory(ctx, []core.ClientHistory{
		{ClientID: "00001", VendorCode: "V1", Period: "2025-02", QuantitySold: decimal.NewFromInt(120)},
		{ClientID: "00001", VendorCode: "V1", Period: "2025-01", QuantitySold: decimal.NewFromInt(80)},
	}))
	require.NoError(t, store.ReplaceHistory(ctx, []core.ClientHistory{
		{ClientID: "00001", VendorCode: "V1", Period: "2025-02", QuantitySold: decimal.NewFromInt(130)},
	}))

	hist, err := store.ListHistory(ctx, "00001")
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.True(t, decimal.NewFromInt(130).Equal(hist[0].QuantitySold))
}

// =============================================================================
// OBJECTIVES & ALIASES
// =============================================================================

func TestUpsertObjectives_ZeroSubcategoryKeepsStoredValue(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	obj := core.VendorObjective{
		VendorCode:                "100067806",
		VendorName:                "GENTILE NICOLAS",
		Period:                    feb,
		TargetAmount:              decimal.NewFromInt(499163842),
		TargetSubcategoryQuantity: decimal.NewFromInt(9500),
	}
	require.NoError(t, store.UpsertObjectives(ctx, []core.VendorObjective{obj}))

	obj.TargetSubcategoryQuantity = decimal.Zero
	obj.TargetQuantity = decimal.NewFromInt(76942)
	require.NoError(t, store.UpsertObjectives(ctx, []core.VendorObjective{obj}))

	got, err := store.ListObjectives(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, decimal.NewFromInt(9500).Equal(got[0].TargetSubcategoryQuantity))
	assert.True(t, decimal.NewFromInt(76942).Equal(got[0].TargetQuantity))
}

func TestRewriteVendor_LedgerAndPeriodSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.InsertBilling(ctx, []core.BillingRecord{
		billingRow("h1", feb, "00001", "100075864.0", "P1", 1),
		billingRow("h2", "2026-01", "00001", "100075864", "P1", 1),
		billingRow("h3", feb, "00001", "V9", "P1", 1),
	})
	require.NoError(t, err)
	require.NoError(t, store.ReplaceSnapshot(ctx, feb, []core.VendorClientSnapshot{
		snapshotRow("100075864", "00001", 1),
	}, nil))

	normalized, err := store.NormalizeLedgerVendorCodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, normalized)

	ledgerRows, snapRows, err := store.RewriteVendor(ctx, feb, []string{"100075864", "100075864.0"}, "100067806", "GENTILE NICOLAS")
	require.NoError(t, err)
	assert.Equal(t, 2, ledgerRows)
	assert.Equal(t, 1, snapRows)

	rows, err := store.ListSnapshotByVendor(ctx, feb, "100067806")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "GENTILE NICOLAS", rows[0].VendorName)
}

// =============================================================================
// LAUNCH COVERAGE
// =============================================================================

func TestReplaceLaunchCoverage_ReplacesHistoricalPairs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	jan := core.Period("2026-01")

	sheet := func(billed int64) core.LaunchSheet {
		return core.LaunchSheet{
			LaunchID: "NUGGETS",
			Current: []core.LaunchCoverage{{
				Period: feb, ClientID: "00001", VendorCode: "V1", Status: core.StatusBuyer,
				PeriodBilledQty: decimal.NewFromInt(billed),
			}},
			Historical: []core.LaunchCoverage{{
				Period: jan, ClientID: "00001", VendorCode: "V1", Status: core.StatusHistorical,
				PeriodBilledQty: decimal.NewFromInt(billed),
			}},
		}
	}

	_, err := store.ReplaceLaunchCoverage(ctx, feb, []core.LaunchSheet{sheet(5)})
	require.NoError(t, err)
	n, err := store.ReplaceLaunchCoverage(ctx, feb, []core.LaunchSheet{sheet(7)})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	hist, err := store.ListLaunchCoverage(ctx, jan)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, core.StatusHistorical, hist[0].Status)
	assert.True(t, decimal.NewFromInt(7).Equal(hist[0].PeriodBilledQty))
}

// =============================================================================
// RUN LEDGER
// =============================================================================

func TestRunLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run, err := store.StartRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.RunRunning, run.Status)

	run.Status = core.RunSuccess
	run.Message = "ok"
	run.PeriodUpdated = feb
	run.FileManifest = []string{"a.txt", "b.xlsx"}
	require.NoError(t, store.FinishRun(ctx, run))

	latest, err := store.LatestRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, run.RunID, latest.RunID)
	assert.Equal(t, core.RunSuccess, latest.Status)
	assert.Equal(t, feb, latest.PeriodUpdated)
	assert.Equal(t, []string{"a.txt", "b.xlsx"}, latest.FileManifest)
	assert.NotNil(t, latest.FinishedAt)

	missing, err := store.GetRun(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	err = store.FinishRun(ctx, core.RunRecord{RunID: 999, Status: core.RunFailed})
	assert.ErrorIs(t, err, core.ErrRunNotFound)
}
