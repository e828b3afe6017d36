package objective_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/IamNiko/sales-app/core"
	"github.com/IamNiko/sales-app/objective"
	"github.com/IamNiko/sales-app/store/sqlite"
)

const feb = core.Period("2026-02")

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func row(client string, target int64) core.VendorClientSnapshot {
	return core.VendorClientSnapshot{
		Period:       feb,
		VendorCode:   "100067806",
		ClientID:     client,
		Target:       d(target),
		MatchQuality: core.MatchID,
	}
}

func newTestAllocator(t *testing.T) (*objective.Allocator, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return objective.NewAllocator(store, zaptest.NewLogger(t)), store
}

func TestSplit_Proportional(t *testing.T) {
	// GIVEN: Vendor quantity 1000, money 100k; clients targeting 600 and 400
	obj := core.VendorObjective{VendorCode: "100067806", TargetQuantity: d(1000), TargetAmount: d(100000), TargetPremiumAmount: d(10000)}

	// WHEN: Splitting
	got, denom := objective.Split(obj, []core.VendorClientSnapshot{row("00001", 600), row("00002", 400), row("00003", 0)})

	// THEN: 60k / 40k, the zero-target client is left out
	assert.True(t, d(1000).Equal(denom))
	require.Len(t, got, 2)
	assert.True(t, d(60000).Equal(got[0].TargetAmount))
	assert.True(t, d(40000).Equal(got[1].TargetAmount))
	assert.True(t, d(6000).Equal(got[0].TargetPremiumAmount))
}

func TestSplit_NeverExceedsVendorTarget(t *testing.T) {
	obj := core.VendorObjective{TargetQuantity: d(1000), TargetAmount: d(100000)}

	got, denom := objective.Split(obj, []core.VendorClientSnapshot{row("00001", 900), row("00002", 600)})

	assert.True(t, d(1500).Equal(denom))
	total := decimal.Zero
	for _, a := range got {
		total = total.Add(a.TargetAmount)
	}
	assert.True(t, total.LessThanOrEqual(obj.TargetAmount), "allocated %s", total)
}

func TestAllocate_WritesTargetsAndIsIdempotent(t *testing.T) {
	alloc, store := newTestAllocator(t)
	ctx := context.Background()

	untouched := row("00003", 0)
	untouched.TargetAmount = d(123)
	require.NoError(t, store.ReplaceSnapshot(ctx, feb, []core.VendorClientSnapshot{
		row("00001", 600), row("00002", 400), untouched,
	}, nil))
	require.NoError(t, alloc.Seed(ctx, []core.VendorObjective{{
		VendorCode: "100067806.0", Period: feb,
		TargetQuantity: d(1000), TargetAmount: d(100000), TargetPremiumAmount: d(10000),
	}}))

	for i := 0; i < 2; i++ {
		n, err := alloc.Allocate(ctx, feb)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	}

	rows, err := store.ListSnapshot(ctx, feb)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.True(t, d(60000).Equal(rows[0].TargetAmount))
	assert.True(t, d(40000).Equal(rows[1].TargetAmount))
	assert.True(t, d(4000).Equal(rows[1].TargetPremiumAmount))
	assert.True(t, d(123).Equal(rows[2].TargetAmount), "zero-target client keeps its amount")
}

func TestAllocate_SkipsObjectivesWithoutQuantity(t *testing.T) {
	alloc, store := newTestAllocator(t)
	ctx := context.Background()

	require.NoError(t, store.ReplaceSnapshot(ctx, feb, []core.VendorClientSnapshot{row("00001", 600)}, nil))
	require.NoError(t, alloc.Seed(ctx, []core.VendorObjective{{VendorCode: "100067806", Period: feb, TargetAmount: d(5)}}))

	n, err := alloc.Allocate(ctx, feb)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAllocate_RepeatedClientRowsKeepTheirOwnShare(t *testing.T) {
	// GIVEN: The same (client, vendor) on two snapshot rows targeting 400 and 600
	alloc, store := newTestAllocator(t)
	ctx := context.Background()

	require.NoError(t, store.ReplaceSnapshot(ctx, feb, []core.VendorClientSnapshot{
		row("00001", 400), row("00001", 600),
	}, nil))
	require.NoError(t, alloc.Seed(ctx, []core.VendorObjective{{
		VendorCode: "100067806", Period: feb,
		TargetQuantity: d(1000), TargetAmount: d(100000),
	}}))

	// WHEN: Allocating
	n, err := alloc.Allocate(ctx, feb)
	require.NoError(t, err)

	// THEN: Each row gets its own share and the vendor total holds
	assert.Equal(t, 2, n)

	rows, err := store.ListSnapshot(ctx, feb)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, d(40000).Equal(rows[0].TargetAmount), "got %s", rows[0].TargetAmount)
	assert.True(t, d(60000).Equal(rows[1].TargetAmount), "got %s", rows[1].TargetAmount)
	assert.True(t, rows[0].TargetAmount.Add(rows[1].TargetAmount).LessThanOrEqual(d(100000)))
}

func TestSplit_CarriesRowIdentity(t *testing.T) {
	a, b := row("00001", 400), row("00001", 600)
	a.RowID, b.RowID = 7, 8

	got, _ := objective.Split(core.VendorObjective{TargetQuantity: d(1000), TargetAmount: d(100000)},
		[]core.VendorClientSnapshot{a, b})

	require.Len(t, got, 2)
	assert.Equal(t, int64(7), got[0].RowID)
	assert.Equal(t, int64(8), got[1].RowID)
}
