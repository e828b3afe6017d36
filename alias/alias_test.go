package alias_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/IamNiko/sales-app/alias"
	"github.com/IamNiko/sales-app/core"
	"github.com/IamNiko/sales-app/store/sqlite"
)

const feb = core.Period("2026-02")

var gentile = []alias.Alias{
	{Obsolete: "100075864", Canonical: "100067806", CanonicalName: "GENTILE NICOLAS"},
	{Obsolete: "100075865", Canonical: "100067806", CanonicalName: "GENTILE NICOLAS"},
	{Obsolete: "100089597", Canonical: "100067806", CanonicalName: "GENTILE NICOLAS"},
}

func TestResolve_FollowsChains(t *testing.T) {
	got, err := alias.Resolve([]alias.Alias{
		{Obsolete: "A", Canonical: "B", CanonicalName: "BEE"},
		{Obsolete: "B", Canonical: "C", CanonicalName: "SEE"},
	})
	require.NoError(t, err)
	assert.Equal(t, alias.Target{Code: "C", Name: "SEE"}, got["A"])
	assert.Equal(t, alias.Target{Code: "C", Name: "SEE"}, got["B"])
}

func TestResolve_RejectsCycles(t *testing.T) {
	_, err := alias.Resolve([]alias.Alias{
		{Obsolete: "A", Canonical: "B"},
		{Obsolete: "B", Canonical: "A"},
	})
	assert.ErrorIs(t, err, core.ErrAliasCycle)

	_, err = alias.Resolve([]alias.Alias{{Obsolete: "A", Canonical: "A"}})
	assert.ErrorIs(t, err, core.ErrAliasCycle)
}

func TestApply_RewritesLedgerAndSnapshot(t *testing.T) {
	// GIVEN: Ledger lines under plain and float-serialized obsolete codes
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	line := func(hash, vendor string) core.BillingRecord {
		return core.BillingRecord{
			ContentHash: hash, IssueDate: time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC),
			ClientID: "00001", VendorCode: vendor, Quantity: decimal.NewFromInt(1), Period: feb,
		}
	}
	_, err = store.InsertBilling(ctx, []core.BillingRecord{
		line("h1", "100075864.0"),
		line("h2", "100089597"),
		line("h3", "100067806.0"),
		line("h4", "200000000"),
	})
	require.NoError(t, err)
	require.NoError(t, store.ReplaceSnapshot(ctx, feb, []core.VendorClientSnapshot{
		{VendorCode: "100075865", VendorName: "PEROTTI", ClientID: "00002", MatchQuality: core.MatchID},
	}, nil))

	// WHEN: Applying the alias table
	u := alias.NewUnifier(store, gentile, zaptest.NewLogger(t))
	res, err := u.Apply(ctx, feb)

	// THEN: Every obsolete line moves to the canonical vendor
	require.NoError(t, err)
	assert.Equal(t, 2, res.Normalized)
	assert.Equal(t, 2, res.LedgerRows)
	assert.Equal(t, 1, res.SnapshotRows)

	rows, err := store.ListBilling(ctx, feb)
	require.NoError(t, err)
	vendors := map[string]string{}
	for _, r := range rows {
		vendors[r.ContentHash] = r.VendorCode
	}
	assert.Equal(t, map[string]string{
		"h1": "100067806",
		"h2": "100067806",
		"h3": "100067806",
		"h4": "200000000",
	}, vendors)

	snap, err := store.ListSnapshotByVendor(ctx, feb, "100067806")
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, "GENTILE NICOLAS", snap[0].VendorName)

	// Re-applying changes nothing
	res, err = u.Apply(ctx, feb)
	require.NoError(t, err)
	assert.Equal(t, alias.Result{}, res)
}
