package core_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IamNiko/sales-app/core"
)

// memLedger is a map-backed LedgerStore that records what reached it.
type memLedger struct {
	rows     map[string]core.BillingRecord
	lookups  int
	offered  []core.BillingRecord
	replaced []core.Period
}

func newMemLedger(hashes ...string) *memLedger {
	m := &memLedger{rows: make(map[string]core.BillingRecord)}
	for _, h := range hashes {
		m.rows[h] = core.BillingRecord{ContentHash: h}
	}
	return m
}

func (m *memLedger) InsertBilling(_ context.Context, records []core.BillingRecord) (int, error) {
	m.offered = append(m.offered, records...)
	n := 0
	for _, r := range records {
		if _, ok := m.rows[r.ContentHash]; ok {
			continue
		}
		m.rows[r.ContentHash] = r
		n++
	}
	return n, nil
}

func (m *memLedger) ReplaceBillingPeriods(_ context.Context, periods []core.Period, records []core.BillingRecord) (int, int, error) {
	m.replaced = periods
	deleted := 0
	for h, r := range m.rows {
		for _, p := range periods {
			if r.Period == p {
				delete(m.rows, h)
				deleted++
				break
			}
		}
	}
	for _, r := range records {
		m.rows[r.ContentHash] = r
	}
	return deleted, len(records), nil
}

func (m *memLedger) ListBilling(_ context.Context, period core.Period) ([]core.BillingRecord, error) {
	var out []core.BillingRecord
	for _, r := range m.rows {
		if r.Period == period {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memLedger) LedgerTotals(context.Context) ([]core.PeriodTotals, error) { return nil, nil }

func (m *memLedger) HashExists(_ context.Context, hash string) (bool, error) {
	m.lookups++
	_, ok := m.rows[hash]
	return ok, nil
}

func (m *memLedger) RefreshPremiumFlags(context.Context, string) (int, error) { return 0, nil }

func TestLedgerAppend_SkipsKnownHashesBeforeInsert(t *testing.T) {
	// GIVEN: A ledger already holding hash "a"
	store := newMemLedger("a")
	ledger := core.NewLedger(store)

	// WHEN: A batch repeating "a" and carrying "b" twice is appended
	res, err := ledger.Append(context.Background(), []core.BillingRecord{
		{ContentHash: "a", Period: "2026-02"},
		{ContentHash: "b", Period: "2026-02"},
		{ContentHash: "b", Period: "2026-02"},
	})
	require.NoError(t, err)

	// THEN: Only "b" reaches the insert, once
	assert.Equal(t, core.AppendResult{Offered: 3, Inserted: 1, Duplicates: 2}, res)
	assert.Equal(t, 2, store.lookups, "one lookup per distinct hash")
	require.Len(t, store.offered, 1)
	assert.Equal(t, "b", store.offered[0].ContentHash)
}

func TestLedgerAppend_AllKnownSkipsInsert(t *testing.T) {
	store := newMemLedger("a")

	res, err := core.NewLedger(store).Append(context.Background(), []core.BillingRecord{{ContentHash: "a"}})
	require.NoError(t, err)

	assert.Equal(t, core.AppendResult{Offered: 1, Duplicates: 1}, res)
	assert.Empty(t, store.offered)
}

func TestLedgerReplacePeriods_ClearsReportedPeriodWithoutRecords(t *testing.T) {
	// GIVEN: A January row in the ledger
	store := newMemLedger()
	store.rows["old"] = core.BillingRecord{ContentHash: "old", Period: "2026-01"}

	// WHEN: An extract reports January and February but only has February rows
	res, err := core.NewLedger(store).ReplacePeriods(context.Background(),
		[]core.Period{"2026-01"},
		[]core.BillingRecord{{ContentHash: "new", Period: "2026-02"}})
	require.NoError(t, err)

	// THEN: Both periods are replaced and January is empty
	assert.Equal(t, []core.Period{"2026-01", "2026-02"}, res.Periods)
	assert.Equal(t, res.Periods, store.replaced)
	assert.Equal(t, 1, res.Deleted)
	jan, err := store.ListBilling(context.Background(), "2026-01")
	require.NoError(t, err)
	assert.Empty(t, jan)
}

func TestMergePeriods(t *testing.T) {
	assert.Equal(t,
		[]core.Period{"2025-12", "2026-01", "2026-02"},
		core.MergePeriods([]core.Period{"2026-02", "", "2025-12"}, []core.Period{"2026-01", "2026-02"}))
	assert.Empty(t, core.MergePeriods())
}
