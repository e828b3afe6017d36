/*
store.go - Persistence contracts for the consolidation store

PURPOSE:
  Defines the interface between loaders and the database. Each loader
  receives only the slice of the store it needs, injected explicitly,
  so it can be tested against an in-memory SQLite store in isolation.

KEY INTERFACES:
  DimensionStore: Client master and product classification upserts
  LedgerStore:    Content-addressed billing ledger
  SnapshotStore:  Period-replaced progress snapshot and history series
  ObjectiveStore: Vendor objectives
  AliasStore:     Vendor code rewrites
  LaunchStore:    Launch coverage replacement
  RunStore:       Run ledger and unmatched-identity audit

TRANSACTION CONTRACT:
  Every write method commits its own transaction. Replacement methods
  (ReplaceSnapshot, ReplaceBillingPeriods, ...) delete and insert inside
  ONE transaction, so a table is never observed half-replaced. There is
  no transaction spanning a whole run.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go

SEE ALSO:
  - ledger.go: Dedup semantics on top of LedgerStore
*/
package core

import "context"

// =============================================================================
// DIMENSIONS
// =============================================================================

// DimensionStore upserts dimensions by natural key (last write wins).
type DimensionStore interface {
	UpsertClients(ctx context.Context, clients []ClientMaster) (int, error)
	ListClients(ctx context.Context) ([]ClientMaster, error)
	UpsertProducts(ctx context.Context, products []ProductClassification) (int, error)
}

// =============================================================================
// LEDGER
// =============================================================================

// LedgerStore persists billing records keyed by content hash.
type LedgerStore interface {
	// InsertBilling appends records, silently ignoring hashes that already
	// exist. Returns the number of rows actually inserted.
	InsertBilling(ctx context.Context, records []BillingRecord) (int, error)

	// ReplaceBillingPeriods deletes every row of the given periods and then
	// inserts records, atomically. Returns (deleted, inserted).
	ReplaceBillingPeriods(ctx context.Context, periods []Period, records []BillingRecord) (int, int, error)

	// ListBilling returns the ledger rows of a period ordered by issue date.
	ListBilling(ctx context.Context, period Period) ([]BillingRecord, error)

	// LedgerTotals summarizes every period in the ledger.
	LedgerTotals(ctx context.Context) ([]PeriodTotals, error)

	// HashExists reports whether a content hash is already in the ledger.
	HashExists(ctx context.Context, hash string) (bool, error)

	// RefreshPremiumFlags sets premium_flag from the product classification.
	RefreshPremiumFlags(ctx context.Context, premiumSubcategory string) (int, error)
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// SnapshotStore holds the current-period progress view and its history.
type SnapshotStore interface {
	// ReplaceSnapshot swaps the whole snapshot of period and appends the
	// unmatched-identity audit records in the same transaction.
	ReplaceSnapshot(ctx context.Context, period Period, rows []VendorClientSnapshot, unmatched []UnmatchedClient) error

	ListSnapshot(ctx context.Context, period Period) ([]VendorClientSnapshot, error)
	ListSnapshotByVendor(ctx context.Context, period Period, vendorCode string) ([]VendorClientSnapshot, error)

	// ReplaceHistory rebuilds the whole client history table.
	ReplaceHistory(ctx context.Context, rows []ClientHistory) error
	ListHistory(ctx context.Context, clientID string) ([]ClientHistory, error)

	UpdateBilledAmounts(ctx context.Context, period Period, amounts []BilledAmount) (int, error)
	UpdateTargets(ctx context.Context, period Period, allocations []TargetAllocation) (int, error)

	// SyncSalesFromLedger overwrites current_sales with the ledger quantity
	// per (client, vendor) for the period.
	SyncSalesFromLedger(ctx context.Context, period Period) (int, error)
}

// =============================================================================
// OBJECTIVES, ALIASES, LAUNCHES
// =============================================================================

type ObjectiveStore interface {
	UpsertObjectives(ctx context.Context, objectives []VendorObjective) error
	ListObjectives(ctx context.Context) ([]VendorObjective, error)
}

// AliasStore rewrites vendor codes across the ledger and a period's snapshot.
type AliasStore interface {
	// NormalizeLedgerVendorCodes strips ".0" float artifacts from ledger
	// vendor codes.
	NormalizeLedgerVendorCodes(ctx context.Context) (int, error)

	// RewriteVendor replaces every obsolete code form with the canonical code
	// (and name, on snapshot rows). Returns (ledgerRows, snapshotRows).
	RewriteVendor(ctx context.Context, period Period, obsolete []string, canonicalCode, canonicalName string) (int, int, error)
}

type LaunchStore interface {
	// ReplaceLaunchCoverage deletes the period, deletes every (historical
	// period, launch) pair about to be written and inserts all rows.
	ReplaceLaunchCoverage(ctx context.Context, period Period, sheets []LaunchSheet) (int, error)
	ListLaunchCoverage(ctx context.Context, period Period) ([]LaunchCoverage, error)
}

// =============================================================================
// RUN LEDGER
// =============================================================================

type RunStore interface {
	StartRun(ctx context.Context) (RunRecord, error)
	FinishRun(ctx context.Context, run RunRecord) error
	GetRun(ctx context.Context, runID int64) (*RunRecord, error)
	LatestRun(ctx context.Context) (*RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
	ListUnmatched(ctx context.Context, runID int64) ([]UnmatchedClient, error)
}

// Store is everything the pipeline needs.
type Store interface {
	DimensionStore
	LedgerStore
	SnapshotStore
	ObjectiveStore
	AliasStore
	LaunchStore
	RunStore
}
