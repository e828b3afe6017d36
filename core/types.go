/*
Package core provides the canonical data model of the sales consolidation store.

PURPOSE:
  Every loader in the pipeline speaks in these types. Parsers turn raw
  spreadsheet and delimited-text rows into them; store implementations
  persist them. Nothing in this package touches files or SQL.

KEY CONCEPTS IN THIS FILE (types.go):
  - ClientMaster / ProductClassification: dimensions, upserted by natural key
  - BillingRecord: immutable ledger entry keyed by content hash
  - VendorClientSnapshot: current-period progress row, replaced per period
  - ClientHistory: sparse monthly quantity series (pivoted from wide columns)
  - VendorObjective: vendor-level targets distributed across clients
  - LaunchCoverage: per-client purchase status for a launch product
  - RunRecord / UnmatchedClient: run ledger and identity audit trail

DESIGN PRINCIPLES:
  1. Precision: quantities and money use decimal.Decimal
  2. Idempotence: every fact is either content-addressed or period-replaced
  3. Auditability: unresolved identities are recorded, never dropped

SEE ALSO:
  - period.go: Period partition key
  - store.go: Persistence contracts
  - errors.go: Error taxonomy
*/
package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DIMENSIONS
// =============================================================================

// ClientMaster is the canonical client identity.
type ClientMaster struct {
	ClientID          string
	DisplayName       string
	SecondaryCode     string // "centralizador" code
	DeliveryFrequency string
	UpdatedAt         time.Time
}

// ProductClassification describes a product's commercial category.
type ProductClassification struct {
	ProductID   string
	Description string
	Category    string
	Subcategory string
	UpdatedAt   time.Time
}

// =============================================================================
// BILLING LEDGER
// =============================================================================

// BillingRecord is one billed line. ContentHash is derived from the raw
// source row and is the ledger primary key.
type BillingRecord struct {
	ContentHash string
	IssueDate   time.Time
	ClientID    string
	VendorCode  string
	ProductID   string
	Quantity    decimal.Decimal
	Amount      decimal.Decimal
	Warehouse   string
	Period      Period
	Premium     bool
}

// PeriodTotals summarizes the ledger for one period.
type PeriodTotals struct {
	Period   Period
	Rows     int
	Quantity decimal.Decimal
	Amount   decimal.Decimal
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// MatchQuality records which identity tier resolved a snapshot row.
type MatchQuality string

const (
	MatchID            MatchQuality = "id"
	MatchCentralizador MatchQuality = "centralizador"
	MatchName          MatchQuality = "name"
	MatchUnmatched     MatchQuality = "unmatched"
)

// Valid reports whether q is one of the known qualities.
func (q MatchQuality) Valid() bool {
	switch q {
	case MatchID, MatchCentralizador, MatchName, MatchUnmatched:
		return true
	}
	return false
}

// VendorClientSnapshot is one vendor/client row of the monthly progress report.
type VendorClientSnapshot struct {
	RowID               int64 // store identity; zero until persisted
	Period              Period
	Channel             string
	Region              string
	Manager             string
	VendorCode          string
	VendorName          string
	ClientID            string
	ClientName          string
	SecondaryCode       string
	CurrentSales        decimal.Decimal
	Target              decimal.Decimal
	Pending             decimal.Decimal
	BilledAmount        decimal.Decimal
	TargetAmount        decimal.Decimal
	TargetPremiumAmount decimal.Decimal
	DeliveryFrequency   *string // nil when the client is unresolved
	MatchQuality        MatchQuality
}

// ClientHistory is one month of sold quantity for a client.
// Absence of a row means "no data", not zero.
type ClientHistory struct {
	ClientID     string
	VendorCode   string
	Period       Period
	QuantitySold decimal.Decimal
}

// BilledAmount is a per-client monetary total taken from category sheets.
type BilledAmount struct {
	ClientID   string
	VendorCode string
	Amount     decimal.Decimal
}

// TargetAllocation is the monetary target assigned to one client.
type TargetAllocation struct {
	RowID               int64 // snapshot row to update; zero matches by (client, vendor)
	ClientID            string
	VendorCode          string
	TargetAmount        decimal.Decimal
	TargetPremiumAmount decimal.Decimal
}

// =============================================================================
// OBJECTIVES
// =============================================================================

// VendorObjective holds a vendor's monthly targets.
type VendorObjective struct {
	VendorCode                string
	VendorName                string
	Period                    Period
	TargetAmount              decimal.Decimal
	TargetPremiumAmount       decimal.Decimal
	TargetQuantity            decimal.Decimal
	TargetSubcategoryQuantity decimal.Decimal
}

// =============================================================================
// LAUNCH COVERAGE
// =============================================================================

type CoverageStatus string

const (
	StatusBuyer      CoverageStatus = "BUYER"
	StatusNoPurchase CoverageStatus = "NO_PURCHASE"
	StatusNonBuyer   CoverageStatus = "NON_BUYER"
	StatusHistorical CoverageStatus = "HISTORICAL"
	StatusUnknown    CoverageStatus = "UNKNOWN"
)

// LaunchCoverage is the purchase status of one client for one launch product.
type LaunchCoverage struct {
	Period           Period
	LaunchID         string
	VendorCode       string
	VendorName       string
	ClientID         string
	ClientName       string
	Channel          string
	Region           string
	Status           CoverageStatus
	PeriodBilledQty  decimal.Decimal
	PeriodPendingQty decimal.Decimal
	PeriodTotalQty   decimal.Decimal
	TrailingAvgQty   decimal.Decimal
}

// LaunchSheet is everything one launch sheet contributes to a run.
type LaunchSheet struct {
	LaunchID   string
	Current    []LaunchCoverage
	Historical []LaunchCoverage
}

// =============================================================================
// RUN LEDGER
// =============================================================================

type RunStatus string

const (
	RunRunning RunStatus = "RUNNING"
	RunSuccess RunStatus = "SUCCESS"
	RunFailed  RunStatus = "FAILED"
)

// RunRecord is one pipeline execution.
type RunRecord struct {
	RunID         int64
	StartedAt     time.Time
	FinishedAt    *time.Time
	Status        RunStatus
	Message       string
	PeriodUpdated Period
	FileManifest  []string
}

// UnmatchedClient is the audit entry for a snapshot row whose client could
// not be resolved.
type UnmatchedClient struct {
	RunID         int64
	Period        Period
	WeakCode      string
	Name          string
	SecondaryCode string
	Reason        string
}
