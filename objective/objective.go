/*
Package objective distributes vendor-level monetary targets to clients.

PURPOSE:
  Vendor objectives are set in money and quantity; the progress workbook
  gives each client a quantity target. Allocate turns the vendor's money
  targets into per-client money targets in proportion to the quantity
  targets.

FORMULA:
  client_amount = vendor_amount * client_qty / denominator
  denominator   = vendor_qty, or the sum of client targets when that sum
                  exceeds vendor_qty

  The second form keeps the allocated total within the vendor target when
  the sheet over-assigns quantity. Clients with no positive quantity target
  keep whatever target_amount they already have.

IDEMPOTENCE:
  Allocation reads only the snapshot and the objective; re-running with the
  same inputs writes identical values.

SEE ALSO:
  - config/config.go: Objectives are configured, not read from a file
*/
package objective

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/IamNiko/sales-app/core"
	"github.com/IamNiko/sales-app/normalize"
)

// Store is what the allocator needs.
type Store interface {
	core.ObjectiveStore
	ListSnapshotByVendor(ctx context.Context, period core.Period, vendorCode string) ([]core.VendorClientSnapshot, error)
	UpdateTargets(ctx context.Context, period core.Period, allocations []core.TargetAllocation) (int, error)
}

type Allocator struct {
	Store  Store
	Logger *zap.Logger
}

func NewAllocator(store Store, logger *zap.Logger) *Allocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Allocator{Store: store, Logger: logger}
}

// Seed upserts configured objectives. Vendor codes are normalized so they
// join with snapshot rows.
func (a *Allocator) Seed(ctx context.Context, objectives []core.VendorObjective) error {
	normalized := make([]core.VendorObjective, len(objectives))
	for i, o := range objectives {
		o.VendorCode = normalize.Key(o.VendorCode)
		normalized[i] = o
	}
	if err := a.Store.UpsertObjectives(ctx, normalized); err != nil {
		return fmt.Errorf("upsert objectives: %w", err)
	}
	a.Logger.Info("vendor objectives seeded", zap.Int("objectives", len(normalized)))
	return nil
}

// Allocate writes per-client targets for period from every stored
// objective. Returns the number of snapshot rows updated.
func (a *Allocator) Allocate(ctx context.Context, period core.Period) (int, error) {
	objectives, err := a.Store.ListObjectives(ctx)
	if err != nil {
		return 0, fmt.Errorf("list objectives: %w", err)
	}

	updated := 0
	for _, obj := range objectives {
		if !obj.TargetQuantity.IsPositive() {
			continue
		}
		rows, err := a.Store.ListSnapshotByVendor(ctx, period, obj.VendorCode)
		if err != nil {
			return updated, fmt.Errorf("list snapshot for vendor %s: %w", obj.VendorCode, err)
		}

		allocations, denominator := Split(obj, rows)
		if !denominator.Equal(obj.TargetQuantity) {
			a.Logger.Warn("client targets exceed vendor quantity, scaling allocation",
				zap.String("vendor", obj.VendorCode),
				zap.String("vendor_quantity", obj.TargetQuantity.String()),
				zap.String("client_total", denominator.String()))
		}

		n, err := a.Store.UpdateTargets(ctx, period, allocations)
		if err != nil {
			return updated, fmt.Errorf("update targets for vendor %s: %w", obj.VendorCode, err)
		}
		updated += n
	}

	a.Logger.Info("monetary objectives allocated",
		zap.String("period", period.String()),
		zap.Int("rows_updated", updated))
	return updated, nil
}

// Split computes the allocation for one vendor's rows and returns it with
// the denominator used.
func Split(obj core.VendorObjective, rows []core.VendorClientSnapshot) ([]core.TargetAllocation, decimal.Decimal) {
	sum := decimal.Zero
	for _, r := range rows {
		if r.Target.IsPositive() {
			sum = sum.Add(r.Target)
		}
	}
	denominator := obj.TargetQuantity
	if sum.GreaterThan(denominator) {
		denominator = sum
	}

	var out []core.TargetAllocation
	for _, r := range rows {
		if !r.Target.IsPositive() {
			continue
		}
		out = append(out, core.TargetAllocation{
			RowID:               r.RowID,
			ClientID:            r.ClientID,
			VendorCode:          r.VendorCode,
			TargetAmount:        obj.TargetAmount.Mul(r.Target).Div(denominator),
			TargetPremiumAmount: obj.TargetPremiumAmount.Mul(r.Target).Div(denominator),
		})
	}
	return out, denominator
}
