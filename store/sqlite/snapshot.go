package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/IamNiko/sales-app/core"
)

// =============================================================================
// SNAPSHOTS (core.SnapshotStore)
// =============================================================================

const snapshotColumns = `period, channel, region, manager, vendor_code, vendor_name,
	client_id, client_name, secondary_code, current_sales, target, pending,
	billed_amount, target_amount, target_premium_amount, delivery_frequency, match_quality`

// ReplaceSnapshot deletes the period's rows, inserts rows and appends the
// unmatched audit, all in one transaction.
func (s *Store) ReplaceSnapshot(ctx context.Context, period core.Period, rows []core.VendorClientSnapshot, unmatched []core.UnmatchedClient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM snapshots WHERE period = ?", string(period)); err != nil {
			return fmt.Errorf("failed to clear snapshot %s: %w", period, err)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO snapshots (`+snapshotColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range rows {
			if !r.MatchQuality.Valid() {
				return fmt.Errorf("invalid match quality %q for client %s", r.MatchQuality, r.ClientID)
			}
			_, err := stmt.ExecContext(ctx,
				string(period), r.Channel, r.Region, r.Manager, r.VendorCode, r.VendorName,
				r.ClientID, r.ClientName, r.SecondaryCode,
				num(r.CurrentSales), num(r.Target), num(r.Pending),
				num(r.BilledAmount), num(r.TargetAmount), num(r.TargetPremiumAmount),
				nullString(r.DeliveryFrequency), string(r.MatchQuality),
			)
			if err != nil {
				return fmt.Errorf("failed to insert snapshot row %s/%s: %w", r.VendorCode, r.ClientID, err)
			}
		}

		for _, u := range unmatched {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO unmatched_clients (run_id, period, weak_client_code, name, secondary_code, reason)
				VALUES (?, ?, ?, ?, ?, ?)
			`, u.RunID, string(u.Period), u.WeakCode, u.Name, u.SecondaryCode, u.Reason)
			if err != nil {
				return fmt.Errorf("failed to record unmatched client %s: %w", u.WeakCode, err)
			}
		}
		return nil
	})
}

// ListSnapshot returns a period's snapshot ordered by vendor and client.
func (s *Store) ListSnapshot(ctx context.Context, period core.Period) ([]core.VendorClientSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.querySnapshot(ctx, `SELECT rowid, `+snapshotColumns+` FROM snapshots
		WHERE period = ? ORDER BY vendor_code, client_id, rowid`, string(period))
}

// ListSnapshotByVendor returns one vendor's rows of a period.
func (s *Store) ListSnapshotByVendor(ctx context.Context, period core.Period, vendorCode string) ([]core.VendorClientSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.querySnapshot(ctx, `SELECT rowid, `+snapshotColumns+` FROM snapshots
		WHERE period = ? AND vendor_code = ? ORDER BY client_id, rowid`, string(period), vendorCode)
}

func (s *Store) querySnapshot(ctx context.Context, query string, args ...any) ([]core.VendorClientSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	defer rows.Close()

	var out []core.VendorClientSnapshot
	for rows.Next() {
		var (
			r       core.VendorClientSnapshot
			period  string
			freq    sql.NullString
			quality string
		)
		err := rows.Scan(&r.RowID, &period, &r.Channel, &r.Region, &r.Manager, &r.VendorCode, &r.VendorName,
			&r.ClientID, &r.ClientName, &r.SecondaryCode,
			&r.CurrentSales, &r.Target, &r.Pending,
			&r.BilledAmount, &r.TargetAmount, &r.TargetPremiumAmount,
			&freq, &quality)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		r.Period = core.Period(period)
		r.MatchQuality = core.MatchQuality(quality)
		if freq.Valid {
			f := freq.String
			r.DeliveryFrequency = &f
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReplaceHistory clears client_history and inserts rows. A repeated
// (client, period) keeps the last row.
func (s *Store) ReplaceHistory(ctx context.Context, rows []core.ClientHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM client_history"); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO client_history (client_id, vendor_code, period, quantity_sold)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, h := range rows {
			if _, err := stmt.ExecContext(ctx, h.ClientID, h.VendorCode, string(h.Period), num(h.QuantitySold)); err != nil {
				return fmt.Errorf("failed to insert history %s/%s: %w", h.ClientID, h.Period, err)
			}
		}
		return nil
	})
}

// ListHistory returns a client's monthly series in period order.
func (s *Store) ListHistory(ctx context.Context, clientID string) ([]core.ClientHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT client_id, vendor_code, period, quantity_sold
		FROM client_history
		WHERE client_id = ?
		ORDER BY period ASC
	`, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var out []core.ClientHistory
	for rows.Next() {
		var h core.ClientHistory
		var period string
		if err := rows.Scan(&h.ClientID, &h.VendorCode, &period, &h.QuantitySold); err != nil {
			return nil, err
		}
		h.Period = core.Period(period)
		out = append(out, h)
	}
	return out, rows.Err()
}

// UpdateBilledAmounts sets billed_amount per (client, vendor) of period.
func (s *Store) UpdateBilledAmounts(ctx context.Context, period core.Period, amounts []core.BilledAmount) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			UPDATE snapshots SET billed_amount = ?
			WHERE period = ? AND client_id = ? AND vendor_code = ?
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, a := range amounts {
			res, err := stmt.ExecContext(ctx, num(a.Amount), string(period), a.ClientID, a.VendorCode)
			if err != nil {
				return fmt.Errorf("failed to update billed amount %s/%s: %w", a.VendorCode, a.ClientID, err)
			}
			updated += affected(res)
		}
		return nil
	})
	return updated, err
}

// UpdateTargets sets the monetary targets of period. Allocations carrying a
// RowID update that row only; the rest match every (client, vendor) row.
func (s *Store) UpdateTargets(ctx context.Context, period core.Period, allocations []core.TargetAllocation) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		byRow, err := tx.PrepareContext(ctx, `
			UPDATE snapshots SET target_amount = ?, target_premium_amount = ?
			WHERE rowid = ? AND period = ?
		`)
		if err != nil {
			return err
		}
		defer byRow.Close()

		byKey, err := tx.PrepareContext(ctx, `
			UPDATE snapshots SET target_amount = ?, target_premium_amount = ?
			WHERE period = ? AND client_id = ? AND vendor_code = ?
		`)
		if err != nil {
			return err
		}
		defer byKey.Close()

		for _, a := range allocations {
			var res sql.Result
			if a.RowID > 0 {
				res, err = byRow.ExecContext(ctx, num(a.TargetAmount), num(a.TargetPremiumAmount),
					a.RowID, string(period))
			} else {
				res, err = byKey.ExecContext(ctx, num(a.TargetAmount), num(a.TargetPremiumAmount),
					string(period), a.ClientID, a.VendorCode)
			}
			if err != nil {
				return fmt.Errorf("failed to update targets %s/%s: %w", a.VendorCode, a.ClientID, err)
			}
			updated += affected(res)
		}
		return nil
	})
	return updated, err
}

// SyncSalesFromLedger overwrites current_sales with the summed ledger
// quantity. Rows without ledger lines keep the spreadsheet value.
func (s *Store) SyncSalesFromLedger(ctx context.Context, period core.Period) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		WITH ledger AS (
			SELECT client_id, vendor_code, SUM(quantity) AS total
			FROM billing
			WHERE period = ?
			GROUP BY client_id, vendor_code
		)
		UPDATE snapshots
		SET current_sales = (
			SELECT total FROM ledger
			WHERE ledger.client_id = snapshots.client_id
			  AND ledger.vendor_code = snapshots.vendor_code
		)
		WHERE period = ?
		  AND EXISTS (
			SELECT 1 FROM ledger
			WHERE ledger.client_id = snapshots.client_id
			  AND ledger.vendor_code = snapshots.vendor_code
		  )
	`, string(period), string(period))
	if err != nil {
		return 0, fmt.Errorf("failed to sync sales from ledger: %w", err)
	}
	return affected(res), nil
}

// =============================================================================
// OBJECTIVES (core.ObjectiveStore)
// =============================================================================

// UpsertObjectives writes objectives by vendor code. A zero subcategory
// quantity keeps the stored value.
func (s *Store) UpsertObjectives(ctx context.Context, objectives []core.VendorObjective) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO vendor_objectives
			(vendor_code, vendor_name, period, target_amount, target_premium_amount, target_quantity, target_subcategory_quantity)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(vendor_code) DO UPDATE SET
				vendor_name = excluded.vendor_name,
				period = excluded.period,
				target_amount = excluded.target_amount,
				target_premium_amount = excluded.target_premium_amount,
				target_quantity = excluded.target_quantity,
				target_subcategory_quantity = CASE
					WHEN excluded.target_subcategory_quantity > 0 THEN excluded.target_subcategory_quantity
					ELSE vendor_objectives.target_subcategory_quantity
				END
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, o := range objectives {
			_, err := stmt.ExecContext(ctx, o.VendorCode, o.VendorName, string(o.Period),
				num(o.TargetAmount), num(o.TargetPremiumAmount),
				num(o.TargetQuantity), num(o.TargetSubcategoryQuantity))
			if err != nil {
				return fmt.Errorf("failed to upsert objective %s: %w", o.VendorCode, err)
			}
		}
		return nil
	})
}

func (s *Store) ListObjectives(ctx context.Context) ([]core.VendorObjective, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT vendor_code, vendor_name, period, target_amount, target_premium_amount,
		       target_quantity, target_subcategory_quantity
		FROM vendor_objectives
		ORDER BY vendor_code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query objectives: %w", err)
	}
	defer rows.Close()

	var out []core.VendorObjective
	for rows.Next() {
		var o core.VendorObjective
		var period string
		if err := rows.Scan(&o.VendorCode, &o.VendorName, &period, &o.TargetAmount, &o.TargetPremiumAmount,
			&o.TargetQuantity, &o.TargetSubcategoryQuantity); err != nil {
			return nil, err
		}
		o.Period = core.Period(period)
		out = append(out, o)
	}
	return out, rows.Err()
}

// =============================================================================
// ALIASES (core.AliasStore)
// =============================================================================

// NormalizeLedgerVendorCodes strips a trailing ".0" from numeric vendor codes.
func (s *Store) NormalizeLedgerVendorCodes(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE billing
		SET vendor_code = SUBSTR(vendor_code, 1, LENGTH(vendor_code) - 2)
		WHERE vendor_code LIKE '%.0'
		  AND CAST(SUBSTR(vendor_code, 1, LENGTH(vendor_code) - 2) AS INTEGER) > 0
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to normalize vendor codes: %w", err)
	}
	return affected(res), nil
}

// RewriteVendor moves every obsolete code to the canonical one. The ledger
// is rewritten in full; snapshots only for period, or all of them when
// period is zero.
func (s *Store) RewriteVendor(ctx context.Context, period core.Period, obsolete []string, canonicalCode, canonicalName string) (int, int, error) {
	if len(obsolete) == 0 {
		return 0, 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	in := placeholders(len(obsolete))
	codes := make([]any, len(obsolete))
	for i, c := range obsolete {
		codes[i] = c
	}

	var ledgerRows, snapshotRows int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		args := append([]any{canonicalCode}, codes...)
		res, err := tx.ExecContext(ctx, "UPDATE billing SET vendor_code = ? WHERE vendor_code IN ("+in+")", args...)
		if err != nil {
			return fmt.Errorf("failed to rewrite ledger vendor: %w", err)
		}
		ledgerRows = affected(res)

		query := "UPDATE snapshots SET vendor_code = ?, vendor_name = ? WHERE vendor_code IN (" + in + ")"
		args = append([]any{canonicalCode, canonicalName}, codes...)
		if !period.IsZero() {
			query += " AND period = ?"
			args = append(args, string(period))
		}
		res, err = tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to rewrite snapshot vendor: %w", err)
		}
		snapshotRows = affected(res)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return ledgerRows, snapshotRows, nil
}

// =============================================================================
// LAUNCH COVERAGE (core.LaunchStore)
// =============================================================================

// ReplaceLaunchCoverage deletes the period's coverage and every historical
// (period, launch) pair present in sheets, then inserts all rows.
func (s *Store) ReplaceLaunchCoverage(ctx context.Context, period core.Period, sheets []core.LaunchSheet) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM launch_coverage WHERE period = ?", string(period)); err != nil {
			return fmt.Errorf("failed to clear launch coverage %s: %w", period, err)
		}
		for _, sh := range sheets {
			cleared := make(map[core.Period]bool)
			for _, h := range sh.Historical {
				if cleared[h.Period] {
					continue
				}
				cleared[h.Period] = true
				if _, err := tx.ExecContext(ctx,
					"DELETE FROM launch_coverage WHERE period = ? AND launch_id = ?",
					string(h.Period), sh.LaunchID); err != nil {
					return fmt.Errorf("failed to clear launch history %s/%s: %w", sh.LaunchID, h.Period, err)
				}
			}
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO launch_coverage
			(period, launch_id, vendor_code, vendor_name, client_id, client_name, channel, region, status,
			 period_billed_qty, period_pending_qty, period_total_qty, trailing_avg_qty)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, sh := range sheets {
			for _, rows := range [][]core.LaunchCoverage{sh.Current, sh.Historical} {
				for _, c := range rows {
					_, err := stmt.ExecContext(ctx,
						string(c.Period), sh.LaunchID, c.VendorCode, c.VendorName, c.ClientID, c.ClientName,
						c.Channel, c.Region, string(c.Status),
						num(c.PeriodBilledQty), num(c.PeriodPendingQty), num(c.PeriodTotalQty), num(c.TrailingAvgQty))
					if err != nil {
						return fmt.Errorf("failed to insert launch coverage %s/%s: %w", sh.LaunchID, c.ClientID, err)
					}
					inserted++
				}
			}
		}
		return nil
	})
	return inserted, err
}

// ListLaunchCoverage returns a period's coverage ordered by launch and client.
func (s *Store) ListLaunchCoverage(ctx context.Context, period core.Period) ([]core.LaunchCoverage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT period, launch_id, vendor_code, vendor_name, client_id, client_name, channel, region, status,
		       period_billed_qty, period_pending_qty, period_total_qty, trailing_avg_qty
		FROM launch_coverage
		WHERE period = ?
		ORDER BY launch_id, client_id, vendor_code
	`, string(period))
	if err != nil {
		return nil, fmt.Errorf("failed to query launch coverage: %w", err)
	}
	defer rows.Close()

	var out []core.LaunchCoverage
	for rows.Next() {
		var c core.LaunchCoverage
		var p, status string
		if err := rows.Scan(&p, &c.LaunchID, &c.VendorCode, &c.VendorName, &c.ClientID, &c.ClientName,
			&c.Channel, &c.Region, &status,
			&c.PeriodBilledQty, &c.PeriodPendingQty, &c.PeriodTotalQty, &c.TrailingAvgQty); err != nil {
			return nil, err
		}
		c.Period = core.Period(p)
		c.Status = core.CoverageStatus(status)
		out = append(out, c)
	}
	return out, rows.Err()
}
