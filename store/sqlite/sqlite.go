/*
Package sqlite provides a SQLite-backed implementation of the store contracts.

PURPOSE:
  Implements core.Store: dimensions, the content-addressed billing ledger,
  period-replaced snapshots, history, objectives, launch coverage and the
  run ledger, all in one SQLite file consumed read-only by reporting.

TRANSACTIONS:
  Every write method commits its own transaction. Replacement methods
  delete and insert inside that single transaction. Nothing spans a run.

KEY TABLES:
  billing:           Immutable ledger keyed by content_hash
  snapshots:         Current vendor/client progress, replaced per period
  client_history:    Sparse monthly quantities, rebuilt every run
  runs:              One row per pipeline execution
  unmatched_clients: Audit of unresolved snapshot identities

NUMERICS:
  Quantities and money are decimal.Decimal in Go and REAL in SQLite.

CONCURRENCY:
  One connection, guarded by a mutex. Two processes writing the same file
  can still interleave period-scoped delete/insert sequences; running one
  pipeline at a time is an operational constraint.

USAGE:
  store, err := sqlite.New("./db/app.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - core/store.go: Interface definitions
  - schema.go: Table definitions
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/IamNiko/sales-app/core"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339
)

// Store implements core.Store using SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

var _ core.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes
	// writers.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

// withTx runs fn in a transaction, committing when fn returns nil.
// fn must only use tx: the pool has one connection.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// =============================================================================
// DIMENSIONS (core.DimensionStore)
// =============================================================================

// UpsertClients inserts or overwrites clients by client_id.
func (s *Store) UpsertClients(ctx context.Context, clients []core.ClientMaster) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO clients (client_id, display_name, secondary_code, delivery_frequency, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(client_id) DO UPDATE SET
			display_name = excluded.display_name,
			secondary_code = excluded.secondary_code,
			delivery_frequency = excluded.delivery_frequency,
			updated_at = excluded.updated_at
	`

	now := s.now().Format(timeLayout)
	n := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, c := range clients {
			if _, err := stmt.ExecContext(ctx, c.ClientID, c.DisplayName, c.SecondaryCode, c.DeliveryFrequency, now); err != nil {
				return fmt.Errorf("failed to upsert client %s: %w", c.ClientID, err)
			}
			n++
		}
		return nil
	})
	return n, err
}

// ListClients returns clients in insertion order. Name matching relies on
// this order to pick the same candidate on every run.
func (s *Store) ListClients(ctx context.Context) ([]core.ClientMaster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT client_id, display_name, secondary_code, delivery_frequency, updated_at
		FROM clients
		ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var clients []core.ClientMaster
	for rows.Next() {
		var c core.ClientMaster
		var updatedAt string
		if err := rows.Scan(&c.ClientID, &c.DisplayName, &c.SecondaryCode, &c.DeliveryFrequency, &updatedAt); err != nil {
			return nil, err
		}
		c.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// UpsertProducts inserts or overwrites products by product_id.
func (s *Store) UpsertProducts(ctx context.Context, products []core.ProductClassification) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO products (product_id, description, category, subcategory, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(product_id) DO UPDATE SET
			description = excluded.description,
			category = excluded.category,
			subcategory = excluded.subcategory,
			updated_at = excluded.updated_at
	`

	now := s.now().Format(timeLayout)
	n := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, p := range products {
			if _, err := stmt.ExecContext(ctx, p.ProductID, p.Description, p.Category, p.Subcategory, now); err != nil {
				return fmt.Errorf("failed to upsert product %s: %w", p.ProductID, err)
			}
			n++
		}
		return nil
	})
	return n, err
}

// =============================================================================
// BILLING LEDGER (core.LedgerStore)
// =============================================================================

const insertBillingSQL = `
	INSERT OR IGNORE INTO billing
	(content_hash, issue_date, client_id, vendor_code, product_id, quantity, amount, warehouse, period, premium_flag)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func insertBilling(ctx context.Context, tx *sql.Tx, records []core.BillingRecord) (int, error) {
	stmt, err := tx.PrepareContext(ctx, insertBillingSQL)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range records {
		res, err := stmt.ExecContext(ctx,
			r.ContentHash,
			r.IssueDate.Format(dateLayout),
			r.ClientID,
			r.VendorCode,
			r.ProductID,
			num(r.Quantity),
			num(r.Amount),
			r.Warehouse,
			string(r.Period),
			boolInt(r.Premium),
		)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert billing row %s: %w", r.ContentHash, err)
		}
		inserted += affected(res)
	}
	return inserted, nil
}

// InsertBilling appends records, ignoring known hashes.
func (s *Store) InsertBilling(ctx context.Context, records []core.BillingRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var inserted int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		inserted, err = insertBilling(ctx, tx, records)
		return err
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// ReplaceBillingPeriods deletes the periods and inserts records atomically.
func (s *Store) ReplaceBillingPeriods(ctx context.Context, periods []core.Period, records []core.BillingRecord) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted, inserted int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, p := range periods {
			res, err := tx.ExecContext(ctx, "DELETE FROM billing WHERE period = ?", string(p))
			if err != nil {
				return fmt.Errorf("failed to clear billing period %s: %w", p, err)
			}
			deleted += affected(res)
		}
		var err error
		inserted, err = insertBilling(ctx, tx, records)
		return err
	})
	if err != nil {
		return 0, 0, err
	}
	return deleted, inserted, nil
}

// ListBilling returns a period's ledger rows.
func (s *Store) ListBilling(ctx context.Context, period core.Period) ([]core.BillingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT content_hash, issue_date, client_id, vendor_code, product_id,
		       quantity, amount, warehouse, period, premium_flag
		FROM billing
		WHERE period = ?
		ORDER BY issue_date ASC, content_hash ASC
	`, string(period))
	if err != nil {
		return nil, fmt.Errorf("failed to query billing: %w", err)
	}
	defer rows.Close()

	var records []core.BillingRecord
	for rows.Next() {
		var (
			r         core.BillingRecord
			issueDate string
			p         string
			premium   int
		)
		if err := rows.Scan(&r.ContentHash, &issueDate, &r.ClientID, &r.VendorCode, &r.ProductID,
			&r.Quantity, &r.Amount, &r.Warehouse, &p, &premium); err != nil {
			return nil, fmt.Errorf("failed to scan billing row: %w", err)
		}
		r.IssueDate, _ = time.Parse(dateLayout, issueDate)
		r.Period = core.Period(p)
		r.Premium = premium != 0
		records = append(records, r)
	}
	return records, rows.Err()
}

// LedgerTotals summarizes the ledger per period.
func (s *Store) LedgerTotals(ctx context.Context) ([]core.PeriodTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT period, COUNT(*), COALESCE(SUM(quantity), 0), COALESCE(SUM(amount), 0)
		FROM billing
		GROUP BY period
		ORDER BY period ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger totals: %w", err)
	}
	defer rows.Close()

	var totals []core.PeriodTotals
	for rows.Next() {
		var t core.PeriodTotals
		var p string
		if err := rows.Scan(&p, &t.Rows, &t.Quantity, &t.Amount); err != nil {
			return nil, err
		}
		t.Period = core.Period(p)
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// HashExists checks whether a content hash is already in the ledger.
func (s *Store) HashExists(ctx context.Context, hash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM billing WHERE content_hash = ?",
		hash,
	).Scan(&count)

	return count > 0, err
}

// RefreshPremiumFlags derives premium_flag from product subcategories and
// returns the number of premium rows.
func (s *Store) RefreshPremiumFlags(ctx context.Context, premiumSubcategory string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var premium int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE billing
			SET premium_flag = CASE WHEN product_id IN (
				SELECT product_id FROM products WHERE UPPER(TRIM(subcategory)) = UPPER(TRIM(?))
			) THEN 1 ELSE 0 END
		`, premiumSubcategory)
		if err != nil {
			return fmt.Errorf("failed to refresh premium flags: %w", err)
		}
		return tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM billing WHERE premium_flag = 1").Scan(&premium)
	})
	return premium, err
}

// =============================================================================
// HELPERS
// =============================================================================

func num(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func affected(res sql.Result) int {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return int(n)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
