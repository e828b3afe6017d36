package sqlite

// schema is applied on every New(). Idempotent via IF NOT EXISTS.
const schema = `
-- Run ledger
CREATE TABLE IF NOT EXISTS runs (
	run_id INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at TEXT NOT NULL,
	finished_at TEXT,
	status TEXT NOT NULL CHECK (status IN ('RUNNING', 'SUCCESS', 'FAILED')),
	message TEXT NOT NULL DEFAULT '',
	period_updated TEXT NOT NULL DEFAULT '',
	file_manifest_json TEXT NOT NULL DEFAULT '[]'
);

-- Unresolved identities (append-only audit)
CREATE TABLE IF NOT EXISTS unmatched_clients (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id INTEGER NOT NULL,
	period TEXT NOT NULL,
	weak_client_code TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	secondary_code TEXT NOT NULL DEFAULT '',
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_unmatched_run
	ON unmatched_clients(run_id, period);

-- Dimensions
CREATE TABLE IF NOT EXISTS clients (
	client_id TEXT PRIMARY KEY,
	display_name TEXT NOT NULL DEFAULT '',
	secondary_code TEXT NOT NULL DEFAULT '',
	delivery_frequency TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_clients_secondary
	ON clients(secondary_code);

CREATE TABLE IF NOT EXISTS products (
	product_id TEXT PRIMARY KEY,
	description TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	subcategory TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL
);

-- Billing ledger (content-addressed)
CREATE TABLE IF NOT EXISTS billing (
	content_hash TEXT PRIMARY KEY,
	issue_date TEXT NOT NULL,
	client_id TEXT NOT NULL DEFAULT '',
	vendor_code TEXT NOT NULL DEFAULT '',
	product_id TEXT NOT NULL DEFAULT '',
	quantity REAL NOT NULL DEFAULT 0,
	amount REAL NOT NULL DEFAULT 0,
	warehouse TEXT NOT NULL DEFAULT '',
	period TEXT NOT NULL,
	premium_flag INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_billing_period
	ON billing(period);
CREATE INDEX IF NOT EXISTS idx_billing_vendor
	ON billing(vendor_code);
CREATE INDEX IF NOT EXISTS idx_billing_period_client_vendor
	ON billing(period, client_id, vendor_code);

-- Monthly vendor/client progress (replaced per period)
CREATE TABLE IF NOT EXISTS snapshots (
	period TEXT NOT NULL,
	channel TEXT NOT NULL DEFAULT '',
	region TEXT NOT NULL DEFAULT '',
	manager TEXT NOT NULL DEFAULT '',
	vendor_code TEXT NOT NULL DEFAULT '',
	vendor_name TEXT NOT NULL DEFAULT '',
	client_id TEXT NOT NULL,
	client_name TEXT NOT NULL DEFAULT '',
	secondary_code TEXT NOT NULL DEFAULT '',
	current_sales REAL NOT NULL DEFAULT 0,
	target REAL NOT NULL DEFAULT 0,
	pending REAL NOT NULL DEFAULT 0,
	billed_amount REAL NOT NULL DEFAULT 0,
	target_amount REAL NOT NULL DEFAULT 0,
	target_premium_amount REAL NOT NULL DEFAULT 0,
	delivery_frequency TEXT,
	match_quality TEXT NOT NULL CHECK (match_quality IN ('id', 'centralizador', 'name', 'unmatched'))
);

CREATE INDEX IF NOT EXISTS idx_snapshots_period
	ON snapshots(period);
CREATE INDEX IF NOT EXISTS idx_snapshots_period_vendor
	ON snapshots(period, vendor_code);

-- Sparse monthly history (rebuilt every run)
CREATE TABLE IF NOT EXISTS client_history (
	client_id TEXT NOT NULL,
	vendor_code TEXT NOT NULL DEFAULT '',
	period TEXT NOT NULL,
	quantity_sold REAL NOT NULL,
	PRIMARY KEY (client_id, period)
);

-- Vendor targets
CREATE TABLE IF NOT EXISTS vendor_objectives (
	vendor_code TEXT PRIMARY KEY,
	vendor_name TEXT NOT NULL DEFAULT '',
	period TEXT NOT NULL DEFAULT '',
	target_amount REAL NOT NULL DEFAULT 0,
	target_premium_amount REAL NOT NULL DEFAULT 0,
	target_quantity REAL NOT NULL DEFAULT 0,
	target_subcategory_quantity REAL NOT NULL DEFAULT 0
);

-- Launch coverage
CREATE TABLE IF NOT EXISTS launch_coverage (
	period TEXT NOT NULL,
	launch_id TEXT NOT NULL,
	vendor_code TEXT NOT NULL DEFAULT '',
	vendor_name TEXT NOT NULL DEFAULT '',
	client_id TEXT NOT NULL,
	client_name TEXT NOT NULL DEFAULT '',
	channel TEXT NOT NULL DEFAULT '',
	region TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL CHECK (status IN ('BUYER', 'NO_PURCHASE', 'NON_BUYER', 'HISTORICAL', 'UNKNOWN')),
	period_billed_qty REAL NOT NULL DEFAULT 0,
	period_pending_qty REAL NOT NULL DEFAULT 0,
	period_total_qty REAL NOT NULL DEFAULT 0,
	trailing_avg_qty REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (period, launch_id, client_id, vendor_code)
);
`
