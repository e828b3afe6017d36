// Package alias rewrites obsolete vendor codes to their canonical vendor.
//
// Vendor portfolios get reassigned without the upstream reports catching
// up, so the same clients show up under retired codes. The unifier applies
// a static alias table to the ledger and the current snapshot after loading
// and before allocation.
package alias

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/IamNiko/sales-app/core"
	"github.com/IamNiko/sales-app/normalize"
)

// Alias maps one obsolete code to a canonical code and name.
type Alias struct {
	Obsolete      string
	Canonical     string
	CanonicalName string
}

// Target is where a resolved chain ends.
type Target struct {
	Code string
	Name string
}

// Resolve follows alias chains (A → B → C) to their final target. A chain
// that revisits a code is reported as core.ErrAliasCycle.
func Resolve(aliases []Alias) (map[string]Target, error) {
	next := make(map[string]Alias, len(aliases))
	for _, a := range aliases {
		next[normalize.Key(a.Obsolete)] = a
	}

	resolved := make(map[string]Target, len(next))
	for code := range next {
		seen := map[string]bool{code: true}
		cur := next[code]
		for {
			to := normalize.Key(cur.Canonical)
			if seen[to] {
				return nil, fmt.Errorf("%w: %s", core.ErrAliasCycle, code)
			}
			further, ok := next[to]
			if !ok {
				resolved[code] = Target{Code: to, Name: cur.CanonicalName}
				break
			}
			seen[to] = true
			cur = further
		}
	}
	return resolved, nil
}

// Unifier applies an alias table through an AliasStore.
type Unifier struct {
	Store   core.AliasStore
	Aliases []Alias
	Logger  *zap.Logger
}

func NewUnifier(store core.AliasStore, aliases []Alias, logger *zap.Logger) *Unifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Unifier{Store: store, Aliases: aliases, Logger: logger}
}

// Result counts the rows each stage touched.
type Result struct {
	Normalized   int
	LedgerRows   int
	SnapshotRows int
}

// Apply strips float artifacts from ledger vendor codes, then rewrites
// every obsolete code (plain or ".0" form) in the ledger and in the
// period's snapshot.
func (u *Unifier) Apply(ctx context.Context, period core.Period) (Result, error) {
	var res Result

	targets, err := Resolve(u.Aliases)
	if err != nil {
		return res, err
	}

	res.Normalized, err = u.Store.NormalizeLedgerVendorCodes(ctx)
	if err != nil {
		return res, fmt.Errorf("normalize vendor codes: %w", err)
	}

	codes := make([]string, 0, len(targets))
	for code := range targets {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		t := targets[code]
		ledgerRows, snapshotRows, err := u.Store.RewriteVendor(ctx, period,
			[]string{code, code + ".0"}, t.Code, t.Name)
		if err != nil {
			return res, fmt.Errorf("rewrite vendor %s: %w", code, err)
		}
		res.LedgerRows += ledgerRows
		res.SnapshotRows += snapshotRows
	}

	u.Logger.Info("vendor aliases applied",
		zap.Int("aliases", len(codes)),
		zap.Int("normalized", res.Normalized),
		zap.Int("ledger_rows", res.LedgerRows),
		zap.Int("snapshot_rows", res.SnapshotRows))
	return res, nil
}
