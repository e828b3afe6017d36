package billing

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/IamNiko/sales-app/core"
)

// Loader writes parsed batches into the ledger.
type Loader struct {
	Ledger *core.Ledger
	Logger *zap.Logger
}

func NewLoader(store core.LedgerStore, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{Ledger: core.NewLedger(store), Logger: logger}
}

// LoadResult is what one file contributed to the ledger.
type LoadResult struct {
	File         string
	Format       Format
	Rows         int
	Inserted     int
	Duplicates   int
	Deleted      int
	Periods      []core.Period
	SkippedDates int
	ZeroValue    int
}

// Load writes a batch with the semantics of its format.
func (l *Loader) Load(ctx context.Context, batch *Batch) (LoadResult, error) {
	periods := batch.Periods()
	res := LoadResult{
		File:         batch.File,
		Format:       batch.Format,
		Rows:         batch.Rows,
		Periods:      periods,
		SkippedDates: batch.SkippedDates,
		ZeroValue:    batch.ZeroValue,
	}

	if batch.Format.ReplacesPeriods() {
		rr, err := l.Ledger.ReplacePeriods(ctx, periods, batch.Records)
		if err != nil {
			return res, fmt.Errorf("replace periods from %s: %w", batch.File, err)
		}
		res.Deleted = rr.Deleted
		res.Inserted = rr.Inserted
		res.Duplicates = len(batch.Records) - rr.Inserted
	} else {
		ar, err := l.Ledger.Append(ctx, batch.Records)
		if err != nil {
			return res, fmt.Errorf("append %s: %w", batch.File, err)
		}
		res.Inserted = ar.Inserted
		res.Duplicates = ar.Duplicates
	}

	fields := []zap.Field{
		zap.String("file", res.File),
		zap.Stringer("format", res.Format),
		zap.Int("rows", res.Rows),
		zap.Int("inserted", res.Inserted),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("skipped_dates", res.SkippedDates),
	}
	if batch.Format.ReplacesPeriods() {
		fields = append(fields, zap.Int("deleted", res.Deleted), zap.Int("zero_value", res.ZeroValue))
	}
	l.Logger.Info("billing extract loaded", fields...)
	if res.SkippedDates > 0 {
		l.Logger.Warn("billing rows skipped for unparseable dates",
			zap.String("file", res.File), zap.Int("count", res.SkippedDates))
	}
	return res, nil
}

// LoadFiles parses and loads every path in order. Files are processed in
// the given order so later bulk refreshes win over earlier appends.
func (l *Loader) LoadFiles(ctx context.Context, paths []string) ([]LoadResult, error) {
	results := make([]LoadResult, 0, len(paths))
	for _, p := range paths {
		batch, err := Parse(p)
		if err != nil {
			return results, fmt.Errorf("parse %s: %w", filepath.Base(p), err)
		}
		res, err := l.Load(ctx, batch)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
