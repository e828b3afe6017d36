/*
runner.go - One consolidation run, step by step

PURPOSE:
  Drives every loader in a fixed order against one store and records the
  outcome in the run ledger.

STEP ORDER:
  1. dimensions       client master + product classification (optional files)
  2. billing          every billing extract, in file-name order
  3. progress         snapshot, identity resolution, unmatched audit, history
  4. aliases          obsolete vendor codes rewritten to canonical
  5. ledger_sync      current sales from the ledger (opt-in)
  6. premium_flags    ledger premium flags from product classification
  7. objectives       configured vendor objectives upserted
  8. category_sheets  billed amounts from the progress workbook's category sheets
  9. allocation       vendor money targets split across clients
 10. launches         launch coverage (optional file)

RUN LEDGER:
  StartRun  -> RUNNING
  all steps -> SUCCESS, with the target period and the files read
  any error -> FAILED, with the error text; *core.RunFailedError returned

  Each step commits on its own. A failed run leaves earlier steps' writes
  in place; re-running is safe because every step is idempotent.

SEE ALSO:
  - core/store.go: Store contract
  - api/scheduler.go: Scheduled and on-demand runs
*/
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/IamNiko/sales-app/alias"
	"github.com/IamNiko/sales-app/billing"
	"github.com/IamNiko/sales-app/config"
	"github.com/IamNiko/sales-app/core"
	"github.com/IamNiko/sales-app/dimension"
	"github.com/IamNiko/sales-app/identity"
	"github.com/IamNiko/sales-app/launch"
	"github.com/IamNiko/sales-app/objective"
	"github.com/IamNiko/sales-app/snapshot"
	"github.com/IamNiko/sales-app/source"
)

// Runner executes consolidation runs over the files in DataDir.
type Runner struct {
	Store   core.Store
	Config  *config.Config
	DataDir string

	// Year is the year assigned to the DD-MM date in the progress file
	// name. Zero means the current year.
	Year int

	Now    func() time.Time
	Logger *zap.Logger
}

func NewRunner(store core.Store, cfg *config.Config, dataDir string, logger *zap.Logger) *Runner {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{Store: store, Config: cfg, DataDir: dataDir, Now: time.Now, Logger: logger}
}

// state is what steps hand to later steps within one run.
type state struct {
	run      core.RunRecord
	finder   *source.Finder
	period   core.Period
	progress string
	manifest []string
}

func (s *state) read(path string) {
	s.manifest = append(s.manifest, filepath.Base(path))
}

type step struct {
	name string
	fn   func(ctx context.Context, st *state) error
}

func (r *Runner) steps() []step {
	return []step{
		{"dimensions", r.loadDimensions},
		{"billing", r.loadBilling},
		{"progress", r.loadProgress},
		{"aliases", r.applyAliases},
		{"ledger_sync", r.syncSales},
		{"premium_flags", r.refreshPremium},
		{"objectives", r.seedObjectives},
		{"category_sheets", r.loadCategorySheets},
		{"allocation", r.allocate},
		{"launches", r.loadLaunches},
	}
}

// Run performs one full run and returns its final ledger record.
func (r *Runner) Run(ctx context.Context) (core.RunRecord, error) {
	run, err := r.Store.StartRun(ctx)
	if err != nil {
		return core.RunRecord{}, fmt.Errorf("start run: %w", err)
	}
	log := r.Logger.With(zap.Int64("run_id", run.RunID))
	log.Info("run started", zap.String("data_dir", r.DataDir))

	st := &state{run: run, finder: source.NewFinder(r.DataDir, log)}
	for _, s := range r.steps() {
		if err := ctx.Err(); err != nil {
			return r.fail(ctx, st, s.name, err)
		}
		started := time.Now()
		if err := s.fn(ctx, st); err != nil {
			return r.fail(ctx, st, s.name, err)
		}
		log.Info("step completed", zap.String("step", s.name), zap.Duration("elapsed", time.Since(started)))
	}

	finished := r.now()
	st.run.Status = core.RunSuccess
	st.run.FinishedAt = &finished
	st.run.PeriodUpdated = st.period
	st.run.FileManifest = st.manifest
	if err := r.Store.FinishRun(ctx, st.run); err != nil {
		return st.run, fmt.Errorf("finish run %d: %w", run.RunID, err)
	}
	log.Info("run succeeded",
		zap.String("period", st.period.String()),
		zap.Strings("files", st.manifest))
	return st.run, nil
}

func (r *Runner) fail(ctx context.Context, st *state, stepName string, err error) (core.RunRecord, error) {
	finished := r.now()
	st.run.Status = core.RunFailed
	st.run.FinishedAt = &finished
	st.run.Message = fmt.Sprintf("%s: %v", stepName, err)
	st.run.PeriodUpdated = st.period
	st.run.FileManifest = st.manifest

	r.Logger.Error("run failed",
		zap.Int64("run_id", st.run.RunID),
		zap.String("step", stepName),
		zap.Error(err))

	// The caller's context may be the reason for the failure; the ledger
	// entry is still written.
	if ferr := r.Store.FinishRun(context.WithoutCancel(ctx), st.run); ferr != nil {
		r.Logger.Error("could not record failed run", zap.Int64("run_id", st.run.RunID), zap.Error(ferr))
	}
	return st.run, &core.RunFailedError{RunID: st.run.RunID, Step: stepName, Err: err}
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) year() int {
	if r.Year > 0 {
		return r.Year
	}
	return r.now().Year()
}

// optional returns the file for dataset, or "" after logging that it is
// being skipped.
func (r *Runner) optional(st *state, dataset, pattern string) (string, error) {
	path, ok, err := st.finder.FindFile(dataset, pattern)
	if err != nil {
		return "", err
	}
	if !ok {
		r.Logger.Warn("no input file, skipping", zap.String("dataset", dataset), zap.String("pattern", pattern))
		return "", nil
	}
	st.read(path)
	return path, nil
}

// =============================================================================
// STEPS
// =============================================================================

func (r *Runner) loadDimensions(ctx context.Context, st *state) error {
	loader := dimension.NewLoader(r.Store, r.Config.Headers.Products, r.Logger)

	path, err := r.optional(st, "clients", r.Config.Files.Clients)
	if err != nil {
		return err
	}
	if path != "" {
		if _, err := loader.LoadClients(ctx, path); err != nil {
			return err
		}
	}

	path, err = r.optional(st, "products", r.Config.Files.Products)
	if err != nil {
		return err
	}
	if path != "" {
		if _, err := loader.LoadProducts(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) loadBilling(ctx context.Context, st *state) error {
	paths, err := st.finder.FindFiles(r.Config.Files.Billing)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		r.Logger.Warn("no billing extracts found", zap.String("pattern", r.Config.Files.Billing))
		return nil
	}
	for _, p := range paths {
		st.read(p)
	}
	_, err = billing.NewLoader(r.Store, r.Logger).LoadFiles(ctx, paths)
	return err
}

func (r *Runner) snapshotLoader() *snapshot.Loader {
	l := snapshot.NewLoader(r.Store, r.Logger)
	l.HeaderRow = r.Config.Headers.Progress
	l.CategoryHeaderRow = r.Config.Headers.CategorySheets
	l.CategorySheets = r.Config.CategorySheets
	return l
}

func (r *Runner) loadProgress(ctx context.Context, st *state) error {
	path, err := st.finder.RequireFile("progress", r.Config.Files.Progress)
	if err != nil {
		return err
	}
	st.read(path)
	st.progress = path

	period, ok := core.PeriodFromFilename(filepath.Base(path), r.year())
	if !ok {
		period = core.NewPeriod(r.year(), r.now().Month())
		r.Logger.Warn("no date in progress file name, using current month",
			zap.String("file", filepath.Base(path)),
			zap.String("period", period.String()))
	}
	st.period = period

	clients, err := r.Store.ListClients(ctx)
	if err != nil {
		return fmt.Errorf("list clients: %w", err)
	}
	resolver := identity.NewResolver(clients, nil, r.Logger)

	_, err = r.snapshotLoader().Load(ctx, path, period, st.run.RunID, resolver)
	return err
}

func (r *Runner) aliases() []alias.Alias {
	out := make([]alias.Alias, 0, len(r.Config.VendorAliases))
	for _, a := range r.Config.VendorAliases {
		out = append(out, alias.Alias{Obsolete: a.Obsolete, Canonical: a.Canonical, CanonicalName: a.CanonicalName})
	}
	return out
}

func (r *Runner) applyAliases(ctx context.Context, st *state) error {
	_, err := alias.NewUnifier(r.Store, r.aliases(), r.Logger).Apply(ctx, st.period)
	return err
}

func (r *Runner) syncSales(ctx context.Context, st *state) error {
	if !r.Config.SyncSalesFromLedger {
		return nil
	}
	n, err := r.Store.SyncSalesFromLedger(ctx, st.period)
	if err != nil {
		return fmt.Errorf("sync sales from ledger: %w", err)
	}
	r.Logger.Info("current sales synced from ledger", zap.Int("rows", n))
	return nil
}

func (r *Runner) refreshPremium(ctx context.Context, _ *state) error {
	n, err := r.Store.RefreshPremiumFlags(ctx, r.Config.PremiumSubcategory)
	if err != nil {
		return fmt.Errorf("refresh premium flags: %w", err)
	}
	r.Logger.Info("premium flags refreshed", zap.Int("premium_rows", n))
	return nil
}

func (r *Runner) seedObjectives(ctx context.Context, _ *state) error {
	return objective.NewAllocator(r.Store, r.Logger).Seed(ctx, r.Config.VendorObjectives())
}

func (r *Runner) loadCategorySheets(ctx context.Context, st *state) error {
	targets, err := alias.Resolve(r.aliases())
	if err != nil {
		return err
	}
	l := r.snapshotLoader()
	l.VendorAliases = make(map[string]string, len(targets))
	for code, t := range targets {
		l.VendorAliases[code] = t.Code
	}
	_, err = l.LoadCategorySheets(ctx, st.progress, st.period)
	return err
}

func (r *Runner) allocate(ctx context.Context, st *state) error {
	_, err := objective.NewAllocator(r.Store, r.Logger).Allocate(ctx, st.period)
	return err
}

func (r *Runner) loadLaunches(ctx context.Context, st *state) error {
	path, err := r.optional(st, "launches", r.Config.Files.Launches)
	if err != nil || path == "" {
		return err
	}
	loader := launch.NewLoader(r.Store, r.Config.Headers.Launches, r.Config.LaunchSkipSheets, r.Logger)
	_, err = loader.Load(ctx, path, st.period)
	return err
}
