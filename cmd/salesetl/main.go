/*
main.go - salesetl command line

PURPOSE:
  Batch entry point for the consolidation pipeline and the run API.

COMMANDS:
  salesetl run     Run the pipeline once; non-zero exit on failure
  salesetl serve   Serve the run API, optionally running on a cron schedule

EXAMPLES:
  # Monthly close, files in ./data
  salesetl run --data-dir ./data --db-path ./sales.db --year 2026

  # API plus a run every day at 06:00
  salesetl serve --db-path ./sales.db --data-dir ./data --schedule "0 0 6 * * *"

GRACEFUL SHUTDOWN (serve):
  On SIGINT/SIGTERM the scheduler stops (waiting for an active run), the
  server drains for up to 30s and the database is closed.

SEE ALSO:
  - pipeline/runner.go: What a run does
  - api/server.go: Routes
  - config/config.go: --config file format
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/IamNiko/sales-app/api"
	"github.com/IamNiko/sales-app/config"
	"github.com/IamNiko/sales-app/logging"
	"github.com/IamNiko/sales-app/pipeline"
	"github.com/IamNiko/sales-app/store/sqlite"
)

var (
	dbPath     string
	dataDir    string
	configPath string
	logPath    string
	logLevel   string

	logger *zap.Logger
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stderr))
}

// execute runs the command line and returns the process exit code. Cobra's
// own error printing is silenced, so every failure is reported here.
func execute(args []string, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	err := root.Execute()
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		fmt.Fprintf(stderr, "salesetl: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "salesetl",
		Short:         "Consolidate sales extracts into the reporting store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			logger, err = logging.New(logLevel, logPath)
			return err
		},
	}

	root.PersistentFlags().StringVar(&dbPath, "db-path", "sales.db", "SQLite database path")
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "data", "directory holding the input files")
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration overlay (defaults are built in)")
	root.PersistentFlags().StringVar(&logPath, "log-path", "", "also write logs to this file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")

	root.AddCommand(newRunCmd(), newServeCmd())
	return root
}

func newRunner(store *sqlite.Store, year int) (*pipeline.Runner, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	r := pipeline.NewRunner(store, cfg, dataDir, logger)
	r.Year = year
	return r, nil
}

// =============================================================================
// RUN
// =============================================================================

func newRunCmd() *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the consolidation pipeline once",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sqlite.New(dbPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer store.Close()

			runner, err := newRunner(store, year)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			run, err := runner.Run(ctx)
			if err != nil {
				logger.Error("run failed", zap.Int64("run_id", run.RunID), zap.Error(err))
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %d %s: period %s, %d files\n",
				run.RunID, run.Status, run.PeriodUpdated, len(run.FileManifest))
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "year of the DD-MM date in the progress file name")
	return cmd
}

// =============================================================================
// SERVE
// =============================================================================

func newServeCmd() *cobra.Command {
	var (
		port     int
		schedule string
		year     int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run API and run the pipeline on a schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sqlite.New(dbPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer store.Close()

			runner, err := newRunner(store, year)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			scheduler := api.NewScheduler(runner, logger)
			if err := scheduler.Start(ctx, schedule); err != nil {
				return fmt.Errorf("invalid schedule %q: %w", schedule, err)
			}
			defer scheduler.Stop()

			server := &http.Server{
				Addr:         fmt.Sprintf(":%d", port),
				Handler:      api.NewRouter(api.NewHandler(store, scheduler, logger), nil),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 10 * time.Minute, // POST /api/runs is synchronous
				IdleTimeout:  60 * time.Second,
			}

			errc := make(chan error, 1)
			go func() {
				logger.Info("server starting", zap.String("addr", server.Addr))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
				close(errc)
			}()

			select {
			case err := <-errc:
				if err != nil {
					return fmt.Errorf("server failed: %w", err)
				}
			case <-ctx.Done():
			}

			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server forced to shutdown: %w", err)
			}
			logger.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", 8080, "HTTP server port")
	cmd.Flags().StringVar(&schedule, "schedule", "", `cron schedule with seconds, e.g. "0 0 6 * * *" (empty disables)`)
	cmd.Flags().IntVar(&year, "year", 0, "year of the DD-MM date in the progress file name (0: current year)")
	return cmd
}
