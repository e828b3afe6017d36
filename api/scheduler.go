/*
scheduler.go - Scheduled and on-demand pipeline runs

PURPOSE:
  Runs the consolidation pipeline on a cron schedule and on POST /api/runs.
  Both paths go through RunNow, which holds one mutex for the whole run, so
  a process never executes two runs at once. A trigger that arrives while a
  run is in progress is rejected with ErrRunInProgress instead of queueing.

SCHEDULE:
  Cron expressions carry a seconds field: "0 0 6 * * *" runs daily at 06:00.
  An empty schedule disables the scheduler; RunNow still works.

LIMITS:
  The mutex is per process. Two processes pointed at the same database can
  still run concurrently; SQLite's busy timeout serializes their writes.

SEE ALSO:
  - pipeline/runner.go: What a run does
  - handlers.go: TriggerRun endpoint
*/
package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/IamNiko/sales-app/core"
)

// ErrRunInProgress is returned when a run is requested while one is active.
var ErrRunInProgress = errors.New("a run is already in progress")

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context) (core.RunRecord, error)
}

// Scheduler serializes runs from the cron schedule and from the API.
type Scheduler struct {
	Runner  Runner
	Logger  *zap.Logger
	Timeout time.Duration // per-run bound for scheduled runs; zero means none

	mu   sync.Mutex
	cron *cron.Cron
}

func NewScheduler(runner Runner, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{Runner: runner, Logger: logger}
}

// RunNow runs the pipeline synchronously unless a run is already active.
func (s *Scheduler) RunNow(ctx context.Context) (core.RunRecord, error) {
	if !s.mu.TryLock() {
		return core.RunRecord{}, ErrRunInProgress
	}
	defer s.mu.Unlock()
	return s.Runner.Run(ctx)
}

// Start registers spec and starts the cron loop. An empty spec is a no-op.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	if spec == "" {
		s.Logger.Info("scheduler disabled, no schedule configured")
		return nil
	}

	logger := cronLogger{s.Logger.Sugar()}
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(logger)))
	_, err := c.AddFunc(spec, func() {
		rctx, cancel := ctx, context.CancelFunc(func() {})
		if s.Timeout > 0 {
			rctx, cancel = context.WithTimeout(ctx, s.Timeout)
		}
		defer cancel()

		run, err := s.RunNow(rctx)
		switch {
		case errors.Is(err, ErrRunInProgress):
			s.Logger.Warn("scheduled run skipped, previous run still active")
		case err != nil:
			s.Logger.Error("scheduled run failed", zap.Int64("run_id", run.RunID), zap.Error(err))
		default:
			s.Logger.Info("scheduled run finished", zap.Int64("run_id", run.RunID))
		}
	})
	if err != nil {
		return err
	}

	s.cron = c
	c.Start()
	s.Logger.Info("scheduler started", zap.String("schedule", spec))
	return nil
}

// Stop halts the cron loop and waits for a running job to return.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.Logger.Info("scheduler stopped")
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Infow(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
