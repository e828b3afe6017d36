package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IamNiko/sales-app/core"
)

// =============================================================================
// RUN LEDGER (core.RunStore)
// =============================================================================

const runColumns = `run_id, started_at, finished_at, status, message, period_updated, file_manifest_json`

// StartRun inserts a RUNNING record and returns it with its id.
func (s *Store) StartRun(ctx context.Context) (core.RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run := core.RunRecord{
		StartedAt: s.now(),
		Status:    core.RunRunning,
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (started_at, status) VALUES (?, ?)",
		run.StartedAt.Format(timeLayout), string(run.Status),
	)
	if err != nil {
		return core.RunRecord{}, fmt.Errorf("failed to start run: %w", err)
	}
	run.RunID, err = res.LastInsertId()
	if err != nil {
		return core.RunRecord{}, fmt.Errorf("failed to read run id: %w", err)
	}
	return run, nil
}

// FinishRun stores the final status, message, period and manifest.
func (s *Store) FinishRun(ctx context.Context, run core.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	manifest := run.FileManifest
	if manifest == nil {
		manifest = []string{}
	}
	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	finished := s.now()
	if run.FinishedAt != nil {
		finished = *run.FinishedAt
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET finished_at = ?, status = ?, message = ?, period_updated = ?, file_manifest_json = ?
		WHERE run_id = ?
	`, finished.Format(timeLayout), string(run.Status), run.Message, string(run.PeriodUpdated), string(manifestJSON), run.RunID)
	if err != nil {
		return fmt.Errorf("failed to finish run %d: %w", run.RunID, err)
	}
	if affected(res) == 0 {
		return fmt.Errorf("%w: %d", core.ErrRunNotFound, run.RunID)
	}
	return nil
}

// GetRun returns nil when the run does not exist.
func (s *Store) GetRun(ctx context.Context, runID int64) (*core.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE run_id = ?", runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// LatestRun returns the most recent run, or nil when none exist.
func (s *Store) LatestRun(ctx context.Context) (*core.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs ORDER BY run_id DESC LIMIT 1")
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]core.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, "SELECT "+runColumns+" FROM runs ORDER BY run_id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []core.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// ListUnmatched returns the identity audit written by a run.
func (s *Store) ListUnmatched(ctx context.Context, runID int64) ([]core.UnmatchedClient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, period, weak_client_code, name, secondary_code, reason
		FROM unmatched_clients
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unmatched clients: %w", err)
	}
	defer rows.Close()

	var out []core.UnmatchedClient
	for rows.Next() {
		var u core.UnmatchedClient
		var period string
		if err := rows.Scan(&u.RunID, &period, &u.WeakCode, &u.Name, &u.SecondaryCode, &u.Reason); err != nil {
			return nil, err
		}
		u.Period = core.Period(period)
		out = append(out, u)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*core.RunRecord, error) {
	var (
		run       core.RunRecord
		started   string
		finished  sql.NullString
		status    string
		period    string
		manifestJ string
	)
	if err := row.Scan(&run.RunID, &started, &finished, &status, &run.Message, &period, &manifestJ); err != nil {
		return nil, err
	}
	run.StartedAt, _ = time.Parse(timeLayout, started)
	if finished.Valid {
		t, err := time.Parse(timeLayout, finished.String)
		if err == nil {
			run.FinishedAt = &t
		}
	}
	run.Status = core.RunStatus(status)
	run.PeriodUpdated = core.Period(period)
	if err := json.Unmarshal([]byte(manifestJ), &run.FileManifest); err != nil {
		return nil, fmt.Errorf("failed to decode manifest of run %d: %w", run.RunID, err)
	}
	return &run, nil
}
