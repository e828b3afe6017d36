/*
errors.go - Centralized error types for the consolidation pipeline

PURPOSE:
  All error types in one place for consistency and discoverability.
  Loaders wrap these with file and step context.

ERROR CATEGORIES:
  1. Fatal schema errors - required file or column set absent (run aborts)
  2. Row errors - unparseable date (row skipped, never fatal)
  3. Run errors - any step failure, recorded in the run ledger

NON-ERRORS (by contract):
  - Unparseable numeric fields coerce to zero
  - Unresolved client identity is audited, not raised
  - Ambiguous name matches resolve to the first candidate with a warning

SEE ALSO:
  - source/header.go: Raises MissingSchemaError
  - pipeline/runner.go: Wraps step failures in RunFailedError
*/
package core

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingSchema is returned when a required input file or column set
	// cannot be found. Fatal for the run.
	ErrMissingSchema = errors.New("missing schema")

	// ErrUnparseableDate is returned for date cells that no accepted layout
	// can parse. The row is skipped.
	ErrUnparseableDate = errors.New("unparseable date")

	// ErrRunFailed marks an error that terminated a pipeline run.
	ErrRunFailed = errors.New("run failed")

	// ErrRunNotFound is returned when a run id does not exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrAliasCycle is returned when vendor aliases point back at themselves.
	ErrAliasCycle = errors.New("vendor alias cycle")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// MissingSchemaError reports which dataset could not be located and what was
// found instead.
type MissingSchemaError struct {
	Dataset  string
	Path     string
	Required []string
	Found    []string // at most 15 discovered header names
}

func (e *MissingSchemaError) Error() string {
	if len(e.Required) == 0 {
		return fmt.Sprintf("missing schema: no file for %s", e.Dataset)
	}
	return fmt.Sprintf("missing schema: could not find %v in %s (%s); found: [%s]",
		e.Required, e.Path, e.Dataset, strings.Join(e.Found, ", "))
}

func (e *MissingSchemaError) Unwrap() error {
	return ErrMissingSchema
}

// RunFailedError reports the step that aborted a run.
type RunFailedError struct {
	RunID int64
	Step  string
	Err   error
}

func (e *RunFailedError) Error() string {
	return fmt.Sprintf("run %d failed at %s: %v", e.RunID, e.Step, e.Err)
}

func (e *RunFailedError) Unwrap() []error {
	return []error{ErrRunFailed, e.Err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsFatal reports whether err must abort the run rather than degrade a row.
func IsFatal(err error) bool {
	return err != nil && !errors.Is(err, ErrUnparseableDate)
}
