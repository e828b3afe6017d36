package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecute_ReportsErrorsBeforeTheRunStarts(t *testing.T) {
	// GIVEN: A config path that does not exist
	dir := t.TempDir()
	var stderr bytes.Buffer

	// WHEN: Running once
	code := execute([]string{"run",
		"--db-path", filepath.Join(dir, "sales.db"),
		"--data-dir", dir,
		"--config", filepath.Join(dir, "missing.yaml"),
		"--log-level", "error",
	}, &stderr)

	// THEN: The process fails with the cause on stderr
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "salesetl: read config")
}

func TestExecute_UnknownCommand(t *testing.T) {
	var stderr bytes.Buffer

	assert.Equal(t, 1, execute([]string{"nope"}, &stderr))
	assert.Contains(t, stderr.String(), "unknown command")
}
