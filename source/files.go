package source

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"go.uber.org/zap"

	"github.com/IamNiko/sales-app/core"
)

// Finder resolves logical datasets to files in one input directory.
type Finder struct {
	Dir    string
	Logger *zap.Logger
}

func NewFinder(dir string, logger *zap.Logger) *Finder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Finder{Dir: dir, Logger: logger}
}

// FindFiles returns every regular file whose name matches pattern
// (case-insensitive), in lexical order.
func (f *Finder) FindFiles(pattern string) ([]string, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid file pattern %q: %w", pattern, err)
	}
	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var matches []string
	for _, e := range entries {
		if e.IsDir() || !re.MatchString(e.Name()) {
			continue
		}
		matches = append(matches, filepath.Join(f.Dir, e.Name()))
	}
	return matches, nil
}

// FindFile returns the first file matching pattern. Ambiguity is not an
// error: the lexically first name wins and the rest are logged. ok is false
// when nothing matches.
func (f *Finder) FindFile(dataset, pattern string) (path string, ok bool, err error) {
	matches, err := f.FindFiles(pattern)
	if err != nil {
		return "", false, err
	}
	if len(matches) == 0 {
		return "", false, nil
	}
	if len(matches) > 1 {
		f.Logger.Warn("multiple files match dataset, using first",
			zap.String("dataset", dataset),
			zap.String("chosen", filepath.Base(matches[0])),
			zap.Int("candidates", len(matches)))
	}
	return matches[0], true, nil
}

// RequireFile is FindFile for datasets the run cannot proceed without.
func (f *Finder) RequireFile(dataset, pattern string) (string, error) {
	path, ok, err := f.FindFile(dataset, pattern)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &core.MissingSchemaError{Dataset: dataset, Path: f.Dir}
	}
	return path, nil
}
