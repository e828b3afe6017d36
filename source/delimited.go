package source

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadDelimited reads a semicolon-delimited extract into memory. Bytes that
// are valid UTF-8 are taken as such; anything else is decoded as latin-1,
// which is what the upstream reporting tool writes by default.
func ReadDelimited(path string) ([][]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	text, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}

	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = ';'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return rows, nil
}

func decode(raw []byte) ([]byte, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return raw, nil
	}
	return charmap.ISO8859_1.NewDecoder().Bytes(raw)
}
