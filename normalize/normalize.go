/*
Package normalize canonicalizes raw cell values.

PURPOSE:
  The same identifier arrives as 42, "00042" or 42.0 depending on which
  tool serialized the extract; names arrive with and without accents;
  amounts arrive as "46.774,19". Everything that joins or compares values
  goes through this package first.

FUNCTIONS:
  Key:     join key for client/vendor/product codes
  Text:    comparison key for names
  Header:  comparison key for column headers
  Numeric: lenient number parsing, zero on failure
  Date:    day-first date parsing, error on failure

SEE ALSO:
  - identity/: Uses Text for name matching
  - source/header.go: Uses Header for header location
*/
package normalize

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// KeyWidth is the zero-padded width of pure-digit keys.
const KeyWidth = 5

// Key normalizes an identifier so integer, zero-padded and float
// serializations of the same code compare equal.
//
//	Key("100067806.0") == "100067806"
//	Key("42")          == "00042"
//	Key("ab12")        == "AB12"
func Key(v string) string {
	s := strings.TrimSpace(v)
	s = strings.TrimSuffix(s, ".0")
	if isDigits(s) {
		if len(s) < KeyWidth {
			s = strings.Repeat("0", KeyWidth-len(s)) + s
		}
		return s
	}
	return strings.ToUpper(s)
}

// Text is the name-matching key: upper-cased, whitespace runs collapsed,
// diacritics removed. Two names share a key iff they are equal ignoring
// case, accents and whitespace run-length.
func Text(v string) string {
	s := strings.Join(strings.Fields(strings.ToUpper(v)), " ")
	if s == "" {
		return ""
	}
	// Chains are stateful; build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Header is the column-header comparison key. Underscores, newlines and
// whitespace runs all collapse to one space.
func Header(v string) string {
	s := strings.ToUpper(v)
	s = strings.NewReplacer("_", " ", "\n", " ", "\r", " ", "\t", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Numeric parses plain ("120.5", "1e3"), European ("46.774,19") and US
// ("46,774.19") number text. Anything unparseable is zero.
func Numeric(v string) decimal.Decimal {
	s := strings.TrimSpace(v)
	s = strings.NewReplacer(" ", "", "\u00a0", "", "$", "").Replace(s)
	if s == "" {
		return decimal.Zero
	}

	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot > comma:
		// 46,774.19
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		// 46.774,19
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		// 1.234.567
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
