/*
Package identity resolves weak client references to the client master.

PURPOSE:
  Progress and launch workbooks identify clients by whatever code and name
  the report author had at hand. The resolver maps each (code, name,
  secondary code) triple to a ClientMaster row through an ordered list of
  tiers and records which tier succeeded.

TIERS (DefaultTiers, first non-empty wins):
  1. ByID:            code equals ClientMaster.ClientID
  2. ByCentralizador: secondary code equals ClientMaster.SecondaryCode
  3. ByName:          normalize.Text(name) equals normalize.Text(DisplayName)

AMBIGUITY:
  A tier returning several candidates resolves to the first one in client
  master order and logs a warning. A weak reference no tier resolves is
  "unmatched"; the caller is responsible for auditing it.

SEE ALSO:
  - snapshot/loader.go: Writes UnmatchedClient audit rows
  - normalize/normalize.go: Key and Text
*/
package identity

import (
	"go.uber.org/zap"

	"github.com/IamNiko/sales-app/core"
	"github.com/IamNiko/sales-app/normalize"
)

// Weak is a client reference as it appears in a report.
type Weak struct {
	Code          string
	Name          string
	SecondaryCode string
}

// =============================================================================
// INDEX
// =============================================================================

// Index is an in-memory lookup over the client master. Candidate lists keep
// client master order.
type Index struct {
	byID        map[string]core.ClientMaster
	bySecondary map[string][]core.ClientMaster
	byName      map[string][]core.ClientMaster
	size        int
}

// NewIndex builds an index. Keys are normalized with normalize.Key and
// names with normalize.Text.
func NewIndex(clients []core.ClientMaster) *Index {
	idx := &Index{
		byID:        make(map[string]core.ClientMaster, len(clients)),
		bySecondary: make(map[string][]core.ClientMaster),
		byName:      make(map[string][]core.ClientMaster),
	}
	for _, c := range clients {
		id := normalize.Key(c.ClientID)
		if id == "" {
			continue
		}
		if _, dup := idx.byID[id]; dup {
			continue
		}
		idx.byID[id] = c
		idx.size++
		if sc := normalize.Key(c.SecondaryCode); sc != "" {
			idx.bySecondary[sc] = append(idx.bySecondary[sc], c)
		}
		if n := normalize.Text(c.DisplayName); n != "" {
			idx.byName[n] = append(idx.byName[n], c)
		}
	}
	return idx
}

// Len returns the number of distinct clients indexed.
func (idx *Index) Len() int { return idx.size }

// =============================================================================
// TIERS
// =============================================================================

// Tier returns every client master row that matches w under one rule.
type Tier struct {
	Quality core.MatchQuality
	Match   func(w Weak, idx *Index) []core.ClientMaster
}

// ByID matches on the primary client id.
var ByID = Tier{
	Quality: core.MatchID,
	Match: func(w Weak, idx *Index) []core.ClientMaster {
		if c, ok := idx.byID[normalize.Key(w.Code)]; ok && w.Code != "" {
			return []core.ClientMaster{c}
		}
		return nil
	},
}

// ByCentralizador matches on the secondary code.
var ByCentralizador = Tier{
	Quality: core.MatchCentralizador,
	Match: func(w Weak, idx *Index) []core.ClientMaster {
		sc := normalize.Key(w.SecondaryCode)
		if sc == "" {
			return nil
		}
		return idx.bySecondary[sc]
	},
}

// ByName matches on the normalized display name.
var ByName = Tier{
	Quality: core.MatchName,
	Match: func(w Weak, idx *Index) []core.ClientMaster {
		n := normalize.Text(w.Name)
		if n == "" {
			return nil
		}
		return idx.byName[n]
	},
}

// DefaultTiers is the resolution order used by the pipeline.
var DefaultTiers = []Tier{ByID, ByCentralizador, ByName}

// =============================================================================
// RESOLVER
// =============================================================================

// Match is the outcome of resolving one weak reference.
type Match struct {
	Client     *core.ClientMaster
	Frequency  *string // nil when unmatched
	Quality    core.MatchQuality
	Candidates int
}

// Matched reports whether a client was found.
func (m Match) Matched() bool {
	return m.Quality != core.MatchUnmatched
}

type Resolver struct {
	index  *Index
	tiers  []Tier
	logger *zap.Logger
}

// NewResolver builds a resolver over clients. A nil tiers slice means
// DefaultTiers.
func NewResolver(clients []core.ClientMaster, tiers []Tier, logger *zap.Logger) *Resolver {
	if tiers == nil {
		tiers = DefaultTiers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{index: NewIndex(clients), tiers: tiers, logger: logger}
}

// Resolve walks the tiers in order and returns the first match.
func (r *Resolver) Resolve(w Weak) Match {
	for _, tier := range r.tiers {
		candidates := tier.Match(w, r.index)
		if len(candidates) == 0 {
			continue
		}
		if len(candidates) > 1 {
			r.logger.Warn("ambiguous client match, using first candidate",
				zap.String("code", w.Code),
				zap.String("name", w.Name),
				zap.String("tier", string(tier.Quality)),
				zap.Int("candidates", len(candidates)),
				zap.String("chosen", candidates[0].ClientID))
		}
		c := candidates[0]
		freq := c.DeliveryFrequency
		return Match{
			Client:     &c,
			Frequency:  &freq,
			Quality:    tier.Quality,
			Candidates: len(candidates),
		}
	}
	return Match{Quality: core.MatchUnmatched}
}
