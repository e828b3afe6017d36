package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/IamNiko/sales-app/core"
	"github.com/IamNiko/sales-app/identity"
)

var master = []core.ClientMaster{
	{ClientID: "00001", DisplayName: "Almacén Peña", SecondaryCode: "00500", DeliveryFrequency: "SEMANAL"},
	{ClientID: "00002", DisplayName: "KIOSCO CENTRAL", SecondaryCode: "00600", DeliveryFrequency: "QUINCENAL"},
	{ClientID: "00003", DisplayName: "Kiosco  Central", SecondaryCode: "00600", DeliveryFrequency: "MENSUAL"},
}

func TestResolve_TierPrecedence(t *testing.T) {
	r := identity.NewResolver(master, nil, zap.NewNop())

	tests := []struct {
		name    string
		weak    identity.Weak
		quality core.MatchQuality
		client  string
	}{
		{"id wins over everything", identity.Weak{Code: "1.0", Name: "KIOSCO CENTRAL", SecondaryCode: "600"}, core.MatchID, "00001"},
		{"centralizador before name", identity.Weak{Code: "999", Name: "ALMACEN PENA", SecondaryCode: "600"}, core.MatchCentralizador, "00002"},
		{"name ignores accents and case", identity.Weak{Code: "999", Name: "almacen  peña"}, core.MatchName, "00001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := r.Resolve(tt.weak)
			require.True(t, m.Matched())
			assert.Equal(t, tt.quality, m.Quality)
			assert.Equal(t, tt.client, m.Client.ClientID)
			require.NotNil(t, m.Frequency)
		})
	}
}

func TestResolve_AmbiguousPicksFirstAndWarns(t *testing.T) {
	// GIVEN: Two master rows that normalize to the same name
	observed, logs := observer.New(zap.WarnLevel)
	r := identity.NewResolver(master, []identity.Tier{identity.ByName}, zap.New(observed))

	// WHEN: Resolving by that name
	m := r.Resolve(identity.Weak{Code: "X", Name: "Kiosco Central"})

	// THEN: The first in master order is chosen and a warning is logged
	assert.Equal(t, "00002", m.Client.ClientID)
	assert.Equal(t, "QUINCENAL", *m.Frequency)
	assert.Equal(t, 2, m.Candidates)
	assert.Equal(t, 1, logs.FilterMessage("ambiguous client match, using first candidate").Len())
}

func TestResolve_Unmatched(t *testing.T) {
	r := identity.NewResolver(master, nil, nil)

	m := r.Resolve(identity.Weak{Code: "77777", Name: "NOBODY"})

	assert.False(t, m.Matched())
	assert.Equal(t, core.MatchUnmatched, m.Quality)
	assert.Nil(t, m.Client)
	assert.Nil(t, m.Frequency)
}

func TestIndex_DuplicateIDsKeepFirst(t *testing.T) {
	idx := identity.NewIndex(append(master, core.ClientMaster{ClientID: "1", DisplayName: "DUP"}))
	assert.Equal(t, 3, idx.Len())
}
