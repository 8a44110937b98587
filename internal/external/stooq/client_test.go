package stooq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketdash/etl/internal/contracts"
)

const sampleCSV = `Date,Open,High,Low,Close,Volume
2026-08-24,645.31,648.20,644.05,647.90,58231400
2026-08-25,648.00,650.12,646.33,649.75,61022100
2026-08-26,649.50,649.80,645.10,646.22,N/A
`

func TestParseCSV(t *testing.T) {
	rows, err := parseCSV("SPY", sampleCSV)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	bar, ok := rows[0].(contracts.PriceBar)
	require.True(t, ok)
	assert.Equal(t, "SPY", bar.Symbol)
	assert.Equal(t, "2026-08-24", bar.Date.Format("2006-01-02"))
	require.NotNil(t, bar.Open)
	assert.InDelta(t, 645.31, *bar.Open, 0.001)
	require.NotNil(t, bar.Volume)
	assert.Equal(t, int64(58231400), *bar.Volume)

	// N/A volume becomes null, row is kept
	last := rows[2].(contracts.PriceBar)
	assert.Nil(t, last.Volume)
	require.NotNil(t, last.Close)
	assert.InDelta(t, 646.22, *last.Close, 0.001)
}

func TestParseCSVSchemaDrift(t *testing.T) {
	drifted := "Date,Open,High,Low,Last,Turnover\n2026-08-24,1,2,0.5,1.5,100\n"

	_, err := parseCSV("SPY", drifted)
	require.Error(t, err)

	var drift *contracts.SchemaDriftError
	require.ErrorAs(t, err, &drift)
	assert.Equal(t, "stooq", drift.Source)
	assert.ElementsMatch(t, []string{"Close", "Volume"}, drift.Missing)
}

func TestParseCSVEmptyBody(t *testing.T) {
	rows, err := parseCSV("SPY", "")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestProviderSymbol(t *testing.T) {
	assert.Equal(t, "spy.us", providerSymbol("SPY"))
	assert.Equal(t, "^vix", providerSymbol("^VIX"))
}

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "VIX", normalizeSymbol("^VIX"))
	assert.Equal(t, "SPY", normalizeSymbol("SPY"))
}
