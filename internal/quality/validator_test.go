package quality

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketdash/etl/internal/contracts"
	"github.com/marketdash/etl/pkg/config"
	"github.com/marketdash/etl/pkg/logger"
)

func newValidator(t *testing.T) *Validator {
	t.Helper()
	cfg := &config.Config{
		ETL: config.ETLConfig{
			MaxRejectRatio: 0.10,
			PriceStaleness: 96 * time.Hour,
			MacroStaleness: 1080 * time.Hour,
			TrendStaleness: 168 * time.Hour,
			NewsStaleness:  24 * time.Hour,
		},
	}
	return New(cfg, logger.NewNop())
}

func fptr(v float64) *float64 { return &v }
func iptr(v int64) *int64     { return &v }

func bar(symbol string, day int, open, high, low, close float64) contracts.PriceBar {
	return contracts.PriceBar{
		Symbol:   symbol,
		Date:     time.Date(2026, 8, day, 0, 0, 0, 0, time.UTC),
		Open:     fptr(open),
		High:     fptr(high),
		Low:      fptr(low),
		Close:    fptr(close),
		AdjClose: fptr(close),
		Volume:   iptr(1000),
	}
}

func TestValidatePriceBatchAccepted(t *testing.T) {
	v := newValidator(t)
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	rows := []contracts.Row{
		bar("SPY", 25, 645.0, 648.0, 644.0, 647.0),
		bar("SPY", 26, 647.0, 650.0, 646.0, 649.0),
		bar("SPY", 27, 649.0, 651.0, 648.0, 650.0),
	}

	report := v.Validate(contracts.FactPrice, rows, now)
	assert.True(t, report.Accepted)
	assert.Equal(t, 3, report.Total)
	assert.Zero(t, report.Rejected)
	assert.Len(t, report.Rows, 3)
	assert.Empty(t, report.Issues)
}

func TestValidateRejectRatioBoundary(t *testing.T) {
	v := newValidator(t)
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	// 1 bad row out of 10 is exactly the 0.10 threshold: still accepted
	var rows []contracts.Row
	for i := 0; i < 9; i++ {
		rows = append(rows, bar("SPY", 18+i, 645.0, 648.0, 644.0, 647.0))
	}
	bad := bar("SPY", 27, 645.0, 648.0, 644.0, 647.0)
	bad.Close = nil
	rows = append(rows, bad)

	report := v.Validate(contracts.FactPrice, rows, now)
	assert.True(t, report.Accepted)
	assert.Equal(t, 1, report.Rejected)
	assert.Len(t, report.Rows, 9)
}

func TestValidateRejectRatioExceeded(t *testing.T) {
	v := newValidator(t)
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	var rows []contracts.Row
	for i := 0; i < 8; i++ {
		rows = append(rows, bar("SPY", 18+i, 645.0, 648.0, 644.0, 647.0))
	}
	for i := 0; i < 2; i++ {
		bad := bar("QQQ", 26+i, 645.0, 648.0, 644.0, 647.0)
		bad.Open = nil
		rows = append(rows, bad)
	}

	report := v.Validate(contracts.FactPrice, rows, now)
	assert.False(t, report.Accepted)
	assert.Equal(t, 2, report.Rejected)
	assert.Contains(t, report.Reason, "reject ratio")
}

func TestValidateConsistencyRules(t *testing.T) {
	v := newValidator(t)
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		row  contracts.PriceBar
	}{
		{"high below low", bar("SPY", 27, 645.0, 640.0, 644.0, 642.0)},
		{"close above high", bar("SPY", 27, 645.0, 648.0, 644.0, 700.0)},
		{"open below low", bar("SPY", 27, 600.0, 648.0, 644.0, 647.0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := v.Validate(contracts.FactPrice, []contracts.Row{tt.row}, now)
			require.Equal(t, 1, report.Rejected)
			require.Len(t, report.Issues, 1)
			assert.Equal(t, contracts.RuleConsistency, report.Issues[0].Rule)
		})
	}
}

func TestValidateRangeRule(t *testing.T) {
	v := newValidator(t)
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	row := contracts.PriceBar{
		Symbol: "SPY",
		Date:   time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC),
		Open:   fptr(0.001), High: fptr(0.002), Low: fptr(0.001), Close: fptr(0.002),
	}

	report := v.Validate(contracts.FactPrice, []contracts.Row{row}, now)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, contracts.RuleRange, report.Issues[0].Rule)
}

func TestValidateDuplicateKeepsLast(t *testing.T) {
	v := newValidator(t)
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	first := bar("SPY", 27, 645.0, 648.0, 644.0, 646.0)
	second := bar("SPY", 27, 645.0, 648.0, 644.0, 647.5)

	report := v.Validate(contracts.FactPrice, []contracts.Row{first, second}, now)
	assert.True(t, report.Accepted)
	assert.Zero(t, report.Rejected, "duplicates do not count toward the reject ratio")
	require.Len(t, report.Rows, 1)

	kept := report.Rows[0].(contracts.PriceBar)
	assert.InDelta(t, 647.5, *kept.Close, 0.001)

	require.Len(t, report.Issues, 1)
	assert.Equal(t, contracts.RuleUniqueness, report.Issues[0].Rule)
}

func TestValidateEmptyBatchRejected(t *testing.T) {
	v := newValidator(t)

	report := v.Validate(contracts.FactPrice, nil, time.Now().UTC())
	assert.False(t, report.Accepted)
	assert.Equal(t, "empty batch", report.Reason)
}

func TestValidateFreshnessWarning(t *testing.T) {
	v := newValidator(t)
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	// newest bar is 10 days old, past the 96h price threshold
	rows := []contracts.Row{bar("SPY", 18, 645.0, 648.0, 644.0, 647.0)}

	report := v.Validate(contracts.FactPrice, rows, now)
	assert.True(t, report.Accepted, "stale data warns but is still written")

	warnings := report.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, contracts.RuleFreshness, warnings[0].Rule)
}

func TestValidateMacroNullValueKept(t *testing.T) {
	v := newValidator(t)
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	rows := []contracts.Row{
		contracts.MacroObservation{IndicatorID: "CPIAUCSL", Date: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), Value: fptr(321.4)},
		contracts.MacroObservation{IndicatorID: "CPIAUCSL", Date: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), Value: nil},
	}

	report := v.Validate(contracts.FactMacro, rows, now)
	assert.True(t, report.Accepted)
	assert.Len(t, report.Rows, 2, "null observations are kept, not rejected")
}

func TestValidateNewsCompleteness(t *testing.T) {
	v := newValidator(t)
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	article := contracts.NewsSentiment{
		Symbol:      "SPY",
		PublishedAt: time.Date(2026, 8, 27, 14, 30, 0, 0, time.UTC),
		Title:       "Stocks rally",
		URL:         "https://example.com/a",
		Compound:    0.4,
	}

	tests := []struct {
		name   string
		mutate func(*contracts.NewsSentiment)
	}{
		{"missing symbol", func(r *contracts.NewsSentiment) { r.Symbol = "" }},
		{"missing url", func(r *contracts.NewsSentiment) { r.URL = "" }},
		{"missing title", func(r *contracts.NewsSentiment) { r.Title = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := article
			tt.mutate(&row)

			report := v.Validate(contracts.FactNews, []contracts.Row{row}, now)
			require.Equal(t, 1, report.Rejected)
			require.Len(t, report.Issues, 1)
			assert.Equal(t, contracts.RuleCompleteness, report.Issues[0].Rule)
		})
	}
}

func TestValidateNullShareWarning(t *testing.T) {
	v := newValidator(t)
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	// 3 of 4 trend scores null: well past the 15% warning threshold
	var rows []contracts.Row
	for i := 0; i < 4; i++ {
		score := iptrInt(50)
		if i > 0 {
			score = nil
		}
		rows = append(rows, contracts.TrendScore{
			Keyword: fmt.Sprintf("kw%d", i),
			Date:    time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC),
			Geo:     "US",
			Score:   score,
		})
	}

	report := v.Validate(contracts.FactTrend, rows, now)
	assert.True(t, report.Accepted)

	found := false
	for _, is := range report.Warnings() {
		if is.Rule == contracts.RuleCompleteness {
			found = true
		}
	}
	assert.True(t, found, "expected a null-share warning")
}

func iptrInt(v int) *int { return &v }
