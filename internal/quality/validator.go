// Package quality gates normalized batches before they reach the warehouse.
// Row-level rules (completeness, range, consistency) reject individual rows;
// batch-level rules (freshness, null share) only warn. A batch is accepted
// when the rejected share stays within the configured threshold.
package quality

import (
	"fmt"
	"time"

	"github.com/marketdash/etl/internal/contracts"
	"github.com/marketdash/etl/pkg/config"
	"github.com/marketdash/etl/pkg/logger"
)

// value bounds per fact, matching what the providers can plausibly emit
const (
	priceMin = 0.01
	priceMax = 100000.0

	trendMin = 0
	trendMax = 100

	sentimentMin = -1.0
	sentimentMax = 1.0
)

// share of null measure values tolerated before a batch-level warning
var maxNullShare = map[contracts.FactType]float64{
	contracts.FactPrice: 0.05,
	contracts.FactMacro: 0.10,
	contracts.FactTrend: 0.15,
}

// Validator applies the quality rules.
// SSOT: batch acceptance is decided only here.
type Validator struct {
	logger         *logger.Logger
	maxRejectRatio float64
	staleness      map[contracts.FactType]time.Duration
}

// New creates a validator from the pipeline configuration
func New(cfg *config.Config, log *logger.Logger) *Validator {
	return &Validator{
		logger:         log,
		maxRejectRatio: cfg.ETL.MaxRejectRatio,
		staleness: map[contracts.FactType]time.Duration{
			contracts.FactPrice: cfg.ETL.PriceStaleness,
			contracts.FactMacro: cfg.ETL.MacroStaleness,
			contracts.FactTrend: cfg.ETL.TrendStaleness,
			contracts.FactNews:  cfg.ETL.NewsStaleness,
		},
	}
}

// Validate checks one batch and returns the verdict. An empty batch is
// rejected outright: every scheduled window should produce at least one row,
// so emptiness means the fetch silently failed.
func (v *Validator) Validate(fact contracts.FactType, rows []contracts.Row, now time.Time) *contracts.Report {
	report := &contracts.Report{Fact: fact, Total: len(rows)}

	if len(rows) == 0 {
		report.Accepted = false
		report.Reason = "empty batch"
		return report
	}

	// Row rules first, then keep-last dedup on the survivors
	var kept []contracts.Row
	nulls := 0
	for _, row := range rows {
		if issue, ok := v.checkRow(fact, row); !ok {
			report.Issues = append(report.Issues, issue)
			report.Rejected++
			continue
		}
		if hasNullMeasure(row) {
			nulls++
		}
		kept = append(kept, row)
	}

	kept, dupIssues := dedupe(kept)
	report.Issues = append(report.Issues, dupIssues...)
	report.Rows = kept

	if share, max := nullShare(nulls, len(kept)), maxNullShare[fact]; max > 0 && share > max {
		report.Issues = append(report.Issues, contracts.Issue{
			Rule:    contracts.RuleCompleteness,
			Message: fmt.Sprintf("null measure share %.1f%% exceeds %.1f%%", share*100, max*100),
		})
	}

	if issue, stale := v.checkFreshness(fact, kept, now); stale {
		report.Issues = append(report.Issues, issue)
	}

	ratio := float64(report.Rejected) / float64(report.Total)
	if ratio > v.maxRejectRatio {
		report.Accepted = false
		report.Reason = fmt.Sprintf("reject ratio %.2f exceeds threshold %.2f", ratio, v.maxRejectRatio)
	} else {
		report.Accepted = true
	}

	v.logger.WithFields(map[string]interface{}{
		"fact":     string(fact),
		"total":    report.Total,
		"rejected": report.Rejected,
		"kept":     len(report.Rows),
		"accepted": report.Accepted,
	}).Debug("Validated batch")

	return report
}

// checkRow applies completeness, range and consistency rules to one row
func (v *Validator) checkRow(fact contracts.FactType, row contracts.Row) (contracts.Issue, bool) {
	switch r := row.(type) {
	case contracts.PriceBar:
		return checkPriceBar(r)
	case contracts.MacroObservation:
		return checkMacro(r)
	case contracts.TrendScore:
		return checkTrend(r)
	case contracts.NewsSentiment:
		return checkNews(r)
	default:
		return contracts.Issue{
			RowKey:  row.Key(),
			Rule:    contracts.RuleCompleteness,
			Message: fmt.Sprintf("unknown row type for fact %s", fact),
		}, false
	}
}

func checkPriceBar(r contracts.PriceBar) (contracts.Issue, bool) {
	if r.Symbol == "" || r.Date.IsZero() {
		return reject(r, contracts.RuleCompleteness, "missing symbol or date"), false
	}
	if r.Open == nil || r.High == nil || r.Low == nil || r.Close == nil {
		return reject(r, contracts.RuleCompleteness, "missing OHLC value"), false
	}

	for _, p := range []*float64{r.Open, r.High, r.Low, r.Close} {
		if *p < priceMin || *p > priceMax {
			return reject(r, contracts.RuleRange, fmt.Sprintf("price %.4f outside [%.2f, %.2f]", *p, priceMin, priceMax)), false
		}
	}
	if r.Volume != nil && *r.Volume < 0 {
		return reject(r, contracts.RuleRange, "negative volume"), false
	}

	if *r.High < *r.Low {
		return reject(r, contracts.RuleConsistency, "high below low"), false
	}
	if *r.Open > *r.High || *r.Open < *r.Low || *r.Close > *r.High || *r.Close < *r.Low {
		return reject(r, contracts.RuleConsistency, "open/close outside high-low range"), false
	}

	return contracts.Issue{}, true
}

func checkMacro(r contracts.MacroObservation) (contracts.Issue, bool) {
	if r.IndicatorID == "" || r.Date.IsZero() {
		return reject(r, contracts.RuleCompleteness, "missing indicator or date"), false
	}
	// a null value is a legitimate missing observation and is kept
	return contracts.Issue{}, true
}

func checkTrend(r contracts.TrendScore) (contracts.Issue, bool) {
	if r.Keyword == "" || r.Geo == "" || r.Date.IsZero() {
		return reject(r, contracts.RuleCompleteness, "missing keyword, geo or date"), false
	}
	if r.Score != nil && (*r.Score < trendMin || *r.Score > trendMax) {
		return reject(r, contracts.RuleRange, fmt.Sprintf("score %d outside [%d, %d]", *r.Score, trendMin, trendMax)), false
	}
	return contracts.Issue{}, true
}

func checkNews(r contracts.NewsSentiment) (contracts.Issue, bool) {
	if r.URL == "" || r.Symbol == "" || r.Title == "" || r.PublishedAt.IsZero() {
		return reject(r, contracts.RuleCompleteness, "missing url, symbol, title or published time"), false
	}
	if r.Compound < sentimentMin || r.Compound > sentimentMax {
		return reject(r, contracts.RuleRange, fmt.Sprintf("compound %.4f outside [%.1f, %.1f]", r.Compound, sentimentMin, sentimentMax)), false
	}
	return contracts.Issue{}, true
}

func reject(row contracts.Row, rule, message string) contracts.Issue {
	return contracts.Issue{RowKey: row.Key(), Rule: rule, Message: message}
}

// dedupe drops earlier occurrences of a natural key, keeping the last.
// Duplicates are logged as issues but do not count toward the reject ratio:
// the provider sent usable data, just redundantly.
func dedupe(rows []contracts.Row) ([]contracts.Row, []contracts.Issue) {
	last := make(map[string]int, len(rows))
	for i, row := range rows {
		last[row.Key()] = i
	}

	var kept []contracts.Row
	var issues []contracts.Issue
	for i, row := range rows {
		if last[row.Key()] != i {
			issues = append(issues, contracts.Issue{
				RowKey:  row.Key(),
				Rule:    contracts.RuleUniqueness,
				Message: "duplicate natural key, keeping last occurrence",
			})
			continue
		}
		kept = append(kept, row)
	}
	return kept, issues
}

// checkFreshness warns when the newest row is older than the staleness
// threshold for the fact. Stale data is still written; the warning exists so
// operators notice a provider that stopped updating.
func (v *Validator) checkFreshness(fact contracts.FactType, rows []contracts.Row, now time.Time) (contracts.Issue, bool) {
	threshold, ok := v.staleness[fact]
	if !ok || threshold <= 0 || len(rows) == 0 {
		return contracts.Issue{}, false
	}

	var newest time.Time
	for _, row := range rows {
		if ts := rowTime(row); ts.After(newest) {
			newest = ts
		}
	}

	if age := now.Sub(newest); age > threshold {
		return contracts.Issue{
			Rule:    contracts.RuleFreshness,
			Message: fmt.Sprintf("newest row is %s old, threshold %s", age.Round(time.Hour), threshold),
		}, true
	}
	return contracts.Issue{}, false
}

func rowTime(row contracts.Row) time.Time {
	switch r := row.(type) {
	case contracts.PriceBar:
		return r.Date
	case contracts.MacroObservation:
		return r.Date
	case contracts.TrendScore:
		return r.Date
	case contracts.NewsSentiment:
		return r.PublishedAt
	default:
		return time.Time{}
	}
}

func nullShare(nulls, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(nulls) / float64(total)
}

// hasNullMeasure reports whether a kept row carries a null measure value
func hasNullMeasure(row contracts.Row) bool {
	switch r := row.(type) {
	case contracts.PriceBar:
		return r.Volume == nil || r.AdjClose == nil
	case contracts.MacroObservation:
		return r.Value == nil
	case contracts.TrendScore:
		return r.Score == nil
	default:
		return false
	}
}
