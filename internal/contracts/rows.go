package contracts

import (
	"fmt"
	"time"
)

// FactType tags a canonical row with its target fact table
type FactType string

const (
	FactPrice FactType = "price"
	FactMacro FactType = "macro"
	FactTrend FactType = "trend"
	FactNews  FactType = "news"
)

// Row is one canonical record produced by a source adapter.
// Adapters normalize provider payloads into one of the concrete row types
// below before any other component sees the data.
type Row interface {
	// Fact returns the target fact table tag
	Fact() FactType

	// Key returns the natural key identifying this row in the warehouse
	Key() string
}

const dateFormat = "2006-01-02"

// PriceBar is one daily OHLCV bar for a symbol.
// Natural key: (symbol, date). Nullable measures are pointers; the validator
// decides which of them are required.
type PriceBar struct {
	Symbol   string
	Date     time.Time
	Open     *float64
	High     *float64
	Low      *float64
	Close    *float64
	AdjClose *float64
	Volume   *int64
}

func (p PriceBar) Fact() FactType { return FactPrice }

func (p PriceBar) Key() string {
	return fmt.Sprintf("%s|%s", p.Symbol, p.Date.Format(dateFormat))
}

// MacroObservation is one value of a macroeconomic indicator.
// Natural key: (indicator, date).
type MacroObservation struct {
	IndicatorID string
	Date        time.Time
	Value       *float64
}

func (m MacroObservation) Fact() FactType { return FactMacro }

func (m MacroObservation) Key() string {
	return fmt.Sprintf("%s|%s", m.IndicatorID, m.Date.Format(dateFormat))
}

// TrendScore is one search-interest observation on the provider's 0-100 scale.
// Natural key: (keyword, date, geo).
type TrendScore struct {
	Keyword string
	Date    time.Time
	Geo     string
	Score   *int
}

func (t TrendScore) Fact() FactType { return FactTrend }

func (t TrendScore) Key() string {
	return fmt.Sprintf("%s|%s|%s", t.Keyword, t.Date.Format(dateFormat), t.Geo)
}

// NewsSentiment is one sentiment-scored headline.
// Natural key: URL — re-fetching the same article updates the existing row.
type NewsSentiment struct {
	Symbol      string
	FetchedAt   time.Time
	PublishedAt time.Time
	Source      string
	Title       string
	URL         string

	// Lexicon scores; compound is in [-1, 1], the proportions sum to ~1
	Compound float64
	Positive float64
	Negative float64
	Neutral  float64
}

func (n NewsSentiment) Fact() FactType { return FactNews }

func (n NewsSentiment) Key() string { return n.URL }
