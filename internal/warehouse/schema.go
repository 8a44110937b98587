package warehouse

import (
	"context"
	"fmt"

	"github.com/marketdash/etl/pkg/database"
	"github.com/marketdash/etl/pkg/logger"
)

// star schema DDL, idempotent
var ddl = []string{
	`CREATE TABLE IF NOT EXISTS dim_symbol (
		symbol_id   SERIAL PRIMARY KEY,
		symbol      VARCHAR(16) NOT NULL UNIQUE,
		name        VARCHAR(128),
		asset_class VARCHAR(32),
		sector      VARCHAR(64)
	)`,

	`CREATE TABLE IF NOT EXISTS dim_indicator (
		indicator_id VARCHAR(32) PRIMARY KEY,
		name         VARCHAR(128),
		category     VARCHAR(64),
		frequency    VARCHAR(16),
		units        VARCHAR(64)
	)`,

	`CREATE TABLE IF NOT EXISTS f_price_daily (
		symbol_id  INTEGER NOT NULL REFERENCES dim_symbol(symbol_id),
		date       DATE NOT NULL,
		open       NUMERIC(14, 4),
		high       NUMERIC(14, 4),
		low        NUMERIC(14, 4),
		close      NUMERIC(14, 4),
		adj_close  NUMERIC(14, 4),
		volume     BIGINT,
		loaded_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (symbol_id, date)
	)`,

	`CREATE TABLE IF NOT EXISTS f_macro (
		indicator_id VARCHAR(32) NOT NULL REFERENCES dim_indicator(indicator_id),
		date         DATE NOT NULL,
		value        NUMERIC(18, 6),
		loaded_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (indicator_id, date)
	)`,

	`CREATE TABLE IF NOT EXISTS f_trends (
		keyword   VARCHAR(64) NOT NULL,
		date      DATE NOT NULL,
		geo       VARCHAR(8) NOT NULL,
		score     SMALLINT,
		loaded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (keyword, date, geo)
	)`,

	`CREATE TABLE IF NOT EXISTS f_news_sentiment (
		url          TEXT PRIMARY KEY,
		symbol       VARCHAR(16) NOT NULL,
		source       VARCHAR(128),
		title        TEXT NOT NULL,
		published_at TIMESTAMPTZ NOT NULL,
		fetched_at   TIMESTAMPTZ NOT NULL,
		compound     NUMERIC(6, 4) NOT NULL,
		positive     NUMERIC(6, 4) NOT NULL,
		negative     NUMERIC(6, 4) NOT NULL,
		neutral      NUMERIC(6, 4) NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_f_price_daily_date ON f_price_daily (date)`,
	`CREATE INDEX IF NOT EXISTS idx_f_macro_date ON f_macro (date)`,
	`CREATE INDEX IF NOT EXISTS idx_f_news_symbol_published ON f_news_sentiment (symbol, published_at)`,
}

// symbolSeed carries the descriptive attributes for a tracked symbol
type symbolSeed struct {
	symbol     string
	name       string
	assetClass string
	sector     string
}

var symbolSeeds = []symbolSeed{
	{"SPY", "SPDR S&P 500 ETF", "equity_etf", "broad_market"},
	{"QQQ", "Invesco QQQ Trust", "equity_etf", "broad_market"},
	{"IWM", "iShares Russell 2000 ETF", "equity_etf", "broad_market"},
	{"EFA", "iShares MSCI EAFE ETF", "equity_etf", "international"},
	{"VTI", "Vanguard Total Stock Market ETF", "equity_etf", "broad_market"},
	{"XLF", "Financial Select Sector SPDR", "equity_etf", "financials"},
	{"XLK", "Technology Select Sector SPDR", "equity_etf", "technology"},
	{"XLE", "Energy Select Sector SPDR", "equity_etf", "energy"},
	{"XLI", "Industrial Select Sector SPDR", "equity_etf", "industrials"},
	{"XLV", "Health Care Select Sector SPDR", "equity_etf", "healthcare"},
	{"XLY", "Consumer Discretionary Select Sector SPDR", "equity_etf", "consumer_discretionary"},
	{"XLP", "Consumer Staples Select Sector SPDR", "equity_etf", "consumer_staples"},
	{"XLU", "Utilities Select Sector SPDR", "equity_etf", "utilities"},
	{"XLB", "Materials Select Sector SPDR", "equity_etf", "materials"},
	{"XLRE", "Real Estate Select Sector SPDR", "equity_etf", "real_estate"},
	{"VIX", "CBOE Volatility Index", "index", "volatility"},
}

// indicatorSeed carries the descriptive attributes for a FRED series
type indicatorSeed struct {
	id        string
	name      string
	category  string
	frequency string
	units     string
}

var indicatorSeeds = []indicatorSeed{
	{"CPIAUCSL", "Consumer Price Index: All Urban Consumers", "inflation", "monthly", "index"},
	{"UNRATE", "Unemployment Rate", "employment", "monthly", "percent"},
	{"FEDFUNDS", "Effective Federal Funds Rate", "rates", "monthly", "percent"},
	{"UMCSENT", "University of Michigan Consumer Sentiment", "sentiment", "monthly", "index"},
	{"DGS10", "10-Year Treasury Constant Maturity Rate", "rates", "daily", "percent"},
	{"DGS2", "2-Year Treasury Constant Maturity Rate", "rates", "daily", "percent"},
	{"DGS30", "30-Year Treasury Constant Maturity Rate", "rates", "daily", "percent"},
	{"GDP", "Gross Domestic Product", "output", "quarterly", "billions_usd"},
	{"PAYEMS", "Total Nonfarm Payrolls", "employment", "monthly", "thousands"},
	{"INDPRO", "Industrial Production Index", "output", "monthly", "index"},
	{"RSXFS", "Retail Sales Excluding Food Services", "consumption", "monthly", "millions_usd"},
	{"HOUST", "Housing Starts", "housing", "monthly", "thousands"},
	{"DGORDER", "Durable Goods New Orders", "output", "monthly", "millions_usd"},
	{"TCU", "Capacity Utilization: Total Industry", "output", "monthly", "percent"},
	{"M2SL", "M2 Money Stock", "monetary", "monthly", "billions_usd"},
	{"TOTALSA", "Total Vehicle Sales", "consumption", "monthly", "millions"},
	{"CSUSHPISA", "Case-Shiller U.S. National Home Price Index", "housing", "monthly", "index"},
	{"RECPROUSM156N", "Smoothed U.S. Recession Probabilities", "risk", "monthly", "percent"},
	{"T10Y2Y", "10-Year Minus 2-Year Treasury Spread", "rates", "daily", "percent"},
	{"T10Y3M", "10-Year Minus 3-Month Treasury Spread", "rates", "daily", "percent"},
}

// Setup creates the star schema and seeds the dimension tables.
// Safe to run repeatedly: DDL is IF NOT EXISTS and seeds upsert on the
// natural key so renamed attributes propagate.
func Setup(ctx context.Context, db *database.DB, log *logger.Logger) error {
	for _, stmt := range ddl {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	for _, s := range symbolSeeds {
		_, err := db.Pool.Exec(ctx, `
			INSERT INTO dim_symbol (symbol, name, asset_class, sector)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (symbol) DO UPDATE SET
				name = EXCLUDED.name,
				asset_class = EXCLUDED.asset_class,
				sector = EXCLUDED.sector`,
			s.symbol, s.name, s.assetClass, s.sector)
		if err != nil {
			return fmt.Errorf("seed dim_symbol %s: %w", s.symbol, err)
		}
	}

	for _, s := range indicatorSeeds {
		_, err := db.Pool.Exec(ctx, `
			INSERT INTO dim_indicator (indicator_id, name, category, frequency, units)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (indicator_id) DO UPDATE SET
				name = EXCLUDED.name,
				category = EXCLUDED.category,
				frequency = EXCLUDED.frequency,
				units = EXCLUDED.units`,
			s.id, s.name, s.category, s.frequency, s.units)
		if err != nil {
			return fmt.Errorf("seed dim_indicator %s: %w", s.id, err)
		}
	}

	log.WithFields(map[string]interface{}{
		"symbols":    len(symbolSeeds),
		"indicators": len(indicatorSeeds),
	}).Info("Warehouse schema ready")
	return nil
}
