package warehouse

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketdash/etl/internal/contracts"
	"github.com/marketdash/etl/pkg/config"
	"github.com/marketdash/etl/pkg/database"
	"github.com/marketdash/etl/pkg/logger"
)

// newTestDB connects to the database named by PG_TEST_DSN and applies the
// schema. Tests are skipped when the variable is unset so the unit suite
// stays self-contained.
func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv("PG_TEST_DSN")
	if dsn == "" {
		t.Skip("PG_TEST_DSN not set")
	}

	cfg := &config.Config{
		Warehouse: config.WarehouseConfig{
			DSN:             dsn,
			MaxConns:        4,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		},
	}

	db, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, Setup(context.Background(), db, logger.NewNop()))
	return db
}

func fptr(v float64) *float64 { return &v }
func iptr(v int64) *int64     { return &v }

func testBar(symbol string, day int, close float64) contracts.PriceBar {
	return contracts.PriceBar{
		Symbol:   symbol,
		Date:     time.Date(2026, 8, day, 0, 0, 0, 0, time.UTC),
		Open:     fptr(close - 1),
		High:     fptr(close + 2),
		Low:      fptr(close - 2),
		Close:    fptr(close),
		AdjClose: fptr(close),
		Volume:   iptr(1000),
	}
}

func TestWritePricesIdempotent(t *testing.T) {
	db := newTestDB(t)
	w := NewWriter(db, logger.NewNop())
	ctx := context.Background()

	rows := []contracts.Row{
		testBar("SPY", 26, 649.0),
		testBar("SPY", 27, 650.5),
	}

	written, err := w.Write(ctx, contracts.FactPrice, rows)
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	// re-running the same batch updates in place, no duplicate keys
	rows[1] = testBar("SPY", 27, 651.0)
	written, err = w.Write(ctx, contracts.FactPrice, rows)
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	var count int
	var close float64
	err = db.Pool.QueryRow(ctx, `
		SELECT count(*), max(close) FROM f_price_daily f
		JOIN dim_symbol d ON d.symbol_id = f.symbol_id
		WHERE d.symbol = 'SPY' AND f.date IN ('2026-08-26', '2026-08-27')`).Scan(&count, &close)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.InDelta(t, 651.0, close, 0.001)
}

func TestWriteCreatesSymbolStub(t *testing.T) {
	db := newTestDB(t)
	w := NewWriter(db, logger.NewNop())
	ctx := context.Background()

	_, err := w.Write(ctx, contracts.FactPrice, []contracts.Row{testBar("ZZTEST", 27, 10.0)})
	require.NoError(t, err)

	var name *string
	err = db.Pool.QueryRow(ctx, `SELECT name FROM dim_symbol WHERE symbol = 'ZZTEST'`).Scan(&name)
	require.NoError(t, err)
	assert.Nil(t, name, "stub rows carry no descriptive attributes")
}

func TestWriteMacroNullValue(t *testing.T) {
	db := newTestDB(t)
	w := NewWriter(db, logger.NewNop())
	ctx := context.Background()

	rows := []contracts.Row{
		contracts.MacroObservation{IndicatorID: "CPIAUCSL", Date: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), Value: nil},
	}

	written, err := w.Write(ctx, contracts.FactMacro, rows)
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	var value *float64
	err = db.Pool.QueryRow(ctx, `
		SELECT value FROM f_macro WHERE indicator_id = 'CPIAUCSL' AND date = '2026-07-01'`).Scan(&value)
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestWriteNewsUpsertsOnURL(t *testing.T) {
	db := newTestDB(t)
	w := NewWriter(db, logger.NewNop())
	ctx := context.Background()

	article := contracts.NewsSentiment{
		Symbol:      "SPY",
		FetchedAt:   time.Now().UTC(),
		PublishedAt: time.Date(2026, 8, 27, 14, 30, 0, 0, time.UTC),
		Source:      "Reuters",
		Title:       "Stocks rally",
		URL:         "https://example.com/test-upsert",
		Compound:    0.42, Positive: 0.5, Negative: 0.0, Neutral: 0.5,
	}

	_, err := w.Write(ctx, contracts.FactNews, []contracts.Row{article})
	require.NoError(t, err)

	article.Compound = -0.1
	_, err = w.Write(ctx, contracts.FactNews, []contracts.Row{article})
	require.NoError(t, err)

	var count int
	var compound float64
	err = db.Pool.QueryRow(ctx, `
		SELECT count(*), min(compound) FROM f_news_sentiment
		WHERE url = 'https://example.com/test-upsert'`).Scan(&count, &compound)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.InDelta(t, -0.1, compound, 0.001)
}

func TestWriteFailureRollsBackBatch(t *testing.T) {
	db := newTestDB(t)
	w := NewWriter(db, logger.NewNop())
	ctx := context.Background()

	var before int
	err := db.Pool.QueryRow(ctx, `SELECT count(*) FROM f_news_sentiment`).Scan(&before)
	require.NoError(t, err)

	good := contracts.NewsSentiment{
		Symbol:      "QQQ",
		FetchedAt:   time.Now().UTC(),
		PublishedAt: time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC),
		Source:      "Reuters",
		Title:       "Tech shares climb",
		URL:         "https://example.com/rollback-good",
		Compound:    0.3, Positive: 0.4, Negative: 0.0, Neutral: 0.6,
	}
	// compound overflows NUMERIC(6,4), failing mid-batch after the good row
	bad := good
	bad.URL = "https://example.com/rollback-bad"
	bad.Compound = 12345.0

	_, err = w.Write(ctx, contracts.FactNews, []contracts.Row{good, bad})
	require.Error(t, err)

	var writeErr *contracts.WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, contracts.FactNews, writeErr.Fact)

	// the good row must not have survived the rollback
	var after int
	err = db.Pool.QueryRow(ctx, `SELECT count(*) FROM f_news_sentiment`).Scan(&after)
	require.NoError(t, err)
	assert.Equal(t, before, after, "failed batch must leave the warehouse unchanged")

	var orphaned int
	err = db.Pool.QueryRow(ctx, `
		SELECT count(*) FROM f_news_sentiment
		WHERE url LIKE 'https://example.com/rollback-%'`).Scan(&orphaned)
	require.NoError(t, err)
	assert.Zero(t, orphaned)
}

func TestWriteEmptyBatch(t *testing.T) {
	w := NewWriter(nil, logger.NewNop())

	written, err := w.Write(context.Background(), contracts.FactPrice, nil)
	require.NoError(t, err)
	assert.Zero(t, written)
}
