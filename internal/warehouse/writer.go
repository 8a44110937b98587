// Package warehouse applies accepted batches to the Postgres star schema.
// Writes are merge-on-natural-key and atomic per batch: one transaction
// covers dimension stubs and fact upserts, so a failure leaves no partial
// batch behind and a re-run converges to the same state.
package warehouse

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/marketdash/etl/internal/contracts"
	"github.com/marketdash/etl/pkg/database"
	"github.com/marketdash/etl/pkg/logger"
)

// Writer is the warehouse write path.
// SSOT: fact table writes happen only here.
type Writer struct {
	db     *database.DB
	logger *logger.Logger
}

// NewWriter creates the warehouse writer
func NewWriter(db *database.DB, log *logger.Logger) *Writer {
	return &Writer{db: db, logger: log}
}

// Write applies one accepted batch inside a single transaction and returns
// the number of rows applied.
func (w *Writer) Write(ctx context.Context, fact contracts.FactType, rows []contracts.Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := w.db.Pool.Begin(ctx)
	if err != nil {
		return 0, &contracts.WriteError{Fact: fact, Err: fmt.Errorf("begin tx: %w", err)}
	}
	defer tx.Rollback(ctx)

	var written int
	switch fact {
	case contracts.FactPrice:
		written, err = w.writePrices(ctx, tx, rows)
	case contracts.FactMacro:
		written, err = w.writeMacro(ctx, tx, rows)
	case contracts.FactTrend:
		written, err = w.writeTrends(ctx, tx, rows)
	case contracts.FactNews:
		written, err = w.writeNews(ctx, tx, rows)
	default:
		err = fmt.Errorf("unknown fact type: %s", fact)
	}
	if err != nil {
		return 0, &contracts.WriteError{Fact: fact, Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, &contracts.WriteError{Fact: fact, Err: fmt.Errorf("commit tx: %w", err)}
	}

	w.logger.WithFields(map[string]interface{}{
		"fact": string(fact),
		"rows": written,
	}).Debug("Batch written")
	return written, nil
}

// writePrices upserts daily bars, creating dimension stubs for symbols the
// seed data does not know yet.
func (w *Writer) writePrices(ctx context.Context, tx pgx.Tx, rows []contracts.Row) (int, error) {
	symbols := make([]string, 0, 8)
	seen := make(map[string]bool)
	for _, row := range rows {
		bar := row.(contracts.PriceBar)
		if !seen[bar.Symbol] {
			seen[bar.Symbol] = true
			symbols = append(symbols, bar.Symbol)
		}
	}

	ids, err := w.ensureSymbols(ctx, tx, symbols)
	if err != nil {
		return 0, err
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		bar := row.(contracts.PriceBar)
		batch.Queue(`
			INSERT INTO f_price_daily (symbol_id, date, open, high, low, close, adj_close, volume, loaded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
			ON CONFLICT (symbol_id, date) DO UPDATE SET
				open = EXCLUDED.open,
				high = EXCLUDED.high,
				low = EXCLUDED.low,
				close = EXCLUDED.close,
				adj_close = EXCLUDED.adj_close,
				volume = EXCLUDED.volume,
				loaded_at = now()`,
			ids[bar.Symbol], bar.Date, bar.Open, bar.High, bar.Low, bar.Close, bar.AdjClose, bar.Volume)
	}

	return sendBatch(ctx, tx, batch)
}

// writeMacro upserts observations, creating indicator stubs as needed
func (w *Writer) writeMacro(ctx context.Context, tx pgx.Tx, rows []contracts.Row) (int, error) {
	seen := make(map[string]bool)
	for _, row := range rows {
		obs := row.(contracts.MacroObservation)
		if !seen[obs.IndicatorID] {
			seen[obs.IndicatorID] = true
			if _, err := tx.Exec(ctx, `
				INSERT INTO dim_indicator (indicator_id) VALUES ($1)
				ON CONFLICT (indicator_id) DO NOTHING`, obs.IndicatorID); err != nil {
				return 0, fmt.Errorf("ensure indicator %s: %w", obs.IndicatorID, err)
			}
		}
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		obs := row.(contracts.MacroObservation)
		batch.Queue(`
			INSERT INTO f_macro (indicator_id, date, value, loaded_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (indicator_id, date) DO UPDATE SET
				value = EXCLUDED.value,
				loaded_at = now()`,
			obs.IndicatorID, obs.Date, obs.Value)
	}

	return sendBatch(ctx, tx, batch)
}

func (w *Writer) writeTrends(ctx context.Context, tx pgx.Tx, rows []contracts.Row) (int, error) {
	batch := &pgx.Batch{}
	for _, row := range rows {
		ts := row.(contracts.TrendScore)
		batch.Queue(`
			INSERT INTO f_trends (keyword, date, geo, score, loaded_at)
			VALUES ($1, $2, $3, $4, now())
			ON CONFLICT (keyword, date, geo) DO UPDATE SET
				score = EXCLUDED.score,
				loaded_at = now()`,
			ts.Keyword, ts.Date, ts.Geo, ts.Score)
	}

	return sendBatch(ctx, tx, batch)
}

func (w *Writer) writeNews(ctx context.Context, tx pgx.Tx, rows []contracts.Row) (int, error) {
	batch := &pgx.Batch{}
	for _, row := range rows {
		ns := row.(contracts.NewsSentiment)
		batch.Queue(`
			INSERT INTO f_news_sentiment
				(url, symbol, source, title, published_at, fetched_at, compound, positive, negative, neutral)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (url) DO UPDATE SET
				symbol = EXCLUDED.symbol,
				source = EXCLUDED.source,
				title = EXCLUDED.title,
				published_at = EXCLUDED.published_at,
				fetched_at = EXCLUDED.fetched_at,
				compound = EXCLUDED.compound,
				positive = EXCLUDED.positive,
				negative = EXCLUDED.negative,
				neutral = EXCLUDED.neutral`,
			ns.URL, ns.Symbol, ns.Source, ns.Title, ns.PublishedAt, ns.FetchedAt,
			ns.Compound, ns.Positive, ns.Negative, ns.Neutral)
	}

	return sendBatch(ctx, tx, batch)
}

// ensureSymbols creates dimension stubs for unknown symbols and returns the
// symbol -> surrogate key mapping. Stubs carry only the symbol; descriptive
// attributes stay null until the seed data learns about them.
func (w *Writer) ensureSymbols(ctx context.Context, tx pgx.Tx, symbols []string) (map[string]int, error) {
	for _, s := range symbols {
		if _, err := tx.Exec(ctx, `
			INSERT INTO dim_symbol (symbol) VALUES ($1)
			ON CONFLICT (symbol) DO NOTHING`, s); err != nil {
			return nil, fmt.Errorf("ensure symbol %s: %w", s, err)
		}
	}

	rows, err := tx.Query(ctx, `SELECT symbol, symbol_id FROM dim_symbol WHERE symbol = ANY($1)`, symbols)
	if err != nil {
		return nil, fmt.Errorf("resolve symbol ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]int, len(symbols))
	for rows.Next() {
		var symbol string
		var id int
		if err := rows.Scan(&symbol, &id); err != nil {
			return nil, fmt.Errorf("scan symbol id: %w", err)
		}
		ids[symbol] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate symbol ids: %w", err)
	}

	for _, s := range symbols {
		if _, ok := ids[s]; !ok {
			return nil, fmt.Errorf("symbol %s missing after stub insert", s)
		}
	}
	return ids, nil
}

// sendBatch executes the queued upserts and counts applied rows
func sendBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch) (int, error) {
	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	written := 0
	for i := 0; i < batch.Len(); i++ {
		tag, err := results.Exec()
		if err != nil {
			return 0, fmt.Errorf("batch statement %d: %w", i, err)
		}
		written += int(tag.RowsAffected())
	}

	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("close batch: %w", err)
	}
	return written, nil
}
