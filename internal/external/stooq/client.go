// Package stooq fetches daily OHLCV bars from the Stooq CSV endpoint.
package stooq

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/marketdash/etl/internal/contracts"
	"github.com/marketdash/etl/pkg/httputil"
	"github.com/marketdash/etl/pkg/logger"
)

const sourceName = "stooq"

// expected CSV header, in order
var wantHeader = []string{"Date", "Open", "High", "Low", "Close", "Volume"}

// Client handles communication with Stooq.
// SSOT: Stooq HTTP calls happen only in this client.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	symbols    []string
}

// New creates a Stooq client fetching the given symbols
func New(httpClient *httputil.Client, log *logger.Logger, baseURL string, symbols []string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    baseURL,
		symbols:    symbols,
	}
}

// Name identifies the pipeline this adapter feeds
func (c *Client) Name() string { return "price" }

// Fact returns the target fact table
func (c *Client) Fact() contracts.FactType { return contracts.FactPrice }

// Fetch downloads and normalizes daily bars for every configured symbol.
// A failure on any symbol fails the whole batch; partial batches would
// otherwise look complete downstream.
func (c *Client) Fetch(ctx context.Context, w contracts.Window) ([]contracts.Row, error) {
	var rows []contracts.Row

	for _, symbol := range c.symbols {
		bars, err := c.fetchSymbol(ctx, symbol, w.From, w.To)
		if err != nil {
			return nil, err
		}
		rows = append(rows, bars...)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbols": len(c.symbols),
		"rows":    len(rows),
	}).Debug("Fetched daily bars")
	return rows, nil
}

// fetchSymbol downloads one symbol's CSV and parses it
func (c *Client) fetchSymbol(ctx context.Context, symbol string, from, to time.Time) ([]contracts.Row, error) {
	params := url.Values{}
	params.Set("s", providerSymbol(symbol))
	params.Set("d1", from.Format("20060102"))
	params.Set("d2", to.Format("20060102"))
	params.Set("i", "d")

	fullURL := fmt.Sprintf("%s/q/d/l/?%s", c.baseURL, params.Encode())

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return nil, &contracts.FetchError{Source: sourceName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &contracts.RateLimitError{Source: sourceName, RetryAfter: retryAfter(resp)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &contracts.FetchError{
			Source: sourceName,
			Err:    fmt.Errorf("unexpected status code for %s: %d", symbol, resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &contracts.FetchError{Source: sourceName, Err: fmt.Errorf("read body: %w", err)}
	}

	return parseCSV(normalizeSymbol(symbol), string(body))
}

// parseCSV turns a Stooq daily CSV payload into canonical price rows.
// The header is verified column-for-column; a changed layout means the
// provider schema drifted and the batch must not be trusted.
func parseCSV(symbol, body string) ([]contracts.Row, error) {
	reader := csv.NewReader(strings.NewReader(strings.TrimSpace(body)))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &contracts.FetchError{Source: sourceName, Err: fmt.Errorf("parse csv: %w", err)}
	}
	if len(records) == 0 {
		return nil, nil
	}

	if missing := missingColumns(records[0]); len(missing) > 0 {
		return nil, &contracts.SchemaDriftError{Source: sourceName, Missing: missing}
	}

	var rows []contracts.Row
	for _, rec := range records[1:] {
		if len(rec) < len(wantHeader) {
			continue
		}

		date, err := time.Parse("2006-01-02", rec[0])
		if err != nil {
			continue
		}

		rows = append(rows, contracts.PriceBar{
			Symbol:   symbol,
			Date:     date,
			Open:     parseFloat(rec[1]),
			High:     parseFloat(rec[2]),
			Low:      parseFloat(rec[3]),
			Close:    parseFloat(rec[4]),
			AdjClose: parseFloat(rec[4]), // Stooq daily closes are already adjusted
			Volume:   parseInt(rec[5]),
		})
	}
	return rows, nil
}

// missingColumns compares a CSV header against the expected layout
func missingColumns(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[strings.TrimSpace(h)] = true
	}

	var missing []string
	for _, want := range wantHeader {
		if !present[want] {
			missing = append(missing, want)
		}
	}
	return missing
}

// providerSymbol maps a canonical symbol to Stooq's naming.
// US tickers take a .us suffix; index symbols (^VIX) pass through lowercased.
func providerSymbol(symbol string) string {
	lower := strings.ToLower(symbol)
	if strings.HasPrefix(lower, "^") {
		return lower
	}
	return lower + ".us"
}

// normalizeSymbol strips index markers so ^VIX is stored as VIX
func normalizeSymbol(symbol string) string {
	return strings.TrimPrefix(strings.ToUpper(symbol), "^")
}

func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" || s == "-" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseInt(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" || s == "-" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// some payloads carry volume as a float
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return nil
		}
		n := int64(f)
		return &n
	}
	return &v
}

// retryAfter reads the Retry-After header when the provider sends one
func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
