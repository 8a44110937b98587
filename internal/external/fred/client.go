// Package fred fetches macroeconomic series from the FRED observations API.
package fred

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/marketdash/etl/internal/contracts"
	"github.com/marketdash/etl/pkg/httputil"
	"github.com/marketdash/etl/pkg/logger"
)

const sourceName = "fred"

// Client handles communication with the FRED API.
// SSOT: FRED HTTP calls happen only in this client.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	apiKey     string
	indicators []string
}

// New creates a FRED client fetching the given series
func New(httpClient *httputil.Client, log *logger.Logger, baseURL, apiKey string, indicators []string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    baseURL,
		apiKey:     apiKey,
		indicators: indicators,
	}
}

// Name identifies the pipeline this adapter feeds
func (c *Client) Name() string { return "macro" }

// Fact returns the target fact table
func (c *Client) Fact() contracts.FactType { return contracts.FactMacro }

// observationsResponse mirrors the /fred/series/observations payload
type observationsResponse struct {
	Observations *[]observation `json:"observations"`
}

type observation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

// Fetch downloads observations for every configured series within the window
func (c *Client) Fetch(ctx context.Context, w contracts.Window) ([]contracts.Row, error) {
	var rows []contracts.Row

	for _, series := range c.indicators {
		obs, err := c.fetchSeries(ctx, series, w.From, w.To)
		if err != nil {
			return nil, err
		}
		rows = append(rows, obs...)
	}

	c.logger.WithFields(map[string]interface{}{
		"series": len(c.indicators),
		"rows":   len(rows),
	}).Debug("Fetched macro observations")
	return rows, nil
}

// fetchSeries downloads one series' observations
func (c *Client) fetchSeries(ctx context.Context, series string, from, to time.Time) ([]contracts.Row, error) {
	params := url.Values{}
	params.Set("series_id", series)
	params.Set("api_key", c.apiKey)
	params.Set("file_type", "json")
	params.Set("observation_start", from.Format("2006-01-02"))
	params.Set("observation_end", to.Format("2006-01-02"))

	fullURL := fmt.Sprintf("%s/fred/series/observations?%s", c.baseURL, params.Encode())

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
			Err:    fmt.Errorf("unexpected status code for %s: %d", series, resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &contracts.FetchError{Source: sourceName, Err: fmt.Errorf("read body: %w", err)}
	}

	return parseObservations(series, body)
}

// parseObservations turns a FRED JSON payload into canonical macro rows.
// FRED encodes missing values as "."; those become null-valued rows so the
// validator can account for them.
func parseObservations(series string, body []byte) ([]contracts.Row, error) {
	var payload observationsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &contracts.FetchError{Source: sourceName, Err: fmt.Errorf("parse json: %w", err)}
	}
	if payload.Observations == nil {
		return nil, &contracts.SchemaDriftError{Source: sourceName, Missing: []string{"observations"}}
	}

	var rows []contracts.Row
	for _, obs := range *payload.Observations {
		date, err := time.Parse("2006-01-02", obs.Date)
		if err != nil {
			continue
		}

		rows = append(rows, contracts.MacroObservation{
			IndicatorID: series,
			Date:        date,
			Value:       parseValue(obs.Value),
		})
	}
	return rows, nil
}

// parseValue converts a FRED observation value, mapping "." to null
func parseValue(s string) *float64 {
	if s == "" || s == "." {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

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
