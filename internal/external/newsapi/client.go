// Package newsapi fetches headlines from the NewsAPI /v2/everything endpoint
// and scores them with the sentiment lexicon.
package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/marketdash/etl/internal/contracts"
	"github.com/marketdash/etl/internal/sentiment"
	"github.com/marketdash/etl/pkg/httputil"
	"github.com/marketdash/etl/pkg/logger"
)

const sourceName = "newsapi"

// search queries per tracked symbol; NewsAPI matches these against
// headline and body text
var symbolQueries = map[string]string{
	"SPY": "S&P 500 OR SPY ETF",
	"QQQ": "Nasdaq OR QQQ ETF",
	"IWM": "Russell 2000 OR small cap stocks",
	"XLF": "bank stocks OR financial sector",
	"XLK": "tech stocks OR technology sector",
	"XLE": "energy stocks OR oil prices",
	"VIX": "market volatility OR VIX",
}

// Client handles communication with NewsAPI.
// SSOT: NewsAPI HTTP calls happen only in this client.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	apiKey     string
	symbols    []string
	pageSize   int
}

// New creates a NewsAPI client fetching headlines for the given symbols
func New(httpClient *httputil.Client, log *logger.Logger, baseURL, apiKey string, symbols []string, pageSize int) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    baseURL,
		apiKey:     apiKey,
		symbols:    symbols,
		pageSize:   pageSize,
	}
}

// Name identifies the pipeline this adapter feeds
func (c *Client) Name() string { return "news" }

// Fact returns the target fact table
func (c *Client) Fact() contracts.FactType { return contracts.FactNews }

// everythingResponse mirrors the /v2/everything payload.
// On errors NewsAPI returns HTTP 200 or 4xx with status "error" and a code.
type everythingResponse struct {
	Status   string     `json:"status"`
	Code     string     `json:"code"`
	Message  string     `json:"message"`
	Articles *[]article `json:"articles"`
}

type article struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

// Fetch downloads and scores headlines for every configured symbol
func (c *Client) Fetch(ctx context.Context, w contracts.Window) ([]contracts.Row, error) {
	now := time.Now().UTC()

	var rows []contracts.Row
	for _, symbol := range c.symbols {
		arts, err := c.fetchSymbol(ctx, symbol, w.From, w.To)
		if err != nil {
			return nil, err
		}
		rows = append(rows, scoreArticles(symbol, arts, now)...)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbols": len(c.symbols),
		"rows":    len(rows),
	}).Debug("Fetched news headlines")
	return rows, nil
}

func (c *Client) fetchSymbol(ctx context.Context, symbol string, from, to time.Time) ([]article, error) {
	query, ok := symbolQueries[symbol]
	if !ok {
		query = symbol
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("from", from.Format(time.RFC3339))
	params.Set("to", to.Format(time.RFC3339))
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", strconv.Itoa(c.pageSize))
	params.Set("apiKey", c.apiKey)

	fullURL := fmt.Sprintf("%s/v2/everything?%s", c.baseURL, params.Encode())

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return nil, &contracts.FetchError{Source: sourceName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &contracts.RateLimitError{Source: sourceName, RetryAfter: retryAfter(resp)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &contracts.FetchError{Source: sourceName, Err: fmt.Errorf("read body: %w", err)}
	}

	return parseEverything(body, resp.StatusCode)
}

// parseEverything decodes a /v2/everything payload. Application-level errors
// arrive with status "error"; the rateLimited code maps to the retryable
// error type regardless of the HTTP status.
func parseEverything(body []byte, statusCode int) ([]article, error) {
	var payload everythingResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &contracts.FetchError{Source: sourceName, Err: fmt.Errorf("parse json: %w", err)}
	}

	if payload.Status == "error" {
		if payload.Code == "rateLimited" {
			return nil, &contracts.RateLimitError{Source: sourceName}
		}
		return nil, &contracts.FetchError{
			Source: sourceName,
			Err:    fmt.Errorf("%s: %s", payload.Code, payload.Message),
		}
	}
	if statusCode != http.StatusOK {
		return nil, &contracts.FetchError{
			Source: sourceName,
			Err:    fmt.Errorf("unexpected status code: %d", statusCode),
		}
	}
	if payload.Articles == nil {
		return nil, &contracts.SchemaDriftError{Source: sourceName, Missing: []string{"articles"}}
	}

	return *payload.Articles, nil
}

// scoreArticles converts articles into sentiment-scored canonical rows.
// Articles without a URL or a parseable timestamp are skipped; the URL is
// the natural key and the timestamp drives freshness checks.
func scoreArticles(symbol string, arts []article, fetchedAt time.Time) []contracts.Row {
	var rows []contracts.Row
	for _, a := range arts {
		if a.URL == "" {
			continue
		}

		publishedAt, err := time.Parse(time.RFC3339, a.PublishedAt)
		if err != nil {
			continue
		}

		title := stripHTML(a.Title)
		text := strings.TrimSpace(title + ". " + stripHTML(a.Description))
		scores := sentiment.Score(text)

		rows = append(rows, contracts.NewsSentiment{
			Symbol:      symbol,
			FetchedAt:   fetchedAt,
			PublishedAt: publishedAt.UTC(),
			Source:      a.Source.Name,
			Title:       title,
			URL:         a.URL,
			Compound:    scores.Compound,
			Positive:    scores.Positive,
			Negative:    scores.Negative,
			Neutral:     scores.Neutral,
		})
	}
	return rows
}

// stripHTML flattens markup some feeds embed in titles and descriptions
func stripHTML(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
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
