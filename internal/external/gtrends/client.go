// Package gtrends fetches search-interest series from the Google Trends
// widget API. The protocol is two-phase: an explore call issues a short-lived
// token per widget, then the widgetdata call returns the timeline. Both
// responses carry an XSSI guard prefix that must be stripped before parsing.
package gtrends

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

	"github.com/marketdash/etl/internal/contracts"
	"github.com/marketdash/etl/pkg/httputil"
	"github.com/marketdash/etl/pkg/logger"
)

const sourceName = "gtrends"

// the widget API caps comparison requests at five terms
const maxKeywordsPerRequest = 5

// Client handles communication with the Trends widget API.
// SSOT: Trends HTTP calls happen only in this client.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	geo        string
	keywords   []string
}

// New creates a Trends client fetching the given keywords for one geo
func New(httpClient *httputil.Client, log *logger.Logger, baseURL, geo string, keywords []string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    baseURL,
		geo:        geo,
		keywords:   keywords,
	}
}

// Name identifies the pipeline this adapter feeds
func (c *Client) Name() string { return "trend" }

// Fact returns the target fact table
func (c *Client) Fact() contracts.FactType { return contracts.FactTrend }

// Fetch retrieves daily interest scores for every configured keyword.
// Keywords are chunked to the provider's five-term request cap; each chunk
// takes one explore call and one widgetdata call.
func (c *Client) Fetch(ctx context.Context, w contracts.Window) ([]contracts.Row, error) {
	var rows []contracts.Row

	for _, chunk := range chunkKeywords(c.keywords, maxKeywordsPerRequest) {
		chunkRows, err := c.fetchChunk(ctx, chunk, w.From, w.To)
		if err != nil {
			return nil, err
		}
		rows = append(rows, chunkRows...)
	}

	c.logger.WithFields(map[string]interface{}{
		"keywords": len(c.keywords),
		"rows":     len(rows),
	}).Debug("Fetched trend scores")
	return rows, nil
}

func (c *Client) fetchChunk(ctx context.Context, keywords []string, from, to time.Time) ([]contracts.Row, error) {
	widget, err := c.explore(ctx, keywords, from, to)
	if err != nil {
		return nil, err
	}

	body, err := c.widgetData(ctx, widget)
	if err != nil {
		return nil, err
	}

	return parseMultiline(body, keywords, c.geo)
}

// exploreRequest is the comparison request sent to the explore endpoint
type exploreRequest struct {
	ComparisonItem []comparisonItem `json:"comparisonItem"`
	Category       int              `json:"category"`
	Property       string           `json:"property"`
}

type comparisonItem struct {
	Keyword string `json:"keyword"`
	Geo     string `json:"geo"`
	Time    string `json:"time"`
}

type exploreResponse struct {
	Widgets *[]widget `json:"widgets"`
}

type widget struct {
	ID      string          `json:"id"`
	Token   string          `json:"token"`
	Request json.RawMessage `json:"request"`
}

// explore obtains the timeseries widget token for one keyword chunk
func (c *Client) explore(ctx context.Context, keywords []string, from, to time.Time) (*widget, error) {
	timeRange := fmt.Sprintf("%s %s", from.Format("2006-01-02"), to.Format("2006-01-02"))

	items := make([]comparisonItem, 0, len(keywords))
	for _, kw := range keywords {
		items = append(items, comparisonItem{Keyword: kw, Geo: c.geo, Time: timeRange})
	}

	reqJSON, err := json.Marshal(exploreRequest{ComparisonItem: items, Property: ""})
	if err != nil {
		return nil, &contracts.FetchError{Source: sourceName, Err: fmt.Errorf("marshal explore request: %w", err)}
	}

	params := url.Values{}
	params.Set("hl", "en-US")
	params.Set("tz", "0")
	params.Set("req", string(reqJSON))

	body, err := c.get(ctx, fmt.Sprintf("%s/trends/api/explore?%s", c.baseURL, params.Encode()))
	if err != nil {
		return nil, err
	}

	return parseExplore(body)
}

// widgetData fetches the multiline timeseries for an explore-issued widget
func (c *Client) widgetData(ctx context.Context, w *widget) ([]byte, error) {
	params := url.Values{}
	params.Set("hl", "en-US")
	params.Set("tz", "0")
	params.Set("token", w.Token)
	params.Set("req", string(w.Request))

	return c.get(ctx, fmt.Sprintf("%s/trends/api/widgetdata/multiline?%s", c.baseURL, params.Encode()))
}

func (c *Client) get(ctx context.Context, fullURL string) ([]byte, error) {
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
			Err:    fmt.Errorf("unexpected status code: %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &contracts.FetchError{Source: sourceName, Err: fmt.Errorf("read body: %w", err)}
	}

	return stripXSSI(body), nil
}

// stripXSSI removes the )]}' guard prefix the widget API prepends
func stripXSSI(body []byte) []byte {
	s := strings.TrimSpace(string(body))
	if strings.HasPrefix(s, ")]}'") {
		s = strings.TrimPrefix(s, ")]}'")
		s = strings.TrimPrefix(s, ",")
		s = strings.TrimLeft(s, "\r\n")
	}
	return []byte(s)
}

// parseExplore extracts the TIMESERIES widget from an explore response
func parseExplore(body []byte) (*widget, error) {
	var payload exploreResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &contracts.FetchError{Source: sourceName, Err: fmt.Errorf("parse explore json: %w", err)}
	}
	if payload.Widgets == nil {
		return nil, &contracts.SchemaDriftError{Source: sourceName, Missing: []string{"widgets"}}
	}

	for i := range *payload.Widgets {
		w := &(*payload.Widgets)[i]
		if w.ID == "TIMESERIES" {
			if w.Token == "" {
				return nil, &contracts.SchemaDriftError{Source: sourceName, Missing: []string{"widgets.token"}}
			}
			return w, nil
		}
	}
	return nil, &contracts.SchemaDriftError{Source: sourceName, Missing: []string{"widgets[TIMESERIES]"}}
}

// multilineResponse mirrors the widgetdata/multiline payload
type multilineResponse struct {
	Default *struct {
		TimelineData []timelinePoint `json:"timelineData"`
	} `json:"default"`
}

type timelinePoint struct {
	Time    string `json:"time"` // unix seconds
	Value   []int  `json:"value"`
	HasData []bool `json:"hasData"`
}

// parseMultiline turns a widgetdata payload into canonical trend rows.
// Each timeline point carries one value per requested keyword, in request
// order; points flagged without data become null scores.
func parseMultiline(body []byte, keywords []string, geo string) ([]contracts.Row, error) {
	var payload multilineResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &contracts.FetchError{Source: sourceName, Err: fmt.Errorf("parse multiline json: %w", err)}
	}
	if payload.Default == nil {
		return nil, &contracts.SchemaDriftError{Source: sourceName, Missing: []string{"default"}}
	}
	if payload.Default.TimelineData == nil {
		return nil, &contracts.SchemaDriftError{Source: sourceName, Missing: []string{"default.timelineData"}}
	}

	var rows []contracts.Row
	for _, point := range payload.Default.TimelineData {
		secs, err := strconv.ParseInt(point.Time, 10, 64)
		if err != nil {
			continue
		}
		date := time.Unix(secs, 0).UTC().Truncate(24 * time.Hour)

		for i, kw := range keywords {
			if i >= len(point.Value) {
				return nil, &contracts.SchemaDriftError{Source: sourceName, Missing: []string{"timelineData.value"}}
			}

			var score *int
			if i < len(point.HasData) && !point.HasData[i] {
				score = nil
			} else {
				v := point.Value[i]
				score = &v
			}

			rows = append(rows, contracts.TrendScore{
				Keyword: kw,
				Date:    date,
				Geo:     geo,
				Score:   score,
			})
		}
	}
	return rows, nil
}

// chunkKeywords splits keywords into request-sized groups
func chunkKeywords(keywords []string, size int) [][]string {
	var chunks [][]string
	for start := 0; start < len(keywords); start += size {
		end := start + size
		if end > len(keywords) {
			end = len(keywords)
		}
		chunks = append(chunks, keywords[start:end])
	}
	return chunks
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
