package newsapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketdash/etl/internal/contracts"
)

const sampleJSON = `{
  "status": "ok",
  "totalResults": 2,
  "articles": [
    {
      "source": {"id": null, "name": "Reuters"},
      "title": "Stocks rally as earnings beat expectations",
      "description": "Wall Street closed higher on strong results.",
      "url": "https://example.com/rally",
      "publishedAt": "2026-08-27T14:30:00Z"
    },
    {
      "source": {"id": null, "name": "Bloomberg"},
      "title": "Markets <b>plunge</b> on recession fears",
      "description": "<p>Indexes fell sharply in afternoon trading.</p>",
      "url": "https://example.com/plunge",
      "publishedAt": "2026-08-27T15:10:00Z"
    }
  ]
}`

func TestParseEverything(t *testing.T) {
	arts, err := parseEverything([]byte(sampleJSON), 200)
	require.NoError(t, err)
	require.Len(t, arts, 2)
	assert.Equal(t, "Reuters", arts[0].Source.Name)
	assert.Equal(t, "https://example.com/rally", arts[0].URL)
}

func TestParseEverythingRateLimited(t *testing.T) {
	body := `{"status": "error", "code": "rateLimited", "message": "You have made too many requests"}`

	_, err := parseEverything([]byte(body), 429)
	require.Error(t, err)

	var rl *contracts.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, "newsapi", rl.Source)
}

func TestParseEverythingAPIError(t *testing.T) {
	body := `{"status": "error", "code": "apiKeyInvalid", "message": "Your API key is invalid"}`

	_, err := parseEverything([]byte(body), 401)
	require.Error(t, err)

	var fetchErr *contracts.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, fetchErr.Error(), "apiKeyInvalid")
}

func TestParseEverythingSchemaDrift(t *testing.T) {
	_, err := parseEverything([]byte(`{"status": "ok", "totalResults": 0}`), 200)
	require.Error(t, err)

	var drift *contracts.SchemaDriftError
	require.ErrorAs(t, err, &drift)
	assert.Equal(t, []string{"articles"}, drift.Missing)
}

func TestScoreArticles(t *testing.T) {
	arts, err := parseEverything([]byte(sampleJSON), 200)
	require.NoError(t, err)

	fetchedAt := time.Date(2026, 8, 27, 16, 0, 0, 0, time.UTC)
	rows := scoreArticles("SPY", arts, fetchedAt)
	require.Len(t, rows, 2)

	pos, ok := rows[0].(contracts.NewsSentiment)
	require.True(t, ok)
	assert.Equal(t, "SPY", pos.Symbol)
	assert.Equal(t, fetchedAt, pos.FetchedAt)
	assert.Greater(t, pos.Compound, 0.0)

	// markup stripped before scoring, key is the URL
	neg := rows[1].(contracts.NewsSentiment)
	assert.Equal(t, "Markets plunge on recession fears", neg.Title)
	assert.Equal(t, "https://example.com/plunge", neg.Key())
	assert.Less(t, neg.Compound, 0.0)
}

func TestScoreArticlesSkipsUnusable(t *testing.T) {
	arts := []article{
		{Title: "No URL here", PublishedAt: "2026-08-27T10:00:00Z"},
		{Title: "Bad timestamp", URL: "https://example.com/x", PublishedAt: "yesterday"},
	}

	rows := scoreArticles("QQQ", arts, time.Now().UTC())
	assert.Empty(t, rows)
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "plain text", stripHTML("  plain text "))
	assert.Equal(t, "bold move", stripHTML("<b>bold</b> move"))
	assert.Equal(t, "Indexes fell sharply", stripHTML("<p>Indexes fell <i>sharply</i></p>"))
}
