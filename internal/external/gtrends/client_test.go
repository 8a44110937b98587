package gtrends

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketdash/etl/internal/contracts"
)

func TestStripXSSI(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"explore prefix", ")]}'\n{\"widgets\":[]}", `{"widgets":[]}`},
		{"widgetdata prefix", ")]}',\n{\"default\":{}}", `{"default":{}}`},
		{"no prefix", `{"plain":true}`, `{"plain":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(stripXSSI([]byte(tt.in))))
		})
	}
}

func TestParseExplore(t *testing.T) {
	body := `{
	  "widgets": [
	    {"id": "TIMESERIES", "token": "APP6_UEAAAAAZ", "request": {"time": "2026-08-20 2026-08-27"}},
	    {"id": "GEO_MAP", "token": "other", "request": {}}
	  ]
	}`

	w, err := parseExplore([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "TIMESERIES", w.ID)
	assert.Equal(t, "APP6_UEAAAAAZ", w.Token)
	assert.JSONEq(t, `{"time": "2026-08-20 2026-08-27"}`, string(w.Request))
}

func TestParseExploreMissingWidget(t *testing.T) {
	_, err := parseExplore([]byte(`{"widgets": [{"id": "GEO_MAP", "token": "x"}]}`))
	require.Error(t, err)

	var drift *contracts.SchemaDriftError
	require.ErrorAs(t, err, &drift)
	assert.Equal(t, []string{"widgets[TIMESERIES]"}, drift.Missing)
}

func TestParseMultiline(t *testing.T) {
	// 1756252800 = 2026-08-27 00:00:00 UTC
	body := `{
	  "default": {
	    "timelineData": [
	      {"time": "1756166400", "value": [63, 12], "hasData": [true, true]},
	      {"time": "1756252800", "value": [71, 0], "hasData": [true, false]}
	    ]
	  }
	}`

	rows, err := parseMultiline([]byte(body), []string{"recession", "inflation"}, "US")
	require.NoError(t, err)
	require.Len(t, rows, 4)

	first, ok := rows[0].(contracts.TrendScore)
	require.True(t, ok)
	assert.Equal(t, "recession", first.Keyword)
	assert.Equal(t, "US", first.Geo)
	require.NotNil(t, first.Score)
	assert.Equal(t, 63, *first.Score)

	// hasData=false becomes a null score
	last := rows[3].(contracts.TrendScore)
	assert.Equal(t, "inflation", last.Keyword)
	assert.Nil(t, last.Score)
}

func TestParseMultilineSchemaDrift(t *testing.T) {
	_, err := parseMultiline([]byte(`{"default": {}}`), []string{"recession"}, "US")
	require.Error(t, err)

	var drift *contracts.SchemaDriftError
	require.ErrorAs(t, err, &drift)
	assert.Equal(t, []string{"default.timelineData"}, drift.Missing)
}

func TestParseMultilineValueCountMismatch(t *testing.T) {
	body := `{"default": {"timelineData": [{"time": "1756252800", "value": [42], "hasData": [true]}]}}`

	_, err := parseMultiline([]byte(body), []string{"recession", "inflation"}, "US")
	require.Error(t, err)

	var drift *contracts.SchemaDriftError
	assert.ErrorAs(t, err, &drift)
}

func TestChunkKeywords(t *testing.T) {
	kws := []string{"a", "b", "c", "d", "e", "f", "g"}

	chunks := chunkKeywords(kws, 5)
	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0], 5)
	assert.Len(t, chunks[1], 2)

	assert.Empty(t, chunkKeywords(nil, 5))
}
