package scheduler

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(name string, success bool, start time.Time) JobResult {
	return JobResult{
		JobName:   name,
		StartTime: start,
		EndTime:   start.Add(time.Minute),
		Duration:  time.Minute,
		Success:   success,
	}
}

func TestJobHistoryLast(t *testing.T) {
	var h JobHistory

	_, ok := h.Last()
	assert.False(t, ok)

	base := time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC)
	h.Add(result("etl-daily", true, base))
	h.Add(result("etl-daily", false, base.Add(time.Hour)))

	last, ok := h.Last()
	require.True(t, ok)
	assert.False(t, last.Success)
	assert.Equal(t, base.Add(time.Hour), last.StartTime)
}

func TestJobHistoryCounts(t *testing.T) {
	var h JobHistory
	base := time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		h.Add(result("etl-daily", i%2 == 0, base.Add(time.Duration(i)*time.Hour)))
	}

	total, failed := h.Counts()
	assert.Equal(t, 4, total)
	assert.Equal(t, 2, failed)
	assert.InDelta(t, 0.5, h.SuccessRate(), 0.001)
}

func TestJobHistorySuccessRateEmpty(t *testing.T) {
	var h JobHistory
	assert.Zero(t, h.SuccessRate())
}

func TestJobHistoryCapsRetention(t *testing.T) {
	var h JobHistory
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < historyCap+25; i++ {
		r := result("etl-incremental", true, base.Add(time.Duration(i)*time.Minute))
		r.Error = fmt.Sprintf("run %d", i)
		h.Add(r)
	}

	total, _ := h.Counts()
	assert.Equal(t, historyCap, total)

	// the oldest 25 results were dropped, the newest retained
	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, fmt.Sprintf("run %d", historyCap+24), last.Error)
}
