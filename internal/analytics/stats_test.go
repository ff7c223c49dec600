package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompletionStatsEmpty(t *testing.T) {
	stats := CompletionStatsFor(nil, testToday)
	assert.Equal(t, CompletionStats{}, stats)
	assert.Zero(t, stats.CompletionRate)
}

func TestCompletionStatsRate(t *testing.T) {
	entries := completedOn(0, 1, 2, 4, 6)
	entries = append(entries, Entry{Date: daysAgo(3)}, Entry{Date: daysAgo(5)})

	stats := CompletionStatsFor(entries, testToday)
	assert.Equal(t, 5, stats.TotalCompletions)
	assert.Equal(t, 7, stats.TotalDaysTracked)
	assert.InDelta(t, 71.43, stats.CompletionRate, 1e-9)
	// 周一 10-12 起：0,1,2 三天
	assert.Equal(t, 3, stats.CurrentWeekCompletions)
	// 10 月 1 日起全部在本月
	assert.Equal(t, 5, stats.CurrentMonthCompletions)
}

func TestCompletionStatsCountsDuplicateDayOnce(t *testing.T) {
	entries := []Entry{
		{Date: testToday, Completed: false},
		{Date: testToday, Completed: true},
		{Date: daysAgo(20), Completed: true},
	}

	stats := CompletionStatsFor(entries, testToday)
	assert.Equal(t, 2, stats.TotalDaysTracked)
	assert.Equal(t, 2, stats.TotalCompletions)
	assert.Equal(t, 1, stats.CurrentMonthCompletions)
	assert.Equal(t, 1, stats.CurrentWeekCompletions)
	assert.Equal(t, 100.0, stats.CompletionRate)
}
