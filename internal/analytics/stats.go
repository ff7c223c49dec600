package analytics

import (
	"math"
	"time"
)

// CompletionStatsFor 汇总全部打卡记录（含未完成）的完成情况。
// 同一天多条记录视为一天，只要其中一条完成即算完成。
func CompletionStatsFor(entries []Entry, today time.Time) CompletionStats {
	days := trackedDays(entries)

	today = DateOf(today)
	monthStart := MonthOf(today).First()
	weekStart := WeekOf(today).Start()

	var stats CompletionStats
	stats.TotalDaysTracked = len(days)
	for date, completed := range days {
		if !completed {
			continue
		}
		stats.TotalCompletions++
		if !date.Before(monthStart) {
			stats.CurrentMonthCompletions++
		}
		if !date.Before(weekStart) {
			stats.CurrentWeekCompletions++
		}
	}

	stats.CompletionRate = percentage(stats.TotalCompletions, stats.TotalDaysTracked)
	return stats
}

// trackedDays 按日期去重，value 表示当天是否完成
func trackedDays(entries []Entry) map[time.Time]bool {
	days := make(map[time.Time]bool, len(entries))
	for _, entry := range entries {
		date := DateOf(entry.Date)
		days[date] = days[date] || entry.Completed
	}
	return days
}

// percentage 返回保留两位小数的百分比，分母为 0 时返回 0
func percentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return roundTo(float64(part)/float64(total)*100, 2)
}

func roundTo(value float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(value*scale) / scale
}
