package analytics

import (
	"slices"
	"time"
)

const (
	defaultWeeklyTarget  = 3
	defaultMonthlyTarget = 20

	improvingRatio = 1.1
	decliningRatio = 0.9
)

// ProgressTrendsFor 计算 [today-days, today] 窗口内的逐日数据、周/月汇总与整体趋势。
// 逐日数据是连续的，没有记录的日期补为未完成。
func ProgressTrendsFor(habit Habit, entries []Entry, days int, today time.Time) ProgressTrends {
	if days < 0 {
		days = 0
	}
	today = DateOf(today)
	start := today.AddDate(0, 0, -days)

	byDate := windowEntries(entries, start, today)

	daily := make([]DailyCompletion, 0, days+1)
	for day := start; !day.After(today); day = day.AddDate(0, 0, 1) {
		item := DailyCompletion{Date: day}
		if entry, ok := byDate[day]; ok {
			item.Completed = entry.Completed
			item.Mood = entry.Mood
			item.Notes = entry.Notes
		}
		daily = append(daily, item)
	}

	return ProgressTrends{
		DailyData:        daily,
		WeeklySummaries:  weeklySummaries(byDate, habit),
		MonthlySummaries: monthlySummaries(byDate, habit),
		OverallTrend:     determineTrend(byDate, days, today),
	}
}

// windowEntries 取窗口内的记录并按日期合并
func windowEntries(entries []Entry, start, end time.Time) map[time.Time]Entry {
	byDate := make(map[time.Time]Entry)
	for _, entry := range entries {
		date := DateOf(entry.Date)
		if date.Before(start) || date.After(end) {
			continue
		}
		merged, ok := byDate[date]
		if !ok {
			merged = Entry{Date: date}
		}
		merged.Completed = merged.Completed || entry.Completed
		if merged.Mood == "" {
			merged.Mood = entry.Mood
		}
		if merged.Notes == "" {
			merged.Notes = entry.Notes
		}
		byDate[date] = merged
	}
	return byDate
}

func weeklySummaries(byDate map[time.Time]Entry, habit Habit) []WeeklyProgress {
	counts := make(map[WeekKey]int)
	for date, entry := range byDate {
		if entry.Completed {
			counts[WeekOf(date)]++
		}
	}

	weeks := make([]WeekKey, 0, len(counts))
	for week := range counts {
		weeks = append(weeks, week)
	}
	slices.SortFunc(weeks, func(a, b WeekKey) int {
		return a.Start().Compare(b.Start())
	})

	target := defaultWeeklyTarget
	if habit.Frequency == FrequencyDaily {
		target = 7
	} else if habit.TargetDays != nil {
		target = *habit.TargetDays
	}

	summaries := make([]WeeklyProgress, 0, len(weeks))
	for _, week := range weeks {
		completions := counts[week]
		summaries = append(summaries, WeeklyProgress{
			WeekStart:      week.Start(),
			WeekEnd:        week.End(),
			Completions:    completions,
			Target:         target,
			CompletionRate: percentage(completions, target),
		})
	}
	return summaries
}

func monthlySummaries(byDate map[time.Time]Entry, habit Habit) []MonthlyProgress {
	counts := make(map[MonthKey]int)
	for date, entry := range byDate {
		if entry.Completed {
			counts[MonthOf(date)]++
		}
	}

	months := make([]MonthKey, 0, len(counts))
	for month := range counts {
		months = append(months, month)
	}
	slices.SortFunc(months, func(a, b MonthKey) int {
		return a.First().Compare(b.First())
	})

	summaries := make([]MonthlyProgress, 0, len(months))
	for _, month := range months {
		target := defaultMonthlyTarget
		if habit.Frequency == FrequencyDaily {
			target = month.Days()
		} else if habit.TargetDays != nil {
			target = *habit.TargetDays
		}

		completions := counts[month]
		summaries = append(summaries, MonthlyProgress{
			Month:          int(month.Month),
			Year:           month.Year,
			Completions:    completions,
			Target:         target,
			CompletionRate: percentage(completions, target),
		})
	}
	return summaries
}

// determineTrend 以 today-days/2 为界比较前后两段的完成密度。
// 两段都除以同一个 days/2，days 很小时该值可能为 0，此时密度按 0 处理。
func determineTrend(byDate map[time.Time]Entry, days int, today time.Time) Trend {
	if len(byDate) == 0 {
		return TrendNoData
	}

	midPoint := days / 2
	cutoff := today.AddDate(0, 0, -midPoint)

	var earlier, later int
	for date, entry := range byDate {
		if !entry.Completed {
			continue
		}
		if date.Before(cutoff) {
			earlier++
		} else {
			later++
		}
	}

	var earlierRate, laterRate float64
	if midPoint > 0 {
		earlierRate = float64(earlier) / float64(midPoint)
		laterRate = float64(later) / float64(midPoint)
	}

	switch {
	case laterRate > earlierRate*improvingRatio:
		return TrendImproving
	case laterRate < earlierRate*decliningRatio:
		return TrendDeclining
	default:
		return TrendStable
	}
}
