package analytics

import (
	"slices"
	"time"
)

// cadence 描述一种节奏下的周期划分方式。
// periodStart 把日期映射到所在周期的起始日，previous 返回上一个周期的起始日，
// active 判断最近一次打卡所在周期是否仍算作进行中。
type cadence struct {
	periodStart func(time.Time) time.Time
	previous    func(time.Time) time.Time
	active      func(lastCompleted, latestPeriod, today time.Time) bool
}

var (
	dailyCadence = cadence{
		periodStart: DateOf,
		previous: func(day time.Time) time.Time {
			return day.AddDate(0, 0, -1)
		},
		// 昨天完成的连胜尚未中断，今天的记录可能还没写入
		active: func(lastCompleted, _, today time.Time) bool {
			return DaysBetween(lastCompleted, today) <= 1
		},
	}

	weeklyCadence = cadence{
		periodStart: func(t time.Time) time.Time {
			return WeekOf(t).Start()
		},
		previous: func(monday time.Time) time.Time {
			return WeekOf(monday).Previous().Start()
		},
		active: func(_, latestPeriod, today time.Time) bool {
			return latestPeriod.Equal(WeekOf(today).Start())
		},
	}

	monthlyCadence = cadence{
		periodStart: func(t time.Time) time.Time {
			return MonthOf(t).First()
		},
		previous: func(first time.Time) time.Time {
			return MonthOf(first).Previous().First()
		},
		active: func(_, latestPeriod, today time.Time) bool {
			return latestPeriod.Equal(MonthOf(today).First())
		},
	}
)

// cadenceFor 按频率选择周期划分；custom 与未知值都按月处理
func cadenceFor(freq Frequency) cadence {
	switch freq {
	case FrequencyDaily:
		return dailyCadence
	case FrequencyWeekly:
		return weeklyCadence
	default:
		return monthlyCadence
	}
}

// CalculateStreak 根据已完成的打卡记录计算当前连胜与历史最长连胜。
// 未完成的记录会被忽略，同一天的重复记录只算一次，入参顺序无关。
func CalculateStreak(freq Frequency, entries []Entry, today time.Time) StreakInfo {
	dates := completedDates(entries)
	if len(dates) == 0 {
		return StreakInfo{}
	}

	c := cadenceFor(freq)
	periods := distinctPeriods(dates, c.periodStart)

	lastCompleted := dates[0]
	info := StreakInfo{
		LastCompletedDate: &lastCompleted,
		IsActive:          c.active(lastCompleted, periods[0], DateOf(today)),
	}

	expected := periods[0]
	for _, period := range periods {
		if !period.Equal(expected) {
			break
		}
		// 周、月节奏下是最早周期的起始日，不一定有打卡
		start := period
		info.StreakStartDate = &start
		info.CurrentStreak++
		expected = c.previous(period)
	}

	longest, run := 1, 1
	for i := 1; i < len(periods); i++ {
		if c.previous(periods[i-1]).Equal(periods[i]) {
			run++
			longest = max(longest, run)
		} else {
			run = 1
		}
	}
	info.LongestStreak = longest

	return info
}

// completedDates 返回去重后按日期倒序排列的完成日期
func completedDates(entries []Entry) []time.Time {
	seen := make(map[time.Time]struct{}, len(entries))
	dates := make([]time.Time, 0, len(entries))
	for _, entry := range entries {
		if !entry.Completed {
			continue
		}
		date := DateOf(entry.Date)
		if _, ok := seen[date]; ok {
			continue
		}
		seen[date] = struct{}{}
		dates = append(dates, date)
	}

	slices.SortFunc(dates, func(a, b time.Time) int {
		return b.Compare(a)
	})
	return dates
}

// distinctPeriods 把倒序日期映射为倒序且去重的周期起始日
func distinctPeriods(dates []time.Time, periodStart func(time.Time) time.Time) []time.Time {
	periods := make([]time.Time, 0, len(dates))
	for _, date := range dates {
		start := periodStart(date)
		if n := len(periods); n > 0 && periods[n-1].Equal(start) {
			continue
		}
		periods = append(periods, start)
	}
	return periods
}
