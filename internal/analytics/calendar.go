package analytics

import "time"

// DateOf 返回 t 在其所在时区的日历日期，统一表示为该日期 00:00 UTC。
// 所有日期比较与相减都基于此表示，避免夏令时造成的 23/25 小时偏差。
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween 返回 from 到 to 相差的天数（to 晚于 from 时为正）。
func DaysBetween(from, to time.Time) int {
	return int(DateOf(to).Sub(DateOf(from)).Hours() / 24)
}

// WeekKey 标识一个以周一开始的 ISO 周
type WeekKey struct {
	monday time.Time
}

// WeekOf 返回日期所在的周
func WeekOf(t time.Time) WeekKey {
	date := DateOf(t)
	weekday := int(date.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return WeekKey{monday: date.AddDate(0, 0, -(weekday - 1))}
}

// Start 返回周一
func (w WeekKey) Start() time.Time { return w.monday }

// End 返回周日
func (w WeekKey) End() time.Time { return w.monday.AddDate(0, 0, 6) }

// Previous 返回上一周
func (w WeekKey) Previous() WeekKey {
	return WeekKey{monday: w.monday.AddDate(0, 0, -7)}
}

// Before 判断 w 是否早于 other
func (w WeekKey) Before(other WeekKey) bool { return w.monday.Before(other.monday) }

// MonthKey 标识一个自然月
type MonthKey struct {
	Year  int
	Month time.Month
}

// MonthOf 返回日期所在的月份
func MonthOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

// Previous 返回上一个月，一月回退到上一年十二月
func (m MonthKey) Previous() MonthKey {
	if m.Month == time.January {
		return MonthKey{Year: m.Year - 1, Month: time.December}
	}
	return MonthKey{Year: m.Year, Month: m.Month - 1}
}

// Before 判断 m 是否早于 other
func (m MonthKey) Before(other MonthKey) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

// First 返回当月第一天
func (m MonthKey) First() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Days 返回当月天数
func (m MonthKey) Days() int {
	return m.First().AddDate(0, 1, -1).Day()
}
