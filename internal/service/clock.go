package service

import (
	"time"

	"github.com/lifetrack/internal/analytics"
)

// Clock 在配置的时区内给出 "今天"
type Clock struct {
	now func() time.Time
	loc *time.Location
}

// NewClock 构造基于系统时间的 Clock，loc 为空时使用 UTC
func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return Clock{now: time.Now, loc: loc}
}

// FixedClock 返回恒定时间的 Clock，测试使用
func FixedClock(t time.Time) Clock {
	return Clock{now: func() time.Time { return t }, loc: t.Location()}
}

// Now 返回当前时刻
func (c Clock) Now() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}

// Today 返回当前时区下的日历日期（UTC 零点）
func (c Clock) Today() time.Time {
	loc := c.loc
	if loc == nil {
		loc = time.UTC
	}
	return analytics.DateOf(c.Now().In(loc))
}
