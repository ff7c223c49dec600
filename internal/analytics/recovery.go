package analytics

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRecoveryUnavailable 表示当前连胜无需或无法补救
	ErrRecoveryUnavailable = errors.New("streak recovery is not available")
	// ErrRecoveryDateOutOfRange 表示补签日期不在宽限窗口内
	ErrRecoveryDateOutOfRange = errors.New("recovery date is outside the grace period")
)

// EvaluateRecovery 判断断签后是否还能通过补签一天来延续连胜。
// 日频下昨天完成仍算活跃，所以窗口是 graceDays+1 天。
func EvaluateRecovery(streak StreakInfo, graceDays int, today time.Time) RecoveryInfo {
	graceDays = max(graceDays, 0)
	info := RecoveryInfo{GracePeriodDays: graceDays}

	if streak.IsActive || streak.LastCompletedDate == nil {
		return info
	}

	last := DateOf(*streak.LastCompletedDate)
	info.DaysSinceLastCompletion = DaysBetween(last, today)
	info.CanRecover = info.DaysSinceLastCompletion <= graceDays+1
	if info.CanRecover {
		deadline := last.AddDate(0, 0, graceDays+1)
		info.RecoveryDeadline = &deadline
	}

	return info
}

// ValidateRecoveryDate 校验补签日期：必须满足 today-(grace+1) <= date <= today
func ValidateRecoveryDate(info RecoveryInfo, date, today time.Time) error {
	if !info.CanRecover {
		return ErrRecoveryUnavailable
	}

	date = DateOf(date)
	today = DateOf(today)
	earliest := today.AddDate(0, 0, -(info.GracePeriodDays + 1))
	if date.After(today) || date.Before(earliest) {
		return fmt.Errorf("%w: %s not in [%s, %s]", ErrRecoveryDateOutOfRange,
			date.Format(time.DateOnly), earliest.Format(time.DateOnly), today.Format(time.DateOnly))
	}
	return nil
}
