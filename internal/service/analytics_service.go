package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lifetrack/internal/analytics"
	"github.com/lifetrack/internal/db"
	"github.com/lifetrack/internal/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// DefaultTrendDays 是趋势窗口的默认天数
	DefaultTrendDays = 90
	// MinTrendDays 与 MaxTrendDays 限定趋势窗口
	MinTrendDays = 7
	MaxTrendDays = 365
	// DefaultGraceDays 是断签补救的默认宽限天数
	DefaultGraceDays = 1
	// MaxGraceDays 是允许配置的最大宽限天数
	MaxGraceDays = 7
)

// HabitAnalyticsService 负责加载习惯与打卡日志并调用 analytics 计算。
// 每次调用只读取一次 "今天"，同一请求内的所有结果基于同一日期。
type HabitAnalyticsService struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     Clock
	graceDays int
}

// NewHabitAnalyticsService 创建 HabitAnalyticsService，graceDays 超出 0-7 时回退到默认值
func NewHabitAnalyticsService(gdb *gorm.DB, log *zap.Logger, clock Clock, graceDays int) *HabitAnalyticsService {
	if log == nil {
		log = zap.NewNop()
	}
	if graceDays < 0 || graceDays > MaxGraceDays {
		graceDays = DefaultGraceDays
	}
	return &HabitAnalyticsService{db: gdb, log: log, clock: clock, graceDays: graceDays}
}

// GraceDays 返回配置的默认宽限天数
func (s *HabitAnalyticsService) GraceDays() int {
	return s.graceDays
}

// Streak 计算单个习惯的连胜
func (s *HabitAnalyticsService) Streak(ctx context.Context, userID, habitID uuid.UUID) (analytics.StreakInfo, error) {
	started := time.Now()
	habit, entries, err := s.load(ctx, userID, habitID)
	if err != nil {
		return analytics.StreakInfo{}, err
	}

	info := analytics.CalculateStreak(habit.Frequency, entries, s.clock.Today())
	metrics.ObserveComputation("streak", started)
	return info, nil
}

// CompletionStats 计算单个习惯的完成率统计
func (s *HabitAnalyticsService) CompletionStats(ctx context.Context, userID, habitID uuid.UUID) (analytics.CompletionStats, error) {
	started := time.Now()
	_, entries, err := s.load(ctx, userID, habitID)
	if err != nil {
		return analytics.CompletionStats{}, err
	}

	stats := analytics.CompletionStatsFor(entries, s.clock.Today())
	metrics.ObserveComputation("stats", started)
	return stats, nil
}

// Analytics 返回单个习惯的综合分析
func (s *HabitAnalyticsService) Analytics(ctx context.Context, userID, habitID uuid.UUID, language string) (analytics.HabitAnalytics, error) {
	started := time.Now()
	habit, entries, err := s.load(ctx, userID, habitID)
	if err != nil {
		return analytics.HabitAnalytics{}, err
	}

	result := analytics.Analyze(habit, entries, s.clock.Today(), language)
	metrics.ObserveComputation("analytics", started)
	return result, nil
}

// ProgressTrends 返回最近 days 天的趋势，days 必须在 7-365 之间
func (s *HabitAnalyticsService) ProgressTrends(ctx context.Context, userID, habitID uuid.UUID, days int) (analytics.ProgressTrends, error) {
	if days < MinTrendDays || days > MaxTrendDays {
		return analytics.ProgressTrends{}, fmt.Errorf("%w: days must be between %d and %d", ErrInvalidInput, MinTrendDays, MaxTrendDays)
	}

	started := time.Now()
	habit, entries, err := s.load(ctx, userID, habitID)
	if err != nil {
		return analytics.ProgressTrends{}, err
	}

	trends := analytics.ProgressTrendsFor(habit, entries, days, s.clock.Today())
	metrics.ObserveComputation("trends", started)
	return trends, nil
}

// StreakRecovery 判断断签补救资格，graceDays 必须在 0-7 之间
func (s *HabitAnalyticsService) StreakRecovery(ctx context.Context, userID, habitID uuid.UUID, graceDays int) (analytics.RecoveryInfo, error) {
	if graceDays < 0 || graceDays > MaxGraceDays {
		return analytics.RecoveryInfo{}, fmt.Errorf("%w: grace_days must be between 0 and %d", ErrInvalidInput, MaxGraceDays)
	}

	started := time.Now()
	habit, entries, err := s.load(ctx, userID, habitID)
	if err != nil {
		return analytics.RecoveryInfo{}, err
	}

	today := s.clock.Today()
	streak := analytics.CalculateStreak(habit.Frequency, entries, today)
	info := analytics.EvaluateRecovery(streak, graceDays, today)
	metrics.ObserveComputation("recovery", started)
	return info, nil
}

// UserInsights 汇总用户全部启用习惯的洞察。
// 单个习惯加载失败时记录日志并跳过，不影响其他习惯。
func (s *HabitAnalyticsService) UserInsights(ctx context.Context, userID uuid.UUID, language string) (analytics.Insights, error) {
	started := time.Now()
	today := s.clock.Today()

	var habits []db.Habit
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at ASC").
		Find(&habits).Error; err != nil {
		return analytics.Insights{}, fmt.Errorf("list active habits: %w", err)
	}

	results := make([]analytics.HabitAnalytics, 0, len(habits))
	for _, habit := range habits {
		entries, err := loadEntries(s.db.WithContext(ctx), habit.ID)
		if err != nil {
			metrics.InsightSkips.Inc()
			s.log.Warn("skip habit in insights",
				zap.String("habit_id", habit.ID.String()),
				zap.Error(err))
			continue
		}
		results = append(results, analytics.Analyze(toAnalyticsHabit(habit), toAnalyticsEntries(entries), today, language))
	}

	insights := analytics.BuildInsights(results, language)
	metrics.ObserveComputation("insights", started)
	return insights, nil
}

// load 读取属于 userID 的习惯及其完整日志
func (s *HabitAnalyticsService) load(ctx context.Context, userID, habitID uuid.UUID) (analytics.Habit, []analytics.Entry, error) {
	gdb := s.db.WithContext(ctx)

	habit, err := findHabit(gdb, userID, habitID)
	if err != nil {
		return analytics.Habit{}, nil, err
	}

	entries, err := loadEntries(gdb, habit.ID)
	if err != nil {
		return analytics.Habit{}, nil, err
	}

	return toAnalyticsHabit(*habit), toAnalyticsEntries(entries), nil
}
