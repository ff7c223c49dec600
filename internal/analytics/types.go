// Package analytics 实现习惯打卡数据的纯计算逻辑：连胜、完成率、趋势、洞察与断签补救。
//
// 所有函数只依赖入参，"今天" 由调用方显式传入，同一次计算内保持不变。
package analytics

import (
	"strings"
	"time"
)

// Frequency 描述习惯的执行节奏
type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
	FrequencyCustom Frequency = "custom"
)

// ParseFrequency 规范化频率字符串，未知值原样保留（计算时按月度处理）
func ParseFrequency(raw string) Frequency {
	return Frequency(strings.ToLower(strings.TrimSpace(raw)))
}

// Valid 判断是否为受支持的频率
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyCustom:
		return true
	}
	return false
}

// Habit 是分析所需的习惯配置
type Habit struct {
	ID         string
	Name       string
	Frequency  Frequency
	TargetDays *int
}

// Entry 表示某一天的打卡记录
type Entry struct {
	Date      time.Time
	Completed bool
	Mood      string
	Notes     string
}

// StreakInfo 汇总连胜信息
type StreakInfo struct {
	CurrentStreak     int
	LongestStreak     int
	LastCompletedDate *time.Time
	IsActive          bool
	StreakStartDate   *time.Time
}

// CompletionStats 汇总完成率统计
type CompletionStats struct {
	TotalCompletions        int
	TotalDaysTracked        int
	CompletionRate          float64
	CurrentMonthCompletions int
	CurrentWeekCompletions  int
}

// HabitAnalytics 是单个习惯的综合分析结果
type HabitAnalytics struct {
	HabitID             string
	HabitName           string
	Frequency           Frequency
	StreakInfo          StreakInfo
	CompletionStats     CompletionStats
	ConfidenceLevel     int
	MotivationalMessage string
}

// DailyCompletion 是趋势窗口内的单日数据
type DailyCompletion struct {
	Date      time.Time
	Completed bool
	Mood      string
	Notes     string
}

// WeeklyProgress 是单周汇总
type WeeklyProgress struct {
	WeekStart      time.Time
	WeekEnd        time.Time
	Completions    int
	Target         int
	CompletionRate float64
}

// MonthlyProgress 是单月汇总
type MonthlyProgress struct {
	Month          int
	Year           int
	Completions    int
	Target         int
	CompletionRate float64
}

// Trend 表示整体趋势方向
type Trend string

const (
	TrendNoData    Trend = "no_data"
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// ProgressTrends 是趋势分析结果
type ProgressTrends struct {
	DailyData        []DailyCompletion
	WeeklySummaries  []WeeklyProgress
	MonthlySummaries []MonthlyProgress
	OverallTrend     Trend
}

// RecoveryInfo 描述断签补救资格
type RecoveryInfo struct {
	CanRecover              bool
	DaysSinceLastCompletion int
	RecoveryDeadline        *time.Time
	GracePeriodDays         int
}

// Insights 是跨习惯汇总洞察
type Insights struct {
	BestPerformingHabits  []string
	NeedsAttention        []string
	TotalActiveStreaks    int
	AverageStreakLength   float64
	OverallCompletionRate float64
	MotivationalInsights  []string
}
