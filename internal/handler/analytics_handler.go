package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lifetrack/internal/analytics"
	"github.com/lifetrack/internal/service"
)

type streakInfoPayload struct {
	CurrentStreak     int     `json:"current_streak"`
	LongestStreak     int     `json:"longest_streak"`
	LastCompletedDate *string `json:"last_completed_date"`
	IsActive          bool    `json:"is_active"`
	StreakStartDate   *string `json:"streak_start_date"`
}

type completionStatsPayload struct {
	TotalCompletions        int     `json:"total_completions"`
	TotalDaysTracked        int     `json:"total_days_tracked"`
	CompletionRate          float64 `json:"completion_rate"`
	CurrentMonthCompletions int     `json:"current_month_completions"`
	CurrentWeekCompletions  int     `json:"current_week_completions"`
}

type habitAnalyticsPayload struct {
	HabitID             string                 `json:"habit_id"`
	HabitName           string                 `json:"habit_name"`
	Frequency           string                 `json:"frequency"`
	StreakInfo          streakInfoPayload      `json:"streak_info"`
	CompletionStats     completionStatsPayload `json:"completion_stats"`
	ConfidenceLevel     int                    `json:"confidence_level"`
	MotivationalMessage string                 `json:"motivational_message"`
}

type dailyCompletionPayload struct {
	Date      string  `json:"date"`
	Completed bool    `json:"completed"`
	Mood      *string `json:"mood"`
	Notes     *string `json:"notes"`
}

type weeklyProgressPayload struct {
	WeekStart      string  `json:"week_start"`
	WeekEnd        string  `json:"week_end"`
	Completions    int     `json:"completions"`
	Target         int     `json:"target"`
	CompletionRate float64 `json:"completion_rate"`
}

type monthlyProgressPayload struct {
	Month          int     `json:"month"`
	Year           int     `json:"year"`
	Completions    int     `json:"completions"`
	Target         int     `json:"target"`
	CompletionRate float64 `json:"completion_rate"`
}

type progressTrendsPayload struct {
	DailyData        []dailyCompletionPayload `json:"daily_data"`
	WeeklySummaries  []weeklyProgressPayload  `json:"weekly_summaries"`
	MonthlySummaries []monthlyProgressPayload `json:"monthly_summaries"`
	OverallTrend     string                   `json:"overall_trend"`
}

type recoveryPayload struct {
	CanRecover              bool    `json:"can_recover"`
	DaysSinceLastCompletion int     `json:"days_since_last_completion"`
	RecoveryDeadline        *string `json:"recovery_deadline"`
	GracePeriodDays         int     `json:"grace_period_days"`
}

type insightsPayload struct {
	BestPerformingHabits  []string `json:"best_performing_habits"`
	NeedsAttention        []string `json:"needs_attention"`
	TotalActiveStreaks    int      `json:"total_active_streaks"`
	AverageStreakLength   float64  `json:"average_streak_length"`
	OverallCompletionRate float64  `json:"overall_completion_rate"`
	MotivationalInsights  []string `json:"motivational_insights"`
}

// GetHabitAnalytics 返回单个习惯的综合分析
func (a *API) GetHabitAnalytics(c *gin.Context) {
	userID, habitID, ok := a.habitRequest(c)
	if !ok {
		return
	}

	result, err := a.analytics.Analytics(c.Request.Context(), userID, habitID, requestLanguage(c))
	if err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAnalyticsPayload(result))
}

// GetHabitProgress 返回最近 days 天（默认 90）的趋势
func (a *API) GetHabitProgress(c *gin.Context) {
	userID, habitID, ok := a.habitRequest(c)
	if !ok {
		return
	}

	days, err := parseIntQuery(c, "days", service.DefaultTrendDays, service.MinTrendDays, service.MaxTrendDays)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	trends, err := a.analytics.ProgressTrends(c.Request.Context(), userID, habitID, days)
	if err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTrendsPayload(trends))
}

// GetStreakRecovery 返回断签补救资格
func (a *API) GetStreakRecovery(c *gin.Context) {
	userID, habitID, ok := a.habitRequest(c)
	if !ok {
		return
	}

	graceDays, err := parseIntQuery(c, "grace_days", a.analytics.GraceDays(), 0, service.MaxGraceDays)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	info, err := a.analytics.StreakRecovery(c.Request.Context(), userID, habitID, graceDays)
	if err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, recoveryPayload{
		CanRecover:              info.CanRecover,
		DaysSinceLastCompletion: info.DaysSinceLastCompletion,
		RecoveryDeadline:        formatOptionalDate(info.RecoveryDeadline),
		GracePeriodDays:         info.GracePeriodDays,
	})
}

// GetHabitInsights 汇总当前用户全部启用习惯的洞察
func (a *API) GetHabitInsights(c *gin.Context) {
	userID, ok := a.requireUser(c)
	if !ok {
		return
	}

	insights, err := a.analytics.UserInsights(c.Request.Context(), userID, requestLanguage(c))
	if err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, insightsPayload{
		BestPerformingHabits:  insights.BestPerformingHabits,
		NeedsAttention:        insights.NeedsAttention,
		TotalActiveStreaks:    insights.TotalActiveStreaks,
		AverageStreakLength:   insights.AverageStreakLength,
		OverallCompletionRate: insights.OverallCompletionRate,
		MotivationalInsights:  insights.MotivationalInsights,
	})
}

func toAnalyticsPayload(result analytics.HabitAnalytics) habitAnalyticsPayload {
	return habitAnalyticsPayload{
		HabitID:   result.HabitID,
		HabitName: result.HabitName,
		Frequency: string(result.Frequency),
		StreakInfo: streakInfoPayload{
			CurrentStreak:     result.StreakInfo.CurrentStreak,
			LongestStreak:     result.StreakInfo.LongestStreak,
			LastCompletedDate: formatOptionalDate(result.StreakInfo.LastCompletedDate),
			IsActive:          result.StreakInfo.IsActive,
			StreakStartDate:   formatOptionalDate(result.StreakInfo.StreakStartDate),
		},
		CompletionStats: completionStatsPayload{
			TotalCompletions:        result.CompletionStats.TotalCompletions,
			TotalDaysTracked:        result.CompletionStats.TotalDaysTracked,
			CompletionRate:          result.CompletionStats.CompletionRate,
			CurrentMonthCompletions: result.CompletionStats.CurrentMonthCompletions,
			CurrentWeekCompletions:  result.CompletionStats.CurrentWeekCompletions,
		},
		ConfidenceLevel:     result.ConfidenceLevel,
		MotivationalMessage: result.MotivationalMessage,
	}
}

func toTrendsPayload(trends analytics.ProgressTrends) progressTrendsPayload {
	payload := progressTrendsPayload{
		DailyData:        make([]dailyCompletionPayload, 0, len(trends.DailyData)),
		WeeklySummaries:  make([]weeklyProgressPayload, 0, len(trends.WeeklySummaries)),
		MonthlySummaries: make([]monthlyProgressPayload, 0, len(trends.MonthlySummaries)),
		OverallTrend:     string(trends.OverallTrend),
	}

	for _, day := range trends.DailyData {
		payload.DailyData = append(payload.DailyData, dailyCompletionPayload{
			Date:      formatDate(day.Date),
			Completed: day.Completed,
			Mood:      optionalString(day.Mood),
			Notes:     optionalString(day.Notes),
		})
	}
	for _, week := range trends.WeeklySummaries {
		payload.WeeklySummaries = append(payload.WeeklySummaries, weeklyProgressPayload{
			WeekStart:      formatDate(week.WeekStart),
			WeekEnd:        formatDate(week.WeekEnd),
			Completions:    week.Completions,
			Target:         week.Target,
			CompletionRate: week.CompletionRate,
		})
	}
	for _, month := range trends.MonthlySummaries {
		payload.MonthlySummaries = append(payload.MonthlySummaries, monthlyProgressPayload{
			Month:          month.Month,
			Year:           month.Year,
			Completions:    month.Completions,
			Target:         month.Target,
			CompletionRate: month.CompletionRate,
		})
	}

	return payload
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
