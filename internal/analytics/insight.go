package analytics

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/lifetrack/internal/locale"
)

const (
	maxRankedHabits     = 3
	bestPerformingRate  = 70.0
	needsAttentionRate  = 50.0
	streakScorePerDay   = 5
	maxStreakScore      = 50
	rateScoreWeight     = 0.4
	activeStreakBonus   = 10
	maxConfidenceLevel  = 100
	topHabitsInSentence = 2
)

// ConfidenceLevel 综合连胜长度、完成率与活跃度给出 0-100 的信心值
func ConfidenceLevel(streak StreakInfo, stats CompletionStats) int {
	streakScore := min(streak.CurrentStreak*streakScorePerDay, maxStreakScore)
	rateScore := stats.CompletionRate * rateScoreWeight
	bonus := 0
	if streak.IsActive {
		bonus = activeStreakBonus
	}

	total := int(float64(streakScore) + rateScore + float64(bonus))
	return max(0, min(total, maxConfidenceLevel))
}

// MotivationalMessage 依次拼接连胜档位、完成率评价和最长连胜提示
func MotivationalMessage(habitName string, streak StreakInfo, stats CompletionStats, language string) string {
	days := streak.CurrentStreak
	messages := make([]string, 0, 3)

	switch {
	case days == 0:
		messages = append(messages, locale.Pick(language,
			fmt.Sprintf("Start your %s journey today! Every expert was once a beginner.", habitName),
			fmt.Sprintf("今天就开始你的「%s」之旅吧！每个高手都曾是新手。", habitName)))
	case days < 7:
		messages = append(messages, locale.Pick(language,
			fmt.Sprintf("Great start! You're on a %d-day streak with %s. Keep the momentum going!", days, habitName),
			fmt.Sprintf("开局不错！「%s」已连续 %d 天，保持势头！", habitName, days)))
	case days < 30:
		messages = append(messages, locale.Pick(language,
			fmt.Sprintf("Impressive! %d days strong! You're building a solid habit.", days),
			fmt.Sprintf("厉害！已坚持 %d 天，习惯正在成形。", days)))
	case days < 100:
		messages = append(messages, locale.Pick(language,
			fmt.Sprintf("Outstanding! %d-day streak! You're truly committed to %s.", days, habitName),
			fmt.Sprintf("太棒了！连续 %d 天！你对「%s」是认真的。", days, habitName)))
	default:
		messages = append(messages, locale.Pick(language,
			fmt.Sprintf("Legendary! %d days of %s! You're an inspiration!", days, habitName),
			fmt.Sprintf("传奇！「%s」已坚持 %d 天，你就是榜样！", habitName, days)))
	}

	switch {
	case stats.CompletionRate >= 90:
		messages = append(messages, locale.Pick(language,
			fmt.Sprintf("With a %.1f%% completion rate, you're crushing it!", stats.CompletionRate),
			fmt.Sprintf("完成率 %.1f%%，表现出色！", stats.CompletionRate)))
	case stats.CompletionRate >= 70:
		messages = append(messages, locale.Pick(language,
			"You're doing great! Stay consistent to reach even higher.",
			"做得很好！保持稳定，还能更进一步。"))
	default:
		messages = append(messages, locale.Pick(language,
			"Every day is a new opportunity. You've got this!",
			"每一天都是新的机会，你可以的！"))
	}

	if streak.CurrentStreak > 0 && streak.CurrentStreak == streak.LongestStreak {
		messages = append(messages, locale.Pick(language,
			"🔥 This is your longest streak yet!",
			"🔥 这是你迄今最长的连胜！"))
	}

	return strings.Join(messages, " ")
}

// Analyze 计算单个习惯的连胜、完成率、信心值与激励语
func Analyze(habit Habit, entries []Entry, today time.Time, language string) HabitAnalytics {
	streak := CalculateStreak(habit.Frequency, entries, today)
	stats := CompletionStatsFor(entries, today)

	return HabitAnalytics{
		HabitID:             habit.ID,
		HabitName:           habit.Name,
		Frequency:           habit.Frequency,
		StreakInfo:          streak,
		CompletionStats:     stats,
		ConfidenceLevel:     ConfidenceLevel(streak, stats),
		MotivationalMessage: MotivationalMessage(habit.Name, streak, stats, language),
	}
}

// byCompletionRate 按完成率降序，完成率相同时按名称升序
func byCompletionRate(a, b HabitAnalytics) int {
	if diff := cmp.Compare(b.CompletionStats.CompletionRate, a.CompletionStats.CompletionRate); diff != 0 {
		return diff
	}
	return cmp.Compare(a.HabitName, b.HabitName)
}

// BuildInsights 汇总多个习惯的分析结果。
// results 为空（用户没有可分析的活跃习惯）时返回引导提示。
func BuildInsights(results []HabitAnalytics, language string) Insights {
	insights := Insights{
		BestPerformingHabits: []string{},
		NeedsAttention:       []string{},
	}
	if len(results) == 0 {
		insights.MotivationalInsights = []string{locale.Pick(language,
			"Start tracking your habits to unlock insights!",
			"开始记录你的习惯，解锁专属洞察！")}
		return insights
	}

	ranked := slices.Clone(results)
	slices.SortStableFunc(ranked, byCompletionRate)

	for _, item := range ranked[:min(maxRankedHabits, len(ranked))] {
		if item.CompletionStats.CompletionRate >= bestPerformingRate {
			insights.BestPerformingHabits = append(insights.BestPerformingHabits, item.HabitName)
		}
	}
	for _, item := range ranked[max(0, len(ranked)-maxRankedHabits):] {
		if item.CompletionStats.CompletionRate < needsAttentionRate {
			insights.NeedsAttention = append(insights.NeedsAttention, item.HabitName)
		}
	}

	var streakSum int
	var rateSum float64
	for _, item := range results {
		if item.StreakInfo.IsActive {
			insights.TotalActiveStreaks++
		}
		streakSum += item.StreakInfo.CurrentStreak
		rateSum += item.CompletionStats.CompletionRate
	}
	insights.AverageStreakLength = roundTo(float64(streakSum)/float64(len(results)), 1)
	insights.OverallCompletionRate = roundTo(rateSum/float64(len(results)), 2)

	insights.MotivationalInsights = motivationalInsights(insights, language)
	return insights
}

func motivationalInsights(insights Insights, language string) []string {
	var lines []string

	if active := insights.TotalActiveStreaks; active > 0 {
		plural := "s"
		if active == 1 {
			plural = ""
		}
		lines = append(lines, locale.Pick(language,
			fmt.Sprintf("🔥 You have %d active streak%s! Keep the momentum going!", active, plural),
			fmt.Sprintf("🔥 你有 %d 个进行中的连胜！保持势头！", active)))
	}

	switch rate := insights.OverallCompletionRate; {
	case rate >= 80:
		lines = append(lines, locale.Pick(language,
			"⭐ Outstanding performance! You're maintaining excellent consistency.",
			"⭐ 表现出色！你保持了极佳的稳定性。"))
	case rate >= 60:
		lines = append(lines, locale.Pick(language,
			"💪 Good job! You're building strong habits. Keep pushing!",
			"💪 干得好！习惯正在变得牢固，继续加油！"))
	default:
		lines = append(lines, locale.Pick(language,
			"🌱 Every journey starts with small steps. Focus on consistency!",
			"🌱 千里之行始于足下，专注于坚持！"))
	}

	if len(insights.BestPerformingHabits) > 0 {
		top := insights.BestPerformingHabits[:min(topHabitsInSentence, len(insights.BestPerformingHabits))]
		lines = append(lines, locale.Pick(language,
			"✨ Your top habits: "+strings.Join(top, ", "),
			"✨ 你表现最好的习惯："+strings.Join(top, "、")))
	}

	return lines
}
