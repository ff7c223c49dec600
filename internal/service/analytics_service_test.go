package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/lifetrack/internal/analytics"
	"github.com/lifetrack/internal/locale"
	"gorm.io/gorm"
)

type analyticsFixture struct {
	gdb       *gorm.DB
	habits    *HabitService
	entries   *HabitEntryService
	analytics *HabitAnalyticsService
	userID    uuid.UUID
}

func newAnalyticsFixture(t *testing.T) analyticsFixture {
	t.Helper()
	gdb := setupServiceTestDB(t)
	clock := FixedClock(serviceNow)
	return analyticsFixture{
		gdb:       gdb,
		habits:    NewHabitService(gdb, nil, clock),
		entries:   NewHabitEntryService(gdb, nil, clock),
		analytics: NewHabitAnalyticsService(gdb, nil, clock, DefaultGraceDays),
		userID:    uuid.New(),
	}
}

func TestAnalyticsServiceStreakAndStats(t *testing.T) {
	f := newAnalyticsFixture(t)
	ctx := context.Background()

	habit := mustCreateHabit(t, f.habits, f.userID, "阅读", "daily")
	mustLogDays(t, f.entries, f.userID, habit.ID, 2, 1, 0)
	if _, err := f.entries.Create(ctx, f.userID, habit.ID, EntryInput{EntryDate: day(3)}); err != nil {
		t.Fatalf("failed to log missed day: %v", err)
	}

	streak, err := f.analytics.Streak(ctx, f.userID, habit.ID)
	if err != nil {
		t.Fatalf("Streak returned error: %v", err)
	}
	if streak.CurrentStreak != 3 || !streak.IsActive {
		t.Fatalf("unexpected streak: %+v", streak)
	}

	stats, err := f.analytics.CompletionStats(ctx, f.userID, habit.ID)
	if err != nil {
		t.Fatalf("CompletionStats returned error: %v", err)
	}
	if stats.TotalCompletions != 3 || stats.TotalDaysTracked != 4 || stats.CompletionRate != 75 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	// 10-12 是周一
	if stats.CurrentWeekCompletions != 3 {
		t.Fatalf("expected 3 completions this week, got %d", stats.CurrentWeekCompletions)
	}

	result, err := f.analytics.Analytics(ctx, f.userID, habit.ID, locale.LanguageEnglish)
	if err != nil {
		t.Fatalf("Analytics returned error: %v", err)
	}
	// min(3*5, 50) + 75*0.4 + 10
	if result.ConfidenceLevel != 55 {
		t.Fatalf("expected confidence 55, got %d", result.ConfidenceLevel)
	}
	if result.MotivationalMessage == "" {
		t.Fatal("expected motivational message")
	}
}

func TestAnalyticsServiceOwnership(t *testing.T) {
	f := newAnalyticsFixture(t)
	ctx := context.Background()

	habit := mustCreateHabit(t, f.habits, f.userID, "阅读", "daily")
	stranger := uuid.New()

	if _, err := f.analytics.Analytics(ctx, stranger, habit.ID, ""); !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("expected ErrHabitNotFound, got %v", err)
	}
	if _, err := f.analytics.Streak(ctx, f.userID, uuid.New()); !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("expected ErrHabitNotFound for unknown habit, got %v", err)
	}
}

func TestAnalyticsServiceProgressTrends(t *testing.T) {
	f := newAnalyticsFixture(t)
	ctx := context.Background()

	habit := mustCreateHabit(t, f.habits, f.userID, "跑步", "daily")
	mustLogDays(t, f.entries, f.userID, habit.ID, 3, 2, 1, 0)

	if _, err := f.analytics.ProgressTrends(ctx, f.userID, habit.ID, 6); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for days=6, got %v", err)
	}
	if _, err := f.analytics.ProgressTrends(ctx, f.userID, habit.ID, 366); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for days=366, got %v", err)
	}

	trends, err := f.analytics.ProgressTrends(ctx, f.userID, habit.ID, 7)
	if err != nil {
		t.Fatalf("ProgressTrends returned error: %v", err)
	}
	if len(trends.DailyData) != 8 {
		t.Fatalf("expected 8 daily points, got %d", len(trends.DailyData))
	}
	if trends.OverallTrend != analytics.TrendImproving {
		t.Fatalf("expected improving trend, got %s", trends.OverallTrend)
	}
}

func TestAnalyticsServiceStreakRecovery(t *testing.T) {
	f := newAnalyticsFixture(t)
	ctx := context.Background()

	habit := mustCreateHabit(t, f.habits, f.userID, "背单词", "daily")
	mustLogDays(t, f.entries, f.userID, habit.ID, 3, 2)

	info, err := f.analytics.StreakRecovery(ctx, f.userID, habit.ID, f.analytics.GraceDays())
	if err != nil {
		t.Fatalf("StreakRecovery returned error: %v", err)
	}
	if !info.CanRecover || info.DaysSinceLastCompletion != 2 {
		t.Fatalf("unexpected recovery info: %+v", info)
	}
	if info.RecoveryDeadline == nil || !info.RecoveryDeadline.Equal(day(0)) {
		t.Fatalf("expected deadline today, got %v", info.RecoveryDeadline)
	}

	if _, err := f.analytics.StreakRecovery(ctx, f.userID, habit.ID, 8); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for grace_days=8, got %v", err)
	}
}

func TestUserInsights(t *testing.T) {
	f := newAnalyticsFixture(t)
	ctx := context.Background()

	empty, err := f.analytics.UserInsights(ctx, f.userID, locale.LanguageEnglish)
	if err != nil {
		t.Fatalf("UserInsights returned error: %v", err)
	}
	if len(empty.MotivationalInsights) != 1 || empty.MotivationalInsights[0] != "Start tracking your habits to unlock insights!" {
		t.Fatalf("unexpected onboarding insights: %v", empty.MotivationalInsights)
	}

	read := mustCreateHabit(t, f.habits, f.userID, "Read", "daily")
	mustLogDays(t, f.entries, f.userID, read.ID, 1, 0)

	run := mustCreateHabit(t, f.habits, f.userID, "Run", "daily")
	mustLogDays(t, f.entries, f.userID, run.ID, 0)
	for _, offset := range []int{1, 2, 3} {
		if _, err := f.entries.Create(ctx, f.userID, run.ID, EntryInput{EntryDate: day(offset)}); err != nil {
			t.Fatalf("failed to log missed day: %v", err)
		}
	}

	// 停用的习惯不参与洞察
	paused := mustCreateHabit(t, f.habits, f.userID, "Paused", "daily")
	inactive := false
	if _, err := f.habits.Update(ctx, f.userID, paused.ID, HabitPatch{IsActive: &inactive}); err != nil {
		t.Fatalf("failed to pause habit: %v", err)
	}

	insights, err := f.analytics.UserInsights(ctx, f.userID, locale.LanguageEnglish)
	if err != nil {
		t.Fatalf("UserInsights returned error: %v", err)
	}
	if len(insights.BestPerformingHabits) != 1 || insights.BestPerformingHabits[0] != "Read" {
		t.Fatalf("unexpected best performing: %v", insights.BestPerformingHabits)
	}
	if len(insights.NeedsAttention) != 1 || insights.NeedsAttention[0] != "Run" {
		t.Fatalf("unexpected needs attention: %v", insights.NeedsAttention)
	}
	if insights.TotalActiveStreaks != 2 {
		t.Fatalf("expected 2 active streaks, got %d", insights.TotalActiveStreaks)
	}
	// (100 + 25) / 2
	if insights.OverallCompletionRate != 62.5 {
		t.Fatalf("expected overall rate 62.5, got %v", insights.OverallCompletionRate)
	}

	// 其他用户看不到这些习惯
	other, err := f.analytics.UserInsights(ctx, uuid.New(), locale.LanguageEnglish)
	if err != nil {
		t.Fatalf("UserInsights for other user returned error: %v", err)
	}
	if len(other.BestPerformingHabits) != 0 || other.TotalActiveStreaks != 0 {
		t.Fatalf("expected empty insights for other user, got %+v", other)
	}
}

func TestUserInsightsSkipsHabitsThatFailToLoad(t *testing.T) {
	f := newAnalyticsFixture(t)
	ctx := context.Background()

	first := mustCreateHabit(t, f.habits, f.userID, "Read", "daily")
	mustLogDays(t, f.entries, f.userID, first.ID, 0)
	second := mustCreateHabit(t, f.habits, f.userID, "Write", "daily")
	mustLogDays(t, f.entries, f.userID, second.ID, 0)

	// 只让第一次读取打卡日志失败
	failed := false
	if err := f.gdb.Callback().Query().Before("gorm:query").Register("test:fail_entries_once", func(tx *gorm.DB) {
		if tx.Statement.Table == "habit_entries" && !failed {
			failed = true
			tx.AddError(errors.New("disk on fire"))
		}
	}); err != nil {
		t.Fatalf("register callback: %v", err)
	}

	insights, err := f.analytics.UserInsights(ctx, f.userID, locale.LanguageEnglish)
	if err != nil {
		t.Fatalf("UserInsights returned error: %v", err)
	}
	if !failed {
		t.Fatal("expected the failing callback to run")
	}
	if len(insights.BestPerformingHabits) != 1 {
		t.Fatalf("expected one habit to survive, got %v", insights.BestPerformingHabits)
	}
	if insights.TotalActiveStreaks != 1 {
		t.Fatalf("expected 1 active streak, got %d", insights.TotalActiveStreaks)
	}
}
